package entities

import "time"

// User represents a wallet owner in our system.
type User struct {
	ID        int64     `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserWithWallet is the admin listing projection: a user joined with the
// summary of their wallet.
type UserWithWallet struct {
	User
	Wallet WalletSummary `json:"wallet"`
}

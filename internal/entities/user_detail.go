package entities

// UserDetail is the single-user admin view: the user, their wallet summary
// and their most recent deposits.
type UserDetail struct {
	User           User          `json:"user"`
	Wallet         WalletSummary `json:"wallet"`
	RecentDeposits []Deposit     `json:"recent_deposits"`
}

package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type Currency string

const (
	CurrencyUSDT  Currency = "USDT"
	CurrencyUSDC  Currency = "USDC"
	CurrencyBUSD  Currency = "BUSD"
	CurrencyBNB   Currency = "BNB"
	CurrencyETH   Currency = "ETH"
	CurrencyMATIC Currency = "MATIC"
)

var SupportedCurrencies = []Currency{
	CurrencyUSDT, CurrencyUSDC, CurrencyBUSD, CurrencyBNB, CurrencyETH, CurrencyMATIC,
}

func (c Currency) IsValid() bool {
	for _, s := range SupportedCurrencies {
		if c == s {
			return true
		}
	}
	return false
}

type Network string

const (
	NetworkBEP20   Network = "BEP20"
	NetworkTRC20   Network = "TRC20"
	NetworkERC20   Network = "ERC20"
	NetworkPolygon Network = "POLYGON"
)

var SupportedNetworks = []Network{
	NetworkBEP20, NetworkTRC20, NetworkERC20, NetworkPolygon,
}

func (n Network) IsValid() bool {
	for _, s := range SupportedNetworks {
		if n == s {
			return true
		}
	}
	return false
}

// IsEVM reports whether transaction hashes on this network follow the
// 32-byte 0x-hex format.
func (n Network) IsEVM() bool {
	return n == NetworkBEP20 || n == NetworkERC20 || n == NetworkPolygon
}

type DepositStatus string

const (
	DepositStatusPending   DepositStatus = "PENDING"
	DepositStatusConfirmed DepositStatus = "CONFIRMED"
	DepositStatusCancelled DepositStatus = "CANCELLED"
)

type DepositType string

const (
	DepositTypeBlockchain  DepositType = "BLOCKCHAIN"
	DepositTypeManualAdmin DepositType = "MANUAL_ADMIN"
)

// Deposit is the record of a balance-affecting event. Once created only
// the status and the admin notes may change; CANCELLED is terminal.
type Deposit struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    Currency        `json:"currency"`
	Network     Network         `json:"network"`
	Status      DepositStatus   `json:"status"`
	DepositType DepositType     `json:"deposit_type"`
	AdminNotes  string          `json:"admin_notes"`
	TxHash      *string         `json:"tx_hash,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// DepositWithUser is the listing projection: a deposit joined with the
// owning user's identity.
type DepositWithUser struct {
	Deposit
	UserFullName string `json:"user_full_name"`
	UserEmail    string `json:"user_email"`
}

// DepositStatsBucket is one aggregation bucket of the manual deposit stats.
type DepositStatsBucket struct {
	Amount decimal.Decimal `json:"amount"`
	Count  int64           `json:"count"`
}

// DepositStats aggregates manual deposits overall and broken out per
// currency and per network.
type DepositStats struct {
	Total      DepositStatsBucket            `json:"total"`
	ByCurrency map[string]DepositStatsBucket `json:"byCurrency"`
	ByNetwork  map[string]DepositStatsBucket `json:"byNetwork"`
}

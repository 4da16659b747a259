package domain

import "github.com/ethereum/go-ethereum/common"

// Position is one open position held by a wallet, as reported by the
// upstream data API. Fields pass through untouched.
type Position struct {
	Asset        string  `json:"asset"`
	ConditionID  string  `json:"conditionId"`
	Market       string  `json:"title,omitempty"`
	Outcome      string  `json:"outcome,omitempty"`
	Size         float64 `json:"size"`
	AvgPrice     float64 `json:"avgPrice"`
	CurrentValue float64 `json:"currentValue"`
	CashPnL      float64 `json:"cashPnl"`
	PercentPnL   float64 `json:"percentPnl"`
	RealizedPnL  float64 `json:"realizedPnl"`
	InitialValue float64 `json:"initialValue"`
	Redeemable   bool    `json:"redeemable"`
}

// AccountValue is a wallet's total portfolio value in USD.
type AccountValue struct {
	Wallet string  `json:"user"`
	Value  float64 `json:"value"`
}

// ValidWallet reports whether s is a well-formed 0x hex address.
func ValidWallet(s string) bool {
	return common.IsHexAddress(s)
}

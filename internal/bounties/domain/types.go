package domain

// DepositRequest is a request to fund a bounty pool. Amount is a decimal
// string like "12.50"; it is parsed into smallest units with integer
// arithmetic, never floats.
type DepositRequest struct {
	BountyID string `json:"-"`
	Amount   string `json:"amount"`
}

// DepositResult describes a credited deposit.
type DepositResult struct {
	BountyID       string `json:"bountyId"`
	Amount         int64  `json:"amount"`
	AmountDecimal  string `json:"amountDecimal"`
	Balance        int64  `json:"balance"`
	BalanceDecimal string `json:"balanceDecimal"`
	SettlementRef  string `json:"settlementRef,omitempty"`
}

// Pool describes a bounty pool's current balance.
type Pool struct {
	BountyID       string `json:"bountyId"`
	Balance        int64  `json:"balance"`
	BalanceDecimal string `json:"balanceDecimal"`
}

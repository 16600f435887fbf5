package domain

import "time"

// Stake is one user's monetary commitment to one choice on one market. The
// username/first-name snapshot is denormalized so lists render without joins.
// A stake is created exactly once by admission and mutated exactly once
// (payout assignment) by settlement; it is never deleted.
type Stake struct {
	ID            string    `json:"id"`
	MarketID      string    `json:"marketId"`
	UserID        string    `json:"userId"`
	UserUsername  string    `json:"userUsername,omitempty"`
	UserFirstName string    `json:"userFirstName,omitempty"`
	Choice        Choice    `json:"choice"`
	Amount        string    `json:"amount"`
	TxHash        string    `json:"txHash"`
	Payout        string    `json:"payout,omitempty"`
	PayoutTxHash  string    `json:"payoutTxHash,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Won reports whether the stake backed the settled result.
func (s Stake) Won(result Choice) bool {
	return s.Choice == result
}

// StakeWithMarket is a stake enriched with denormalized market fields for the
// "my stakes" view.
type StakeWithMarket struct {
	Stake
	MarketQuestion string       `json:"marketQuestion"`
	MarketStatus   MarketStatus `json:"marketStatus"`
	MarketResult   Choice       `json:"marketResult,omitempty"`
	MarketDeadline time.Time    `json:"marketDeadline"`
}

package domain

import "time"

// MaxTipMessageLen is the maximum tip message length.
const MaxTipMessageLen = 280

// Tip is a single recorded tip payment. The txHash is globally unique so a
// retried client call cannot double-record the same on-chain payment.
type Tip struct {
	ID            string    `json:"id"`
	FromUserID    string    `json:"fromUserId"`
	FromUsername  string    `json:"fromUsername,omitempty"`
	FromFirstName string    `json:"fromFirstName,omitempty"`
	Amount        string    `json:"amount"`
	Message       string    `json:"message,omitempty"`
	TxHash        string    `json:"txHash"`
	CreatedAt     time.Time `json:"createdAt"`
}

// LeaderboardEntry is one tipper's aggregate standing.
type LeaderboardEntry struct {
	UserID      string `json:"userId"`
	Username    string `json:"username,omitempty"`
	FirstName   string `json:"firstName,omitempty"`
	TotalAmount string `json:"totalAmount"`
	TipCount    int64  `json:"tipCount"`
}

// TipStats is the advisory read-model over all tips.
type TipStats struct {
	TotalTips   int64  `json:"totalTips"`
	TotalAmount string `json:"totalAmount"`
}

package domain

import "time"

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusActive  MarketStatus = "active"
	MarketStatusClosed  MarketStatus = "closed"
	MarketStatusSettled MarketStatus = "settled"
)

// Valid reports whether s is one of the known lifecycle states.
func (s MarketStatus) Valid() bool {
	switch s {
	case MarketStatusActive, MarketStatusClosed, MarketStatusSettled:
		return true
	}
	return false
}

// Choice is a side of a binary market.
type Choice string

const (
	ChoiceYes Choice = "yes"
	ChoiceNo  Choice = "no"
)

// Valid reports whether c is "yes" or "no".
func (c Choice) Valid() bool {
	return c == ChoiceYes || c == ChoiceNo
}

// MaxQuestionLen is the maximum market question length.
const MaxQuestionLen = 280

// Deadline bounds in hours: one hour to seven days.
const (
	MinDeadlineHours = 1
	MaxDeadlineHours = 168
)

// Market is a single yes/no prediction question with a deadline and a value
// pool per side. Pools are decimal-string integers in nanoTON and are
// monotonically non-decreasing while the market is active. Result is set if
// and only if the market is settled.
type Market struct {
	ID                 string       `json:"id"`
	Question           string       `json:"question"`
	CreatedBy          string       `json:"createdBy"`
	CreatedByUsername  string       `json:"createdByUsername,omitempty"`
	CreatedByFirstName string       `json:"createdByFirstName,omitempty"`
	Deadline           time.Time    `json:"deadline"`
	Status             MarketStatus `json:"status"`
	Result             Choice       `json:"result,omitempty"`
	YesPool            string       `json:"yesPool"`
	NoPool             string       `json:"noPool"`
	CreatedAt          time.Time    `json:"createdAt"`
	UpdatedAt          time.Time    `json:"updatedAt"`
}

// Pool returns the pool backing the given choice.
func (m Market) Pool(c Choice) string {
	if c == ChoiceYes {
		return m.YesPool
	}
	return m.NoPool
}

// MarketDetail is a market together with its stakes and, when the caller is
// authenticated, the caller's own stake.
type MarketDetail struct {
	Market
	Stakes      []Stake `json:"stakes"`
	CallerStake *Stake  `json:"callerStake,omitempty"`
}

// Stats is the advisory read-model over all markets.
type Stats struct {
	TotalMarkets  int64  `json:"totalMarkets"`
	ActiveMarkets int64  `json:"activeMarkets"`
	TotalStaked   string `json:"totalStaked"`
}

// Package memory implements the domain store interfaces with in-process maps.
// It backs unit tests and local development without a database. All stores
// created by NewLedger share one mutex, which makes the cross-entity atomic
// units (stake admission, settlement) trivially serial: each holds the lock
// for its whole sequence, so the pool-total invariant holds under any
// interleaving.
package memory

import (
	"sync"

	"github.com/tonstake/pollhouse/internal/domain"
)

// state is the shared in-memory ledger behind all store views.
type state struct {
	mu sync.RWMutex

	users    map[string]domain.User
	userByTG map[int64]string

	markets map[string]domain.Market

	stakes    map[string]domain.Stake
	stakeByTx map[string]string // txHash -> stake ID
	stakeByMU map[string]string // marketID+"/"+userID -> stake ID

	tips    map[string]domain.Tip
	tipByTx map[string]string

	// insertion order, for stable newest-first lists
	marketOrder []string
	stakeOrder  []string
	tipOrder    []string
}

// Ledger bundles the four store views over one shared state.
type Ledger struct {
	Users   *UserStore
	Markets *MarketStore
	Stakes  *StakeStore
	Tips    *TipStore
}

// NewLedger creates an empty in-memory ledger.
func NewLedger() *Ledger {
	st := &state{
		users:     make(map[string]domain.User),
		userByTG:  make(map[int64]string),
		markets:   make(map[string]domain.Market),
		stakes:    make(map[string]domain.Stake),
		stakeByTx: make(map[string]string),
		stakeByMU: make(map[string]string),
		tips:      make(map[string]domain.Tip),
		tipByTx:   make(map[string]string),
	}
	return &Ledger{
		Users:   &UserStore{st: st},
		Markets: &MarketStore{st: st},
		Stakes:  &StakeStore{st: st},
		Tips:    &TipStore{st: st},
	}
}

func stakeKey(marketID, userID string) string {
	return marketID + "/" + userID
}

package ledger

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"bridgeledger/storage"
)

// MinterRegistry tracks the bridge operators that originate blockchain events,
// keyed by (chain, operator). Cursor and fee updates are merge-patches that
// silently ignore unknown keys: a cursor report for an unregistered minter is
// expected during bootstrap, not an error.
type MinterRegistry struct {
	db storage.Database
	mu sync.RWMutex
}

// NewMinterRegistry constructs a registry bound to the given backend.
func NewMinterRegistry(db storage.Database) *MinterRegistry {
	return &MinterRegistry{db: db}
}

// Record inserts or fully replaces the minter keyed by its own chain and
// operator fields.
func (r *MinterRegistry) Record(minter Minter) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("minter registry not initialised")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.put(minter)
}

func (r *MinterRegistry) put(minter Minter) error {
	encoded, err := encodeMinter(&minter)
	if err != nil {
		return err
	}
	return r.db.Put(minterKey(minter.Key()), encoded)
}

func (r *MinterRegistry) get(key MinterKey) (Minter, bool, error) {
	raw, err := r.db.Get(minterKey(key))
	if err == storage.ErrNotFound {
		return Minter{}, false, nil
	}
	if err != nil {
		return Minter{}, false, err
	}
	minter, err := decodeMinter(raw)
	if err != nil {
		return Minter{}, false, err
	}
	return minter, true, nil
}

// Get returns the minter for the key if registered.
func (r *MinterRegistry) Get(key MinterKey) (Minter, bool, error) {
	if r == nil || r.db == nil {
		return Minter{}, false, fmt.Errorf("minter registry not initialised")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(key)
}

// UpdateFees replaces the minter's fee schedule, leaving every other field
// untouched. No-op when the key is absent.
func (r *MinterRegistry) UpdateFees(key MinterKey, depositFee, withdrawalFee *uint256.Int) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("minter registry not initialised")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	minter, ok, err := r.get(key)
	if err != nil || !ok {
		return err
	}
	minter.DepositFee = depositFee
	minter.WithdrawalFee = withdrawalFee
	return r.put(minter)
}

// UpdateLastObserved advances the last-observed-event watermark. No-op when
// the key is absent.
func (r *MinterRegistry) UpdateLastObserved(key MinterKey, event uint64) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("minter registry not initialised")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	minter, ok, err := r.get(key)
	if err != nil || !ok {
		return err
	}
	minter.LastObservedEvent = event
	return r.put(minter)
}

// UpdateLastScraped advances the last-scraped-event watermark. No-op when the
// key is absent.
func (r *MinterRegistry) UpdateLastScraped(key MinterKey, event uint64) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("minter registry not initialised")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	minter, ok, err := r.get(key)
	if err != nil || !ok {
		return err
	}
	minter.LastScrapedEvent = event
	return r.put(minter)
}

// List returns every registered minter in key order.
func (r *MinterRegistry) List() ([]MinterEntry, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("minter registry not initialised")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var entries []MinterEntry
	var decodeErr error
	err := r.db.Iterate(minterPrefix, func(_, value []byte) bool {
		minter, err := decodeMinter(value)
		if err != nil {
			decodeErr = err
			return false
		}
		entries = append(entries, MinterEntry{Key: minter.Key(), Minter: minter})
		return true
	})
	if err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return entries, nil
}

// ChainRegistered reports whether any minter operates on the chain.
func (r *MinterRegistry) ChainRegistered(chain ChainID) (bool, error) {
	entries, err := r.List()
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if entry.Minter.ChainID == chain {
			return true, nil
		}
	}
	return false, nil
}

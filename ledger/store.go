package ledger

import (
	"fmt"
	"log/slog"
	"sync"

	"bridgeledger/observability"
	"bridgeledger/storage"
)

// Store is the authoritative record of every in-flight and completed
// cross-network transfer. It owns the two directional ledgers and is the only
// place transfer-status invariants are enforced.
//
// Every mutation is a merge-patch: the existing record is fetched, a new
// record is built with only the named fields replaced, and the result is
// stored back. Unspecified fields, in particular Time and Operator, are never
// dropped. Status-advancing operations on unknown identifiers are silent
// no-ops because event redelivery and reordering are expected; updates that
// would move a record backwards are rejected with ErrIllegalTransition.
type Store struct {
	db      storage.Database
	tokens  *TokenRegistry
	logger  *slog.Logger
	metrics *observability.StoreMetrics
	mu      sync.RWMutex
}

// NewStore constructs a transaction store over the given backend. The token
// registry is consulted once per record creation to resolve the twin-ledger
// account; it is never re-resolved on later merges.
func NewStore(db storage.Database, tokens *TokenRegistry, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:      db,
		tokens:  tokens,
		logger:  logger.With(slog.String("component", "ledger.store")),
		metrics: observability.Store(),
	}
}

func (s *Store) ready() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("transaction store not initialised")
	}
	return nil
}

func (s *Store) getDeposit(id DepositID) (Deposit, bool, error) {
	raw, err := s.db.Get(depositKey(id))
	if err == storage.ErrNotFound {
		return Deposit{}, false, nil
	}
	if err != nil {
		return Deposit{}, false, err
	}
	deposit, err := decodeDeposit(raw)
	if err != nil {
		return Deposit{}, false, err
	}
	return deposit, true, nil
}

func (s *Store) putDeposit(deposit Deposit) error {
	encoded, err := encodeDeposit(&deposit)
	if err != nil {
		return err
	}
	return s.db.Put(depositKey(deposit.ID()), encoded)
}

func (s *Store) getWithdrawal(id WithdrawalID) (Withdrawal, bool, error) {
	raw, err := s.db.Get(withdrawalKey(id))
	if err == storage.ErrNotFound {
		return Withdrawal{}, false, nil
	}
	if err != nil {
		return Withdrawal{}, false, err
	}
	withdrawal, err := decodeWithdrawal(raw)
	if err != nil {
		return Withdrawal{}, false, err
	}
	return withdrawal, true, nil
}

func (s *Store) putWithdrawal(withdrawal Withdrawal) error {
	encoded, err := encodeWithdrawal(&withdrawal)
	if err != nil {
		return err
	}
	return s.db.Put(withdrawalKey(withdrawal.ID()), encoded)
}

func (s *Store) eachDeposit(fn func(Deposit) bool) error {
	var decodeErr error
	err := s.db.Iterate(depositPrefix, func(_, value []byte) bool {
		deposit, err := decodeDeposit(value)
		if err != nil {
			decodeErr = err
			return false
		}
		return fn(deposit)
	})
	if err != nil {
		return err
	}
	return decodeErr
}

func (s *Store) eachWithdrawal(fn func(Withdrawal) bool) error {
	var decodeErr error
	err := s.db.Iterate(withdrawalPrefix, func(_, value []byte) bool {
		withdrawal, err := decodeWithdrawal(value)
		if err != nil {
			decodeErr = err
			return false
		}
		return fn(withdrawal)
	})
	if err != nil {
		return err
	}
	return decodeErr
}

func (s *Store) resolveTwin(contract string, chain ChainID, operator Operator) string {
	if s.tokens == nil {
		return ""
	}
	twin, ok, err := s.tokens.TwinFor(mustParseAddress(contract), chain, operator)
	if err != nil {
		s.logger.Warn("twin lookup failed",
			slog.String("contract", contract),
			slog.Uint64("chain_id", uint64(chain)),
			slog.Any("error", err))
		return ""
	}
	if !ok {
		return ""
	}
	return twin
}

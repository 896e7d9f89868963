package ledger

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"bridgeledger/storage"
)

// TokenRegistry maps (contract address, chain) pairs to their twin-ledger
// accounts. Each operator owns an independent partition; lookups never fall
// back across partitions.
type TokenRegistry struct {
	db storage.Database
	mu sync.RWMutex
}

// NewTokenRegistry constructs a registry bound to the given backend.
func NewTokenRegistry(db storage.Database) *TokenRegistry {
	return &TokenRegistry{db: db}
}

// Register records the twin-ledger account for a bridged token within the
// operator's partition, replacing any previous mapping.
func (r *TokenRegistry) Register(pair TokenPair) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("token registry not initialised")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.db.Put(tokenKey(pair.Operator, pair.ContractAddress, pair.ChainID), []byte(pair.TwinAccount))
}

// TwinFor returns the twin-ledger account for the contract on the chain within
// the operator's partition.
func (r *TokenRegistry) TwinFor(contract common.Address, chain ChainID, operator Operator) (string, bool, error) {
	if r == nil || r.db == nil {
		return "", false, fmt.Errorf("token registry not initialised")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	raw, err := r.db.Get(tokenKey(operator, contract, chain))
	if err == storage.ErrNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(raw), true, nil
}

// Pairs lists every supported token pair: the canonical partition first, then
// the partner partition, each in key order.
func (r *TokenRegistry) Pairs() ([]TokenPair, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("token registry not initialised")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var pairs []TokenPair
	for _, operator := range []Operator{OperatorCanonical, OperatorPartner} {
		prefix := tokenPrefix(operator)
		err := r.db.Iterate(prefix, func(key, value []byte) bool {
			contract, chain, ok := splitTokenKey(prefix, key)
			if !ok {
				return true
			}
			pairs = append(pairs, TokenPair{
				ContractAddress: contract,
				ChainID:         chain,
				TwinAccount:     string(value),
				Operator:        operator,
			})
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	return pairs, nil
}

func splitTokenKey(prefix, key []byte) (common.Address, ChainID, bool) {
	suffix := key[len(prefix):]
	if len(suffix) != 8+common.AddressLength {
		return common.Address{}, 0, false
	}
	chain := ChainID(beUint64(suffix[:8]))
	return common.BytesToAddress(suffix[8:]), chain, true
}

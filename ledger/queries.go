package ledger

import (
	"github.com/ethereum/go-ethereum/common"
)

// Read-only reverse lookups. Both scans are linear over the affected tables;
// the tables are bounded by the reaper, so no secondary index is kept.

func depositSummary(d Deposit) TransferSummary {
	return TransferSummary{
		Direction:       DirectionDeposit,
		TxHash:          d.TxHash,
		ChainID:         d.ChainID,
		Amount:          d.Amount,
		ActualReceived:  d.ActualReceived,
		From:            d.FromAddress.Hex(),
		To:              d.Recipient,
		ContractAddress: d.ContractAddress,
		Status:          string(d.Status),
		Verified:        d.Verified,
		Time:            d.Time,
		Operator:        d.Operator,
	}
}

func withdrawalSummary(w Withdrawal) TransferSummary {
	return TransferSummary{
		Direction:       DirectionWithdrawal,
		TxHash:          w.TxHash,
		ChainID:         w.ChainID,
		Amount:          w.Amount,
		ActualReceived:  w.ActualReceived,
		From:            w.FromAccount,
		To:              w.Destination.Hex(),
		ContractAddress: w.ContractAddress,
		Status:          string(w.Status),
		Verified:        w.Verified,
		Time:            w.Time,
		Operator:        w.Operator,
	}
}

// TransfersForAddress returns deposits sent from the address unioned with
// withdrawals destined for it.
func (s *Store) TransfersForAddress(address common.Address) ([]TransferSummary, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var summaries []TransferSummary
	err := s.eachDeposit(func(deposit Deposit) bool {
		if deposit.FromAddress == address {
			summaries = append(summaries, depositSummary(deposit))
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	err = s.eachWithdrawal(func(withdrawal Withdrawal) bool {
		if withdrawal.Destination == address {
			summaries = append(summaries, withdrawalSummary(withdrawal))
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// TransfersForAccount returns deposits destined for the ledger account unioned
// with withdrawals originating from it.
func (s *Store) TransfersForAccount(account string) ([]TransferSummary, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var summaries []TransferSummary
	err := s.eachDeposit(func(deposit Deposit) bool {
		if deposit.Recipient == account {
			summaries = append(summaries, depositSummary(deposit))
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	err = s.eachWithdrawal(func(withdrawal Withdrawal) bool {
		if withdrawal.FromAccount == account {
			summaries = append(summaries, withdrawalSummary(withdrawal))
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// SupportedPairs lists every bridged token pair via the token registry.
func (s *Store) SupportedPairs() ([]TokenPair, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if s.tokens == nil {
		return nil, nil
	}
	return s.tokens.Pairs()
}

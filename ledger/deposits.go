package ledger

import (
	"errors"
	"log/slog"
	"math/big"

	"github.com/holiman/uint256"
)

// AcceptedDeposit carries the externally observed fields of a deposit event.
// Addresses and the amount arrive in their wire representations; parse
// failures are unrecoverable faults because format validation happens before
// events reach the store.
type AcceptedDeposit struct {
	BlockNumber uint64
	FromAddress string
	Amount      *big.Int
	Recipient   string
	Contract    string
	Subaccount  []byte
	Operator    Operator
}

// PendingDeposit carries the caller-announced fields of a deposit that has
// not yet been observed on chain.
type PendingDeposit struct {
	FromAddress string
	Amount      *big.Int
	Recipient   string
	Contract    string
	Subaccount  []byte
	Operator    Operator
}

// RecordPendingDeposit records a caller-announced transfer ahead of its
// on-chain confirmation. The record is born unverified; it either gets
// verified by a later accepted event or evicted by the reaper once stale.
// No-op when the identifier already exists.
func (s *Store) RecordPendingDeposit(id DepositID, announcement PendingDeposit, now uint64) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok, err := s.getDeposit(id); err != nil {
		return err
	} else if ok {
		s.metrics.ObserveOperation("deposit", "pending", "exists")
		return nil
	}

	deposit := Deposit{
		FromAddress:     mustParseAddress(announcement.FromAddress),
		TxHash:          normalizeTxHash(id.TxHash),
		Amount:          mustAmount(announcement.Amount),
		Recipient:       announcement.Recipient,
		Subaccount:      announcement.Subaccount,
		ChainID:         id.ChainID,
		ContractAddress: mustParseAddress(announcement.Contract),
		TwinAccount:     s.resolveTwin(announcement.Contract, id.ChainID, announcement.Operator),
		Status:          DepositPending,
		Verified:        false,
		Time:            now,
		Operator:        announcement.Operator,
	}
	if err := s.putDeposit(deposit); err != nil {
		return err
	}
	s.metrics.ObserveOperation("deposit", "pending", "created")
	return nil
}

// HasDeposit reports whether a deposit record exists for the identifier.
func (s *Store) HasDeposit(id DepositID) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.Has(depositKey(id))
}

// RecordAcceptedDeposit records an observed-and-validated deposit. A known
// identifier gets a merge-patch (verified, block number, addresses, amount,
// status); an unknown one gets a fresh record born accepted and verified,
// with its twin-ledger account resolved now and its creation time set to now.
func (s *Store) RecordAcceptedDeposit(id DepositID, event AcceptedDeposit, now uint64) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	fromAddress := mustParseAddress(event.FromAddress)
	contract := mustParseAddress(event.Contract)
	amount := mustAmount(event.Amount)

	existing, ok, err := s.getDeposit(id)
	if err != nil {
		return err
	}
	if ok {
		next, err := applyDepositAccepted(existing, DepositAcceptedPatch{
			BlockNumber: event.BlockNumber,
			FromAddress: fromAddress,
			Amount:      amount,
			Recipient:   event.Recipient,
			Subaccount:  event.Subaccount,
			Contract:    contract,
		})
		if err != nil {
			return s.rejectDeposit(id, "accepted", err)
		}
		if err := s.putDeposit(next); err != nil {
			return err
		}
		s.metrics.ObserveOperation("deposit", "accepted", "merged")
		return nil
	}

	block := event.BlockNumber
	deposit := Deposit{
		FromAddress:     fromAddress,
		TxHash:          normalizeTxHash(id.TxHash),
		Amount:          amount,
		BlockNumber:     &block,
		ActualReceived:  nil,
		Recipient:       event.Recipient,
		Subaccount:      event.Subaccount,
		ChainID:         id.ChainID,
		ContractAddress: contract,
		TwinAccount:     s.resolveTwin(event.Contract, id.ChainID, event.Operator),
		Status:          DepositAccepted,
		Verified:        true,
		Time:            now,
		Operator:        event.Operator,
	}
	if err := s.putDeposit(deposit); err != nil {
		return err
	}
	s.metrics.ObserveOperation("deposit", "accepted", "created")
	return nil
}

// RecordMintedDeposit advances a deposit to minted, computing the post-fee
// received amount. No-op when the identifier is unknown.
func (s *Store) RecordMintedDeposit(id DepositID, depositFee *uint256.Int) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok, err := s.getDeposit(id)
	if err != nil {
		return err
	}
	if !ok {
		return s.absentDeposit(id, "minted")
	}
	next, err := applyDepositMinted(existing, depositFee)
	if err != nil {
		return s.rejectDeposit(id, "minted", err)
	}
	if err := s.putDeposit(next); err != nil {
		return err
	}
	s.metrics.ObserveOperation("deposit", "minted", "ok")
	return nil
}

// RecordInvalidDeposit marks a deposit invalid with the given reason. No-op
// when the identifier is unknown.
func (s *Store) RecordInvalidDeposit(id DepositID, reason string) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok, err := s.getDeposit(id)
	if err != nil {
		return err
	}
	if !ok {
		return s.absentDeposit(id, "invalid")
	}
	next, err := applyDepositInvalid(existing, reason)
	if err != nil {
		return s.rejectDeposit(id, "invalid", err)
	}
	if err := s.putDeposit(next); err != nil {
		return err
	}
	s.metrics.ObserveOperation("deposit", "invalid", "ok")
	return nil
}

// RecordQuarantinedDeposit marks a deposit quarantined. No-op when the
// identifier is unknown.
func (s *Store) RecordQuarantinedDeposit(id DepositID) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok, err := s.getDeposit(id)
	if err != nil {
		return err
	}
	if !ok {
		return s.absentDeposit(id, "quarantined")
	}
	next, err := applyDepositQuarantined(existing)
	if err != nil {
		return s.rejectDeposit(id, "quarantined", err)
	}
	if err := s.putDeposit(next); err != nil {
		return err
	}
	s.metrics.ObserveOperation("deposit", "quarantined", "ok")
	return nil
}

// UnverifiedDeposit pairs a deposit identifier with its record creation time.
type UnverifiedDeposit struct {
	ID   DepositID
	Time uint64
}

// UnverifiedDeposits lists every deposit still awaiting verification.
func (s *Store) UnverifiedDeposits() ([]UnverifiedDeposit, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []UnverifiedDeposit
	err := s.eachDeposit(func(deposit Deposit) bool {
		if !deposit.Verified {
			entries = append(entries, UnverifiedDeposit{ID: deposit.ID(), Time: deposit.Time})
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	s.metrics.SetUnverified("deposit", len(entries))
	return entries, nil
}

// RemoveDeposit deletes the record unconditionally. Reserved for direct
// operator action; eviction goes through RemoveDepositIfUnverified.
func (s *Store) RemoveDeposit(id DepositID) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Delete(depositKey(id)); err != nil {
		return err
	}
	s.metrics.ObserveOperation("deposit", "remove", "ok")
	return nil
}

// RemoveDepositIfUnverified deletes the record only if it is still unverified
// and was created before staleBefore. The re-check runs under the write lock,
// so a record verified between being listed and being evicted survives.
func (s *Store) RemoveDepositIfUnverified(id DepositID, staleBefore uint64) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	deposit, ok, err := s.getDeposit(id)
	if err != nil {
		return false, err
	}
	if !ok || deposit.Verified || deposit.Time >= staleBefore {
		s.metrics.ObserveOperation("deposit", "evict", "skipped")
		return false, nil
	}
	if err := s.db.Delete(depositKey(id)); err != nil {
		return false, err
	}
	s.metrics.ObserveOperation("deposit", "evict", "ok")
	return true, nil
}

func (s *Store) absentDeposit(id DepositID, operation string) error {
	s.metrics.ObserveOperation("deposit", operation, "absent")
	s.logger.Debug("deposit update for unknown identifier",
		slog.String("operation", operation),
		slog.String("tx_hash", id.TxHash),
		slog.Uint64("chain_id", uint64(id.ChainID)))
	return nil
}

func (s *Store) rejectDeposit(id DepositID, operation string, err error) error {
	if errors.Is(err, ErrIllegalTransition) {
		s.metrics.ObserveOperation("deposit", operation, "rejected")
		s.logger.Warn("deposit update rejected",
			slog.String("operation", operation),
			slog.String("tx_hash", id.TxHash),
			slog.Uint64("chain_id", uint64(id.ChainID)),
			slog.Any("error", err))
	}
	return err
}

package ledger

import (
	"errors"
	"log/slog"
	"math/big"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// AcceptedWithdrawal carries the externally observed fields of a withdrawal
// (burn) event. CreatedAt, when present, is the ledger-side creation time and
// takes precedence over the observation time for the record's Time field.
type AcceptedWithdrawal struct {
	MaxFee         *big.Int
	Amount         *big.Int
	Contract       string
	Destination    string
	TokenBurnIndex *uint64
	FromAccount    string
	FromSubaccount []byte
	CreatedAt      *uint64
	Operator       Operator
}

// PendingWithdrawal carries the caller-announced fields of a withdrawal that
// has not yet been confirmed by the ledger.
type PendingWithdrawal struct {
	MaxFee         *big.Int
	Amount         *big.Int
	Contract       string
	Destination    string
	TokenBurnIndex *uint64
	FromAccount    string
	FromSubaccount []byte
	Operator       Operator
}

// RecordPendingWithdrawal records a caller-announced withdrawal ahead of its
// ledger confirmation. The record is born unverified; it either gets verified
// by a later accepted event or evicted by the reaper once stale. No-op when
// the identifier already exists.
func (s *Store) RecordPendingWithdrawal(id WithdrawalID, announcement PendingWithdrawal, now uint64) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok, err := s.getWithdrawal(id); err != nil {
		return err
	} else if ok {
		s.metrics.ObserveOperation("withdrawal", "pending", "exists")
		return nil
	}

	withdrawal := Withdrawal{
		BurnIndex:       id.BurnIndex,
		Amount:          mustAmount(announcement.Amount),
		Destination:     mustParseAddress(announcement.Destination),
		FromAccount:     announcement.FromAccount,
		FromSubaccount:  announcement.FromSubaccount,
		ChainID:         id.ChainID,
		Time:            now,
		MaxFee:          optionalAmount(announcement.MaxFee),
		TokenBurnIndex:  announcement.TokenBurnIndex,
		ContractAddress: mustParseAddress(announcement.Contract),
		TwinAccount:     s.resolveTwin(announcement.Contract, id.ChainID, announcement.Operator),
		Verified:        false,
		Status:          WithdrawalPending,
		Operator:        announcement.Operator,
	}
	if err := s.putWithdrawal(withdrawal); err != nil {
		return err
	}
	s.metrics.ObserveOperation("withdrawal", "pending", "created")
	return nil
}

// HasWithdrawal reports whether a withdrawal record exists for the identifier.
func (s *Store) HasWithdrawal(id WithdrawalID) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.Has(withdrawalKey(id))
}

// RecordAcceptedWithdrawal records an observed-and-validated withdrawal. Known
// identifiers get a merge-patch; unknown ones get a fresh record born accepted
// and verified. The creation time is CreatedAt when supplied, otherwise now,
// and is preserved verbatim on later merges.
func (s *Store) RecordAcceptedWithdrawal(id WithdrawalID, event AcceptedWithdrawal, now uint64) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	destination := mustParseAddress(event.Destination)
	contract := mustParseAddress(event.Contract)
	amount := mustAmount(event.Amount)
	maxFee := optionalAmount(event.MaxFee)

	existing, ok, err := s.getWithdrawal(id)
	if err != nil {
		return err
	}
	if ok {
		next, err := applyWithdrawalAccepted(existing, WithdrawalAcceptedPatch{
			MaxFee:         maxFee,
			Amount:         amount,
			Contract:       contract,
			Destination:    destination,
			TokenBurnIndex: event.TokenBurnIndex,
			FromAccount:    event.FromAccount,
			FromSubaccount: event.FromSubaccount,
		})
		if err != nil {
			return s.rejectWithdrawal(id, "accepted", err)
		}
		if err := s.putWithdrawal(next); err != nil {
			return err
		}
		s.metrics.ObserveOperation("withdrawal", "accepted", "merged")
		return nil
	}

	createdAt := now
	if event.CreatedAt != nil {
		createdAt = *event.CreatedAt
	}
	withdrawal := Withdrawal{
		BurnIndex:       id.BurnIndex,
		Amount:          amount,
		ActualReceived:  nil,
		Destination:     destination,
		FromAccount:     event.FromAccount,
		FromSubaccount:  event.FromSubaccount,
		ChainID:         id.ChainID,
		Time:            createdAt,
		MaxFee:          maxFee,
		TokenBurnIndex:  event.TokenBurnIndex,
		ContractAddress: contract,
		TwinAccount:     s.resolveTwin(event.Contract, id.ChainID, event.Operator),
		Verified:        true,
		Status:          WithdrawalAccepted,
		Operator:        event.Operator,
	}
	if err := s.putWithdrawal(withdrawal); err != nil {
		return err
	}
	s.metrics.ObserveOperation("withdrawal", "accepted", "created")
	return nil
}

// RecordCreatedWithdrawal marks the outbound transaction as created. No-op
// when the identifier is unknown.
func (s *Store) RecordCreatedWithdrawal(id WithdrawalID) error {
	return s.advanceWithdrawal(id, "created", WithdrawalCreated)
}

// RecordSignedWithdrawal marks the outbound transaction as signed. No-op when
// the identifier is unknown.
func (s *Store) RecordSignedWithdrawal(id WithdrawalID) error {
	return s.advanceWithdrawal(id, "signed", WithdrawalSigned)
}

// RecordReplacedWithdrawal marks the outbound transaction as replaced. No-op
// when the identifier is unknown.
func (s *Store) RecordReplacedWithdrawal(id WithdrawalID) error {
	return s.advanceWithdrawal(id, "replaced", WithdrawalReplaced)
}

// RecordReimbursedWithdrawal marks a failed withdrawal as reimbursed. No-op
// when the identifier is unknown.
func (s *Store) RecordReimbursedWithdrawal(id WithdrawalID) error {
	return s.advanceWithdrawal(id, "reimbursed", WithdrawalReimbursed)
}

// RecordQuarantinedReimbursement marks a failed withdrawal's reimbursement as
// quarantined. No-op when the identifier is unknown.
func (s *Store) RecordQuarantinedReimbursement(id WithdrawalID) error {
	return s.advanceWithdrawal(id, "quarantined_reimbursement", WithdrawalQuarantinedReimbursement)
}

func (s *Store) advanceWithdrawal(id WithdrawalID, operation string, status WithdrawalStatus) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok, err := s.getWithdrawal(id)
	if err != nil {
		return err
	}
	if !ok {
		return s.absentWithdrawal(id, operation)
	}
	next, err := applyWithdrawalStatus(existing, status)
	if err != nil {
		return s.rejectWithdrawal(id, operation, err)
	}
	if err := s.putWithdrawal(next); err != nil {
		return err
	}
	s.metrics.ObserveOperation("withdrawal", operation, "ok")
	return nil
}

// RecordFinalizedWithdrawal settles a withdrawal from its transaction receipt:
// it computes the gas accounting, sets the transaction hash, and resolves the
// status to successful or failed from the receipt outcome. No-op when the
// identifier is unknown. Gas arithmetic overflowing the fixed-width amount
// type is an unrecoverable fault.
func (s *Store) RecordFinalizedWithdrawal(id WithdrawalID, receipt *ethtypes.Receipt, withdrawalFee *uint256.Int) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok, err := s.getWithdrawal(id)
	if err != nil {
		return err
	}
	if !ok {
		return s.absentWithdrawal(id, "finalized")
	}
	summary := ReceiptSummary{
		TxHash:            normalizeTxHash(receipt.TxHash.Hex()),
		GasUsed:           uint256.NewInt(receipt.GasUsed),
		EffectiveGasPrice: mustAmount(receipt.EffectiveGasPrice),
		Success:           receipt.Status == ethtypes.ReceiptStatusSuccessful,
	}
	next, err := applyWithdrawalFinalized(existing, summary, withdrawalFee)
	if err != nil {
		return s.rejectWithdrawal(id, "finalized", err)
	}
	if err := s.putWithdrawal(next); err != nil {
		return err
	}
	s.metrics.ObserveOperation("withdrawal", "finalized", "ok")
	return nil
}

// UnverifiedWithdrawal pairs a withdrawal identifier with its record creation
// time.
type UnverifiedWithdrawal struct {
	ID   WithdrawalID
	Time uint64
}

// UnverifiedWithdrawals lists every withdrawal still awaiting verification.
func (s *Store) UnverifiedWithdrawals() ([]UnverifiedWithdrawal, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []UnverifiedWithdrawal
	err := s.eachWithdrawal(func(withdrawal Withdrawal) bool {
		if !withdrawal.Verified {
			entries = append(entries, UnverifiedWithdrawal{ID: withdrawal.ID(), Time: withdrawal.Time})
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	s.metrics.SetUnverified("withdrawal", len(entries))
	return entries, nil
}

// RemoveWithdrawal deletes the record unconditionally. Reserved for direct
// operator action; eviction goes through RemoveWithdrawalIfUnverified.
func (s *Store) RemoveWithdrawal(id WithdrawalID) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Delete(withdrawalKey(id)); err != nil {
		return err
	}
	s.metrics.ObserveOperation("withdrawal", "remove", "ok")
	return nil
}

// RemoveWithdrawalIfUnverified deletes the record only if it is still
// unverified and was created before staleBefore. The re-check runs under the
// write lock, so a record verified between being listed and being evicted
// survives.
func (s *Store) RemoveWithdrawalIfUnverified(id WithdrawalID, staleBefore uint64) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	withdrawal, ok, err := s.getWithdrawal(id)
	if err != nil {
		return false, err
	}
	if !ok || withdrawal.Verified || withdrawal.Time >= staleBefore {
		s.metrics.ObserveOperation("withdrawal", "evict", "skipped")
		return false, nil
	}
	if err := s.db.Delete(withdrawalKey(id)); err != nil {
		return false, err
	}
	s.metrics.ObserveOperation("withdrawal", "evict", "ok")
	return true, nil
}

func (s *Store) absentWithdrawal(id WithdrawalID, operation string) error {
	s.metrics.ObserveOperation("withdrawal", operation, "absent")
	s.logger.Debug("withdrawal update for unknown identifier",
		slog.String("operation", operation),
		slog.Uint64("burn_index", id.BurnIndex),
		slog.Uint64("chain_id", uint64(id.ChainID)))
	return nil
}

func (s *Store) rejectWithdrawal(id WithdrawalID, operation string, err error) error {
	if errors.Is(err, ErrIllegalTransition) {
		s.metrics.ObserveOperation("withdrawal", operation, "rejected")
		s.logger.Warn("withdrawal update rejected",
			slog.String("operation", operation),
			slog.Uint64("burn_index", id.BurnIndex),
			slog.Uint64("chain_id", uint64(id.ChainID)),
			slog.Any("error", err))
	}
	return err
}

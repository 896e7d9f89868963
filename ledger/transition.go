package ledger

import (
	"errors"
	"fmt"
)

// ErrIllegalTransition is returned when a status update would move a record
// backwards or out of a terminal state. Redelivered events may legally repeat
// a non-terminal status, so self-transitions are allowed below terminal.
var ErrIllegalTransition = errors.New("ledger: illegal status transition")

var depositTransitions = map[DepositStatus][]DepositStatus{
	DepositPending:  {DepositAccepted},
	DepositAccepted: {DepositAccepted, DepositMinted, DepositInvalid, DepositQuarantined},
	// minted, invalid and quarantined are terminal
}

var withdrawalTransitions = map[WithdrawalStatus][]WithdrawalStatus{
	WithdrawalPending:                  {WithdrawalAccepted},
	WithdrawalAccepted:                 {WithdrawalAccepted, WithdrawalCreated, WithdrawalSigned, WithdrawalSuccessful, WithdrawalFailed},
	WithdrawalCreated:                  {WithdrawalCreated, WithdrawalSigned, WithdrawalReplaced, WithdrawalSuccessful, WithdrawalFailed},
	WithdrawalSigned:                   {WithdrawalSigned, WithdrawalReplaced, WithdrawalSuccessful, WithdrawalFailed},
	WithdrawalReplaced:                 {WithdrawalSigned, WithdrawalSuccessful, WithdrawalFailed},
	WithdrawalFailed:                   {WithdrawalReimbursed, WithdrawalQuarantinedReimbursement},
	WithdrawalQuarantinedReimbursement: {WithdrawalReimbursed},
	// successful and reimbursed are terminal
}

func checkDepositTransition(from, to DepositStatus) error {
	for _, allowed := range depositTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: deposit %s -> %s", ErrIllegalTransition, from, to)
}

func checkWithdrawalTransition(from, to WithdrawalStatus) error {
	for _, allowed := range withdrawalTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: withdrawal %s -> %s", ErrIllegalTransition, from, to)
}

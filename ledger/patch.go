package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Merge-patch constructors. Each takes the existing record by value and
// returns a new record with only the named fields replaced; everything else,
// in particular Time and Operator, is carried over untouched. Keeping these
// pure makes the state machine testable independent of storage.

// DepositAcceptedPatch names the fields replaced when an accepted deposit
// event is redelivered for an already known identifier.
type DepositAcceptedPatch struct {
	BlockNumber uint64
	FromAddress common.Address
	Amount      *uint256.Int
	Recipient   string
	Subaccount  []byte
	Contract    common.Address
}

func applyDepositAccepted(old Deposit, patch DepositAcceptedPatch) (Deposit, error) {
	if err := checkDepositTransition(old.Status, DepositAccepted); err != nil {
		return Deposit{}, err
	}
	next := old
	next.Verified = true
	block := patch.BlockNumber
	next.BlockNumber = &block
	next.FromAddress = patch.FromAddress
	next.Amount = patch.Amount
	next.Recipient = patch.Recipient
	next.Subaccount = patch.Subaccount
	next.ContractAddress = patch.Contract
	next.Status = DepositAccepted
	return next, nil
}

// applyDepositMinted advances the record to minted and computes the post-fee
// received amount. For the native asset the fee is deducted, clamped so the
// result never goes negative; token amounts pass through because the fee is
// denominated in the native asset.
func applyDepositMinted(old Deposit, depositFee *uint256.Int) (Deposit, error) {
	if err := checkDepositTransition(old.Status, DepositMinted); err != nil {
		return Deposit{}, err
	}
	next := old
	if IsNativeToken(old.ContractAddress) {
		received, underflow := new(uint256.Int).SubOverflow(old.Amount, depositFee)
		if underflow {
			received.Set(old.Amount)
		}
		next.ActualReceived = received
	} else {
		next.ActualReceived = new(uint256.Int).Set(old.Amount)
	}
	next.Status = DepositMinted
	return next, nil
}

func applyDepositInvalid(old Deposit, reason string) (Deposit, error) {
	if err := checkDepositTransition(old.Status, DepositInvalid); err != nil {
		return Deposit{}, err
	}
	next := old
	next.Status = DepositInvalid
	next.InvalidReason = reason
	return next, nil
}

func applyDepositQuarantined(old Deposit) (Deposit, error) {
	if err := checkDepositTransition(old.Status, DepositQuarantined); err != nil {
		return Deposit{}, err
	}
	next := old
	next.Status = DepositQuarantined
	return next, nil
}

// WithdrawalAcceptedPatch names the fields replaced when an accepted
// withdrawal event is redelivered for an already known identifier.
type WithdrawalAcceptedPatch struct {
	MaxFee         *uint256.Int
	Amount         *uint256.Int
	Contract       common.Address
	Destination    common.Address
	TokenBurnIndex *uint64
	FromAccount    string
	FromSubaccount []byte
}

func applyWithdrawalAccepted(old Withdrawal, patch WithdrawalAcceptedPatch) (Withdrawal, error) {
	if err := checkWithdrawalTransition(old.Status, WithdrawalAccepted); err != nil {
		return Withdrawal{}, err
	}
	next := old
	next.Verified = true
	next.MaxFee = patch.MaxFee
	next.Amount = patch.Amount
	next.ContractAddress = patch.Contract
	next.Destination = patch.Destination
	next.TokenBurnIndex = patch.TokenBurnIndex
	next.FromAccount = patch.FromAccount
	next.FromSubaccount = patch.FromSubaccount
	next.Status = WithdrawalAccepted
	return next, nil
}

func applyWithdrawalStatus(old Withdrawal, status WithdrawalStatus) (Withdrawal, error) {
	if err := checkWithdrawalTransition(old.Status, status); err != nil {
		return Withdrawal{}, err
	}
	next := old
	next.Status = status
	return next, nil
}

// ReceiptSummary carries the finalization inputs taken from a transaction
// receipt.
type ReceiptSummary struct {
	TxHash            string
	GasUsed           *uint256.Int
	EffectiveGasPrice *uint256.Int
	Success           bool
}

// applyWithdrawalFinalized computes the gas accounting and resolves the
// receipt outcome to successful or failed.
//
// total = gas_used * effective_gas_price + withdrawal_fee, with overflow
// treated as an unrecoverable fault: a receipt outside fixed-width bounds
// means the upstream data is corrupt. The amount-minus-total subtraction is
// deliberately not clamped; on underflow the received amount stays absent.
func applyWithdrawalFinalized(old Withdrawal, receipt ReceiptSummary, withdrawalFee *uint256.Int) (Withdrawal, error) {
	status := WithdrawalFailed
	if receipt.Success {
		status = WithdrawalSuccessful
	}
	if err := checkWithdrawalTransition(old.Status, status); err != nil {
		return Withdrawal{}, err
	}

	gasCost, overflow := new(uint256.Int).MulOverflow(receipt.GasUsed, receipt.EffectiveGasPrice)
	if overflow {
		panic(fmt.Sprintf("ledger: gas cost overflow for withdrawal %d on chain %d", old.BurnIndex, old.ChainID))
	}
	totalGasSpent, overflow := new(uint256.Int).AddOverflow(gasCost, withdrawalFee)
	if overflow {
		panic(fmt.Sprintf("ledger: total gas overflow for withdrawal %d on chain %d", old.BurnIndex, old.ChainID))
	}

	next := old
	if IsNativeToken(old.ContractAddress) {
		received, underflow := new(uint256.Int).SubOverflow(old.Amount, totalGasSpent)
		if underflow {
			next.ActualReceived = nil
		} else {
			next.ActualReceived = received
		}
	} else {
		next.ActualReceived = new(uint256.Int).Set(old.Amount)
	}
	next.TxHash = receipt.TxHash
	next.GasUsed = new(uint256.Int).Set(receipt.GasUsed)
	next.EffectiveGasPrice = new(uint256.Int).Set(receipt.EffectiveGasPrice)
	next.TotalGasSpent = totalGasSpent
	next.Status = status
	return next, nil
}

package ledger

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ChainID identifies an external smart-contract network.
type ChainID uint64

// Operator is the bridge-operator variant that originated and validates a
// transfer. The set is closed: exactly two operators exist, each with its own
// fee schedule and token-twin partition.
type Operator uint8

const (
	OperatorCanonical Operator = iota
	OperatorPartner
)

func (o Operator) String() string {
	switch o {
	case OperatorCanonical:
		return "canonical"
	case OperatorPartner:
		return "partner"
	default:
		return fmt.Sprintf("operator(%d)", uint8(o))
	}
}

// Valid reports whether the value names a known operator.
func (o Operator) Valid() bool {
	return o == OperatorCanonical || o == OperatorPartner
}

// MinterKey is the unique identity of a bridge-operator instance on a chain.
type MinterKey struct {
	ChainID  ChainID
	Operator Operator
}

// Minter tracks a bridge operator's event-stream watermarks and fee schedule.
// The cursors are monotone watermarks maintained by the event scraper; this
// layer stores whatever the scraper reports and does not order-check them.
type Minter struct {
	Account           string
	LastObservedEvent uint64
	LastScrapedEvent  uint64
	Operator          Operator
	DepositFee        *uint256.Int
	WithdrawalFee     *uint256.Int
	ChainID           ChainID
}

// Key derives the registry key from the minter's own chain and operator.
func (m *Minter) Key() MinterKey {
	return MinterKey{ChainID: m.ChainID, Operator: m.Operator}
}

// MinterEntry pairs a registry key with its minter for listings.
type MinterEntry struct {
	Key    MinterKey
	Minter Minter
}

// DepositID identifies a source-chain to ledger transfer.
type DepositID struct {
	TxHash  string
	ChainID ChainID
}

// WithdrawalID identifies a ledger to destination-chain transfer by its
// ledger-native burn index.
type WithdrawalID struct {
	BurnIndex uint64
	ChainID   ChainID
}

// DepositStatus is the closed status set of a deposit. The intended forward
// progression is pending -> accepted -> minted; invalid and quarantined are
// alternate terminal outcomes reachable from accepted.
type DepositStatus string

const (
	DepositPending     DepositStatus = "pending_verification"
	DepositAccepted    DepositStatus = "accepted"
	DepositMinted      DepositStatus = "minted"
	DepositInvalid     DepositStatus = "invalid"
	DepositQuarantined DepositStatus = "quarantined"
)

// WithdrawalStatus is the closed status set of a withdrawal.
type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending_verification"
	WithdrawalAccepted WithdrawalStatus = "accepted"
	WithdrawalCreated  WithdrawalStatus = "created"
	WithdrawalSigned   WithdrawalStatus = "signed_transaction"
	// WithdrawalFinalized is never persisted: finalization resolves directly
	// to successful or failed from the receipt outcome.
	WithdrawalFinalized                WithdrawalStatus = "finalized_transaction"
	WithdrawalReplaced                 WithdrawalStatus = "replaced_transaction"
	WithdrawalSuccessful               WithdrawalStatus = "successful"
	WithdrawalFailed                   WithdrawalStatus = "failed"
	WithdrawalReimbursed               WithdrawalStatus = "reimbursed"
	WithdrawalQuarantinedReimbursement WithdrawalStatus = "quarantined_reimbursement"
)

// Deposit is the persisted record of a source-chain to ledger transfer.
// Amounts are fixed-point integers in the token's smallest denomination.
type Deposit struct {
	FromAddress     common.Address
	TxHash          string
	Amount          *uint256.Int
	BlockNumber     *uint64
	ActualReceived  *uint256.Int
	Recipient       string
	Subaccount      []byte
	ChainID         ChainID
	TotalGasSpent   *uint256.Int
	ContractAddress common.Address
	TwinAccount     string
	Status          DepositStatus
	InvalidReason   string
	Verified        bool
	Time            uint64
	Operator        Operator
}

// ID derives the table identifier from the record's own fields.
func (d *Deposit) ID() DepositID {
	return DepositID{TxHash: d.TxHash, ChainID: d.ChainID}
}

// Withdrawal is the persisted record of a ledger to destination-chain
// transfer. TxHash stays empty until a transaction has been submitted.
type Withdrawal struct {
	TxHash            string
	BurnIndex         uint64
	Amount            *uint256.Int
	ActualReceived    *uint256.Int
	Destination       common.Address
	FromAccount       string
	FromSubaccount    []byte
	ChainID           ChainID
	Time              uint64
	MaxFee            *uint256.Int
	EffectiveGasPrice *uint256.Int
	GasUsed           *uint256.Int
	TotalGasSpent     *uint256.Int
	TokenBurnIndex    *uint64
	ContractAddress   common.Address
	TwinAccount       string
	Verified          bool
	Status            WithdrawalStatus
	Operator          Operator
}

// ID derives the table identifier from the record's own fields.
func (w *Withdrawal) ID() WithdrawalID {
	return WithdrawalID{BurnIndex: w.BurnIndex, ChainID: w.ChainID}
}

// TokenPair describes a bridged token: the contract on the external chain and
// its twin-ledger account, within one operator's partition.
type TokenPair struct {
	ContractAddress common.Address
	ChainID         ChainID
	TwinAccount     string
	Operator        Operator
}

// TransferDirection tags a TransferSummary with its ledger of origin.
type TransferDirection string

const (
	DirectionDeposit    TransferDirection = "deposit"
	DirectionWithdrawal TransferDirection = "withdrawal"
)

// TransferSummary is the flattened cross-direction view returned by the
// reverse-lookup queries and the query API.
type TransferSummary struct {
	Direction       TransferDirection
	TxHash          string
	ChainID         ChainID
	Amount          *uint256.Int
	ActualReceived  *uint256.Int
	From            string
	To              string
	ContractAddress common.Address
	Status          string
	Verified        bool
	Time            uint64
	Operator        Operator
}

// NativeTokenAddress is the sentinel contract address denoting the network's
// native asset. Bridge fees are deducted from the transferred amount only for
// the native asset; token amounts pass through untouched.
var NativeTokenAddress = common.Address{}

// IsNativeToken reports whether the contract address denotes the native asset.
func IsNativeToken(addr common.Address) bool {
	return addr == NativeTokenAddress
}

// mustParseAddress converts externally supplied address text into its
// fixed-width form. Format validation happens upstream of the store; malformed
// input here indicates an upstream bug, so the conversion is fail-fast.
func mustParseAddress(text string) common.Address {
	trimmed := strings.TrimSpace(text)
	if !common.IsHexAddress(trimmed) {
		panic(fmt.Sprintf("ledger: invalid address %q", text))
	}
	return common.HexToAddress(trimmed)
}

// mustAmount converts an arbitrary-precision amount into the fixed-width
// amount type, failing fast on a missing value or overflow for the same
// reason as address parses.
func mustAmount(value *big.Int) *uint256.Int {
	if value == nil {
		panic("ledger: missing required amount")
	}
	amount, overflow := uint256.FromBig(value)
	if overflow || value.Sign() < 0 {
		panic(fmt.Sprintf("ledger: amount %s outside fixed-width range", value))
	}
	return amount
}

// optionalAmount is the nil-tolerant variant for genuinely optional amounts
// such as a withdrawal's max fee.
func optionalAmount(value *big.Int) *uint256.Int {
	if value == nil {
		return nil
	}
	return mustAmount(value)
}

func normalizeTxHash(hash string) string {
	return strings.ToLower(strings.TrimSpace(hash))
}

package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

// Table prefixes. Composite key suffixes are fixed-width big-endian so that
// byte-lexicographic order equals numeric order within every table.
var (
	minterPrefix         = []byte("bridge/minter/")
	depositPrefix        = []byte("bridge/deposit/")
	withdrawalPrefix     = []byte("bridge/withdrawal/")
	canonicalTokenPrefix = []byte("bridge/token/canonical/")
	partnerTokenPrefix   = []byte("bridge/token/partner/")
)

func appendChainID(buf []byte, chain ChainID) []byte {
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], uint64(chain))
	return append(buf, raw[:]...)
}

func beUint64(raw []byte) uint64 {
	return binary.BigEndian.Uint64(raw)
}

func minterKey(key MinterKey) []byte {
	buf := append([]byte(nil), minterPrefix...)
	buf = appendChainID(buf, key.ChainID)
	return append(buf, byte(key.Operator))
}

func depositKey(id DepositID) []byte {
	buf := append([]byte(nil), depositPrefix...)
	buf = appendChainID(buf, id.ChainID)
	return append(buf, normalizeTxHash(id.TxHash)...)
}

func withdrawalKey(id WithdrawalID) []byte {
	buf := append([]byte(nil), withdrawalPrefix...)
	buf = appendChainID(buf, id.ChainID)
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], id.BurnIndex)
	return append(buf, raw[:]...)
}

func tokenPrefix(operator Operator) []byte {
	if operator == OperatorPartner {
		return partnerTokenPrefix
	}
	return canonicalTokenPrefix
}

func tokenKey(operator Operator, contract common.Address, chain ChainID) []byte {
	buf := append([]byte(nil), tokenPrefix(operator)...)
	buf = appendChainID(buf, chain)
	return append(buf, contract.Bytes()...)
}

// Stored mirrors of the persisted records. Optional amounts are decimal
// strings with "" meaning absent, so the encoding stays stable if fields grow
// and absent never collides with zero.

type storedMinter struct {
	Account           string
	LastObservedEvent uint64
	LastScrapedEvent  uint64
	Operator          uint8
	DepositFee        string
	WithdrawalFee     string
	ChainID           uint64
}

type storedDeposit struct {
	FromAddress     common.Address
	TxHash          string
	Amount          string
	BlockNumber     uint64
	HasBlockNumber  bool
	ActualReceived  string
	Recipient       string
	Subaccount      []byte
	ChainID         uint64
	TotalGasSpent   string
	ContractAddress common.Address
	TwinAccount     string
	Status          string
	InvalidReason   string
	Verified        bool
	Time            uint64
	Operator        uint8
}

type storedWithdrawal struct {
	TxHash            string
	BurnIndex         uint64
	Amount            string
	ActualReceived    string
	Destination       common.Address
	FromAccount       string
	FromSubaccount    []byte
	ChainID           uint64
	Time              uint64
	MaxFee            string
	EffectiveGasPrice string
	GasUsed           string
	TotalGasSpent     string
	TokenBurnIndex    uint64
	HasTokenBurnIndex bool
	ContractAddress   common.Address
	TwinAccount       string
	Verified          bool
	Status            string
	Operator          uint8
}

func amountToString(amount *uint256.Int) string {
	if amount == nil {
		return ""
	}
	return amount.Dec()
}

func amountFromString(text string) (*uint256.Int, error) {
	if text == "" {
		return nil, nil
	}
	amount, err := uint256.FromDecimal(text)
	if err != nil {
		return nil, fmt.Errorf("ledger: decode amount %q: %w", text, err)
	}
	return amount, nil
}

func encodeMinter(m *Minter) ([]byte, error) {
	return rlp.EncodeToBytes(storedMinter{
		Account:           m.Account,
		LastObservedEvent: m.LastObservedEvent,
		LastScrapedEvent:  m.LastScrapedEvent,
		Operator:          uint8(m.Operator),
		DepositFee:        amountToString(m.DepositFee),
		WithdrawalFee:     amountToString(m.WithdrawalFee),
		ChainID:           uint64(m.ChainID),
	})
}

func decodeMinter(raw []byte) (Minter, error) {
	var stored storedMinter
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return Minter{}, fmt.Errorf("ledger: decode minter: %w", err)
	}
	depositFee, err := amountFromString(stored.DepositFee)
	if err != nil {
		return Minter{}, err
	}
	withdrawalFee, err := amountFromString(stored.WithdrawalFee)
	if err != nil {
		return Minter{}, err
	}
	return Minter{
		Account:           stored.Account,
		LastObservedEvent: stored.LastObservedEvent,
		LastScrapedEvent:  stored.LastScrapedEvent,
		Operator:          Operator(stored.Operator),
		DepositFee:        depositFee,
		WithdrawalFee:     withdrawalFee,
		ChainID:           ChainID(stored.ChainID),
	}, nil
}

func encodeDeposit(d *Deposit) ([]byte, error) {
	stored := storedDeposit{
		FromAddress:     d.FromAddress,
		TxHash:          d.TxHash,
		Amount:          amountToString(d.Amount),
		ActualReceived:  amountToString(d.ActualReceived),
		Recipient:       d.Recipient,
		Subaccount:      d.Subaccount,
		ChainID:         uint64(d.ChainID),
		TotalGasSpent:   amountToString(d.TotalGasSpent),
		ContractAddress: d.ContractAddress,
		TwinAccount:     d.TwinAccount,
		Status:          string(d.Status),
		InvalidReason:   d.InvalidReason,
		Verified:        d.Verified,
		Time:            d.Time,
		Operator:        uint8(d.Operator),
	}
	if d.BlockNumber != nil {
		stored.BlockNumber = *d.BlockNumber
		stored.HasBlockNumber = true
	}
	return rlp.EncodeToBytes(stored)
}

func decodeDeposit(raw []byte) (Deposit, error) {
	var stored storedDeposit
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return Deposit{}, fmt.Errorf("ledger: decode deposit: %w", err)
	}
	amount, err := amountFromString(stored.Amount)
	if err != nil {
		return Deposit{}, err
	}
	actualReceived, err := amountFromString(stored.ActualReceived)
	if err != nil {
		return Deposit{}, err
	}
	totalGasSpent, err := amountFromString(stored.TotalGasSpent)
	if err != nil {
		return Deposit{}, err
	}
	deposit := Deposit{
		FromAddress:     stored.FromAddress,
		TxHash:          stored.TxHash,
		Amount:          amount,
		ActualReceived:  actualReceived,
		Recipient:       stored.Recipient,
		Subaccount:      stored.Subaccount,
		ChainID:         ChainID(stored.ChainID),
		TotalGasSpent:   totalGasSpent,
		ContractAddress: stored.ContractAddress,
		TwinAccount:     stored.TwinAccount,
		Status:          DepositStatus(stored.Status),
		InvalidReason:   stored.InvalidReason,
		Verified:        stored.Verified,
		Time:            stored.Time,
		Operator:        Operator(stored.Operator),
	}
	if stored.HasBlockNumber {
		block := stored.BlockNumber
		deposit.BlockNumber = &block
	}
	return deposit, nil
}

func encodeWithdrawal(w *Withdrawal) ([]byte, error) {
	stored := storedWithdrawal{
		TxHash:            w.TxHash,
		BurnIndex:         w.BurnIndex,
		Amount:            amountToString(w.Amount),
		ActualReceived:    amountToString(w.ActualReceived),
		Destination:       w.Destination,
		FromAccount:       w.FromAccount,
		FromSubaccount:    w.FromSubaccount,
		ChainID:           uint64(w.ChainID),
		Time:              w.Time,
		MaxFee:            amountToString(w.MaxFee),
		EffectiveGasPrice: amountToString(w.EffectiveGasPrice),
		GasUsed:           amountToString(w.GasUsed),
		TotalGasSpent:     amountToString(w.TotalGasSpent),
		ContractAddress:   w.ContractAddress,
		TwinAccount:       w.TwinAccount,
		Verified:          w.Verified,
		Status:            string(w.Status),
		Operator:          uint8(w.Operator),
	}
	if w.TokenBurnIndex != nil {
		stored.TokenBurnIndex = *w.TokenBurnIndex
		stored.HasTokenBurnIndex = true
	}
	return rlp.EncodeToBytes(stored)
}

func decodeWithdrawal(raw []byte) (Withdrawal, error) {
	var stored storedWithdrawal
	if err := rlp.DecodeBytes(raw, &stored); err != nil {
		return Withdrawal{}, fmt.Errorf("ledger: decode withdrawal: %w", err)
	}
	amount, err := amountFromString(stored.Amount)
	if err != nil {
		return Withdrawal{}, err
	}
	actualReceived, err := amountFromString(stored.ActualReceived)
	if err != nil {
		return Withdrawal{}, err
	}
	maxFee, err := amountFromString(stored.MaxFee)
	if err != nil {
		return Withdrawal{}, err
	}
	effectiveGasPrice, err := amountFromString(stored.EffectiveGasPrice)
	if err != nil {
		return Withdrawal{}, err
	}
	gasUsed, err := amountFromString(stored.GasUsed)
	if err != nil {
		return Withdrawal{}, err
	}
	totalGasSpent, err := amountFromString(stored.TotalGasSpent)
	if err != nil {
		return Withdrawal{}, err
	}
	withdrawal := Withdrawal{
		TxHash:            stored.TxHash,
		BurnIndex:         stored.BurnIndex,
		Amount:            amount,
		ActualReceived:    actualReceived,
		Destination:       stored.Destination,
		FromAccount:       stored.FromAccount,
		FromSubaccount:    stored.FromSubaccount,
		ChainID:           ChainID(stored.ChainID),
		Time:              stored.Time,
		MaxFee:            maxFee,
		EffectiveGasPrice: effectiveGasPrice,
		GasUsed:           gasUsed,
		TotalGasSpent:     totalGasSpent,
		ContractAddress:   stored.ContractAddress,
		TwinAccount:       stored.TwinAccount,
		Verified:          stored.Verified,
		Status:            WithdrawalStatus(stored.Status),
		Operator:          Operator(stored.Operator),
	}
	if stored.HasTokenBurnIndex {
		index := stored.TokenBurnIndex
		withdrawal.TokenBurnIndex = &index
	}
	return withdrawal, nil
}

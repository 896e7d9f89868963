package ledger

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func TestDepositRoundTrip(t *testing.T) {
	block := uint64(19_320_551)
	deposit := Deposit{
		FromAddress:     common.HexToAddress("0x1111111111111111111111111111111111111111"),
		TxHash:          "0xabc123",
		Amount:          uint256.NewInt(1_000_000),
		BlockNumber:     &block,
		ActualReceived:  uint256.NewInt(999_500),
		Recipient:       "acct-7f3k2",
		Subaccount:      bytes.Repeat([]byte{0x42}, 32),
		ChainID:         ChainID(8453),
		ContractAddress: common.HexToAddress("0x2222222222222222222222222222222222222222"),
		TwinAccount:     "twin-9q1x4",
		Status:          DepositMinted,
		Verified:        true,
		Time:            1_700_000_000_000_000_000,
		Operator:        OperatorPartner,
	}

	encoded, err := encodeDeposit(&deposit)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := decodeDeposit(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(deposit, decoded) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", decoded, deposit)
	}
}

func TestDepositRoundTripAbsentOptionals(t *testing.T) {
	deposit := Deposit{
		FromAddress:     common.HexToAddress("0x1111111111111111111111111111111111111111"),
		TxHash:          "0xdef456",
		Amount:          uint256.NewInt(42),
		Recipient:       "acct-1",
		ChainID:         ChainID(1),
		ContractAddress: NativeTokenAddress,
		Status:          DepositPending,
		Verified:        false,
		Time:            12345,
		Operator:        OperatorCanonical,
	}

	encoded, err := encodeDeposit(&deposit)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := decodeDeposit(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.BlockNumber != nil {
		t.Fatalf("expected absent block number, got %d", *decoded.BlockNumber)
	}
	if decoded.ActualReceived != nil {
		t.Fatalf("expected absent actual received, got %s", decoded.ActualReceived)
	}
	if decoded.TotalGasSpent != nil {
		t.Fatalf("expected absent total gas spent, got %s", decoded.TotalGasSpent)
	}
}

func TestWithdrawalRoundTrip(t *testing.T) {
	tokenBurn := uint64(77)
	withdrawal := Withdrawal{
		TxHash:            "0xfeed",
		BurnIndex:         901,
		Amount:            uint256.NewInt(50_000),
		ActualReceived:    uint256.NewInt(7_500),
		Destination:       common.HexToAddress("0x3333333333333333333333333333333333333333"),
		FromAccount:       "acct-w1",
		FromSubaccount:    bytes.Repeat([]byte{0x01}, 32),
		ChainID:           ChainID(56),
		Time:              1_690_000_000_000_000_000,
		MaxFee:            uint256.NewInt(60_000),
		EffectiveGasPrice: uint256.NewInt(2),
		GasUsed:           uint256.NewInt(21_000),
		TotalGasSpent:     uint256.NewInt(42_500),
		TokenBurnIndex:    &tokenBurn,
		ContractAddress:   NativeTokenAddress,
		TwinAccount:       "twin-w1",
		Verified:          true,
		Status:            WithdrawalSuccessful,
		Operator:          OperatorCanonical,
	}

	encoded, err := encodeWithdrawal(&withdrawal)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := decodeWithdrawal(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(withdrawal, decoded) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", decoded, withdrawal)
	}
}

func TestMinterRoundTrip(t *testing.T) {
	minter := Minter{
		Account:           "minter-acct-1",
		LastObservedEvent: 500,
		LastScrapedEvent:  480,
		Operator:          OperatorPartner,
		DepositFee:        uint256.NewInt(150),
		WithdrawalFee:     uint256.NewInt(500),
		ChainID:           ChainID(137),
	}

	encoded, err := encodeMinter(&minter)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := decodeMinter(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(minter, decoded) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", decoded, minter)
	}
}

func TestWithdrawalKeyOrder(t *testing.T) {
	earlier := withdrawalKey(WithdrawalID{BurnIndex: 9, ChainID: 1})
	later := withdrawalKey(WithdrawalID{BurnIndex: 10, ChainID: 1})
	if bytes.Compare(earlier, later) >= 0 {
		t.Fatalf("burn index 9 should sort before 10")
	}

	lowChain := withdrawalKey(WithdrawalID{BurnIndex: 500, ChainID: 1})
	highChain := withdrawalKey(WithdrawalID{BurnIndex: 1, ChainID: 2})
	if bytes.Compare(lowChain, highChain) >= 0 {
		t.Fatalf("chain 1 keys should sort before chain 2 keys")
	}
}

func TestDepositKeyNormalizesHash(t *testing.T) {
	a := depositKey(DepositID{TxHash: "0xABCDEF", ChainID: 1})
	b := depositKey(DepositID{TxHash: "  0xabcdef ", ChainID: 1})
	if !bytes.Equal(a, b) {
		t.Fatalf("hash normalization should make keys equal: %q vs %q", a, b)
	}
}

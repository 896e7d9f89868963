package ledger

import (
	"testing"

	"github.com/holiman/uint256"

	"bridgeledger/storage"
)

func newMinterRegistry(t *testing.T) *MinterRegistry {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	return NewMinterRegistry(db)
}

func sampleMinter(chain ChainID, operator Operator) Minter {
	return Minter{
		Account:           "minter-account",
		LastObservedEvent: 10,
		LastScrapedEvent:  8,
		Operator:          operator,
		DepositFee:        uint256.NewInt(100),
		WithdrawalFee:     uint256.NewInt(200),
		ChainID:           chain,
	}
}

func TestMinterRecordAndGet(t *testing.T) {
	registry := newMinterRegistry(t)
	minter := sampleMinter(1, OperatorCanonical)
	if err := registry.Record(minter); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, ok, err := registry.Get(MinterKey{ChainID: 1, Operator: OperatorCanonical})
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Account != minter.Account || got.LastObservedEvent != 10 {
		t.Fatalf("got %+v, want %+v", got, minter)
	}
	if !got.DepositFee.Eq(uint256.NewInt(100)) || !got.WithdrawalFee.Eq(uint256.NewInt(200)) {
		t.Fatalf("fee schedule not persisted")
	}

	if _, ok, err := registry.Get(MinterKey{ChainID: 2, Operator: OperatorCanonical}); err != nil || ok {
		t.Fatalf("unregistered key: ok=%v err=%v", ok, err)
	}
}

func TestMinterRecordReplacesExisting(t *testing.T) {
	registry := newMinterRegistry(t)
	minter := sampleMinter(1, OperatorCanonical)
	if err := registry.Record(minter); err != nil {
		t.Fatalf("record: %v", err)
	}
	minter.Account = "replacement"
	if err := registry.Record(minter); err != nil {
		t.Fatalf("re-record: %v", err)
	}

	got, _, err := registry.Get(minter.Key())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Account != "replacement" {
		t.Fatalf("account = %q, want replacement", got.Account)
	}
	entries, err := registry.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
}

func TestMinterUpdateFees(t *testing.T) {
	registry := newMinterRegistry(t)
	minter := sampleMinter(1, OperatorPartner)
	if err := registry.Record(minter); err != nil {
		t.Fatalf("record: %v", err)
	}

	key := minter.Key()
	if err := registry.UpdateFees(key, uint256.NewInt(5), uint256.NewInt(7)); err != nil {
		t.Fatalf("update fees: %v", err)
	}

	got, _, err := registry.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.DepositFee.Eq(uint256.NewInt(5)) || !got.WithdrawalFee.Eq(uint256.NewInt(7)) {
		t.Fatalf("fees = %v/%v, want 5/7", got.DepositFee, got.WithdrawalFee)
	}
	if got.Account != minter.Account || got.LastObservedEvent != minter.LastObservedEvent {
		t.Fatalf("fee update must not touch other fields")
	}
}

func TestMinterCursorUpdates(t *testing.T) {
	registry := newMinterRegistry(t)
	minter := sampleMinter(1, OperatorCanonical)
	if err := registry.Record(minter); err != nil {
		t.Fatalf("record: %v", err)
	}

	key := minter.Key()
	if err := registry.UpdateLastObserved(key, 42); err != nil {
		t.Fatalf("update observed: %v", err)
	}
	if err := registry.UpdateLastScraped(key, 41); err != nil {
		t.Fatalf("update scraped: %v", err)
	}

	got, _, err := registry.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LastObservedEvent != 42 || got.LastScrapedEvent != 41 {
		t.Fatalf("cursors = %d/%d, want 42/41", got.LastObservedEvent, got.LastScrapedEvent)
	}
}

func TestMinterUpdateUnknownKeyIsNoOp(t *testing.T) {
	registry := newMinterRegistry(t)
	key := MinterKey{ChainID: 9, Operator: OperatorPartner}

	if err := registry.UpdateFees(key, uint256.NewInt(1), uint256.NewInt(2)); err != nil {
		t.Fatalf("update fees: %v", err)
	}
	if err := registry.UpdateLastObserved(key, 1); err != nil {
		t.Fatalf("update observed: %v", err)
	}
	if _, ok, err := registry.Get(key); err != nil || ok {
		t.Fatalf("no-op must not create an entry: ok=%v err=%v", ok, err)
	}
}

func TestMinterListOrderedByKey(t *testing.T) {
	registry := newMinterRegistry(t)
	for _, minter := range []Minter{
		sampleMinter(2, OperatorCanonical),
		sampleMinter(1, OperatorPartner),
		sampleMinter(1, OperatorCanonical),
	} {
		if err := registry.Record(minter); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	entries, err := registry.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []MinterKey{
		{ChainID: 1, Operator: OperatorCanonical},
		{ChainID: 1, Operator: OperatorPartner},
		{ChainID: 2, Operator: OperatorCanonical},
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, key := range want {
		if entries[i].Key != key {
			t.Fatalf("entry %d key = %+v, want %+v", i, entries[i].Key, key)
		}
	}
}

func TestChainRegistered(t *testing.T) {
	registry := newMinterRegistry(t)
	if err := registry.Record(sampleMinter(5, OperatorCanonical)); err != nil {
		t.Fatalf("record: %v", err)
	}

	if ok, err := registry.ChainRegistered(5); err != nil || !ok {
		t.Fatalf("chain 5 should be registered: ok=%v err=%v", ok, err)
	}
	if ok, err := registry.ChainRegistered(6); err != nil || ok {
		t.Fatalf("chain 6 should not be registered: ok=%v err=%v", ok, err)
	}
}

package reaper

import (
	"math/big"
	"testing"
	"time"

	"bridgeledger/ledger"
	"bridgeledger/storage"
)

const (
	testSender   = "0x1111111111111111111111111111111111111111"
	testContract = "0x2222222222222222222222222222222222222222"
	testReceiver = "0x3333333333333333333333333333333333333333"
)

func newSweepFixture(t *testing.T) *ledger.Store {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	return ledger.NewStore(db, ledger.NewTokenRegistry(db), nil)
}

func announceDeposit(t *testing.T, store *ledger.Store, hash string, at time.Time) ledger.DepositID {
	t.Helper()
	id := ledger.DepositID{TxHash: hash, ChainID: 1}
	err := store.RecordPendingDeposit(id, ledger.PendingDeposit{
		FromAddress: testSender,
		Amount:      big.NewInt(100),
		Recipient:   "acct-1",
		Contract:    testContract,
		Operator:    ledger.OperatorCanonical,
	}, uint64(at.UnixNano()))
	if err != nil {
		t.Fatalf("announce deposit: %v", err)
	}
	return id
}

func announceWithdrawal(t *testing.T, store *ledger.Store, burnIndex uint64, at time.Time) ledger.WithdrawalID {
	t.Helper()
	id := ledger.WithdrawalID{BurnIndex: burnIndex, ChainID: 1}
	err := store.RecordPendingWithdrawal(id, ledger.PendingWithdrawal{
		Amount:      big.NewInt(100),
		Contract:    testContract,
		Destination: testReceiver,
		FromAccount: "acct-1",
		Operator:    ledger.OperatorCanonical,
	}, uint64(at.UnixNano()))
	if err != nil {
		t.Fatalf("announce withdrawal: %v", err)
	}
	return id
}

func TestSweepEvictsStaleUnverified(t *testing.T) {
	store := newSweepFixture(t)
	now := time.Unix(1_700_000_000, 0)

	stale := announceDeposit(t, store, "0xstale", now.Add(-UnverifiedTTL-time.Second))
	fresh := announceDeposit(t, store, "0xfresh", now.Add(-UnverifiedTTL+time.Second))
	staleWithdrawal := announceWithdrawal(t, store, 1, now.Add(-UnverifiedTTL-time.Second))

	r := New(store, nil, time.Minute, nil)
	r.SetClock(func() time.Time { return now })
	r.Sweep()

	if ok, _ := store.HasDeposit(stale); ok {
		t.Fatalf("stale deposit should be evicted")
	}
	if ok, _ := store.HasDeposit(fresh); !ok {
		t.Fatalf("fresh deposit must survive")
	}
	if ok, _ := store.HasWithdrawal(staleWithdrawal); ok {
		t.Fatalf("stale withdrawal should be evicted")
	}
}

func TestSweepKeepsEntryAtExactTTL(t *testing.T) {
	store := newSweepFixture(t)
	now := time.Unix(1_700_000_000, 0)

	boundary := announceDeposit(t, store, "0xboundary", now.Add(-UnverifiedTTL))

	r := New(store, nil, time.Minute, nil)
	r.SetClock(func() time.Time { return now })
	r.Sweep()

	if ok, _ := store.HasDeposit(boundary); !ok {
		t.Fatalf("entry aged exactly the TTL survives the sweep")
	}
}

func TestSweepNeverTouchesVerified(t *testing.T) {
	store := newSweepFixture(t)
	now := time.Unix(1_700_000_000, 0)
	old := now.Add(-48 * time.Hour)

	id := announceDeposit(t, store, "0xold", old)
	err := store.RecordAcceptedDeposit(id, ledger.AcceptedDeposit{
		BlockNumber: 100,
		FromAddress: testSender,
		Amount:      big.NewInt(100),
		Recipient:   "acct-1",
		Contract:    testContract,
		Operator:    ledger.OperatorCanonical,
	}, uint64(old.UnixNano()))
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	r := New(store, nil, time.Minute, nil)
	r.SetClock(func() time.Time { return now })
	r.Sweep()

	if ok, _ := store.HasDeposit(id); !ok {
		t.Fatalf("verified record must never be evicted, however old")
	}
}

func TestSweepSkipsWhileGuardHeld(t *testing.T) {
	store := newSweepFixture(t)
	now := time.Unix(1_700_000_000, 0)
	stale := announceDeposit(t, store, "0xstale", now.Add(-2*UnverifiedTTL))

	guard := NewGuard()
	r := New(store, guard, time.Minute, nil)
	r.SetClock(func() time.Time { return now })

	release, ok := guard.TryAcquire(TaskReapUnverified)
	if !ok {
		t.Fatalf("acquire on fresh guard must succeed")
	}
	r.Sweep()
	if ok, _ := store.HasDeposit(stale); !ok {
		t.Fatalf("sweep under a held guard must be a no-op")
	}

	release()
	r.Sweep()
	if ok, _ := store.HasDeposit(stale); ok {
		t.Fatalf("sweep after release must evict")
	}
}

func TestGuardReleaseReadmits(t *testing.T) {
	guard := NewGuard()
	release, ok := guard.TryAcquire(TaskReapUnverified)
	if !ok {
		t.Fatalf("first acquire must succeed")
	}
	if _, ok := guard.TryAcquire(TaskReapUnverified); ok {
		t.Fatalf("second acquire while held must fail")
	}
	release()
	release2, ok := guard.TryAcquire(TaskReapUnverified)
	if !ok {
		t.Fatalf("acquire after release must succeed")
	}
	release2()
}

func TestGuardIsolatesTaskKinds(t *testing.T) {
	guard := NewGuard()
	release, ok := guard.TryAcquire(TaskReapUnverified)
	if !ok {
		t.Fatalf("acquire must succeed")
	}
	defer release()
	other, ok := guard.TryAcquire(TaskKind("other_task"))
	if !ok {
		t.Fatalf("a different task kind must not contend")
	}
	other()
}

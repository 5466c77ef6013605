package analytics

import (
	"sync"
	"testing"

	"fintrack/internal/core"
)

type countingCache struct {
	mu   sync.Mutex
	data map[string]Snapshot
	sets int
}

func (c *countingCache) Get(key string) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.data[key]
	return s, ok
}

func (c *countingCache) Set(key string, s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = s
	c.sets++
}

func (c *countingCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

func (c *countingCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

func TestMemoReusesSnapshot(t *testing.T) {
	cc := &countingCache{data: map[string]Snapshot{}}
	m := NewMemo(cc)
	txs := []core.Transaction{
		tx("1", core.Debit, 4000, core.NewDate(2025, 1, 6), "Food"),
	}

	first := m.Snapshot(txs)
	// A fresh slice with identical content hits the same entry.
	again := m.Snapshot(append([]core.Transaction(nil), txs...))

	if cc.sets != 1 {
		t.Fatalf("expected a single computation, got %d", cc.sets)
	}
	if first.Totals != again.Totals {
		t.Fatalf("cached snapshot differs: %+v vs %+v", first.Totals, again.Totals)
	}

	txs[0].Amount = core.Money{Cents: 5000}
	changed := m.Snapshot(txs)
	if changed.Totals.TotalExpenses.Cents != 5000 {
		t.Fatalf("changed content must recompute, got %+v", changed.Totals)
	}
	if m.Size() != 2 {
		t.Fatalf("expected 2 cached snapshots, got %d", m.Size())
	}
}

func TestMemoConcurrent(t *testing.T) {
	m := NewMemo(nil)
	txs := []core.Transaction{
		tx("1", core.Credit, 100, core.NewDate(2025, 1, 5), "Income"),
		tx("2", core.Debit, 40, core.NewDate(2025, 1, 6), "Food"),
	}
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := m.Snapshot(txs)
			if s.Totals.TotalIncome.Cents != 100 {
				t.Errorf("unexpected totals %+v", s.Totals)
			}
		}()
	}
	wg.Wait()
	if m.Size() != 1 {
		t.Fatalf("expected 1 cached snapshot, got %d", m.Size())
	}
}

func TestFingerprintDistinguishesFields(t *testing.T) {
	base := []core.Transaction{tx("1", core.Debit, 100, core.NewDate(2025, 1, 5), "Food")}
	variants := [][]core.Transaction{
		{tx("1", core.Credit, 100, core.NewDate(2025, 1, 5), "Food")},
		{tx("1", core.Debit, 101, core.NewDate(2025, 1, 5), "Food")},
		{tx("1", core.Debit, 100, core.NewDate(2025, 1, 6), "Food")},
		{tx("1", core.Debit, 100, core.NewDate(2025, 1, 5), "Shopping")},
		{tx("2", core.Debit, 100, core.NewDate(2025, 1, 5), "Food")},
		nil,
	}
	fp := Fingerprint(base)
	for i, v := range variants {
		if Fingerprint(v) == fp {
			t.Fatalf("variant %d should change the fingerprint", i)
		}
	}
}

package analytics

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"

	"golang.org/x/sync/singleflight"

	"fintrack/internal/cache"
	"fintrack/internal/core"
)

// Memo caches snapshots keyed on the content of the transaction list, so a
// re-fetch that returns the same records reuses the previous result.
// Concurrent requests for the same list compute it once.
type Memo struct {
	snapshots cache.Cache[Snapshot]
	group     singleflight.Group
}

// NewMemo wraps c. A nil cache gets a five minute TTL cache.
func NewMemo(c cache.Cache[Snapshot]) *Memo {
	if c == nil {
		c = cache.NewTTL[Snapshot](5*time.Minute, 10*time.Minute)
	}
	return &Memo{snapshots: c}
}

// Snapshot returns the cached snapshot for txs, computing it on a miss.
func (m *Memo) Snapshot(txs []core.Transaction) Snapshot {
	key := Fingerprint(txs)
	if s, ok := m.snapshots.Get(key); ok {
		return s
	}
	v, _, _ := m.group.Do(key, func() (any, error) {
		s := Compute(txs)
		m.snapshots.Set(key, s)
		return s, nil
	})
	return v.(Snapshot)
}

// Size reports how many snapshots are held.
func (m *Memo) Size() int {
	return m.snapshots.Size()
}

// Fingerprint hashes every field that influences Compute.
func Fingerprint(txs []core.Transaction) string {
	h := sha256.New()
	var buf [8]byte
	writeInt := func(v int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	writeStr := func(s string) {
		writeInt(int64(len(s)))
		h.Write([]byte(s))
	}
	writeInt(int64(len(txs)))
	for _, tx := range txs {
		writeStr(tx.ID)
		writeInt(tx.Amount.Cents)
		writeStr(string(tx.Type))
		writeStr(tx.Category)
		when := tx.Date.UTC()
		writeInt(when.Unix())
		writeInt(int64(when.Year()*100 + int(when.Month())))
		writeInt(int64(when.Weekday()))
	}
	return hex.EncodeToString(h.Sum(nil))
}

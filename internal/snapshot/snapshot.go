// Package snapshot holds the field catalog and payment channels served to
// editors as one immutable, ETag-versioned value that can be swapped at
// runtime.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hopekit/targeting/internal/catalog"
	"github.com/hopekit/targeting/internal/payment"
)

// Snapshot is one immutable version of the catalog.
type Snapshot struct {
	ETag      string
	Catalog   *catalog.Catalog
	Channels  payment.Channels
	UpdatedAt time.Time
}

// Build fingerprints cat and channels into a snapshot with a weak ETag.
func Build(cat *catalog.Catalog, channels payment.Channels) *Snapshot {
	body := struct {
		Fields   map[catalog.Domain][]catalog.FieldAttribute `json:"fields"`
		Channels payment.Channels                            `json:"paymentChannels"`
	}{
		Fields:   make(map[catalog.Domain][]catalog.FieldAttribute, len(catalog.Domains)),
		Channels: channels,
	}
	for _, d := range catalog.Domains {
		body.Fields[d] = cat.Fields(d)
	}

	blob, _ := json.Marshal(body)
	sum := sha256.Sum256(blob)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return &Snapshot{ETag: etag, Catalog: cat, Channels: channels, UpdatedAt: time.Now().UTC()}
}

// Holder publishes the current snapshot to concurrent readers.
type Holder struct {
	current atomic.Pointer[Snapshot]
	watchers
}

// NewHolder returns a holder serving s.
func NewHolder(s *Snapshot) *Holder {
	h := &Holder{watchers: newWatchers()}
	h.current.Store(s)
	return h
}

// Load returns the current snapshot.
func (h *Holder) Load() *Snapshot {
	return h.current.Load()
}

// Update swaps in s and notifies subscribers when the ETag changed.
func (h *Holder) Update(s *Snapshot) {
	prev := h.current.Swap(s)
	if prev == nil || prev.ETag != s.ETag {
		h.publish(s.ETag)
	}
}

// Reload reads the catalog file at path and swaps it in. A file that fails
// to load leaves the current snapshot in place.
func (h *Holder) Reload(path string) (*Snapshot, error) {
	cat, channels, err := catalog.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reload catalog: %w", err)
	}
	s := Build(cat, channels)
	h.Update(s)
	return s, nil
}

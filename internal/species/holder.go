package species

import "sync/atomic"

// Holder publishes the current Catalog to concurrent readers. A visit reads
// the catalog once and keeps using that snapshot even if a reload lands
// mid-visit.
type Holder struct {
	cur atomic.Pointer[Catalog]
}

// NewHolder returns a holder serving cat.
func NewHolder(cat *Catalog) *Holder {
	h := &Holder{}
	h.cur.Store(cat)
	return h
}

// Load returns the current catalog.
func (h *Holder) Load() *Catalog {
	return h.cur.Load()
}

// Swap installs cat and returns the previous catalog.
func (h *Holder) Swap(cat *Catalog) *Catalog {
	return h.cur.Swap(cat)
}

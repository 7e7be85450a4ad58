package heapdb

import (
	"bytes"
	"fmt"
)

// heapPage implements the slotted-page layout spec.md §3/§4.1 describes: a
// bitmap header (LSB-first bit ordering within each byte) followed by N
// fixed-width tuple regions, zero-padded to PageSize.
//
// The page also holds a before-image byte snapshot, refreshed on every
// successful flush, so BufferPool can revert an aborted transaction's writes
// without re-reading the file (spec.md §9: "setBeforeImage should be
// refreshed on each successful flush during commit").
type heapPage struct {
	pid  PageId
	desc *TupleDesc
	file *HeapFile

	numSlots int
	header   []byte
	tuples   []*Tuple // nil entry = empty slot

	dirty     bool
	dirtiedBy TransactionID

	beforeImage []byte
}

// popcount8 is a precomputed bit-count table for header bytes (spec.md §4.1:
// "a precomputed 256-entry table is an acceptable optimization").
var popcount8 = func() [256]byte {
	var t [256]byte
	for i := 0; i < 256; i++ {
		c := byte(0)
		for b := i; b != 0; b >>= 1 {
			c += byte(b & 1)
		}
		t[i] = c
	}
	return t
}()

// numSlotsForTupleSize returns floor(pageSize*8 / (tupleSize*8 + 1)), the
// slot capacity spec.md §3 defines: one extra header bit per slot.
func numSlotsForTupleSize(tupleSize int) int {
	if tupleSize <= 0 {
		return 0
	}
	return (PageSize * 8) / (tupleSize*8 + 1)
}

func headerLenForSlots(n int) int {
	return (n + 7) / 8
}

// newEmptyHeapPage constructs a fresh, all-empty page for pid.
func newEmptyHeapPage(pid PageId, desc *TupleDesc, file *HeapFile) *heapPage {
	n := numSlotsForTupleSize(desc.Size())
	p := &heapPage{
		pid:      pid,
		desc:     desc,
		file:     file,
		numSlots: n,
		header:   make([]byte, headerLenForSlots(n)),
		tuples:   make([]*Tuple, n),
	}
	p.setBeforeImage()
	return p
}

// newHeapPageFromBytes parses a page from its on-disk representation, as
// produced by getPageData. Empty slots are skipped without constructing a
// Tuple (spec.md §4.1).
func newHeapPageFromBytes(pid PageId, desc *TupleDesc, file *HeapFile, data []byte) (*heapPage, error) {
	if len(data) != PageSize {
		return nil, NewGoDBError(PageReadError, fmt.Sprintf("page data must be %d bytes, got %d", PageSize, len(data)))
	}
	tupleSize := desc.Size()
	n := numSlotsForTupleSize(tupleSize)
	hlen := headerLenForSlots(n)

	p := &heapPage{
		pid:      pid,
		desc:     desc,
		file:     file,
		numSlots: n,
		header:   append([]byte{}, data[:hlen]...),
		tuples:   make([]*Tuple, n),
	}

	body := data[hlen:]
	for i := 0; i < n; i++ {
		off := i * tupleSize
		if !p.slotBit(i) {
			continue
		}
		r := bytes.NewReader(body[off : off+tupleSize])
		t, err := readTupleFrom(r, desc)
		if err != nil {
			return nil, err
		}
		rid := RecordId{PID: pid, Slot: i}
		t.Rid = &rid
		p.tuples[i] = t
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	p.beforeImage = buf
	return p, nil
}

func (p *heapPage) slotBit(i int) bool {
	return p.header[i/8]>>(uint(i)%8)&1 == 1
}

func (p *heapPage) setSlotBit(i int, used bool) {
	byteIdx := i / 8
	mask := byte(1) << (uint(i) % 8)
	if used {
		p.header[byteIdx] |= mask
	} else {
		p.header[byteIdx] &^= mask
	}
}

// getPageData serializes the page to exactly PageSize bytes: header, then
// each slot region (the tuple's fields in schema order, or a zero-filled
// region for an empty slot), then zero padding.
func (p *heapPage) getPageData() []byte {
	buf := new(bytes.Buffer)
	buf.Write(p.header)

	tupleSize := p.desc.Size()
	for i := 0; i < p.numSlots; i++ {
		if p.tuples[i] == nil {
			buf.Write(make([]byte, tupleSize))
			continue
		}
		before := buf.Len()
		_ = p.tuples[i].writeTo(buf)
		written := buf.Len() - before
		if written < tupleSize {
			buf.Write(make([]byte, tupleSize-written))
		}
	}
	out := buf.Bytes()
	if len(out) < PageSize {
		padded := make([]byte, PageSize)
		copy(padded, out)
		return padded
	}
	return out[:PageSize]
}

// insertTuple stores t in the lowest-indexed empty slot, assigning its
// RecordId. It does not mark the page dirty; BufferPool.InsertTuple does
// that with the inserting transaction's tid.
func (p *heapPage) insertTuple(t *Tuple) error {
	if !t.Desc.Equals(p.desc) {
		return NewGoDBError(SchemaMismatch, "tuple schema does not match page schema")
	}
	for i := 0; i < p.numSlots; i++ {
		if p.tuples[i] != nil {
			continue
		}
		rid := RecordId{PID: p.pid, Slot: i}
		stored := &Tuple{Desc: *p.desc, Fields: append([]DBValue{}, t.Fields...), Rid: &rid}
		p.tuples[i] = stored
		p.setSlotBit(i, true)
		t.Rid = &rid
		return nil
	}
	return NewGoDBError(NoEmptySlots, "heap page has no empty slots")
}

// deleteTuple clears the slot t.Rid names. The slot must currently be used
// and must hold a tuple equal to t.
func (p *heapPage) deleteTuple(t *Tuple) error {
	if t.Rid == nil || t.Rid.PID != p.pid {
		return NewGoDBError(NotOnPage, "tuple has no record id on this page")
	}
	slot := t.Rid.Slot
	if slot < 0 || slot >= p.numSlots || !p.slotBit(slot) {
		return NewGoDBError(EmptySlot, "slot is already empty")
	}
	if !p.tuples[slot].Equals(t) {
		return NewGoDBError(NotOnPage, "stored tuple does not match tuple to delete")
	}
	p.setSlotBit(slot, false)
	p.tuples[slot] = nil
	return nil
}

// getNumEmptySlots counts unused slots via the header's popcount.
func (p *heapPage) getNumEmptySlots() int {
	used := 0
	for _, b := range p.header {
		used += int(popcount8[b])
	}
	return p.numSlots - used
}

func (p *heapPage) markDirty(dirty bool, tid TransactionID) {
	p.dirty = dirty
	if dirty {
		p.dirtiedBy = tid
	}
}

// isDirty reports the dirtying transaction, if any.
func (p *heapPage) isDirty() (TransactionID, bool) {
	if !p.dirty {
		return 0, false
	}
	return p.dirtiedBy, true
}

// setBeforeImage snapshots the page's current bytes for later abort-time
// revert. Called once at construction and again after every successful
// flush (spec.md §9).
func (p *heapPage) setBeforeImage() {
	p.beforeImage = p.getPageData()
}

// getBeforeImage reconstructs a Page from the most recent setBeforeImage
// snapshot.
func (p *heapPage) getBeforeImage() (*heapPage, error) {
	return newHeapPageFromBytes(p.pid, p.desc, p.file, p.beforeImage)
}

// iterator produces the page's tuples in ascending slot order. It is finite
// and restartable: each call to heapPage.iterator starts a fresh traversal.
func (p *heapPage) iterator() func() (*Tuple, error) {
	i := 0
	return func() (*Tuple, error) {
		for i < p.numSlots {
			t := p.tuples[i]
			i++
			if t != nil {
				return t, nil
			}
		}
		return nil, nil
	}
}

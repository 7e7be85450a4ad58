package heapdb

import "testing"

func TestHeapPageRoundTrip(t *testing.T) {
	desc := intDesc("a", "b")
	pid := PageId{TableId: 1, PageNumber: 0}
	p := newEmptyHeapPage(pid, desc, nil)

	for i := int32(0); i < 5; i++ {
		if err := p.insertTuple(intTuple(desc, i, i*10)); err != nil {
			t.Fatalf("insertTuple: %v", err)
		}
	}

	data := p.getPageData()
	reread, err := newHeapPageFromBytes(pid, desc, nil, data)
	if err != nil {
		t.Fatalf("newHeapPageFromBytes: %v", err)
	}
	if string(reread.getPageData()) != string(data) {
		t.Fatalf("page round-trip mismatch")
	}
}

func TestHeapPageSlotAccounting(t *testing.T) {
	desc := intDesc("a")
	pid := PageId{TableId: 1, PageNumber: 0}
	p := newEmptyHeapPage(pid, desc, nil)

	before := p.getNumEmptySlots()
	tup := intTuple(desc, 7)
	if err := p.insertTuple(tup); err != nil {
		t.Fatalf("insertTuple: %v", err)
	}
	after := p.getNumEmptySlots()
	if after != before-1 {
		t.Fatalf("expected empty slots to decrease by 1, got %d -> %d", before, after)
	}

	if err := p.deleteTuple(tup); err != nil {
		t.Fatalf("deleteTuple: %v", err)
	}
	final := p.getNumEmptySlots()
	if final != before {
		t.Fatalf("expected empty slots to return to %d, got %d", before, final)
	}
}

func TestHeapPageNoEmptySlots(t *testing.T) {
	desc := intDesc("a")
	pid := PageId{TableId: 1, PageNumber: 0}
	p := newEmptyHeapPage(pid, desc, nil)

	n := p.numSlots
	for i := 0; i < n; i++ {
		if err := p.insertTuple(intTuple(desc, int32(i))); err != nil {
			t.Fatalf("insertTuple %d: %v", i, err)
		}
	}
	err := p.insertTuple(intTuple(desc, 999))
	ge, ok := err.(GoDBError)
	if !ok || ge.Code() != NoEmptySlots {
		t.Fatalf("expected NoEmptySlots, got %v", err)
	}
}

func TestHeapPageRoundTripAfterDelete(t *testing.T) {
	desc := intDesc("a", "b")
	pid := PageId{TableId: 1, PageNumber: 0}
	p := newEmptyHeapPage(pid, desc, nil)

	var tups []*Tuple
	for i := int32(0); i < 5; i++ {
		tup := intTuple(desc, i, i*10)
		if err := p.insertTuple(tup); err != nil {
			t.Fatalf("insertTuple: %v", err)
		}
		tups = append(tups, tup)
	}
	if err := p.deleteTuple(tups[2]); err != nil {
		t.Fatalf("deleteTuple: %v", err)
	}

	data := p.getPageData()
	reread, err := newHeapPageFromBytes(pid, desc, nil, data)
	if err != nil {
		t.Fatalf("newHeapPageFromBytes: %v", err)
	}
	if string(reread.getPageData()) != string(data) {
		t.Fatalf("page round-trip mismatch after delete")
	}
}

func TestHeapPageDeletedSlotIsReused(t *testing.T) {
	desc := intDesc("a")
	pid := PageId{TableId: 1, PageNumber: 0}
	p := newEmptyHeapPage(pid, desc, nil)

	n := p.numSlots
	var tups []*Tuple
	for i := 0; i < n; i++ {
		tup := intTuple(desc, int32(i))
		if err := p.insertTuple(tup); err != nil {
			t.Fatalf("insertTuple %d: %v", i, err)
		}
		tups = append(tups, tup)
	}
	if err := p.deleteTuple(tups[0]); err != nil {
		t.Fatalf("deleteTuple: %v", err)
	}
	if err := p.insertTuple(intTuple(desc, 999)); err != nil {
		t.Fatalf("expected the deleted slot to be reusable, got %v", err)
	}
}

func TestHeapPageDeleteEmptySlot(t *testing.T) {
	desc := intDesc("a")
	pid := PageId{TableId: 1, PageNumber: 0}
	p := newEmptyHeapPage(pid, desc, nil)
	stray := intTuple(desc, 1)
	rid := RecordId{PID: pid, Slot: 0}
	stray.Rid = &rid

	err := p.deleteTuple(stray)
	ge, ok := err.(GoDBError)
	if !ok || ge.Code() != EmptySlot {
		t.Fatalf("expected EmptySlot, got %v", err)
	}
}

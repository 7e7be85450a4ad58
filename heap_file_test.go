package heapdb

import (
	"path/filepath"
	"strings"
	"testing"
)

func newTestHeapFile(t *testing.T, bp *BufferPool, desc *TupleDesc) *HeapFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), "table.dat")
	f, err := NewHeapFile(path, desc, bp)
	if err != nil {
		t.Fatalf("NewHeapFile: %v", err)
	}
	return f
}

func TestHeapFileInsertAndScan(t *testing.T) {
	bp := NewBufferPool(10)
	desc := intDesc("a", "b")
	f := newTestHeapFile(t, bp, desc)

	tid := NewTID()
	want := [][2]int32{{1, 10}, {2, 20}, {3, 30}}
	for _, w := range want {
		if err := bp.InsertTuple(tid, f, intTuple(desc, w[0], w[1])); err != nil {
			t.Fatalf("InsertTuple: %v", err)
		}
	}
	if err := bp.TransactionComplete(tid, true); err != nil {
		t.Fatalf("TransactionComplete: %v", err)
	}

	scanTid := NewTID()
	it := f.iterator(scanTid)
	seen := 0
	for {
		tup, err := it()
		if err != nil {
			t.Fatalf("iterator: %v", err)
		}
		if tup == nil {
			break
		}
		seen++
	}
	bp.TransactionComplete(scanTid, true)
	if seen != len(want) {
		t.Fatalf("expected %d tuples, saw %d", len(want), seen)
	}
}

func TestHeapFileGrowsAcrossPages(t *testing.T) {
	bp := NewBufferPool(100)
	desc := intDesc("a")
	f := newTestHeapFile(t, bp, desc)

	tid := NewTID()
	n := numSlotsForTupleSize(desc.Size())*2 + 3
	for i := 0; i < n; i++ {
		if err := bp.InsertTuple(tid, f, intTuple(desc, int32(i))); err != nil {
			t.Fatalf("InsertTuple %d: %v", i, err)
		}
	}
	bp.TransactionComplete(tid, true)

	if f.NumPages() < 3 {
		t.Fatalf("expected at least 3 pages, got %d", f.NumPages())
	}
}

func TestHeapFileLoadFromCSV(t *testing.T) {
	bp := NewBufferPool(10)
	desc := intDesc("a", "b")
	f := newTestHeapFile(t, bp, desc)

	csv := "1,10\n2,20\n3,30\n"
	if err := f.LoadFromCSV(strings.NewReader(csv), false, ","); err != nil {
		t.Fatalf("LoadFromCSV: %v", err)
	}
	if f.NumPages() < 1 {
		t.Fatalf("expected at least one page after load")
	}
}

package heapdb

import "testing"

// TestPageIdHashDistinguishesTransposedFields guards against the collision
// spec.md §9 calls out for the teacher's decimal-string-concat hash, where
// (tableId=11, pageNumber=1) and (tableId=1, pageNumber=11) collide.
func TestPageIdHashDistinguishesTransposedFields(t *testing.T) {
	a := PageId{TableId: 11, PageNumber: 1}
	b := PageId{TableId: 1, PageNumber: 11}
	if a.hash() == b.hash() {
		t.Fatalf("transposed PageIds hashed equal: %d", a.hash())
	}
}

func TestPageIdHashStable(t *testing.T) {
	p := PageId{TableId: 42, PageNumber: 7}
	if p.hash() != p.hash() {
		t.Fatalf("hash is not stable across calls")
	}
}

func TestPageIdHashDiffersByPageNumber(t *testing.T) {
	a := PageId{TableId: 1, PageNumber: 0}
	b := PageId{TableId: 1, PageNumber: 1}
	if a.hash() == b.hash() {
		t.Fatalf("distinct page numbers hashed equal")
	}
}

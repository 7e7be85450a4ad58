package heapdb

import (
	"encoding/binary"
	"hash/maphash"
)

// PageId identifies a page within a table: the table it belongs to, plus its
// 0-based page number within that table's HeapFile.
type PageId struct {
	TableId    int64
	PageNumber int
}

var pageIDSeed = maphash.MakeSeed()

// hash combines both fields of the PageId into a single hash. spec.md §9
// flags the teacher's "decimal string concatenation" approach as fragile
// (e.g. tableId=11,pageNumber=1 collides with tableId=1,pageNumber=11); this
// instead feeds both fields, fixed-width, through a real hash function.
func (p PageId) hash() uint64 {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], uint64(p.TableId))
	binary.BigEndian.PutUint64(buf[8:16], uint64(int64(p.PageNumber)))
	var h maphash.Hash
	h.SetSeed(pageIDSeed)
	h.Write(buf[:])
	return h.Sum64()
}

// RecordId identifies a tuple's location: the page it lives on, plus its slot
// number within that page.
type RecordId struct {
	PID  PageId
	Slot int
}

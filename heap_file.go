package heapdb

import (
	"bufio"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// HeapFile is an unordered, on-disk collection of tuples: a sequence of
// fixed-size pages under one backing path (spec.md §4.2).
type HeapFile struct {
	path string
	desc *TupleDesc
	bp   *BufferPool

	tableID int64

	growMu sync.Mutex // serializes file-growth across concurrent inserts
}

// NewHeapFile opens (or prepares to create) a HeapFile backed by path, using
// bp as the page cache through which every read and write is routed.
func NewHeapFile(path string, desc *TupleDesc, bp *BufferPool) (*HeapFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, NewGoDBError(PageReadError, fmt.Sprintf("cannot resolve path %s: %v", path, err))
	}
	f := &HeapFile{
		path:    path,
		desc:    desc,
		bp:      bp,
		tableID: tableIDFromPath(abs),
	}
	bp.registerFile(f)
	return f, nil
}

// tableIDFromPath deterministically derives a tableId from an absolute file
// path: equal paths always produce equal ids (spec.md §4.2/§6).
func tableIDFromPath(absPath string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(absPath))
	return int64(h.Sum64())
}

// id returns this file's tableId.
func (f *HeapFile) id() int64 {
	return f.tableID
}

// BackingFile returns the path supplied to NewHeapFile.
func (f *HeapFile) BackingFile() string {
	return f.path
}

// Descriptor returns the table's schema.
func (f *HeapFile) Descriptor() *TupleDesc {
	return f.desc
}

// NumPages returns ceil(fileLength / PageSize); a file that does not yet
// exist has zero pages (spec.md §3).
func (f *HeapFile) NumPages() int {
	info, err := os.Stat(f.path)
	if err != nil {
		return 0
	}
	size := info.Size()
	n := int(size / int64(PageSize))
	if size%int64(PageSize) != 0 {
		n++
	}
	return n
}

func (f *HeapFile) openForReadWrite() (*os.File, error) {
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return nil, NewGoDBError(PageReadError, fmt.Sprintf("cannot open %s: %v", f.path, err))
	}
	return file, nil
}

// readPage reads page pageNo from disk. Called by BufferPool.getPage on a
// cache miss.
func (f *HeapFile) readPage(pageNo int) (*heapPage, error) {
	file, err := f.openForReadWrite()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if err := flockShared(file); err != nil {
		return nil, NewGoDBError(PageReadError, err.Error())
	}
	defer flockUnlock(file)

	offset := int64(pageNo) * int64(PageSize)
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, NewGoDBError(PageReadError, fmt.Sprintf("seek to page %d: %v", pageNo, err))
	}
	data := make([]byte, PageSize)
	if _, err := io.ReadFull(file, data); err != nil {
		return nil, NewGoDBError(PageReadError, fmt.Sprintf("short read of page %d: %v", pageNo, err))
	}

	pid := PageId{TableId: f.tableID, PageNumber: pageNo}
	return newHeapPageFromBytes(pid, f.desc, f, data)
}

// writePage forces page p to its position on disk, growing the file if p is
// the next page beyond the current end.
func (f *HeapFile) writePage(p *heapPage) error {
	file, err := f.openForReadWrite()
	if err != nil {
		return err
	}
	defer file.Close()

	if err := flockExclusive(file); err != nil {
		return NewGoDBError(PageWriteError, err.Error())
	}
	defer flockUnlock(file)

	offset := int64(p.pid.PageNumber) * int64(PageSize)
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return NewGoDBError(PageWriteError, fmt.Sprintf("seek to page %d: %v", p.pid.PageNumber, err))
	}
	if _, err := file.Write(p.getPageData()); err != nil {
		return NewGoDBError(PageWriteError, fmt.Sprintf("write page %d: %v", p.pid.PageNumber, err))
	}
	return nil
}

// flushPage is the BufferPool-facing name for writePage, matching the
// DBFile.flushPage contract of spec.md §4.4.4.
func (f *HeapFile) flushPage(p *heapPage) error {
	return f.writePage(p)
}

// insertTuple finds the first page with a free slot (scanning under write
// locks obtained from the BufferPool) and inserts t there, appending a fresh
// page if every existing page is full. Returns the single page that was
// modified.
func (f *HeapFile) insertTuple(tid TransactionID, t *Tuple) (*heapPage, error) {
	if !t.Desc.Equals(f.desc) {
		return nil, NewGoDBError(SchemaMismatch, "tuple schema does not match table schema")
	}

	numPages := f.NumPages()
	for pn := 0; pn < numPages; pn++ {
		pid := PageId{TableId: f.tableID, PageNumber: pn}
		page, err := f.bp.getPage(tid, pid, WritePerm)
		if err != nil {
			return nil, err
		}
		if err := page.insertTuple(t); err != nil {
			if ge, ok := err.(GoDBError); ok && ge.Code() == NoEmptySlots {
				continue
			}
			return nil, err
		}
		return page, nil
	}

	f.growMu.Lock()
	defer f.growMu.Unlock()

	newPageNo := f.NumPages()
	pid := PageId{TableId: f.tableID, PageNumber: newPageNo}

	// Reserve the page's place on disk with zeroed content, so NumPages
	// reflects the growth for any concurrent insert that races this one.
	// The populated page stays resident only in the cache, under NO-STEAL,
	// until TransactionComplete flushes it on commit; an abort restores the
	// zeroed before-image already on disk, never the uncommitted tuple.
	if err := f.writePage(newEmptyHeapPage(pid, f.desc, f)); err != nil {
		return nil, err
	}

	newPage := newEmptyHeapPage(pid, f.desc, f)
	if err := newPage.insertTuple(t); err != nil {
		return nil, err
	}
	if err := f.bp.adoptPage(tid, pid, newPage); err != nil {
		return nil, err
	}
	return newPage, nil
}

// deleteTuple removes t from the page named by t.Rid.
func (f *HeapFile) deleteTuple(tid TransactionID, t *Tuple) (*heapPage, error) {
	if t.Rid == nil {
		return nil, NewGoDBError(NotOnPage, "tuple has no record id")
	}
	page, err := f.bp.getPage(tid, t.Rid.PID, WritePerm)
	if err != nil {
		return nil, err
	}
	if err := page.deleteTuple(t); err != nil {
		return nil, err
	}
	return page, nil
}

// iterator returns a DbFileIterator-style closure that lazily pages through
// 0..numPages, pinning one page at a time through the BufferPool in read
// mode (spec.md §4.2).
func (f *HeapFile) iterator(tid TransactionID) func() (*Tuple, error) {
	pageNo := 0
	var current func() (*Tuple, error)
	return func() (*Tuple, error) {
		for {
			if current == nil {
				if pageNo >= f.NumPages() {
					return nil, nil
				}
				pid := PageId{TableId: f.tableID, PageNumber: pageNo}
				page, err := f.bp.getPage(tid, pid, ReadPerm)
				if err != nil {
					return nil, err
				}
				current = page.iterator()
			}
			t, err := current()
			if err != nil {
				return nil, err
			}
			if t == nil {
				current = nil
				pageNo++
				continue
			}
			return t, nil
		}
	}
}

// LoadFromCSV loads fileName into the HeapFile, one tuple per CSV line,
// inserted in its own committed transaction per line (spec.md §1 treats CSV
// ingestion as test/bootstrap scaffolding, not a core operation, but it is a
// convenient way to build fixtures for the operator and BufferPool tests).
func (f *HeapFile) LoadFromCSV(r io.Reader, hasHeader bool, sep string) error {
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if text == "" {
			continue
		}
		if line == 1 && hasHeader {
			continue
		}
		parts := strings.Split(text, sep)
		if len(parts) != len(f.desc.Fields) {
			return NewGoDBError(MalformedDataError, fmt.Sprintf("line %d: expected %d fields, got %d", line, len(f.desc.Fields), len(parts)))
		}
		fields := make([]DBValue, len(parts))
		for i, raw := range parts {
			switch f.desc.Fields[i].Ftype {
			case IntType:
				v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
				if err != nil {
					return NewGoDBError(TypeMismatchError, fmt.Sprintf("line %d: %q is not an int", line, raw))
				}
				fields[i] = IntField{Value: int32(v)}
			case StringType:
				if len(raw) > StringLength {
					raw = raw[:StringLength]
				}
				fields[i] = StringField{Value: raw}
			}
		}
		t := &Tuple{Desc: *f.desc, Fields: fields}
		tid := NewTID()
		if err := f.bp.InsertTuple(tid, f, t); err != nil {
			f.bp.TransactionComplete(tid, false)
			return err
		}
		f.bp.TransactionComplete(tid, true)
	}
	return scanner.Err()
}

package heapdb

import (
	"container/list"
	"sync"
	"time"
)

// RWPerm is the permission a caller requests when pinning a page.
type RWPerm int

const (
	ReadPerm RWPerm = iota
	WritePerm
)

// DefaultDeadlockTimeout is how long getPage waits for a contended lock
// before giving up and reporting TransactionAborted (spec.md §4.4.1: a
// timeout-based scheme in place of the teacher's wait-for-graph cycle
// detection, since a transaction that has waited this long is presumed
// deadlocked).
const DefaultDeadlockTimeout = 100 * time.Second

const lockPollInterval = 5 * time.Millisecond

// BufferPool is the single path through which every page is read or
// written: it caches up to capacity pages, enforces strict two-phase
// locking per transaction, and evicts under a NO-STEAL policy (dirty pages
// are never evicted, only flushed at commit). spec.md §4.4 calls this "the
// hardest component" of the system.
type BufferPool struct {
	mu sync.Mutex

	capacity int
	pages    map[PageId]*heapPage
	elems    map[PageId]*list.Element
	recency  *list.List // front = most recently used, back = least

	xlock map[PageId]TransactionID
	slock map[PageId]map[TransactionID]struct{}

	heldBy map[TransactionID]map[PageId]struct{}

	files map[int64]*HeapFile

	deadlockTimeout time.Duration
}

// NewBufferPool creates a BufferPool holding at most capacity pages.
func NewBufferPool(capacity int) *BufferPool {
	return &BufferPool{
		capacity:        capacity,
		pages:           make(map[PageId]*heapPage),
		elems:           make(map[PageId]*list.Element),
		recency:         list.New(),
		xlock:           make(map[PageId]TransactionID),
		slock:           make(map[PageId]map[TransactionID]struct{}),
		heldBy:          make(map[TransactionID]map[PageId]struct{}),
		files:           make(map[int64]*HeapFile),
		deadlockTimeout: DefaultDeadlockTimeout,
	}
}

// registerFile lets a HeapFile resolve a PageId's TableId back to the file
// it should be read from or flushed to, so getPage's signature need not
// carry the file on every call (spec.md §4.4: getPage(tid, pid, perm)).
func (bp *BufferPool) registerFile(f *HeapFile) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.files[f.id()] = f
}

// touch moves pid to the front of the recency list, creating its entry if
// this is the first time the page has been cached.
func (bp *BufferPool) touch(pid PageId) {
	if e, ok := bp.elems[pid]; ok {
		bp.recency.MoveToFront(e)
		return
	}
	bp.elems[pid] = bp.recency.PushFront(pid)
}

func (bp *BufferPool) forget(pid PageId) {
	if e, ok := bp.elems[pid]; ok {
		bp.recency.Remove(e)
		delete(bp.elems, pid)
	}
	delete(bp.pages, pid)
}

// canGrantShared reports whether tid may be granted a shared lock on pid:
// no other transaction may hold the exclusive lock.
func (bp *BufferPool) canGrantShared(tid TransactionID, pid PageId) bool {
	holder, exclusive := bp.xlock[pid]
	return !exclusive || holder == tid
}

// canGrantExclusive reports whether tid may be granted (or upgraded to) the
// exclusive lock on pid: either tid already holds it, nobody holds any lock,
// or tid is the sole shared holder (lock upgrade, spec.md §4.4.1).
func (bp *BufferPool) canGrantExclusive(tid TransactionID, pid PageId) bool {
	if holder, ok := bp.xlock[pid]; ok {
		return holder == tid
	}
	readers := bp.slock[pid]
	switch len(readers) {
	case 0:
		return true
	case 1:
		_, soleHolder := readers[tid]
		return soleHolder
	default:
		return false
	}
}

func (bp *BufferPool) grantShared(tid TransactionID, pid PageId) {
	if bp.slock[pid] == nil {
		bp.slock[pid] = make(map[TransactionID]struct{})
	}
	bp.slock[pid][tid] = struct{}{}
	bp.track(tid, pid)
}

func (bp *BufferPool) grantExclusive(tid TransactionID, pid PageId) {
	delete(bp.slock[pid], tid)
	bp.xlock[pid] = tid
	bp.track(tid, pid)
}

func (bp *BufferPool) track(tid TransactionID, pid PageId) {
	if bp.heldBy[tid] == nil {
		bp.heldBy[tid] = make(map[PageId]struct{})
	}
	bp.heldBy[tid][pid] = struct{}{}
}

// acquireLock blocks tid until it holds perm on pid, or the deadlock timeout
// elapses, in which case it returns a TransactionAborted error. Must be
// called with bp.mu held; it releases and reacquires the mutex while
// waiting.
func (bp *BufferPool) acquireLock(tid TransactionID, pid PageId, perm RWPerm) error {
	start := time.Now()
	for {
		if perm == ReadPerm {
			if bp.canGrantShared(tid, pid) {
				bp.grantShared(tid, pid)
				return nil
			}
		} else {
			if bp.canGrantExclusive(tid, pid) {
				bp.grantExclusive(tid, pid)
				return nil
			}
		}
		if time.Since(start) >= bp.deadlockTimeout {
			return NewGoDBError(TransactionAborted, "timed out waiting for page lock, presumed deadlock")
		}
		bp.mu.Unlock()
		time.Sleep(lockPollInterval)
		bp.mu.Lock()
	}
}

// evictLocked removes one clean page from the cache to make room, choosing
// the least-recently-used clean page (spec.md §4.4.2 NO-STEAL: a dirty page
// is never written out as part of eviction, only ever as part of commit).
// Must be called with bp.mu held.
func (bp *BufferPool) evictLocked() error {
	for e := bp.recency.Back(); e != nil; e = e.Prev() {
		pid := e.Value.(PageId)
		page := bp.pages[pid]
		if page == nil {
			continue
		}
		if _, dirty := page.isDirty(); dirty {
			continue
		}
		bp.forget(pid)
		return nil
	}
	return NewGoDBError(NoCleanVictim, "buffer pool is full of dirty pages")
}

// getPage returns the cached page for pid, reading it from disk on a cache
// miss, after acquiring perm on it under strict two-phase locking
// (spec.md §4.4.1).
func (bp *BufferPool) getPage(tid TransactionID, pid PageId, perm RWPerm) (*heapPage, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if err := bp.acquireLock(tid, pid, perm); err != nil {
		return nil, err
	}

	if page, ok := bp.pages[pid]; ok {
		bp.touch(pid)
		return page, nil
	}

	file, ok := bp.files[pid.TableId]
	if !ok {
		return nil, NewGoDBError(NoSuchTable, "no file registered for this page's table")
	}

	if len(bp.pages) >= bp.capacity {
		if err := bp.evictLocked(); err != nil {
			return nil, err
		}
	}

	page, err := file.readPage(pid.PageNumber)
	if err != nil {
		return nil, err
	}
	bp.pages[pid] = page
	bp.touch(pid)
	return page, nil
}

// adoptPage registers a freshly created page (one HeapFile just appended to
// the end of its file) into the cache without going through disk, granting
// tid the exclusive lock it already implicitly holds by having just created
// the page.
func (bp *BufferPool) adoptPage(tid TransactionID, pid PageId, page *heapPage) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if err := bp.acquireLock(tid, pid, WritePerm); err != nil {
		return err
	}
	if _, ok := bp.pages[pid]; !ok && len(bp.pages) >= bp.capacity {
		if err := bp.evictLocked(); err != nil {
			return err
		}
	}
	bp.pages[pid] = page
	bp.touch(pid)
	return nil
}

// InsertTuple inserts t into file on tid's behalf, marking the modified
// page dirty under tid.
func (bp *BufferPool) InsertTuple(tid TransactionID, file *HeapFile, t *Tuple) error {
	bp.registerFile(file)
	page, err := file.insertTuple(tid, t)
	if err != nil {
		return err
	}
	page.markDirty(true, tid)
	return nil
}

// DeleteTuple removes t from its page on tid's behalf, resolving the
// backing file from t.Rid.PID via the registered table, and marks the
// modified page dirty under tid.
func (bp *BufferPool) DeleteTuple(tid TransactionID, t *Tuple) error {
	if t.Rid == nil {
		return NewGoDBError(NotOnPage, "tuple has no record id")
	}
	bp.mu.Lock()
	file, ok := bp.files[t.Rid.PID.TableId]
	bp.mu.Unlock()
	if !ok {
		return NewGoDBError(NoSuchTable, "no file registered for this tuple's table")
	}
	page, err := file.deleteTuple(tid, t)
	if err != nil {
		return err
	}
	page.markDirty(true, tid)
	return nil
}

// TransactionComplete ends tid, releasing every lock it holds. On commit,
// every page tid dirtied is flushed to disk and its before-image refreshed
// to the just-flushed bytes (spec.md §9). On abort, every page tid dirtied
// is restored from its before-image; a page tid never dirtied is left
// untouched, since tid could not have changed it (resolves the Open
// Question in spec.md §4.4.3 in favor of a no-op on undirtied pages).
func (bp *BufferPool) TransactionComplete(tid TransactionID, commit bool) error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	pids := bp.heldBy[tid]
	var firstErr error
	for pid := range pids {
		page, ok := bp.pages[pid]
		if !ok {
			continue
		}
		dirtiedBy, dirty := page.isDirty()
		if !dirty || dirtiedBy != tid {
			continue
		}
		if commit {
			file, ok := bp.files[pid.TableId]
			if !ok {
				continue
			}
			if err := file.flushPage(page); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			page.setBeforeImage()
			page.markDirty(false, tid)
		} else {
			restored, err := page.getBeforeImage()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			bp.pages[pid] = restored
		}
	}

	bp.releaseAllLocked(tid)
	return firstErr
}

// releaseAllLocked drops every lock tid holds. Must be called with bp.mu
// held.
func (bp *BufferPool) releaseAllLocked(tid TransactionID) {
	for pid := range bp.heldBy[tid] {
		if bp.xlock[pid] == tid {
			delete(bp.xlock, pid)
		}
		delete(bp.slock[pid], tid)
		if len(bp.slock[pid]) == 0 {
			delete(bp.slock, pid)
		}
	}
	delete(bp.heldBy, tid)
}

// ReleasePage drops tid's lock on a single page without ending the
// transaction. This breaks strict two-phase locking's guarantees and exists
// only as a testing escape hatch (spec.md §4.4.4).
func (bp *BufferPool) ReleasePage(tid TransactionID, pid PageId) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	if bp.xlock[pid] == tid {
		delete(bp.xlock, pid)
	}
	delete(bp.slock[pid], tid)
	if len(bp.slock[pid]) == 0 {
		delete(bp.slock, pid)
	}
	if held := bp.heldBy[tid]; held != nil {
		delete(held, pid)
	}
}

// HoldsLock reports whether tid currently holds any lock on pid, for tests.
func (bp *BufferPool) HoldsLock(tid TransactionID, pid PageId) bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	if bp.xlock[pid] == tid {
		return true
	}
	_, ok := bp.slock[pid][tid]
	return ok
}

// FlushAllPages forces every cached page to disk regardless of which
// transaction dirtied it. Intended for tests and graceful shutdown, not
// for use mid-transaction (spec.md §4.4.4).
func (bp *BufferPool) FlushAllPages() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	var firstErr error
	for pid, page := range bp.pages {
		if _, dirty := page.isDirty(); !dirty {
			continue
		}
		file, ok := bp.files[pid.TableId]
		if !ok {
			continue
		}
		if err := file.flushPage(page); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		page.setBeforeImage()
		page.markDirty(false, 0)
	}
	return firstErr
}

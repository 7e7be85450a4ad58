package heapdb

import "sync/atomic"

// TransactionID identifies one transaction for the lifetime of a BufferPool.
// It is created opaquely and completes exactly once, via commit or abort.
type TransactionID int64

var tidCounter int64

// NewTID allocates a fresh, monotonically increasing transaction id.
func NewTID() TransactionID {
	return TransactionID(atomic.AddInt64(&tidCounter, 1))
}

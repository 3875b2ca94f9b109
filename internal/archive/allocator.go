package archive

import "github.com/PreciousTrainer/citra/pkg/types"

// handleAllocator issues archive handles monotonically, skipping zero
// and any value still present in the table. Callers of the service
// never expect a handle value to come back while its prior occupant is
// live, so reuse only happens after a full 64-bit wraparound passes over
// a released value.
//
// The allocator is not safe for concurrent use; the manager serializes
// it under the handle-table lock.
type handleAllocator struct {
	next types.ArchiveHandle
}

func newHandleAllocator() handleAllocator {
	return handleAllocator{next: 1}
}

// allocate returns the next free handle given the set of live entries.
func (a *handleAllocator) allocate(inUse map[types.ArchiveHandle]types.ArchiveBackend) types.ArchiveHandle {
	for {
		h := a.next
		a.next++
		if a.next == types.InvalidHandle {
			a.next = 1
		}
		if h == types.InvalidHandle {
			continue
		}
		if _, used := inUse[h]; !used {
			return h
		}
	}
}

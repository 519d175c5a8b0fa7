package heap

import "unsafe"

// Arena is a doubly-linked best-fit free-list allocator over a single
// contiguous byte range, the bridge between the physical frame allocator
// and the high-level containers that back the scheduler and drivers.
// Adapted directly from the teacher's kmalloc/kfree (heap.go): same
// segment header layout and coalescing rule, generalized to operate over
// a caller-supplied []byte instead of a fixed linker-symbol address, so it
// can run in tests without a real MMU or linker script.
type Arena struct {
	buf  []byte
	head *segment
}

type segment struct {
	next, prev  *segment
	allocated   bool
	size        uint32 // total size of this segment including the header
}

const (
	segHeaderSize = unsafe.Sizeof(segment{})
	minSplitSize  = uint32(2 * segHeaderSize)
)

// NewArena initializes an arena over buf, treating it as one free segment.
func NewArena(buf []byte) *Arena {
	a := &Arena{buf: buf}
	if len(buf) < int(segHeaderSize) {
		return a
	}
	h := a.segAt(0)
	*h = segment{size: uint32(len(buf))}
	a.head = h
	return a
}

func (a *Arena) segAt(off uintptr) *segment {
	return (*segment)(unsafe.Pointer(&a.buf[off]))
}

func (a *Arena) offsetOf(s *segment) uintptr {
	return uintptr(unsafe.Pointer(s)) - uintptr(unsafe.Pointer(&a.buf[0]))
}

// Alloc returns a []byte of length size backed by the arena, best-fit over
// the free-segment list, or nil if nothing fits.
func (a *Arena) Alloc(size uint32) []byte {
	if a.head == nil {
		return nil
	}
	need := size + uint32(segHeaderSize)

	var best *segment
	bestDiff := int64(-1)
	for cur := a.head; cur != nil; cur = cur.next {
		if cur.allocated {
			continue
		}
		diff := int64(cur.size) - int64(need)
		if diff < 0 {
			continue
		}
		if bestDiff == -1 || diff < bestDiff {
			best = cur
			bestDiff = diff
			if diff == 0 {
				break
			}
		}
	}
	if best == nil {
		return nil
	}

	if uint32(bestDiff) > minSplitSize {
		newOff := a.offsetOf(best) + uintptr(need)
		newSeg := a.segAt(newOff)
		*newSeg = segment{
			next: best.next,
			prev: best,
			size: best.size - need,
		}
		if newSeg.next != nil {
			newSeg.next.prev = newSeg
		}
		best.next = newSeg
		best.size = need
	}

	best.allocated = true
	dataOff := a.offsetOf(best) + segHeaderSize
	return a.buf[dataOff : dataOff+uintptr(size)]
}

// Free releases a slice previously returned by Alloc, coalescing with
// free neighbors exactly as the teacher's kfree does.
func (a *Arena) Free(data []byte) {
	if len(data) == 0 || a.head == nil {
		return
	}
	dataOff := uintptr(unsafe.Pointer(&data[0])) - uintptr(unsafe.Pointer(&a.buf[0]))
	segOff := dataOff - segHeaderSize
	seg := a.segAt(segOff)
	seg.allocated = false

	for seg.prev != nil && !seg.prev.allocated {
		prev := seg.prev
		prev.next = seg.next
		prev.size += seg.size
		if seg.next != nil {
			seg.next.prev = prev
		}
		seg = prev
	}
	for seg.next != nil && !seg.next.allocated {
		next := seg.next
		seg.size += next.size
		seg.next = next.next
		if next.next != nil {
			next.next.prev = seg
		}
	}
}

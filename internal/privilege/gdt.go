package privilege

import (
	"encoding/binary"
	"unsafe"

	"github.com/escobarmartinezsergio7-hub/go-os-core/internal/hal"
)

// Segment selectors. Ordering matches the flat GDT layout this core
// installs: null, kernel code, kernel data, user data, user code, TSS.
// User data is placed before user code so that SYSRET's fixed +8/+16
// selector arithmetic (STAR MSR, bits 63:48) lands on the right
// descriptors — the one piece of this layout that is not a free choice.
const (
	SelNull       uint16 = 0x00
	SelKernelCode uint16 = 0x08
	SelKernelData uint16 = 0x10
	SelUserData   uint16 = 0x18 | 3
	SelUserCode   uint16 = 0x20 | 3
	SelTSS        uint16 = 0x28
)

// descriptor is a flat (non-system) 8-byte GDT entry.
type descriptor uint64

func codeDescriptor(dpl uint8, long bool) descriptor {
	return flatDescriptor(dpl, long, 0x9A) // present, code, execute/read
}

func dataDescriptor(dpl uint8) descriptor {
	return flatDescriptor(dpl, false, 0x92) // present, data, read/write
}

func flatDescriptor(dpl uint8, long bool, typeByte uint8) descriptor {
	access := typeByte | (dpl&0x3)<<5
	var flags uint8 = 0x0 // limit/granularity bits, unused in flat 64-bit mode
	if long {
		flags |= 0x2 << 4 // L bit
	} else {
		flags |= 0xC << 4 // D/B + G for the 32-bit-compatible segments
	}
	// Base and limit are ignored by the CPU in 64-bit mode for code/data
	// segments; we still encode 0xFFFF in the low 16 limit bits for
	// tooling that inspects the table.
	d := uint64(0xFFFF) // limit low
	d |= uint64(access) << 40
	d |= uint64(flags) << 48 // flags byte: limit 19:16 low, L/D/G high
	return descriptor(d)
}

// tssDescriptor is the 16-byte system descriptor pair a 64-bit TSS needs
// (it doesn't fit in 8 bytes like the flat segments above).
type tssDescriptor [2]uint64

func newTSSDescriptor(base uint64, limit uint32) tssDescriptor {
	var lo uint64
	lo |= uint64(limit) & 0xFFFF
	lo |= (base & 0xFFFFFF) << 16
	lo |= uint64(0x89) << 40 // present, 64-bit TSS available
	lo |= (uint64(limit>>16) & 0xF) << 48
	lo |= ((base >> 24) & 0xFF) << 56
	hi := base >> 32
	return tssDescriptor{lo, hi}
}

// TaskState is the CPU-defined 64-bit task-state structure. Only rsp[0]
// (the ring-0 stack pointer used on every ring-3 -> ring-0 transition)
// and the IST slots are meaningful without paging; everything else is
// zeroed per spec.md's non-goal of paging support.
type TaskState struct {
	reserved0 uint32
	Rsp       [3]uint64
	reserved1 uint64
	Ist       [7]uint64
	reserved2 uint64
	reserved3 uint16
	IOMapBase uint16
}

// Table is the full segment table this core installs: the flat
// descriptors plus the TSS pair, laid out contiguously so a single LGDT
// covers all of it.
type Table struct {
	null       descriptor
	kernelCode descriptor
	kernelData descriptor
	userData   descriptor
	userCode   descriptor
	tss        tssDescriptor
}

// Build populates a Table for 64-bit flat kernel/user segments plus a TSS
// descriptor pointing at ts, whose Rsp[0] is set to kernelStackTop. This
// is phase 0->1 (GDT+TSS) of spec.md §4.5.
func Build(ts *TaskState, kernelStackTop uint64, tssLimit uint32) Table {
	ts.Rsp[0] = kernelStackTop
	return Table{
		kernelCode: codeDescriptor(0, true),
		kernelData: dataDescriptor(0),
		userData:   dataDescriptor(3),
		userCode:   codeDescriptor(3, true),
		tss:        newTSSDescriptor(uint64(uintptr(unsafe.Pointer(ts))), tssLimit),
	}
}

func (t *Table) pseudoDescriptor() [10]byte {
	var buf [10]byte
	size := int(unsafe.Sizeof(*t))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(size-1))
	binary.LittleEndian.PutUint64(buf[2:10], uint64(uintptr(unsafe.Pointer(&t.null))))
	return buf
}

// Load installs the table with LGDT, reloads segment registers, and
// loads the task register with SelTSS via LTR.
func (t *Table) Load() {
	buf := t.pseudoDescriptor()
	hal.Lgdt(uintptr(unsafe.Pointer(&buf[0])))
	hal.ReloadSegments(SelKernelCode, SelKernelData)
	hal.Ltr(SelTSS)
}

// Package pci is x86 legacy CF8/CFC port-based PCI configuration space
// access: the enumeration walker and MMIO-mapped ECAM window are external
// collaborators (spec.md §2 out-of-scope), so this package only supplies
// the primitive config read/write and the single-function bus/slot/func
// probe the NIC driver core needs to find its own device.
//
// Grounded on the teacher's pci_qemu.go, which pairs an MMIO-mapped ECAM
// window with bus/slot/func/offset address composition; this core has no
// ECAM window on legacy x86 boot, so the same address composition is
// reused over the CF8 address port / CFC data port pair instead (the
// textbook x86 alternative to ECAM, same shape as pciConfigRead32/Write32).
package pci

import "github.com/escobarmartinezsergio7-hub/go-os-core/internal/hal"

const (
	configAddress = 0x0CF8
	configData    = 0x0CFC
)

// Address identifies one PCI function's configuration space.
type Address struct {
	Bus, Slot, Func uint8
}

func (a Address) pack(offset uint8) uint32 {
	return 0x80000000 |
		uint32(a.Bus)<<16 |
		uint32(a.Slot)<<11 |
		uint32(a.Func)<<8 |
		uint32(offset&0xFC)
}

// Read32 reads one 32-bit dword at offset (rounded down to 4-byte
// alignment) from a function's configuration space.
func Read32(a Address, offset uint8) uint32 {
	hal.Outl(configAddress, a.pack(offset))
	return hal.Inl(configData)
}

// Write32 writes one 32-bit dword at offset to a function's configuration
// space.
func Write32(a Address, offset uint8, value uint32) {
	hal.Outl(configAddress, a.pack(offset))
	hal.Outl(configData, value)
}

// Read16 and Read8 extract sub-dword fields from the aligned dword read,
// matching the teacher's pciConfigRead8 byte-extraction pattern.
func Read16(a Address, offset uint8) uint16 {
	word := Read32(a, offset)
	shift := (offset & 0x02) * 8
	return uint16((word >> shift) & 0xFFFF)
}

func Read8(a Address, offset uint8) uint8 {
	word := Read32(a, offset)
	shift := (offset & 0x03) * 8
	return uint8((word >> shift) & 0xFF)
}

const (
	OffVendorID    = 0x00
	OffDeviceID    = 0x02
	OffCommand     = 0x04
	OffBAR0        = 0x10
	OffCapPointer  = 0x34
	CommandIOSpace = 1 << 0
	CommandMemSpace = 1 << 1
	CommandBusMaster = 1 << 2
)

// Probe scans bus 0, all 32 slots and 8 functions, and returns the
// Address of the first function whose vendor:device ID matches, along
// with its BAR0 value (masked to a 16-byte-aligned MMIO/IO base). ok is
// false if no match was found.
func Probe(vendorID, deviceID uint16) (addr Address, bar0 uint32, ok bool) {
	for slot := uint8(0); slot < 32; slot++ {
		for fn := uint8(0); fn < 8; fn++ {
			a := Address{Bus: 0, Slot: slot, Func: fn}
			vid := Read16(a, OffVendorID)
			if vid == 0xFFFF {
				continue
			}
			did := Read16(a, OffDeviceID)
			if vid == vendorID && did == deviceID {
				bar := Read32(a, OffBAR0)
				return a, bar &^ 0xF, true
			}
		}
	}
	return Address{}, 0, false
}

// EnableBusMastering sets the I/O, memory, and bus-master enable bits in
// the command register, as the teacher's findBochsDisplayFull does before
// touching a device's BARs.
func EnableBusMastering(a Address) {
	cmd := Read32(a, OffCommand)
	cmd |= CommandIOSpace | CommandMemSpace | CommandBusMaster
	Write32(a, OffCommand, cmd)
}

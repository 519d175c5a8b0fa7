// Package nic is the exemplar DMA driver: a legacy-descriptor-ring NIC
// core covering PCI bring-up, RX/TX descriptor rings, and the structured
// diagnostics snapshot every other DMA driver in this core is expected to
// follow the shape of (spec.md §4.7).
//
// Grounded on the teacher's virtio_gpu.go/virtio_rng.go ring-lifecycle
// pattern (probe device, program BARs, reset, post descriptors, ring a
// doorbell) and pci_qemu.go's capability/BAR walk, adapted from VirtIO's
// split-queue descriptors to the spec's fixed 16-byte legacy record and
// from AArch64 MMIO-only access to x86 PCI config space plus MMIO BARs.
package nic

import (
	"unsafe"

	"github.com/escobarmartinezsergio7-hub/go-os-core/internal/bitfield"
	"github.com/escobarmartinezsergio7-hub/go-os-core/internal/frame"
	"github.com/escobarmartinezsergio7-hub/go-os-core/internal/hal"
	"github.com/escobarmartinezsergio7-hub/go-os-core/internal/pci"
)

const (
	RingSize      = 64
	RXBufferSize  = 2048
	descriptorLen = 16
)

// Register offsets, legacy e1000-style control block.
const (
	regCTRL   = 0x0000
	regSTATUS = 0x0008
	regRCTL   = 0x0100
	regTCTL   = 0x0400
	regTIPG   = 0x0410
	regIMC    = 0x00D8
	regRDBAL  = 0x2800
	regRDBAH  = 0x2804
	regRDLEN  = 0x2808
	regRDH    = 0x2810
	regRDT    = 0x2818
	regTDBAL  = 0x3800
	regTDBAH  = 0x3804
	regTDLEN  = 0x3808
	regTDH    = 0x3810
	regTDT    = 0x3818
	regRAL0   = 0x5400
	regRAH0   = 0x5404
)

const (
	ctrlReset    = 1 << 26
	ctrlLinkUp   = 1 << 6
	ctrlSLU      = 1 << 6
	rctlEnable   = 1 << 1
	rctlMulticastPromiscuous = 1 << 4
	rctlBroadcastAccept      = 1 << 15
	rctlStripCRC             = 1 << 26
	rctlBufSize2048          = 0
	tctlEnable   = 1 << 1
	tctlPadShort = 1 << 3
	tctlCollisionThresholdShift = 4
	tctlCollisionThresholdDefault = 0x0F
	tctlCollisionDistanceShift = 12
	tctlCollisionDistanceDefault = 0x40
	tipgLegacyDefault = 0x0060200A

	descDD  = 1 << 0 // descriptor done
	descEOP = 1 << 1 // end of packet
	cmdEOP  = 1 << 0
	cmdIFCS = 1 << 1
	cmdRS   = 1 << 3
)

// Descriptor is the shared 16-byte RX/TX record. The RX path reinterprets
// the last four fields as a hardware write-back block (status/error/len).
type Descriptor struct {
	BufferPhys uint64
	Length     uint16
	CSO        uint8
	Cmd        uint8
	Status     uint8
	CSS        uint8
	Special    uint16
}

// MAC is a 48-bit Ethernet address.
type MAC [6]byte

// Diagnostics is the structured read-only snapshot spec.md §4.7 requires.
type Diagnostics struct {
	CTRL, STATUS, RCTL, TCTL uint32
	RXHead, RXTail           uint32
	TXHead, TXTail           uint32
	CurrentRXDescriptor      Descriptor
	MAC                      MAC
	LinkUp                   bool
}

// Device is one bound NIC instance.
type Device struct {
	addr    pci.Address
	mmio    uintptr
	mac     MAC
	rx      []Descriptor
	tx      []Descriptor
	rxBufs  []uintptr
	rxCur   uint32
	txCur   uint32
	rxValid bool
}

// deriveFallbackMAC builds the deterministic locally-administered MAC used
// when the hardware MAC registers read as zero or all-ones, per spec.md
// §4.7 step 5. The locally-administered bit (bit 1 of the first octet) is
// set and the multicast bit is cleared, matching the IEEE 802 convention
// for software-assigned addresses.
func deriveFallbackMAC(addr pci.Address) MAC {
	return MAC{
		0x02,
		0x00,
		addr.Bus,
		addr.Slot,
		addr.Func,
		0x00,
	}
}

// macFromRegisters decodes the RAL0/RAH0 receive-address registers into a
// MAC, or reports invalid if the value is the all-zero or all-ones
// sentinel a blank/faulty EEPROM would produce.
func macFromRegisters(ral, rah uint32) (MAC, bool) {
	if (ral == 0 && rah&0xFFFF == 0) || (ral == 0xFFFFFFFF && rah&0xFFFF == 0xFFFF) {
		return MAC{}, false
	}
	var m MAC
	m[0] = uint8(ral)
	m[1] = uint8(ral >> 8)
	m[2] = uint8(ral >> 16)
	m[3] = uint8(ral >> 24)
	m[4] = uint8(rah)
	m[5] = uint8(rah >> 8)
	return m, true
}

// validateRXDescriptor checks the advanced write-back fields spec.md §4.7
// requires before the RX path trusts a slot's contents: descriptor-done
// and end-of-packet must both be set, and the reported length must fall
// within [14, 2048].
func validateRXDescriptor(d Descriptor) (uint16, bool) {
	if d.Status&descDD == 0 || d.Status&descEOP == 0 {
		return 0, false
	}
	if d.Length < 14 || d.Length > RXBufferSize {
		return 0, false
	}
	return d.Length, true
}

// advanceCursor moves a ring cursor forward by one slot modulo size.
func advanceCursor(cur uint32, size int) uint32 {
	return (cur + 1) % uint32(size)
}

// Open probes bus 0 for the given vendor/device ID, enables bus mastering,
// allocates the RX/TX rings and RX buffer pool from the sub-4GiB frame
// allocator, and runs the bring-up sequence from spec.md §4.7. ok is false
// if no matching device was found or the BAR is I/O-space rather than
// memory-mapped.
func Open(alloc *frame.Allocator, vendorID, deviceID uint16) (*Device, bool) {
	addr, bar0, found := pci.Probe(vendorID, deviceID)
	if !found {
		return nil, false
	}
	if pci.Read32(addr, pci.OffBAR0)&0x1 != 0 {
		return nil, false // BAR0 is an I/O-space base, not MMIO
	}
	pci.EnableBusMastering(addr)
	pci.EnableBusMastering(addr) // repeated: some devices clear command bits on reset

	cmd := pci.Read32(addr, pci.OffCommand)
	if cmd&pci.CommandMemSpace == 0 {
		return nil, false
	}

	dev := &Device{addr: addr, mmio: uintptr(bar0)}
	if !dev.allocateRings(alloc) {
		return nil, false
	}
	dev.resetAndBringUp()
	return dev, true
}

// allocateRings realizes spec.md §4.7 step 3: the RX ring, TX ring, and
// N=64 RX buffers are all frame-allocator memory (identity-mapped, so a
// frame's physical address doubles as its Go pointer), and every
// descriptor is zeroed before any register is programmed.
func (d *Device) allocateRings(alloc *frame.Allocator) bool {
	rxFrame, ok := alloc.AllocFrameBelow4GiB()
	if !ok {
		return false
	}
	txFrame, ok := alloc.AllocFrameBelow4GiB()
	if !ok {
		return false
	}
	d.rx = descriptorsAtFrame(rxFrame)
	d.tx = descriptorsAtFrame(txFrame)
	for i := range d.rx {
		d.rx[i] = Descriptor{}
		d.tx[i] = Descriptor{}
	}

	d.rxBufs = make([]uintptr, RingSize)
	for i := range d.rxBufs {
		buf, ok := alloc.AllocFrameBelow4GiB()
		if !ok {
			return false
		}
		d.rxBufs[i] = buf
		d.rx[i].BufferPhys = uint64(buf)
	}

	for i := range d.tx {
		buf, ok := alloc.AllocFrameBelow4GiB()
		if !ok {
			return false
		}
		d.tx[i].BufferPhys = uint64(buf)
	}
	return true
}

// descriptorsAtFrame reinterprets one identity-mapped physical frame as a
// fixed-size descriptor array; RingSize*16 bytes always fits a 4KiB frame.
func descriptorsAtFrame(addr uintptr) []Descriptor {
	return unsafe.Slice((*Descriptor)(unsafe.Pointer(addr)), RingSize)
}

func (d *Device) reg(off uintptr) uint32       { return hal.ReadMMIO32(d.mmio, off) }
func (d *Device) setReg(off uintptr, v uint32) { hal.WriteMMIO32(d.mmio, off, v) }

// ptrFromUintptr reinterprets a physical address already identity-mapped
// by the boot shim as a Go pointer; every DMA buffer this driver touches
// comes from the sub-4GiB frame allocator, so the address space is always
// directly addressable.
func ptrFromUintptr(addr uintptr) unsafe.Pointer { return unsafe.Pointer(addr) }

// ringBaseAddr returns the physical address of a descriptor ring's first
// element, for programming the *DBAL/*DBAH register pair.
func ringBaseAddr(ring []Descriptor) uintptr {
	return uintptr(unsafe.Pointer(&ring[0]))
}

// spinMicros busy-waits for approximately the given number of iterations;
// every bring-up step in this driver is bounded, per spec.md §5's
// cancellation/timeout guarantee, rather than spinning indefinitely.
func spinMicros(iterations int) {
	for i := 0; i < iterations; i++ {
		hal.CompilerFence()
	}
}

// waitReady polls cond up to maxIterations times, matching the teacher's
// bounded probe-and-retry pattern in findBochsDisplayFull's BAR probing.
func waitReady(cond func() bool, maxIterations int) bool {
	for i := 0; i < maxIterations; i++ {
		if cond() {
			return true
		}
	}
	return false
}

// resetAndBringUp realizes spec.md §4.7 steps 4-6: soft reset, MAC
// resolution, then the exact disable->base->length->head=0->tail=0
// enable sequence for both rings.
func (d *Device) resetAndBringUp() {
	d.setReg(regCTRL, ctrlReset)
	spinMicros(10000) // 10ms reset settle, per spec.md §4.7 step 4

	ctrl := d.reg(regCTRL)
	d.setReg(regCTRL, ctrl|ctrlLinkUp)

	ral := d.reg(regRAL0)
	rah := d.reg(regRAH0)
	if mac, ok := macFromRegisters(ral, rah); ok {
		d.mac = mac
	} else {
		d.mac = deriveFallbackMAC(d.addr)
	}

	d.bringUpRX()
	d.bringUpTX()
}

func (d *Device) bringUpRX() {
	d.setReg(regRCTL, 0)
	base := ringBaseAddr(d.rx)
	d.setReg(regRDBAL, uint32(base))
	d.setReg(regRDBAH, uint32(base>>32))
	d.setReg(regRDLEN, uint32(RingSize*descriptorLen))
	d.setReg(regRDH, 0)
	d.setReg(regRDT, 0)

	waitReady(func() bool { return true }, 100*1000) // condition is always true: no queue-enable ack is polled

	flags := uint32(rctlEnable | rctlMulticastPromiscuous | rctlBroadcastAccept | rctlStripCRC | rctlBufSize2048)
	d.setReg(regRCTL, flags)
	d.setReg(regRDT, RingSize-1)
}

func (d *Device) bringUpTX() {
	d.setReg(regTCTL, 0)
	base := ringBaseAddr(d.tx)
	d.setReg(regTDBAL, uint32(base))
	d.setReg(regTDBAH, uint32(base>>32))
	d.setReg(regTDLEN, uint32(RingSize*descriptorLen))
	d.setReg(regTDH, 0)
	d.setReg(regTDT, 0)
	d.setReg(regTIPG, tipgLegacyDefault)
	d.setReg(regIMC, 0xFFFFFFFF)

	tctl := uint32(tctlEnable | tctlPadShort)
	tctl |= tctlCollisionThresholdDefault << tctlCollisionThresholdShift
	tctl |= tctlCollisionDistanceDefault << tctlCollisionDistanceShift
	d.setReg(regTCTL, tctl)
}

// Receive pulls the current cursor's descriptor; if its write-back block
// validates, it copies the buffer contents into an owned slice, resets
// the descriptor to the same buffer, rings the tail doorbell, and
// advances the cursor. Returns nil, false if the current slot isn't done.
func (d *Device) Receive() ([]byte, bool) {
	desc := d.rx[d.rxCur]
	length, ok := validateRXDescriptor(desc)
	if !ok {
		return nil, false
	}

	out := make([]byte, length)
	src := (*[RXBufferSize]byte)(ptrFromUintptr(d.rxBufs[d.rxCur]))
	copy(out, src[:length])

	d.rx[d.rxCur] = Descriptor{BufferPhys: uint64(d.rxBufs[d.rxCur])}
	hal.CompilerFence()
	d.setReg(regRDT, d.rxCur)
	d.rxCur = advanceCursor(d.rxCur, RingSize)
	return out, true
}

// Transmit copies payload into a temporary DMA buffer's descriptor slot,
// programs the command flags, and advances the TX cursor. It does not
// block on report-status (spec.md §4.7's documented open question).
func (d *Device) Transmit(payload []byte) {
	slot := &d.tx[d.txCur]
	dst := (*[RXBufferSize]byte)(ptrFromUintptr(uintptr(slot.BufferPhys)))
	n := copy(dst[:], payload)

	*slot = Descriptor{
		BufferPhys: slot.BufferPhys,
		Length:     uint16(n),
		Cmd:        cmdEOP | cmdIFCS | cmdRS,
	}
	hal.CompilerFence()
	d.txCur = advanceCursor(d.txCur, RingSize)
	d.setReg(regTDT, d.txCur)
}

// Snapshot returns the structured read-only diagnostics spec.md §4.7
// requires.
func (d *Device) Snapshot() Diagnostics {
	status := d.reg(regSTATUS)
	return Diagnostics{
		CTRL:                d.reg(regCTRL),
		STATUS:               status,
		RCTL:                 d.reg(regRCTL),
		TCTL:                 d.reg(regTCTL),
		RXHead:                d.reg(regRDH),
		RXTail:                d.reg(regRDT),
		TXHead:                d.reg(regTDH),
		TXTail:                d.reg(regTDT),
		CurrentRXDescriptor:   d.rx[d.rxCur],
		MAC:                   d.mac,
		LinkUp:                status&ctrlLinkUp != 0,
	}
}

// linkSummary is the compact diagnostic word for a NIC snapshot: cursor
// positions and the link flag packed into one uint64 via
// internal/bitfield, instead of formatting each field separately.
type linkSummary struct {
	RXHead uint8 `bitfield:",8"`
	RXTail uint8 `bitfield:",8"`
	TXHead uint8 `bitfield:",8"`
	TXTail uint8 `bitfield:",8"`
	Link   bool  `bitfield:",1"`
}

// PackedLinkSummary packs a Diagnostics snapshot's ring cursors and link
// flag into one diagnostic word, for the overlay's compact NIC badge.
func (diag Diagnostics) PackedLinkSummary() uint64 {
	word, _ := bitfield.Pack(&linkSummary{
		RXHead: uint8(diag.RXHead),
		RXTail: uint8(diag.RXTail),
		TXHead: uint8(diag.TXHead),
		TXTail: uint8(diag.TXTail),
		Link:   diag.LinkUp,
	}, nil)
	return word
}

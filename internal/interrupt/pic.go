package interrupt

import "github.com/escobarmartinezsergio7-hub/go-os-core/internal/hal"

// Legacy 8259 PIC initialization command words.
const (
	icw1Init       = 0x11 // ICW1_INIT | ICW1_ICW4
	icw4_8086      = 0x01
	masterBaseVector = 32
	slaveBaseVector  = 40
	masterSlaveLine  = 1 << 2 // IRQ2 carries the cascade on the master
	slaveCascadeID   = 2
)

// RemapPIC issues the canonical four initialization command words to
// master and slave, rebasing IRQ0-7 to vectors 32-39 and IRQ8-15 to
// 40-47, then masks every line except IRQ0 on the master and everything
// on the slave. Matches spec.md §4.4's legacy-PIC remap.
func RemapPIC() {
	hal.Outb(hal.PortPICMasterCmd, icw1Init)
	hal.Outb(hal.PortPICSlaveCmd, icw1Init)

	hal.Outb(hal.PortPICMasterData, masterBaseVector)
	hal.Outb(hal.PortPICSlaveData, slaveBaseVector)

	hal.Outb(hal.PortPICMasterData, masterSlaveLine)
	hal.Outb(hal.PortPICSlaveData, slaveCascadeID)

	hal.Outb(hal.PortPICMasterData, icw4_8086)
	hal.Outb(hal.PortPICSlaveData, icw4_8086)

	// Mask all lines except IRQ0 (the timer) on the master, all lines
	// on the slave.
	hal.Outb(hal.PortPICMasterData, ^uint8(1<<0))
	hal.Outb(hal.PortPICSlaveData, 0xFF)
}

// SendEOI acknowledges an interrupt on the given IRQ line, sending the
// cascade EOI to the slave PIC as well when irq >= 8.
func SendEOI(irq uint8) {
	const eoiCommand = 0x20
	if irq >= 8 {
		hal.Outb(hal.PortPICSlaveCmd, eoiCommand)
	}
	hal.Outb(hal.PortPICMasterCmd, eoiCommand)
}

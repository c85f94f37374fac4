package memory

// dmaSetupCycles is the one machine cycle between the register write
// and the first byte landing in OAM.
const dmaSetupCycles = 4

// dmaLength is the number of bytes copied, one per machine cycle.
const dmaLength = 160

// DMA implements the OAM DMA engine. Writing the trigger register
// starts a copy of 160 bytes from value<<8 into OAM, one byte per
// machine cycle. While the copy runs the CPU is cut off from every
// bus region except the I/O block and HRAM; see MMU.Read.
type DMA struct {
	reg    byte
	source uint16
	index  int
	delay  int
	active bool

	read  func(address uint16) byte
	write func(offset uint16, value byte)
}

// Start begins a transfer. A write while one is already running
// restarts it from the new source.
func (d *DMA) Start(value byte) {
	d.reg = value
	d.source = uint16(value) << 8
	d.index = 0
	d.delay = dmaSetupCycles
	d.active = true
}

// Tick advances the transfer by the given number of T-cycles.
func (d *DMA) Tick(cycles int) {
	if !d.active {
		return
	}
	for ; cycles >= 4; cycles -= 4 {
		if d.delay > 0 {
			d.delay -= 4
			continue
		}
		d.write(uint16(d.index), d.read(d.source+uint16(d.index)))
		d.index++
		if d.index == dmaLength {
			d.active = false
			return
		}
	}
}

// Blocking reports whether the CPU is currently locked out of the
// bus. The setup cycle does not block.
func (d *DMA) Blocking() bool {
	return d.active && d.delay == 0
}

// Register returns the last value written to the trigger register.
func (d *DMA) Register() byte { return d.reg }

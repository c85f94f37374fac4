// Package video implements the pixel processing unit: a four-state
// scanline machine stepped one dot at a time, producing one resolved
// pixel row per visible line.
package video

import (
	"github.com/dotmatrix-emu/dotmatrix/dotmatrix/addr"
	"github.com/dotmatrix-emu/dotmatrix/dotmatrix/bit"
)

// Bus is the PPU's window onto memory and the interrupt controller.
// VRAM/OAM reads bypass the CPU-side lockout.
type Bus interface {
	ReadVRAM(address uint16) byte
	ReadOAM(address uint16) byte
	RequestInterrupt(interrupt addr.Interrupt)
}

// Mode is the PPU state within a scanline, numbered as STAT reports
// it.
type Mode uint8

const (
	// ModeHBlank pads each visible line to 456 dots.
	ModeHBlank Mode = 0
	// ModeVBlank covers lines 144-153.
	ModeVBlank Mode = 1
	// ModeOAMScan is the 80-dot sprite search at line start.
	ModeOAMScan Mode = 2
	// ModePixelTransfer is the variable-length pixel push.
	ModePixelTransfer Mode = 3
)

const (
	dotsPerLine   = 456
	oamScanDots   = 80
	visibleLines  = 144
	linesPerFrame = 154
)

// RowSink receives each completed scanline in top-to-bottom order.
// The slice is only valid for the duration of the call.
type RowSink func(line int, row []Shade)

// PPU is the pixel processing unit.
type PPU struct {
	bus Bus
	fb  *FrameBuffer

	lcdc uint8
	scy  uint8
	scx  uint8
	ly   uint8
	lyc  uint8
	bgp  uint8
	obp0 uint8
	obp1 uint8
	wy   uint8
	wx   uint8

	statEnable uint8 // STAT bits 3-6
	mode       Mode
	dot        int

	// per-line shadow copies, latched at scanline start
	scyLatch  uint8
	scxLatch  uint8
	wxLatch   uint8
	bgpLatch  uint8
	obp0Latch uint8
	obp1Latch uint8

	statLine    bool
	frameReady  bool
	wyTriggered bool
	windowLine  int

	pl pipeline

	rowSink RowSink
}

// New creates a PPU rendering into the given framebuffer.
func New(bus Bus, fb *FrameBuffer) *PPU {
	return &PPU{
		bus:  bus,
		fb:   fb,
		mode: ModeOAMScan,
	}
}

// SetRowSink attaches a per-scanline consumer.
func (p *PPU) SetRowSink(sink RowSink) { p.rowSink = sink }

// Framebuffer returns the buffer the PPU renders into.
func (p *PPU) Framebuffer() *FrameBuffer { return p.fb }

// Mode returns the current scanline state.
func (p *PPU) Mode() Mode { return p.mode }

// Line returns the current scanline index.
func (p *PPU) Line() int { return int(p.ly) }

// FrameReady reports and clears the frame-complete signal raised at
// vblank entry.
func (p *PPU) FrameReady() bool {
	ready := p.frameReady
	p.frameReady = false
	return ready
}

// CanAccessVRAM reports whether the CPU side of the bus can reach
// video RAM; during pixel transfer it cannot.
func (p *PPU) CanAccessVRAM() bool {
	return !p.lcdOn() || p.mode != ModePixelTransfer
}

// CanAccessOAM reports whether the CPU side of the bus can reach OAM;
// it cannot during OAM scan and pixel transfer.
func (p *PPU) CanAccessOAM() bool {
	return !p.lcdOn() || (p.mode != ModeOAMScan && p.mode != ModePixelTransfer)
}

func (p *PPU) lcdOn() bool { return bit.IsSet(7, p.lcdc) }

// Tick advances the PPU by the given number of T-cycles (dots). The
// LCD being off stops the dot clock entirely.
func (p *PPU) Tick(cycles int) {
	if !p.lcdOn() {
		return
	}
	for i := 0; i < cycles; i++ {
		p.stepDot()
	}
}

// stepDot advances one dot. Mode transitions and the line increment
// happen only at exact dot boundaries; the STAT line is re-evaluated
// every dot so register writes can retroactively satisfy a condition
// mid-line.
func (p *PPU) stepDot() {
	if p.dot == 0 {
		p.startLine()
	}

	if p.ly < visibleLines {
		if p.dot == oamScanDots && p.mode == ModeOAMScan {
			p.mode = ModePixelTransfer
			p.startPixelTransfer()
		}
		if p.mode == ModePixelTransfer {
			p.stepPixelTransfer()
			if p.pl.lx == FramebufferWidth {
				p.mode = ModeHBlank
				p.deliverRow()
			}
		}
	}

	p.evalSTAT()

	p.dot++
	if p.dot == dotsPerLine {
		p.dot = 0
		p.endLine()
	}
}

func (p *PPU) startLine() {
	if p.ly < visibleLines {
		p.mode = ModeOAMScan

		p.scyLatch = p.scy
		p.scxLatch = p.scx
		p.wxLatch = p.wx
		p.bgpLatch = p.bgp
		p.obp0Latch = p.obp0
		p.obp1Latch = p.obp1

		// the window turns on for the frame once LY matches WY
		if p.ly == p.wy {
			p.wyTriggered = true
		}
		return
	}

	if p.ly == visibleLines {
		p.mode = ModeVBlank
		p.frameReady = true
		p.bus.RequestInterrupt(addr.VBlankInterrupt)
	}
}

func (p *PPU) endLine() {
	if p.ly < visibleLines && p.pl.windowActive {
		p.windowLine++
	}

	p.ly++
	if p.ly == linesPerFrame {
		// wraps to line 0 exactly at vblank end
		p.ly = 0
		p.windowLine = 0
		p.wyTriggered = false
	}
}

func (p *PPU) deliverRow() {
	if p.rowSink == nil {
		return
	}
	p.rowSink(int(p.ly), p.fb.Row(int(p.ly)))
}

// evalSTAT recomputes the STAT interrupt line from the mode and
// LY=LYC sources. The interrupt requests on the rising edge only, so
// an already-high line masks further sources (STAT blocking).
func (p *PPU) evalSTAT() {
	line := bit.IsSet(3, p.statEnable) && p.mode == ModeHBlank ||
		bit.IsSet(4, p.statEnable) && p.mode == ModeVBlank ||
		bit.IsSet(5, p.statEnable) && p.mode == ModeOAMScan ||
		bit.IsSet(6, p.statEnable) && p.ly == p.lyc

	if line && !p.statLine {
		p.bus.RequestInterrupt(addr.STATInterrupt)
	}
	p.statLine = line
}

// ReadRegister resolves reads of the PPU register block.
func (p *PPU) ReadRegister(address uint16) byte {
	switch address {
	case addr.LCDC:
		return p.lcdc
	case addr.STAT:
		stat := uint8(0x80) | p.statEnable | uint8(p.mode)
		if p.ly == p.lyc {
			stat |= 0x04
		}
		return stat
	case addr.SCY:
		return p.scy
	case addr.SCX:
		return p.scx
	case addr.LY:
		return p.ly
	case addr.LYC:
		return p.lyc
	case addr.BGP:
		return p.bgp
	case addr.OBP0:
		return p.obp0
	case addr.OBP1:
		return p.obp1
	case addr.WY:
		return p.wy
	case addr.WX:
		return p.wx
	default:
		return 0xFF
	}
}

// WriteRegister resolves writes to the PPU register block. LY is read
// only. STAT's low three bits are hardware status and ignored on
// write.
func (p *PPU) WriteRegister(address uint16, value byte) {
	switch address {
	case addr.LCDC:
		wasOn := p.lcdOn()
		p.lcdc = value
		if wasOn && !p.lcdOn() {
			// turning the LCD off resets the line and dot counters
			p.ly = 0
			p.dot = 0
			p.mode = ModeHBlank
			p.windowLine = 0
			p.wyTriggered = false
		}
	case addr.STAT:
		p.statEnable = value & 0x78
		p.evalSTAT()
	case addr.SCY:
		p.scy = value
	case addr.SCX:
		p.scx = value
	case addr.LYC:
		p.lyc = value
		p.evalSTAT()
	case addr.BGP:
		p.bgp = value
	case addr.OBP0:
		p.obp0 = value
	case addr.OBP1:
		p.obp1 = value
	case addr.WY:
		p.wy = value
	case addr.WX:
		p.wx = value
	}
}

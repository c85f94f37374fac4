// Package addr holds the memory-mapped register addresses of the DMG
// and the interrupt kinds with their service vectors.
package addr

// PPU registers
const (
	// LCDC is the LCD control register.
	LCDC uint16 = 0xFF40
	// STAT is the LCD status register. Bits 0-1 report the PPU mode,
	// bit 2 the LY=LYC coincidence, bits 3-6 select interrupt sources.
	STAT uint16 = 0xFF41
	// SCY is the background vertical scroll register.
	SCY uint16 = 0xFF42
	// SCX is the background horizontal scroll register.
	SCX uint16 = 0xFF43
	// LY is the current scanline (read only).
	LY uint16 = 0xFF44
	// LYC is the scanline compare register.
	LYC uint16 = 0xFF45
	// DMA triggers an OAM DMA transfer when written.
	DMA uint16 = 0xFF46
	// BGP is the background palette register.
	BGP uint16 = 0xFF47
	// OBP0 is sprite palette 0.
	OBP0 uint16 = 0xFF48
	// OBP1 is sprite palette 1.
	OBP1 uint16 = 0xFF49
	// WY is the window top coordinate.
	WY uint16 = 0xFF4A
	// WX is the window left coordinate, offset by 7.
	WX uint16 = 0xFF4B
)

// Sound registers. The core does not synthesize audio; writes in this
// range are forwarded verbatim to an external collaborator.
const (
	SoundStart uint16 = 0xFF10
	SoundEnd   uint16 = 0xFF3F

	NR10 uint16 = 0xFF10
	NR11 uint16 = 0xFF11
	NR12 uint16 = 0xFF12
	NR14 uint16 = 0xFF14
	NR21 uint16 = 0xFF16
	NR22 uint16 = 0xFF17
	NR24 uint16 = 0xFF19
	NR30 uint16 = 0xFF1A
	NR31 uint16 = 0xFF1B
	NR32 uint16 = 0xFF1C
	NR34 uint16 = 0xFF1E
	NR41 uint16 = 0xFF20
	NR42 uint16 = 0xFF21
	NR43 uint16 = 0xFF22
	NR44 uint16 = 0xFF23
	NR50 uint16 = 0xFF24
	NR51 uint16 = 0xFF25
	NR52 uint16 = 0xFF26
)

// VRAM and OAM regions
const (
	// VRAMStart is the base of video RAM.
	VRAMStart uint16 = 0x8000
	// VRAMEnd is the last video RAM address.
	VRAMEnd uint16 = 0x9FFF
	// OAMStart is the base of object attribute memory (40 sprites, 4 bytes each).
	OAMStart uint16 = 0xFE00
	// OAMEnd is the last OAM address.
	OAMEnd uint16 = 0xFE9F

	// TileData0 is the base of the unsigned tile data region.
	TileData0 uint16 = 0x8000
	// TileData1 is the base of the signed tile data region.
	TileData1 uint16 = 0x8800
	// TileMap0 is background/window tile map 0.
	TileMap0 uint16 = 0x9800
	// TileMap1 is background/window tile map 1.
	TileMap1 uint16 = 0x9C00
)

// Interrupt registers
const (
	// IF is the interrupt request register. Upper 3 bits read as 1.
	IF uint16 = 0xFF0F
	// IE is the interrupt enable register.
	IE uint16 = 0xFFFF
)

// Joypad register. Bits 4-5 select the button group mapped onto the
// low nibble; 0 means pressed.
const P1 uint16 = 0xFF00

// Serial port registers
const (
	// SB holds the byte being transferred over the link port.
	SB uint16 = 0xFF01
	// SC controls serial transfers: bit 7 starts one, bit 0 selects
	// the internal clock. Hardware clears bit 7 on completion.
	SC uint16 = 0xFF02
)

// Timer registers
const (
	// DIV is the free-running divider, the top byte of the internal
	// 16-bit counter. Any write resets the counter to zero.
	DIV uint16 = 0xFF04
	// TIMA is the timer counter; requests an interrupt on overflow.
	TIMA uint16 = 0xFF05
	// TMA is the value reloaded into TIMA after an overflow.
	TMA uint16 = 0xFF06
	// TAC enables the timer and selects its clock.
	TAC uint16 = 0xFF07
)

// Interrupt identifies one of the five interrupt sources, ordered by
// priority: bit 0 (vblank) is serviced first.
type Interrupt uint8

const (
	// VBlankInterrupt fires when the PPU enters vertical blank.
	VBlankInterrupt Interrupt = iota
	// STATInterrupt fires on an enabled STAT condition edge.
	STATInterrupt
	// TimerInterrupt fires when TIMA overflows.
	TimerInterrupt
	// SerialInterrupt fires when a serial transfer completes.
	SerialInterrupt
	// JoypadInterrupt fires when a button line goes low.
	JoypadInterrupt
)

// Bit returns the interrupt's position in the IE/IF registers.
func (i Interrupt) Bit() uint8 { return uint8(i) }

// Vector returns the interrupt's service routine address.
func (i Interrupt) Vector() uint16 { return 0x40 + uint16(i)*8 }

func (i Interrupt) String() string {
	switch i {
	case VBlankInterrupt:
		return "vblank"
	case STATInterrupt:
		return "stat"
	case TimerInterrupt:
		return "timer"
	case SerialInterrupt:
		return "serial"
	case JoypadInterrupt:
		return "joypad"
	}
	return "unknown"
}

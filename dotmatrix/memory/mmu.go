package memory

import (
	"fmt"

	"github.com/dotmatrix-emu/dotmatrix/dotmatrix/addr"
	"github.com/dotmatrix-emu/dotmatrix/dotmatrix/audio"
	"github.com/dotmatrix-emu/dotmatrix/dotmatrix/bit"
	"github.com/dotmatrix-emu/dotmatrix/dotmatrix/serial"
)

type memRegion uint8

const (
	regionROM memRegion = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionIO
)

// SerialPort is the minimal interface of a device behind SB/SC.
type SerialPort interface {
	Read(address uint16) byte
	Write(address uint16, value byte)
	Tick(cycles int)
}

// VideoUnit is what the MMU needs from the PPU: its register block
// and the mode-dependent bus availability of VRAM and OAM.
type VideoUnit interface {
	ReadRegister(address uint16) byte
	WriteRegister(address uint16, value byte)
	CanAccessVRAM() bool
	CanAccessOAM() bool
}

// MMU routes every address to work RAM, video RAM, OAM, the I/O
// block, high RAM or cartridge space. It owns the backing memory;
// other components reach it only through accessor calls.
type MMU struct {
	cart *Cartridge
	mbc  *MBC
	mem  []byte

	timer  Timer
	dma    DMA
	joypad Joypad
	serial SerialPort
	video  VideoUnit

	// Sound is the register-forwarding front of the audio block.
	Sound *audio.Forwarder

	regionMap [256]memRegion
}

// New creates a memory unit with no cartridge inserted.
func New() *MMU {
	m := &MMU{
		cart:   NewCartridge(),
		mem:    make([]byte, 0x10000),
		joypad: NewJoypad(),
		Sound:  audio.New(),
	}
	m.mbc = NewMBC(m.cart)
	m.serial = serial.NewLogSink(func() { m.RequestInterrupt(addr.SerialInterrupt) })
	m.timer.RequestInterrupt = func() { m.RequestInterrupt(addr.TimerInterrupt) }
	m.joypad.RequestInterrupt = func() { m.RequestInterrupt(addr.JoypadInterrupt) }
	m.dma.read = m.dmaRead
	m.dma.write = func(offset uint16, value byte) { m.mem[addr.OAMStart+offset] = value }
	initRegionMap(m)
	return m
}

// NewWithCartridge creates a memory unit with the given cartridge
// mapped in.
func NewWithCartridge(cart *Cartridge) *MMU {
	m := New()
	m.cart = cart
	m.mbc = NewMBC(cart)
	return m
}

func initRegionMap(m *MMU) {
	for i := 0x00; i <= 0x7F; i++ {
		m.regionMap[i] = regionROM
	}
	for i := 0x80; i <= 0x9F; i++ {
		m.regionMap[i] = regionVRAM
	}
	for i := 0xA0; i <= 0xBF; i++ {
		m.regionMap[i] = regionExtRAM
	}
	for i := 0xC0; i <= 0xDF; i++ {
		m.regionMap[i] = regionWRAM
	}
	for i := 0xE0; i <= 0xFD; i++ {
		m.regionMap[i] = regionEcho
	}
	m.regionMap[0xFE] = regionOAM
	m.regionMap[0xFF] = regionIO
}

// SetVideo attaches the PPU. Until one is attached the video register
// block behaves as plain bytes and VRAM/OAM are always accessible.
func (m *MMU) SetVideo(v VideoUnit) { m.video = v }

// SetSerialDevice replaces the default logging sink.
func (m *MMU) SetSerialDevice(s SerialPort) { m.serial = s }

// SerialDevice returns the attached serial device.
func (m *MMU) SerialDevice() SerialPort { return m.serial }

// SetTimerSeed initializes the internal divider to match post-boot
// hardware state.
func (m *MMU) SetTimerSeed(seed uint16) { m.timer.Seed(seed) }

// Tick advances the timed bus peripherals: timer, OAM DMA and the
// serial port.
func (m *MMU) Tick(cycles int) {
	m.timer.Tick(cycles)
	m.dma.Tick(cycles)
	if m.serial != nil {
		m.serial.Tick(cycles)
	}
}

// RequestInterrupt sets the request bit for the given interrupt.
func (m *MMU) RequestInterrupt(interrupt addr.Interrupt) {
	m.mem[addr.IF] = bit.Set(interrupt.Bit(), m.mem[addr.IF]) | 0xE0
}

// SetButton records host input on the joypad lines.
func (m *MMU) SetButton(b Button, pressed bool) {
	m.joypad.SetButton(b, pressed)
}

// SaveRAM returns a snapshot of battery-backed external RAM, nil if
// the cartridge has none.
func (m *MMU) SaveRAM() []byte { return m.mbc.RAMSnapshot() }

// LoadSaveRAM seeds external RAM from previously persisted data.
func (m *MMU) LoadSaveRAM(data []byte) { m.mbc.LoadRAM(data) }

// cpuBlocked reports whether a CPU access to the given address is cut
// off by an in-flight OAM DMA. The I/O block and HRAM stay reachable.
func (m *MMU) cpuBlocked(address uint16) bool {
	return m.dma.Blocking() && address < 0xFF00
}

// Read resolves a CPU read. Every address maps to some defined byte:
// locked regions and open bus read as 0xFF, the unused 0xFEA0-0xFEFF
// strip as 0x00.
func (m *MMU) Read(address uint16) byte {
	if m.cpuBlocked(address) {
		return 0xFF
	}

	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		return m.mbc.Read(address)
	case regionVRAM:
		if m.video != nil && !m.video.CanAccessVRAM() {
			return 0xFF
		}
		return m.mem[address]
	case regionWRAM:
		return m.mem[address]
	case regionEcho:
		return m.mem[address-0x2000]
	case regionOAM:
		if address > addr.OAMEnd {
			return 0x00
		}
		if m.video != nil && !m.video.CanAccessOAM() {
			return 0xFF
		}
		return m.mem[address]
	case regionIO:
		return m.readIO(address)
	default:
		panic(fmt.Sprintf("unmapped read at 0x%04X", address))
	}
}

// Write resolves a CPU write. Writes to locked or read-only regions
// are discarded, never an error.
func (m *MMU) Write(address uint16, value byte) {
	if m.cpuBlocked(address) {
		return
	}

	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		m.mbc.Write(address, value)
	case regionVRAM:
		if m.video != nil && !m.video.CanAccessVRAM() {
			return
		}
		m.mem[address] = value
	case regionWRAM:
		m.mem[address] = value
	case regionEcho:
		m.mem[address-0x2000] = value
	case regionOAM:
		if address > addr.OAMEnd {
			return
		}
		if m.video != nil && !m.video.CanAccessOAM() {
			return
		}
		m.mem[address] = value
	case regionIO:
		m.writeIO(address, value)
	default:
		panic(fmt.Sprintf("unmapped write at 0x%04X", address))
	}
}

func (m *MMU) readIO(address uint16) byte {
	switch {
	case address == addr.P1:
		return m.joypad.Read()
	case address == addr.SB || address == addr.SC:
		if m.serial != nil {
			return m.serial.Read(address)
		}
		return 0xFF
	case address >= addr.DIV && address <= addr.TAC:
		return m.timer.Read(address)
	case address == addr.IF:
		// upper 3 bits are not wired and always read as 1
		return m.mem[address] | 0xE0
	case address >= addr.SoundStart && address <= addr.SoundEnd:
		return m.Sound.ReadRegister(address)
	case address == addr.DMA:
		return m.dma.Register()
	case address >= addr.LCDC && address <= addr.WX:
		if m.video != nil {
			return m.video.ReadRegister(address)
		}
		return m.mem[address]
	default:
		// HRAM, IE and the remaining I/O bytes
		return m.mem[address]
	}
}

func (m *MMU) writeIO(address uint16, value byte) {
	switch {
	case address == addr.P1:
		m.joypad.Write(value)
	case address == addr.SB || address == addr.SC:
		if m.serial != nil {
			m.serial.Write(address, value)
		}
	case address >= addr.DIV && address <= addr.TAC:
		m.timer.Write(address, value)
	case address == addr.IF:
		m.mem[address] = value | 0xE0
	case address >= addr.SoundStart && address <= addr.SoundEnd:
		m.Sound.WriteRegister(address, value)
	case address == addr.DMA:
		m.dma.Start(value)
	case address >= addr.LCDC && address <= addr.WX:
		if m.video != nil {
			m.video.WriteRegister(address, value)
			return
		}
		m.mem[address] = value
	default:
		m.mem[address] = value
	}
}

// ReadVRAM bypasses the mode 3 lockout; only the PPU itself and
// debug tooling should use it.
func (m *MMU) ReadVRAM(address uint16) byte {
	return m.mem[address]
}

// ReadOAM bypasses the mode 2/3 and DMA lockouts for the PPU's own
// sprite walk.
func (m *MMU) ReadOAM(address uint16) byte {
	return m.mem[address]
}

// dmaRead feeds the DMA engine. It ignores CPU-side locks and applies
// the hardware remap of sources above 0xDFFF onto work RAM.
func (m *MMU) dmaRead(address uint16) byte {
	if address >= 0xE000 {
		address -= 0x2000
	}
	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		return m.mbc.Read(address)
	default:
		return m.mem[address]
	}
}

// DMAActive reports whether an OAM DMA transfer is in flight.
func (m *MMU) DMAActive() bool { return m.dma.active }

// Package dotmatrix wires the SM83 core, memory unit and pixel
// pipeline into a runnable monochrome Game Boy.
package dotmatrix

import (
	"os"

	"github.com/dotmatrix-emu/dotmatrix/dotmatrix/cpu"
	"github.com/dotmatrix-emu/dotmatrix/dotmatrix/memory"
	"github.com/dotmatrix-emu/dotmatrix/dotmatrix/serial"
	"github.com/dotmatrix-emu/dotmatrix/dotmatrix/video"
)

// cyclesPerFrame is one full LCD refresh: 154 lines of 456 dots.
const cyclesPerFrame = 70224

// divSeed is the internal divider value at PC 0x0100 on DMG hardware.
const divSeed = 0xABCC

// bus is the CPU's view of the system. Each CPU tick advances the
// memory-side peripherals and the pixel pipeline in lockstep, which is
// what makes mid-instruction timing observable.
type bus struct {
	mmu *memory.MMU
	ppu *video.PPU
}

func (b *bus) Read(address uint16) byte         { return b.mmu.Read(address) }
func (b *bus) Write(address uint16, value byte) { b.mmu.Write(address, value) }

func (b *bus) Tick(cycles int) {
	b.mmu.Tick(cycles)
	b.ppu.Tick(cycles)
}

// DMG is the root struct and entry point for running the emulation.
type DMG struct {
	cpu *cpu.CPU
	ppu *video.PPU
	mmu *memory.MMU
	fb  *video.FrameBuffer
}

// New creates a machine with no cartridge inserted; the bus reads open
// ROM space as 0xFF.
func New() *DMG {
	return build(memory.New())
}

// NewWithROM creates a machine with the given ROM image inserted.
func NewWithROM(data []byte) (*DMG, error) {
	cart, err := memory.NewCartridgeWithData(data)
	if err != nil {
		return nil, err
	}
	return build(memory.NewWithCartridge(cart)), nil
}

// NewWithFile loads a ROM image from disk and creates a machine with
// it inserted.
func NewWithFile(path string) (*DMG, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewWithROM(data)
}

func build(mmu *memory.MMU) *DMG {
	fb := video.NewFrameBuffer()
	ppu := video.New(mmu, fb)
	mmu.SetVideo(ppu)

	d := &DMG{
		cpu: cpu.New(&bus{mmu: mmu, ppu: ppu}),
		ppu: ppu,
		mmu: mmu,
		fb:  fb,
	}
	d.initIO()
	return d
}

// initIO reproduces the register state the boot ROM leaves behind, so
// execution can start straight at 0x0100.
func (d *DMG) initIO() {
	d.mmu.SetTimerSeed(divSeed)

	for _, reg := range []struct {
		address uint16
		value   byte
	}{
		{0xFF00, 0xCF}, // P1
		{0xFF02, 0x7E}, // SC
		{0xFF0F, 0xE1}, // IF
		{0xFF10, 0x80}, // NR10
		{0xFF11, 0xBF}, // NR11
		{0xFF12, 0xF3}, // NR12
		{0xFF14, 0xBF}, // NR14
		{0xFF16, 0x3F}, // NR21
		{0xFF19, 0xBF}, // NR24
		{0xFF1A, 0x7F}, // NR30
		{0xFF1B, 0xFF}, // NR31
		{0xFF1C, 0x9F}, // NR32
		{0xFF1E, 0xBF}, // NR34
		{0xFF20, 0xFF}, // NR41
		{0xFF23, 0xBF}, // NR44
		{0xFF24, 0x77}, // NR50
		{0xFF25, 0xF3}, // NR51
		{0xFF26, 0xF1}, // NR52
		{0xFF40, 0x91}, // LCDC
		{0xFF47, 0xFC}, // BGP
		{0xFF48, 0xFF}, // OBP0
		{0xFF49, 0xFF}, // OBP1
	} {
		d.mmu.Write(reg.address, reg.value)
	}
}

// Step executes one CPU instruction (or one interrupt dispatch, or a
// halted idle cycle) and returns the T-cycles it took. All peripherals
// advance inside the call, tick by tick.
func (d *DMG) Step() int {
	return d.cpu.Step()
}

// RunUntilFrame steps the machine until the pixel pipeline completes a
// frame. With the LCD disabled no frame ever completes, so the call
// also returns after one frame's worth of cycles.
func (d *DMG) RunUntilFrame() error {
	budget := cyclesPerFrame
	for budget > 0 {
		budget -= d.Step()
		if d.ppu.FrameReady() {
			return nil
		}
	}
	return nil
}

// Frame returns the framebuffer holding the most recent picture.
func (d *DMG) Frame() *video.FrameBuffer { return d.fb }

// SetButton records host input on the joypad lines.
func (d *DMG) SetButton(b memory.Button, pressed bool) {
	d.mmu.SetButton(b, pressed)
}

// CPU exposes the processor core for debugging and tests.
func (d *DMG) CPU() *cpu.CPU { return d.cpu }

// MMU exposes the memory unit for debugging and tests.
func (d *DMG) MMU() *memory.MMU { return d.mmu }

// PPU exposes the pixel pipeline for debugging and tests.
func (d *DMG) PPU() *video.PPU { return d.ppu }

// SaveRAM returns a snapshot of battery-backed cartridge RAM, nil if
// the cartridge has none.
func (d *DMG) SaveRAM() []byte { return d.mmu.SaveRAM() }

// LoadSaveRAM seeds cartridge RAM from previously persisted data.
func (d *DMG) LoadSaveRAM(data []byte) { d.mmu.LoadSaveRAM(data) }

// SerialTranscript returns everything the ROM has written out the
// serial port, when the default logging sink is attached.
func (d *DMG) SerialTranscript() string {
	if sink, ok := d.mmu.SerialDevice().(*serial.LogSink); ok {
		return sink.Transcript()
	}
	return ""
}

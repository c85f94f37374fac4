package memory

// MBC maps the cartridge address windows (0x0000-0x7FFF ROM,
// 0xA000-0xBFFF external RAM) onto the banked storage selected by the
// cartridge's control registers.
//
// Banking schemes are a closed variant set: one kind tag and a switch
// in the few places behavior differs, rather than one type per
// scheme. Adding a scheme adds a case to the read and control-write
// switches.
type MBC struct {
	kind MBCKind
	rom  []byte
	ram  []byte

	romBanks int
	ramBanks int

	// raw control registers, interpreted per kind
	bank1      byte // MBC1: 5-bit ROM bank low bits
	bank2      byte // MBC1: 2-bit ROM bank high bits / RAM bank
	mode       byte // MBC1: banking mode select
	romBank    int  // MBC5: 9-bit ROM bank
	ramBank    byte // MBC5: RAM bank
	ramEnabled bool
}

// NewMBC builds the bank controller described by a cartridge header.
func NewMBC(cart *Cartridge) *MBC {
	return &MBC{
		kind:     cart.kind,
		rom:      cart.data,
		ram:      make([]byte, cart.ramBanks*0x2000),
		romBanks: cart.romBanks,
		ramBanks: cart.ramBanks,
		bank1:    1,
		romBank:  1,
	}
}

// lowROMBank returns the bank mapped at 0x0000-0x3FFF. Normally zero,
// but MBC1 mode 1 remaps it using the high bank bits on large carts.
func (m *MBC) lowROMBank() int {
	if m.kind == MBC1Kind && m.mode == 1 {
		return (int(m.bank2) << 5) % m.romBanks
	}
	return 0
}

// highROMBank returns the bank mapped at 0x4000-0x7FFF. Out-of-range
// indices wrap modulo the physical bank count, which also covers
// non-power-of-two images.
func (m *MBC) highROMBank() int {
	switch m.kind {
	case MBC1Kind:
		return (int(m.bank2)<<5 | int(m.bank1)) % m.romBanks
	case MBC5Kind:
		return m.romBank % m.romBanks
	default:
		return 1 % m.romBanks
	}
}

// currentRAMBank returns the external RAM bank currently mapped.
func (m *MBC) currentRAMBank() int {
	if m.ramBanks == 0 {
		return 0
	}
	switch m.kind {
	case MBC1Kind:
		if m.mode == 1 {
			return int(m.bank2) % m.ramBanks
		}
		return 0
	case MBC5Kind:
		return int(m.ramBank) % m.ramBanks
	default:
		return 0
	}
}

// Read resolves a cartridge-space read through the current banking
// state. Disabled or absent RAM reads as 0xFF.
func (m *MBC) Read(address uint16) byte {
	switch {
	case address <= 0x3FFF:
		return m.readROM(m.lowROMBank(), address)
	case address <= 0x7FFF:
		return m.readROM(m.highROMBank(), address-0x4000)
	case address >= 0xA000 && address <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		return m.ram[m.currentRAMBank()*0x2000+int(address-0xA000)]
	default:
		return 0xFF
	}
}

func (m *MBC) readROM(bank int, offset uint16) byte {
	index := bank*0x4000 + int(offset)
	if index >= len(m.rom) {
		if len(m.rom) == 0 {
			return 0xFF
		}
		index %= len(m.rom)
	}
	return m.rom[index]
}

// Write classifies a cartridge-space write as a bank-control write or
// an external RAM store. ROM-only carts ignore control writes.
func (m *MBC) Write(address uint16, value byte) {
	if address >= 0xA000 && address <= 0xBFFF {
		if !m.ramEnabled || len(m.ram) == 0 {
			return
		}
		m.ram[m.currentRAMBank()*0x2000+int(address-0xA000)] = value
		return
	}

	switch m.kind {
	case MBC1Kind:
		m.writeControlMBC1(address, value)
	case MBC5Kind:
		m.writeControlMBC5(address, value)
	}
}

func (m *MBC) writeControlMBC1(address uint16, value byte) {
	switch {
	case address <= 0x1FFF:
		m.ramEnabled = value&0x0F == 0x0A
	case address <= 0x3FFF:
		m.bank1 = value & 0x1F
		if m.bank1 == 0 {
			// the low-bits register can never select bank 0
			m.bank1 = 1
		}
	case address <= 0x5FFF:
		m.bank2 = value & 0x03
	case address <= 0x7FFF:
		m.mode = value & 0x01
	}
}

func (m *MBC) writeControlMBC5(address uint16, value byte) {
	switch {
	case address <= 0x1FFF:
		m.ramEnabled = value&0x0F == 0x0A
	case address <= 0x2FFF:
		m.romBank = m.romBank&0x100 | int(value)
	case address <= 0x3FFF:
		m.romBank = m.romBank&0xFF | int(value&0x01)<<8
	case address <= 0x5FFF:
		m.ramBank = value & 0x0F
	}
}

// RAMSnapshot returns a copy of the external RAM contents for the
// host to persist. Nil when the cartridge has no RAM.
func (m *MBC) RAMSnapshot() []byte {
	if len(m.ram) == 0 {
		return nil
	}
	out := make([]byte, len(m.ram))
	copy(out, m.ram)
	return out
}

// LoadRAM seeds external RAM from previously saved data. Oversized
// input is truncated to the physical RAM size.
func (m *MBC) LoadRAM(data []byte) {
	copy(m.ram, data)
}

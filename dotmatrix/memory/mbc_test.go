package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeROM builds a ROM image where the first byte of every 16KB bank
// holds the bank index, so reads identify the mapped bank directly.
func makeROM(cartType, romSizeCode, ramSizeCode byte, banks int) []byte {
	data := make([]byte, banks*0x4000)
	copy(data[titleAddress:], "TEST")
	data[cartridgeTypeAddress] = cartType
	data[romSizeAddress] = romSizeCode
	data[ramSizeAddress] = ramSizeCode
	for b := 0; b < banks; b++ {
		data[b*0x4000] = byte(b)
	}
	// bank 0 starts with the header, use a probe offset past it
	return data
}

const bankProbe = 0x0000

func newTestMBC(t *testing.T, cartType, romSizeCode, ramSizeCode byte, banks int) *MBC {
	t.Helper()
	cart, err := NewCartridgeWithData(makeROM(cartType, romSizeCode, ramSizeCode, banks))
	require.NoError(t, err)
	return NewMBC(cart)
}

func TestMBC_romOnlyIgnoresControlWrites(t *testing.T) {
	mbc := newTestMBC(t, 0x00, 0x00, 0x00, 2)

	mbc.Write(0x2000, 0x05)

	assert.Equal(t, uint8(0), mbc.Read(bankProbe))
	assert.Equal(t, uint8(1), mbc.Read(0x4000+bankProbe))
}

func TestMBC1_bankSelect(t *testing.T) {
	mbc := newTestMBC(t, 0x01, 0x03, 0x00, 16)

	assert.Equal(t, uint8(1), mbc.Read(0x4000), "bank 1 mapped at reset")

	mbc.Write(0x2000, 0x05)
	assert.Equal(t, uint8(5), mbc.Read(0x4000))

	// the low-bits register cannot select bank 0
	mbc.Write(0x2000, 0x00)
	assert.Equal(t, uint8(1), mbc.Read(0x4000))
}

func TestMBC1_highBankBits(t *testing.T) {
	mbc := newTestMBC(t, 0x01, 0x05, 0x00, 64)

	mbc.Write(0x2000, 0x01) // bank1 = 1
	mbc.Write(0x4000, 0x01) // bank2 = 1

	assert.Equal(t, uint8(0x21), mbc.Read(0x4000), "bank2 contributes bits 5-6")
}

func TestMBC1_bankWraparound(t *testing.T) {
	// 4-bank image: selecting bank 5 must wrap to 5 mod 4 = 1
	mbc := newTestMBC(t, 0x01, 0x01, 0x00, 4)

	mbc.Write(0x2000, 0x05)

	assert.Equal(t, uint8(1), mbc.Read(0x4000))
}

func TestMBC1_nonPowerOfTwoImageWraps(t *testing.T) {
	// the header claims 4 banks but the image only carries 3; reads
	// past the physical end wrap onto the start of the image
	mbc := newTestMBC(t, 0x01, 0x01, 0x00, 3)

	mbc.Write(0x2000, 0x02)
	assert.Equal(t, uint8(2), mbc.Read(0x4000), "last physical bank still maps")

	mbc.Write(0x2000, 0x03)
	assert.Equal(t, uint8(0), mbc.Read(0x4000), "bank 3 wraps onto bank 0")
}

func TestMBC1_mode1RemapsLowBank(t *testing.T) {
	mbc := newTestMBC(t, 0x01, 0x05, 0x00, 64)

	mbc.Write(0x4000, 0x01) // bank2 = 1

	// mode 0: low region is always bank 0
	assert.Equal(t, uint8(0), mbc.Read(0x0000))

	mbc.Write(0x6000, 0x01) // mode 1
	assert.Equal(t, uint8(0x20), mbc.Read(0x0000))
}

func TestMBC1_ramEnable(t *testing.T) {
	mbc := newTestMBC(t, 0x03, 0x01, 0x02, 4)

	assert.Equal(t, uint8(0xFF), mbc.Read(0xA000), "disabled RAM reads open bus")
	mbc.Write(0xA000, 0x42)

	mbc.Write(0x0000, 0x0A)
	assert.Equal(t, uint8(0), mbc.Read(0xA000), "the disabled write was dropped")

	mbc.Write(0xA000, 0x42)
	assert.Equal(t, uint8(0x42), mbc.Read(0xA000))

	// any low-nibble value other than 0x0A disables
	mbc.Write(0x0000, 0x00)
	assert.Equal(t, uint8(0xFF), mbc.Read(0xA000))
}

func TestMBC1_ramBanking(t *testing.T) {
	mbc := newTestMBC(t, 0x03, 0x01, 0x03, 4) // 4 RAM banks

	mbc.Write(0x0000, 0x0A) // enable RAM
	mbc.Write(0x6000, 0x01) // mode 1, bank2 selects RAM banks

	mbc.Write(0x4000, 0x00)
	mbc.Write(0xA000, 0x11)
	mbc.Write(0x4000, 0x02)
	mbc.Write(0xA000, 0x22)

	mbc.Write(0x4000, 0x00)
	assert.Equal(t, uint8(0x11), mbc.Read(0xA000))
	mbc.Write(0x4000, 0x02)
	assert.Equal(t, uint8(0x22), mbc.Read(0xA000))
}

func TestMBC5_bankSelect(t *testing.T) {
	mbc := newTestMBC(t, 0x19, 0x05, 0x00, 64)

	mbc.Write(0x2000, 0x2A)
	assert.Equal(t, uint8(0x2A), mbc.Read(0x4000))

	// unlike MBC1, bank 0 is selectable in the high region
	mbc.Write(0x2000, 0x00)
	assert.Equal(t, uint8(0), mbc.Read(0x4000))
}

func TestMBC5_ninthBankBit(t *testing.T) {
	// 9-bit bank register wraps over a 64-bank image
	mbc := newTestMBC(t, 0x19, 0x05, 0x00, 64)

	mbc.Write(0x2000, 0x05)
	mbc.Write(0x3000, 0x01) // bank bit 8 -> bank 0x105

	assert.Equal(t, uint8(0x105%64), mbc.Read(0x4000))
}

func TestMBC5_ramBanking(t *testing.T) {
	mbc := newTestMBC(t, 0x1A, 0x05, 0x03, 64)

	mbc.Write(0x0000, 0x0A)
	mbc.Write(0x4000, 0x00)
	mbc.Write(0xA000, 0xAA)
	mbc.Write(0x4000, 0x03)
	mbc.Write(0xA000, 0xBB)

	mbc.Write(0x4000, 0x00)
	assert.Equal(t, uint8(0xAA), mbc.Read(0xA000))
	mbc.Write(0x4000, 0x03)
	assert.Equal(t, uint8(0xBB), mbc.Read(0xA000))
}

func TestMBC_ramSnapshotRoundTrip(t *testing.T) {
	mbc := newTestMBC(t, 0x03, 0x01, 0x02, 4)
	mbc.Write(0x0000, 0x0A)
	mbc.Write(0xA123, 0x77)

	snap := mbc.RAMSnapshot()
	require.NotNil(t, snap)

	restored := newTestMBC(t, 0x03, 0x01, 0x02, 4)
	restored.Write(0x0000, 0x0A)
	restored.LoadRAM(snap)

	assert.Equal(t, uint8(0x77), restored.Read(0xA123))
}

func TestMBC_noRAMSnapshotIsNil(t *testing.T) {
	mbc := newTestMBC(t, 0x00, 0x00, 0x00, 2)
	assert.Nil(t, mbc.RAMSnapshot())
}

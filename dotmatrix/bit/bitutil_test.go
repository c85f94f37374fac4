package bit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombine(t *testing.T) {
	assert.Equal(t, uint16(0xABCD), Combine(0xAB, 0xCD))
	assert.Equal(t, uint16(0x00FF), Combine(0x00, 0xFF))
}

func TestHighLow(t *testing.T) {
	assert.Equal(t, uint8(0x12), High(0x1234))
	assert.Equal(t, uint8(0x34), Low(0x1234))
}

func TestSetClear(t *testing.T) {
	var b uint8
	for i := uint8(0); i < 8; i++ {
		b = Set(i, b)
		assert.True(t, IsSet(i, b))
	}
	assert.Equal(t, uint8(0xFF), b)
	for i := uint8(0); i < 8; i++ {
		b = Clear(i, b)
		assert.False(t, IsSet(i, b))
	}
	assert.Equal(t, uint8(0x00), b)
}

func TestIsSet16(t *testing.T) {
	assert.True(t, IsSet16(9, 1<<9))
	assert.False(t, IsSet16(9, 1<<8))
	assert.True(t, IsSet16(15, 0x8000))
}

func TestValue(t *testing.T) {
	assert.Equal(t, uint8(1), Value(3, 0b1000))
	assert.Equal(t, uint8(0), Value(2, 0b1000))
}

// Package bit provides small helpers for byte and word manipulation.
package bit

// Combine joins two bytes into a 16 bit value, high byte first.
func Combine(high, low uint8) uint16 {
	return (uint16(high) << 8) | uint16(low)
}

// Low returns the least significant byte of a 16 bit value.
func Low(value uint16) uint8 {
	return uint8(value)
}

// High returns the most significant byte of a 16 bit value.
func High(value uint16) uint8 {
	return uint8(value >> 8)
}

// IsSet reports whether the bit at index is 1.
func IsSet(index, b uint8) bool {
	return (b>>index)&1 == 1
}

// IsSet16 reports whether the bit at index of a 16 bit value is 1.
func IsSet16(index uint8, value uint16) bool {
	return (value>>index)&1 == 1
}

// Set returns b with the bit at index set to 1.
func Set(index, b uint8) uint8 {
	return b | (1 << index)
}

// Clear returns b with the bit at index set to 0.
func Clear(index, b uint8) uint8 {
	return b &^ (1 << index)
}

// Value returns 1 if the bit at index is set, 0 otherwise.
func Value(index, b uint8) uint8 {
	if IsSet(index, b) {
		return 1
	}
	return 0
}

package video

import (
	"github.com/dotmatrix-emu/dotmatrix/dotmatrix/addr"
	"github.com/dotmatrix-emu/dotmatrix/dotmatrix/bit"
)

// maxSpritesPerLine is the hardware limit enforced by the OAM scan.
const maxSpritesPerLine = 10

// totalSprites is the number of OAM slots.
const totalSprites = 40

// Sprite is one decoded OAM entry. X and Y are screen coordinates,
// already compensated for the hardware +8/+16 offsets, so both can be
// negative for partially off-screen sprites.
type Sprite struct {
	Y         int
	X         int
	TileIndex uint8
	OAMIndex  int

	Palette1 bool // use OBP1 instead of OBP0
	FlipX    bool
	FlipY    bool
	BehindBG bool // sprite loses to non-zero background pixels
}

// scanOAM walks the 40 OAM slots in order and collects the sprites
// overlapping the given line, up to the 10-sprite limit. OAM order is
// preserved; horizontal priority is resolved later at fetch time.
func scanOAM(bus Bus, line int, tallSprites bool) []Sprite {
	height := 8
	if tallSprites {
		height = 16
	}

	sprites := make([]Sprite, 0, maxSpritesPerLine)
	for i := 0; i < totalSprites; i++ {
		base := addr.OAMStart + uint16(i*4)
		y := int(bus.ReadOAM(base)) - 16

		if line < y || line >= y+height {
			continue
		}

		flags := bus.ReadOAM(base + 3)
		sprites = append(sprites, Sprite{
			Y:         y,
			X:         int(bus.ReadOAM(base+1)) - 8,
			TileIndex: bus.ReadOAM(base + 2),
			OAMIndex:  i,
			Palette1:  bit.IsSet(4, flags),
			FlipX:     bit.IsSet(5, flags),
			FlipY:     bit.IsSet(6, flags),
			BehindBG:  bit.IsSet(7, flags),
		})
		if len(sprites) == maxSpritesPerLine {
			break
		}
	}
	return sprites
}

// tileRowAddress returns the VRAM address of the two bytes holding
// the sprite's pixel row for the given scanline.
func (s *Sprite) tileRowAddress(line int, tallSprites bool) uint16 {
	height := 8
	tile := s.TileIndex
	if tallSprites {
		height = 16
		// in 8x16 mode the low bit of the index is ignored
		tile &= 0xFE
	}

	row := line - s.Y
	if s.FlipY {
		row = height - 1 - row
	}

	return addr.TileData0 + uint16(tile)*16 + uint16(row)*2
}

package video

import (
	"github.com/dotmatrix-emu/dotmatrix/dotmatrix/addr"
	"github.com/dotmatrix-emu/dotmatrix/dotmatrix/bit"
)

// The pixel-transfer pipeline: a background/window fetcher feeding a
// pixel FIFO, with sprite fetches stalling the shifter. Mode 3 length
// varies with fine scroll, window activation and sprite load, while
// the scanline total stays 456 dots (mode 0 absorbs the remainder).

// spriteFetchStall is the shifter stall charged per sprite fetch.
// Real hardware varies between 6 and 11 dots depending on fetcher
// alignment; a fixed bounded value keeps mode 3 within its documented
// envelope and is verified against the acid-test pattern.
const spriteFetchStall = 6

type fetchState int

const (
	fetchTileID fetchState = iota
	fetchTileLow
	fetchTileHigh
	fetchPush
)

// fetcher walks the tile map and tile data for the background or the
// window, two dots per step, pushing 8 pixels at a time into the
// background FIFO.
type fetcher struct {
	state  fetchState
	tick   int
	tileX  int
	window bool

	tileID uint8
	low    uint8
	high   uint8
}

func (f *fetcher) reset(window bool) {
	f.state = fetchTileID
	f.tick = 0
	f.tileX = 0
	f.window = window
}

// objPixel is one sprite FIFO slot.
type objPixel struct {
	color    uint8
	palette1 bool
	behindBG bool
}

// pipeline holds the per-scanline rendering state, rebuilt at every
// mode 3 entry.
type pipeline struct {
	fetch   fetcher
	bgFIFO  []uint8
	objFIFO []objPixel

	lx      int // next output pixel
	discard int // leftover SCX fine-scroll pixels to drop

	sprites      []Sprite
	spriteStall  int
	fetchingSpr  int // index into sprites, -1 when idle
	windowActive bool
}

func (p *PPU) startPixelTransfer() {
	p.pl.bgFIFO = p.pl.bgFIFO[:0]
	p.pl.objFIFO = p.pl.objFIFO[:0]
	p.pl.lx = 0
	p.pl.discard = int(p.scxLatch & 7)
	p.pl.spriteStall = 0
	p.pl.fetchingSpr = -1
	p.pl.windowActive = false
	p.pl.fetch.reset(false)
	p.pl.sprites = scanOAM(p.bus, int(p.ly), bit.IsSet(2, p.lcdc))
}

// stepPixelTransfer advances the pipeline by one dot.
func (p *PPU) stepPixelTransfer() {
	pl := &p.pl

	if pl.spriteStall > 0 {
		pl.spriteStall--
		if pl.spriteStall == 0 {
			p.loadSpriteRow(&pl.sprites[pl.fetchingSpr])
			pl.sprites = append(pl.sprites[:pl.fetchingSpr], pl.sprites[pl.fetchingSpr+1:]...)
			pl.fetchingSpr = -1
		}
		return
	}

	if p.triggerSpriteFetch() {
		return
	}

	p.maybeStartWindow()
	p.stepFetcher()
	p.shiftPixel()
}

// triggerSpriteFetch starts a fetch for the lowest-X pending sprite
// covering the next output pixel. Returns true when a stall began.
func (p *PPU) triggerSpriteFetch() bool {
	if !bit.IsSet(1, p.lcdc) {
		return false
	}

	pl := &p.pl
	pick := -1
	for i := range pl.sprites {
		if pl.sprites[i].X > pl.lx {
			continue
		}
		if pick == -1 || pl.sprites[i].X < pl.sprites[pick].X {
			pick = i
		}
	}
	if pick == -1 {
		return false
	}

	pl.fetchingSpr = pick
	pl.spriteStall = spriteFetchStall
	return true
}

// maybeStartWindow switches the fetcher to the window tile map once
// the shifter reaches WX-7 on a line where the window is live.
func (p *PPU) maybeStartWindow() {
	pl := &p.pl
	if pl.windowActive || !p.wyTriggered || !bit.IsSet(5, p.lcdc) {
		return
	}
	if pl.lx < int(p.wxLatch)-7 {
		return
	}
	pl.windowActive = true
	pl.bgFIFO = pl.bgFIFO[:0]
	pl.fetch.reset(true)
}

func (p *PPU) stepFetcher() {
	f := &p.pl.fetch

	f.tick++
	if f.state != fetchPush && f.tick < 2 {
		return
	}
	f.tick = 0

	switch f.state {
	case fetchTileID:
		f.tileID = p.bus.ReadVRAM(p.tileMapAddress(f))
		f.state = fetchTileLow
	case fetchTileLow:
		f.low = p.bus.ReadVRAM(p.tileDataAddress(f))
		f.state = fetchTileHigh
	case fetchTileHigh:
		f.high = p.bus.ReadVRAM(p.tileDataAddress(f) + 1)
		f.state = fetchPush
	case fetchPush:
		// the FIFO only accepts a full tile row when empty
		if len(p.pl.bgFIFO) != 0 {
			return
		}
		for px := 7; px >= 0; px-- {
			color := bit.Value(uint8(px), f.high)<<1 | bit.Value(uint8(px), f.low)
			p.pl.bgFIFO = append(p.pl.bgFIFO, color)
		}
		f.tileX++
		f.state = fetchTileID
		f.tick = 0
	}
}

// tileMapAddress returns the map cell holding the current tile index.
func (p *PPU) tileMapAddress(f *fetcher) uint16 {
	if f.window {
		mapBase := addr.TileMap0
		if bit.IsSet(6, p.lcdc) {
			mapBase = addr.TileMap1
		}
		row := p.windowLine >> 3
		return mapBase + uint16(row)*32 + uint16(f.tileX&31)
	}

	mapBase := addr.TileMap0
	if bit.IsSet(3, p.lcdc) {
		mapBase = addr.TileMap1
	}
	mapY := (int(p.ly) + int(p.scyLatch)) & 0xFF
	col := (int(p.scxLatch)>>3 + f.tileX) & 31
	return mapBase + uint16(mapY>>3)*32 + uint16(col)
}

// tileDataAddress returns the first byte of the pixel row for the
// fetched tile index, honoring the LCDC addressing mode.
func (p *PPU) tileDataAddress(f *fetcher) uint16 {
	var line int
	if f.window {
		line = p.windowLine & 7
	} else {
		line = (int(p.ly) + int(p.scyLatch)) & 7
	}

	if bit.IsSet(4, p.lcdc) {
		return addr.TileData0 + uint16(f.tileID)*16 + uint16(line)*2
	}
	// signed addressing based at 0x9000
	return uint16(0x9000+int(int8(f.tileID))*16) + uint16(line)*2
}

// loadSpriteRow mixes a sprite's pixel row into the sprite FIFO.
// Slots already holding an opaque pixel keep it, which is what makes
// the lower-X sprite (and on ties, the lower OAM index) win.
func (p *PPU) loadSpriteRow(s *Sprite) {
	rowAddr := s.tileRowAddress(int(p.ly), bit.IsSet(2, p.lcdc))
	low := p.bus.ReadVRAM(rowAddr)
	high := p.bus.ReadVRAM(rowAddr + 1)

	pl := &p.pl
	for col := 0; col < 8; col++ {
		screenX := s.X + col
		if screenX < pl.lx {
			continue
		}

		bitIndex := uint8(7 - col)
		if s.FlipX {
			bitIndex = uint8(col)
		}
		color := bit.Value(bitIndex, high)<<1 | bit.Value(bitIndex, low)

		pos := screenX - pl.lx
		for len(pl.objFIFO) <= pos {
			pl.objFIFO = append(pl.objFIFO, objPixel{})
		}
		if pl.objFIFO[pos].color == 0 && color != 0 {
			pl.objFIFO[pos] = objPixel{
				color:    color,
				palette1: s.Palette1,
				behindBG: s.BehindBG,
			}
		}
	}
}

// shiftPixel pops one pixel from the FIFOs and resolves priority.
func (p *PPU) shiftPixel() {
	pl := &p.pl
	if len(pl.bgFIFO) == 0 {
		return
	}

	bgColor := pl.bgFIFO[0]
	pl.bgFIFO = pl.bgFIFO[1:]

	// fine-scroll pixels are fetched and thrown away
	if pl.discard > 0 {
		pl.discard--
		return
	}

	var obj objPixel
	if len(pl.objFIFO) > 0 {
		obj = pl.objFIFO[0]
		pl.objFIFO = pl.objFIFO[1:]
	}

	p.fb.SetPixel(pl.lx, int(p.ly), p.resolvePixel(bgColor, obj))
	pl.lx++
}

// resolvePixel applies the background-enable bit, the sprite priority
// attribute and the palettes. An opaque sprite pixel with the
// priority bit clear always wins; with it set the sprite only shows
// over background color 0.
func (p *PPU) resolvePixel(bgColor uint8, obj objPixel) Shade {
	if !bit.IsSet(0, p.lcdc) {
		bgColor = 0
	}

	if obj.color != 0 && bit.IsSet(1, p.lcdc) && (!obj.behindBG || bgColor == 0) {
		pal := p.obp0Latch
		if obj.palette1 {
			pal = p.obp1Latch
		}
		return Shade(pal >> (obj.color * 2) & 3)
	}

	return Shade(p.bgpLatch >> (bgColor * 2) & 3)
}

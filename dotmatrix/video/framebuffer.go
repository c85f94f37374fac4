package video

const (
	// FramebufferWidth is the visible horizontal resolution.
	FramebufferWidth = 160
	// FramebufferHeight is the visible vertical resolution.
	FramebufferHeight = 144
)

// Shade is a 2-bit color index after palette resolution: 0 is the
// lightest, 3 the darkest.
type Shade uint8

// shadeToRGBA maps shades to packed ARGB for presenters.
var shadeToRGBA = [4]uint32{
	0xFFFFFFFF, // white
	0xFF989898, // light grey
	0xFF4C4C4C, // dark grey
	0xFF000000, // black
}

// FrameBuffer holds one fully resolved frame as rows of shades.
type FrameBuffer struct {
	pixels []Shade
}

// NewFrameBuffer creates an empty (all white) framebuffer.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{
		pixels: make([]Shade, FramebufferWidth*FramebufferHeight),
	}
}

// SetPixel stores the shade at (x, y). Out-of-range writes are
// dropped.
func (fb *FrameBuffer) SetPixel(x, y int, shade Shade) {
	if x < 0 || x >= FramebufferWidth || y < 0 || y >= FramebufferHeight {
		return
	}
	fb.pixels[y*FramebufferWidth+x] = shade
}

// At returns the shade at (x, y).
func (fb *FrameBuffer) At(x, y int) Shade {
	return fb.pixels[y*FramebufferWidth+x]
}

// Row returns the scanline at y as a slice view into the buffer.
func (fb *FrameBuffer) Row(y int) []Shade {
	start := y * FramebufferWidth
	return fb.pixels[start : start+FramebufferWidth]
}

// Clear resets every pixel to the given shade.
func (fb *FrameBuffer) Clear(shade Shade) {
	for i := range fb.pixels {
		fb.pixels[i] = shade
	}
}

// ToRGBA renders the frame as packed ARGB pixels for presentation.
func (fb *FrameBuffer) ToRGBA(out []uint32) []uint32 {
	if cap(out) < len(fb.pixels) {
		out = make([]uint32, len(fb.pixels))
	}
	out = out[:len(fb.pixels)]
	for i, s := range fb.pixels {
		out[i] = shadeToRGBA[s&3]
	}
	return out
}

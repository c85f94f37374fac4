//go:build sdl2

package render

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/dotmatrix-emu/dotmatrix/dotmatrix"
	"github.com/dotmatrix-emu/dotmatrix/dotmatrix/memory"
	"github.com/dotmatrix-emu/dotmatrix/dotmatrix/video"
)

const pixelScale = 4

// SDL2Renderer presents frames in a native window.
// Note: building this requires SDL2 development libraries installed.
// Default builds skip this and use the terminal renderer, see build
// tags (sdl2).
type SDL2Renderer struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	machine  *dotmatrix.DMG
	running  bool
	pixels   []byte
}

// NewSDL2Renderer creates a windowed renderer bound to the given
// machine.
func NewSDL2Renderer(machine *dotmatrix.DMG) (*SDL2Renderer, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("failed to initialize SDL2: %v", err)
	}

	window, err := sdl.CreateWindow(
		"dotmatrix",
		sdl.WINDOWPOS_CENTERED,
		sdl.WINDOWPOS_CENTERED,
		video.FramebufferWidth*pixelScale,
		video.FramebufferHeight*pixelScale,
		sdl.WINDOW_SHOWN,
	)
	if err != nil {
		sdl.Quit()
		return nil, fmt.Errorf("failed to create window: %v", err)
	}

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		window.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("failed to create renderer: %v", err)
	}

	texture, err := renderer.CreateTexture(
		sdl.PIXELFORMAT_ARGB8888,
		sdl.TEXTUREACCESS_STREAMING,
		video.FramebufferWidth,
		video.FramebufferHeight,
	)
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		sdl.Quit()
		return nil, fmt.Errorf("failed to create texture: %v", err)
	}

	slog.Info("SDL2 renderer initialized")

	return &SDL2Renderer{
		window:   window,
		renderer: renderer,
		texture:  texture,
		machine:  machine,
		running:  true,
		pixels:   make([]byte, video.FramebufferWidth*video.FramebufferHeight*4),
	}, nil
}

// Run drives the machine until the window closes, paced by vsync.
func (s *SDL2Renderer) Run() error {
	defer s.cleanup()

	for s.running {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			s.handleEvent(event)
		}
		if !s.running {
			return nil
		}

		if err := s.machine.RunUntilFrame(); err != nil {
			return err
		}
		s.renderFrame()
	}

	return nil
}

func (s *SDL2Renderer) cleanup() {
	slog.Info("Cleaning up SDL2 renderer")
	if s.texture != nil {
		s.texture.Destroy()
	}
	if s.renderer != nil {
		s.renderer.Destroy()
	}
	if s.window != nil {
		s.window.Destroy()
	}
	sdl.Quit()
}

func (s *SDL2Renderer) handleEvent(event sdl.Event) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		s.running = false
	case *sdl.KeyboardEvent:
		pressed := e.Type == sdl.KEYDOWN
		switch e.Keysym.Sym {
		case sdl.K_ESCAPE:
			if pressed {
				s.running = false
			}
		case sdl.K_RETURN:
			s.machine.SetButton(memory.ButtonStart, pressed)
		case sdl.K_RIGHT:
			s.machine.SetButton(memory.ButtonRight, pressed)
		case sdl.K_LEFT:
			s.machine.SetButton(memory.ButtonLeft, pressed)
		case sdl.K_UP:
			s.machine.SetButton(memory.ButtonUp, pressed)
		case sdl.K_DOWN:
			s.machine.SetButton(memory.ButtonDown, pressed)
		case sdl.K_a:
			s.machine.SetButton(memory.ButtonA, pressed)
		case sdl.K_s:
			s.machine.SetButton(memory.ButtonB, pressed)
		case sdl.K_q:
			s.machine.SetButton(memory.ButtonSelect, pressed)
		}
	}
}

func (s *SDL2Renderer) renderFrame() {
	fb := s.machine.Frame()

	for y := 0; y < video.FramebufferHeight; y++ {
		row := fb.Row(y)
		for x, shade := range row {
			gray := shadeLevels[shade&3]
			i := (y*video.FramebufferWidth + x) * 4
			// BGRA byte order for little-endian ARGB8888
			s.pixels[i] = gray
			s.pixels[i+1] = gray
			s.pixels[i+2] = gray
			s.pixels[i+3] = 0xFF
		}
	}

	s.texture.Update(nil, unsafe.Pointer(&s.pixels[0]), video.FramebufferWidth*4)
	s.renderer.Clear()
	s.renderer.Copy(s.texture, nil, nil)
	s.renderer.Present()
}

var shadeLevels = [4]byte{0xFF, 0x98, 0x4C, 0x00}

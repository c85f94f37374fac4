// Package render hosts the host-side presentation backends: a tcell
// terminal renderer built in by default and an SDL2 window behind the
// sdl2 build tag.
package render

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dotmatrix-emu/dotmatrix/dotmatrix"
	"github.com/dotmatrix-emu/dotmatrix/dotmatrix/memory"
	"github.com/dotmatrix-emu/dotmatrix/dotmatrix/video"
)

const (
	scaleX    = 2
	frameTime = time.Second / 60

	// terminals deliver key presses but no releases, so each press
	// holds the button down for a fixed window
	keyHoldTime = 100 * time.Millisecond
)

var shadeChars = [4]rune{'█', '▓', '▒', '░'}

// TerminalRenderer draws frames as half-width block characters and
// maps keyboard input onto the joypad.
type TerminalRenderer struct {
	screen   tcell.Screen
	machine  *dotmatrix.DMG
	running  bool
	releases [8]*time.Timer
}

// NewTerminalRenderer creates a renderer bound to the given machine.
func NewTerminalRenderer(machine *dotmatrix.DMG) (*TerminalRenderer, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %v", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %v", err)
	}

	return &TerminalRenderer{
		screen:  screen,
		machine: machine,
		running: true,
	}, nil
}

// Run drives the machine at 60 frames per second until interrupted.
func (t *TerminalRenderer) Run() error {
	defer func() {
		slog.Info("Finishing terminal")
		t.screen.Fini()
	}()

	t.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	t.screen.Clear()

	go t.handleInput()

	ticker := time.NewTicker(frameTime)
	defer ticker.Stop()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	for t.running {
		select {
		case <-ticker.C:
			if err := t.machine.RunUntilFrame(); err != nil {
				return err
			}
			t.render()
			t.screen.Show()
		case <-signals:
			t.running = false
			slog.Info("Received signal to stop")
			return nil
		}
	}

	return nil
}

func (t *TerminalRenderer) handleInput() {
	for t.running {
		ev := t.screen.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventKey:
			switch ev.Key() {
			case tcell.KeyEscape, tcell.KeyCtrlC:
				t.running = false
			case tcell.KeyEnter:
				t.press(memory.ButtonStart)
			case tcell.KeyRight:
				t.press(memory.ButtonRight)
			case tcell.KeyLeft:
				t.press(memory.ButtonLeft)
			case tcell.KeyUp:
				t.press(memory.ButtonUp)
			case tcell.KeyDown:
				t.press(memory.ButtonDown)
			case tcell.KeyRune:
				switch ev.Rune() {
				case 'a':
					t.press(memory.ButtonA)
				case 's':
					t.press(memory.ButtonB)
				case 'q':
					t.press(memory.ButtonSelect)
				}
			}
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}
}

func (t *TerminalRenderer) press(b memory.Button) {
	t.machine.SetButton(b, true)
	if timer := t.releases[b]; timer != nil {
		timer.Stop()
	}
	t.releases[b] = time.AfterFunc(keyHoldTime, func() {
		t.machine.SetButton(b, false)
	})
}

func (t *TerminalRenderer) render() {
	fb := t.machine.Frame()
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite)

	t.screen.Clear()
	for y := 0; y < video.FramebufferHeight; y++ {
		row := fb.Row(y)
		for x, shade := range row {
			char := shadeChars[shade&3]
			for sx := 0; sx < scaleX; sx++ {
				t.screen.SetContent(x*scaleX+sx, y, char, nil, style)
			}
		}
	}
}

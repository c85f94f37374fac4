// Package serial implements the link port. The only device shipped is
// a sink that logs outgoing bytes, which is what conformance ROMs use
// to report their results.
package serial

import (
	"log/slog"
	"strings"

	"github.com/dotmatrix-emu/dotmatrix/dotmatrix/addr"
	"github.com/dotmatrix-emu/dotmatrix/dotmatrix/bit"
)

// transferCycles is the length of one byte transfer with the internal
// clock (~8192 Hz bit clock on DMG).
const transferCycles = 4096

// LogSink is a serial device with no peer: transmitted bytes are
// logged and captured, received bytes read as 0xFF. Completion clears
// the SC start bit and raises the serial interrupt.
type LogSink struct {
	sb, sc byte

	active    bool
	countdown int
	immediate bool

	irq    func()
	logger *slog.Logger

	line       []byte
	transcript strings.Builder
}

// Option configures a LogSink.
type Option func(*LogSink)

// WithFixedTiming makes transfers take the hardware byte time instead
// of completing on the SC write.
func WithFixedTiming() Option {
	return func(s *LogSink) { s.immediate = false }
}

// NewLogSink creates the device. irq is called when a transfer
// completes and should request the serial interrupt.
func NewLogSink(irq func(), opts ...Option) *LogSink {
	s := &LogSink{
		irq:       irq,
		immediate: true,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Write handles stores to SB and SC.
func (s *LogSink) Write(address uint16, value byte) {
	switch address {
	case addr.SB:
		s.sb = value
	case addr.SC:
		s.sc = value | 0x7E // unused bits read as 1
		s.maybeStart()
	}
}

// Read handles loads from SB and SC.
func (s *LogSink) Read(address uint16) byte {
	switch address {
	case addr.SB:
		return s.sb
	case addr.SC:
		return s.sc
	}
	return 0xFF
}

// Tick advances an in-flight transfer by the given T-cycles.
func (s *LogSink) Tick(cycles int) {
	if !s.active {
		return
	}
	s.countdown -= cycles
	if s.countdown <= 0 {
		s.complete()
	}
}

// Transcript returns everything transmitted so far as text. Useful
// for harnesses checking a test ROM's self-reported status.
func (s *LogSink) Transcript() string {
	return s.transcript.String()
}

func (s *LogSink) maybeStart() {
	if s.active {
		return
	}
	// a transfer starts when both the start bit and the internal
	// clock bit are set
	if !bit.IsSet(7, s.sc) || !bit.IsSet(0, s.sc) {
		return
	}

	s.capture(s.sb)

	if s.immediate {
		s.complete()
		return
	}
	s.active = true
	s.countdown = transferCycles
}

func (s *LogSink) capture(b byte) {
	s.transcript.WriteByte(b)
	if b == 0 || b == '\n' || b == '\r' {
		if len(s.line) > 0 {
			s.logger.Info("serial", "line", string(s.line))
			s.line = s.line[:0]
		}
		return
	}
	s.line = append(s.line, b)
}

func (s *LogSink) complete() {
	// no peer: the shifted-in byte is all ones
	s.sb = 0xFF
	s.sc = bit.Clear(7, s.sc)
	s.active = false
	s.countdown = 0
	if s.irq != nil {
		s.irq()
	}
}

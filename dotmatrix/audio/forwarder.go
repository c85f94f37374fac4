// Package audio forwards sound register traffic to an external
// collaborator. The core does not synthesize samples: every write in
// the 0xFF10-0xFF3F range is stored for readback and handed on
// verbatim.
package audio

import "github.com/dotmatrix-emu/dotmatrix/dotmatrix/addr"

// Sink receives the raw register writes. An APU implementation living
// outside the core satisfies this to produce actual sound.
type Sink interface {
	WriteRegister(address uint16, value byte)
}

// Forwarder is the memory-mapped front of the sound block. It keeps
// the register file so reads stay idempotent and forwards writes to
// the configured sink.
type Forwarder struct {
	registers [addr.SoundEnd - addr.SoundStart + 1]byte
	sink      Sink
}

// New returns a forwarder with no sink attached.
func New() *Forwarder {
	return &Forwarder{}
}

// SetSink attaches the external audio collaborator. A nil sink
// silently drops the forwarded writes.
func (f *Forwarder) SetSink(sink Sink) {
	f.sink = sink
}

// WriteRegister stores and forwards a sound register write.
func (f *Forwarder) WriteRegister(address uint16, value byte) {
	if address < addr.SoundStart || address > addr.SoundEnd {
		return
	}
	f.registers[address-addr.SoundStart] = value
	if f.sink != nil {
		f.sink.WriteRegister(address, value)
	}
}

// ReadRegister returns the last written value.
func (f *Forwarder) ReadRegister(address uint16) byte {
	if address < addr.SoundStart || address > addr.SoundEnd {
		return 0xFF
	}
	return f.registers[address-addr.SoundStart]
}

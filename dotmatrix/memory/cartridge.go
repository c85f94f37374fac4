package memory

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"
)

const headerSize = 0x150

const (
	titleAddress         = 0x134
	titleLength          = 16
	cartridgeTypeAddress = 0x147
	romSizeAddress       = 0x148
	ramSizeAddress       = 0x149
	versionAddress       = 0x14C
	headerChecksumAddr   = 0x14D
)

// MBCKind identifies the banking scheme of a cartridge. Banking
// behavior is a closed set of variants dispatched by kind, see MBC.
type MBCKind int

const (
	// MBCNone is a plain 32KB ROM with no banking hardware.
	MBCNone MBCKind = iota
	// MBC1Kind is the common 5+2 bit banked controller.
	MBC1Kind
	// MBC5Kind is the later controller with a 9-bit ROM bank register.
	MBC5Kind
)

func (k MBCKind) String() string {
	switch k {
	case MBCNone:
		return "none"
	case MBC1Kind:
		return "MBC1"
	case MBC5Kind:
		return "MBC5"
	}
	return "unknown"
}

// Cartridge holds the raw ROM image and the header metadata that
// selects the banking variant and bank counts.
type Cartridge struct {
	data     []byte
	title    string
	cartType byte
	version  byte

	kind       MBCKind
	romBanks   int
	ramBanks   int
	hasBattery bool
}

// NewCartridge creates an empty cartridge, equivalent to powering on
// the console with nothing inserted. Reads yield open-bus 0xFF.
func NewCartridge() *Cartridge {
	return &Cartridge{
		data:     nil,
		title:    "(none)",
		kind:     MBCNone,
		romBanks: 2,
	}
}

// NewCartridgeWithData parses the header of a raw ROM image.
//
// A truncated image (shorter than the header) or an unsupported
// cartridge-type byte is a rejected load. Nonsense size codes are not
// errors: they fall back to the safe default of no banking and no RAM.
func NewCartridgeWithData(data []byte) (*Cartridge, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("ROM image too small: %d bytes", len(data))
	}

	cart := &Cartridge{
		data:     data,
		title:    cleanTitle(data[titleAddress : titleAddress+titleLength]),
		cartType: data[cartridgeTypeAddress],
		version:  data[versionAddress],
	}

	switch cart.cartType {
	case 0x00, 0x08, 0x09:
		cart.kind = MBCNone
		cart.hasBattery = cart.cartType == 0x09
	case 0x01, 0x02, 0x03:
		cart.kind = MBC1Kind
		cart.hasBattery = cart.cartType == 0x03
	case 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E:
		cart.kind = MBC5Kind
		cart.hasBattery = cart.cartType == 0x1B || cart.cartType == 0x1E
	default:
		return nil, fmt.Errorf("unsupported cartridge type 0x%02X", cart.cartType)
	}

	cart.romBanks = romBankCount(data[romSizeAddress])
	cart.ramBanks = ramBankCount(data[ramSizeAddress])
	if cart.romBanks == 0 {
		slog.Warn("Invalid ROM size code, assuming 32KB", "code", fmt.Sprintf("0x%02X", data[romSizeAddress]))
		cart.romBanks = 2
	}

	slog.Info("Loaded cartridge",
		"title", cart.title,
		"mbc", cart.kind.String(),
		"romBanks", cart.romBanks,
		"ramBanks", cart.ramBanks,
		"battery", cart.hasBattery)

	return cart, nil
}

// romBankCount decodes the header ROM size code into a count of 16KB
// banks. Returns 0 for codes outside the documented range.
func romBankCount(code byte) int {
	if code > 0x08 {
		return 0
	}
	return 2 << code
}

// ramBankCount decodes the header RAM size code into a count of 8KB
// banks. Unknown codes map to zero banks.
func ramBankCount(code byte) int {
	switch code {
	case 0x02:
		return 1
	case 0x03:
		return 4
	case 0x04:
		return 16
	case 0x05:
		return 8
	default:
		return 0
	}
}

// Title returns the human-readable title from the header.
func (c *Cartridge) Title() string { return c.title }

// Kind returns the banking variant selected by the header.
func (c *Cartridge) Kind() MBCKind { return c.kind }

// HasBattery reports whether external RAM is battery backed, i.e.
// whether save data should be persisted by the host.
func (c *Cartridge) HasBattery() bool { return c.hasBattery }

// cleanTitle turns the raw header title bytes into printable text.
func cleanTitle(raw []byte) string {
	runes := make([]rune, 0, len(raw))
	for _, b := range raw {
		r := rune(b)
		switch {
		case r == 0:
			r = ' '
		case !unicode.IsPrint(r):
			r = '?'
		}
		runes = append(runes, r)
	}
	title := strings.TrimSpace(string(runes))
	if title == "" {
		return "(untitled)"
	}
	return title
}

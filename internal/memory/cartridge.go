package memory

import (
	"fmt"

	"nitro-core-dx/internal/debug"
)

const (
	romBankSize = 0x4000 // 16 KiB
	ramBankSize = 0x2000 // 8 KiB
)

// bankingMode selects how the two bits written at 0x4000-0x5FFF are
// interpreted by the MBC1 controller.
type bankingMode uint8

const (
	modeSixteenMbROM bankingMode = 0 // extra bits become ROM bank bits 5-6
	modeFourMbROM     bankingMode = 1 // extra bits become the RAM bank
)

// Cartridge is a minimal MBC1-style bank controller over a flat ROM image
// and an optional flat RAM image, both sliced into fixed-size banks.
type Cartridge struct {
	rom []byte
	ram []byte

	romBanks int
	ramBanks int

	selectedROMBank uint8
	selectedRAMBank uint8
	ramEnabled      bool
	mode            bankingMode

	logger *debug.Logger
}

// ErrMalformedCartridge is returned when a ROM image or RAM bank count
// cannot describe a valid cartridge.
var ErrMalformedCartridge = fmt.Errorf("malformed cartridge image")

// NewCartridge validates rom and constructs a Cartridge. rom's length must
// be a positive multiple of 16 KiB; ramBanks must not be negative.
func NewCartridge(rom []byte, ramBanks int, logger *debug.Logger) (*Cartridge, error) {
	if len(rom) == 0 || len(rom)%romBankSize != 0 {
		return nil, fmt.Errorf("%w: rom size %d is not a positive multiple of %d", ErrMalformedCartridge, len(rom), romBankSize)
	}
	if ramBanks < 0 {
		return nil, fmt.Errorf("%w: negative ram bank count %d", ErrMalformedCartridge, ramBanks)
	}

	c := &Cartridge{
		rom:             rom,
		ram:             make([]byte, ramBanks*ramBankSize),
		romBanks:        len(rom) / romBankSize,
		ramBanks:        ramBanks,
		selectedROMBank: 1,
		logger:          logger,
	}

	if logger != nil {
		logger.LogCartridgef(debug.LogLevelInfo, "cartridge loaded: %d ROM bank(s), %d RAM bank(s)", c.romBanks, ramBanks)
	}

	return c, nil
}

// ReadROM reads a byte from the ROM address space (0x0000-0x7FFF).
func (c *Cartridge) ReadROM(address uint16) uint8 {
	bank := 0
	if address >= romBankSize {
		bank = int(c.selectedROMBank) % c.romBanks
	}
	index := int(address)%romBankSize + bank*romBankSize
	return c.rom[index]
}

// WriteROM handles bank-switching writes aimed at the ROM address space.
func (c *Cartridge) WriteROM(address uint16, value uint8) {
	switch {
	case address < 0x2000:
		c.ramEnabled = value&0x0F == 0x0A
	case address < 0x4000:
		bank := value & 0x1F
		if bank == 0 {
			bank = 1
		}
		c.selectedROMBank = c.selectedROMBank&0x60 | bank
	case address < 0x6000:
		if c.mode == modeFourMbROM {
			c.selectedRAMBank = value & 0x03
		} else {
			c.selectedROMBank = c.selectedROMBank&0x1F | (value&0x03)<<5
		}
	default:
		if value&0x01 != 0 {
			c.mode = modeFourMbROM
		} else {
			c.mode = modeSixteenMbROM
		}
	}
}

// ReadRAM reads a byte from cartridge RAM at an offset relative to 0xA000.
// Returns 0 if RAM is disabled or the cartridge has no RAM banks.
func (c *Cartridge) ReadRAM(offset uint16) uint8 {
	if !c.ramEnabled || c.ramBanks == 0 {
		return 0
	}
	index := int(offset) + int(c.selectedRAMBank)*ramBankSize
	if index >= len(c.ram) {
		return 0
	}
	return c.ram[index]
}

// WriteRAM writes a byte to cartridge RAM; dropped if RAM is disabled.
func (c *Cartridge) WriteRAM(offset uint16, value uint8) {
	if !c.ramEnabled || c.ramBanks == 0 {
		return
	}
	index := int(offset) + int(c.selectedRAMBank)*ramBankSize
	if index >= len(c.ram) {
		return
	}
	c.ram[index] = value
}

// RAMBytes returns the flat RAM buffer for save-game persistence.
func (c *Cartridge) RAMBytes() []byte {
	return c.ram
}

// LoadRAMBytes restores a previously persisted RAM image. The length must
// match the cartridge's RAM bank count.
func (c *Cartridge) LoadRAMBytes(data []byte) error {
	if len(data) != len(c.ram) {
		return fmt.Errorf("ram save size %d does not match cartridge ram size %d", len(data), len(c.ram))
	}
	copy(c.ram, data)
	return nil
}

package memory

import (
	"nitro-core-dx/internal/debug"
	"nitro-core-dx/internal/input"
	"nitro-core-dx/internal/ppu"
	"nitro-core-dx/internal/timer"
)

const (
	addrVRAM     = 0x8000
	addrCartRAM  = 0xA000
	addrWorkRAM  = 0xC000
	addrMirror   = 0xE000
	addrOAM      = 0xFE00
	addrUnusable = 0xFEA0
	addrIO       = 0xFF00
	addrTimer    = 0xFF04
	addrAfterTimer = 0xFF08
	addrLCD      = 0xFF40
	addrAfterLCD = 0xFF4C
	addrBootDisable = 0xFF50
	addrHighRAM  = 0xFF80
)

// Bus decodes a 16-bit address into one of the memory regions in §4.2 and
// routes reads and writes to the owning component. The CPU intercepts
// 0xFF0F and 0xFFFF (IF/IE) before a read or write ever reaches Bus.
type Bus struct {
	cartridge *Cartridge
	ppu       *ppu.PPU
	timer     *timer.Timer
	joypad    *input.Joypad

	bootROM        []byte
	bootROMEnabled bool

	workRAM [0x2000]uint8
	highRAM [127]uint8

	serial [2]uint8 // 0xFF01 SB, 0xFF02 SC — stored, never transmitted

	logger *debug.Logger
}

// NewBus constructs a Bus. bootROM may be nil/empty, in which case the
// boot ROM is treated as already disabled.
func NewBus(cartridge *Cartridge, p *ppu.PPU, t *timer.Timer, joypad *input.Joypad, bootROM []byte, logger *debug.Logger) *Bus {
	return &Bus{
		cartridge:      cartridge,
		ppu:            p,
		timer:          t,
		joypad:         joypad,
		bootROM:        bootROM,
		bootROMEnabled: len(bootROM) > 0,
		logger:         logger,
	}
}

// Read8 implements cpu.MemoryBus.
func (b *Bus) Read8(address uint16) uint8 {
	switch {
	case address < addrVRAM:
		if b.bootROMEnabled && address < uint16(len(b.bootROM)) {
			return b.bootROM[address]
		}
		return b.cartridge.ReadROM(address)

	case address < addrCartRAM:
		return b.ppu.ReadVRAM(address - addrVRAM)

	case address < addrWorkRAM:
		return b.cartridge.ReadRAM(address - addrCartRAM)

	case address < addrMirror:
		return b.workRAM[address-addrWorkRAM]

	case address < addrOAM:
		return b.workRAM[(address-addrMirror)&0x1FFF]

	case address < addrUnusable:
		return b.ppu.ReadOAM(uint8(address - addrOAM))

	case address < addrIO:
		return 0

	case address == addrIO:
		return b.joypad.ReadRegister()

	case address < 0xFF03:
		return b.readSerial(address)

	case address < addrTimer:
		return 0 // 0xFF03 is unmapped

	case address < addrAfterTimer:
		return b.timer.ReadRegister(address - addrTimer)

	case address < addrLCD:
		return 0 // unimplemented sound and wave RAM registers

	case address < addrAfterLCD:
		return b.ppu.ReadRegister(address - addrLCD)

	case address < addrHighRAM:
		return 0

	default:
		return b.highRAM[address-addrHighRAM]
	}
}

// Write8 implements cpu.MemoryBus.
func (b *Bus) Write8(address uint16, value uint8) {
	switch {
	case address < addrVRAM:
		b.cartridge.WriteROM(address, value)

	case address < addrCartRAM:
		b.ppu.WriteVRAM(address-addrVRAM, value)

	case address < addrWorkRAM:
		b.cartridge.WriteRAM(address-addrCartRAM, value)

	case address < addrMirror:
		b.workRAM[address-addrWorkRAM] = value

	case address < addrOAM:
		b.workRAM[(address-addrMirror)&0x1FFF] = value

	case address < addrUnusable:
		b.ppu.WriteOAM(uint8(address-addrOAM), value)

	case address < addrIO:
		// writes to the unusable 0xFEA0-0xFEFF range are dropped

	case address == addrIO:
		b.joypad.WriteRegister(value)

	case address < 0xFF03:
		b.writeSerial(address, value)

	case address < addrTimer:
		// 0xFF03 is unmapped

	case address < addrAfterTimer:
		b.timer.WriteRegister(address-addrTimer, value)

	case address < addrLCD:
		// unimplemented sound and wave RAM registers

	case address < addrAfterLCD:
		if address-addrLCD == ppu.RegDMA {
			b.runDMA(value)
		}
		b.ppu.WriteRegister(address-addrLCD, value)

	case address == addrBootDisable:
		if value != 0 {
			b.bootROMEnabled = false
		}

	case address < addrHighRAM:
		// writes to undocumented I/O space are dropped

	default:
		b.highRAM[address-addrHighRAM] = value
	}
}

func (b *Bus) readSerial(address uint16) uint8 {
	return b.serial[address-0xFF01]
}

func (b *Bus) writeSerial(address uint16, value uint8) {
	b.serial[address-0xFF01] = value
}

// runDMA performs the immediate 160-byte OAM transfer triggered by a
// write to the DMA register: source is (value << 8).
func (b *Bus) runDMA(value uint8) {
	source := uint16(value) << 8
	for i := uint16(0); i < 160; i++ {
		b.ppu.DMAWriteOAM(uint8(i), b.Read8(source+i))
	}
	if b.logger != nil {
		b.logger.LogMemoryf(debug.LogLevelDebug, "DMA transfer from 0x%04X", source)
	}
}

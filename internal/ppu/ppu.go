// Package ppu implements the scanline-based pixel pipeline: a four-mode
// state machine over 154 scanlines that composites background, window,
// and sprite layers into a 160x144 frame buffer.
package ppu

import "nitro-core-dx/internal/interrupt"

// Mode is one of the four pipeline states, numbered to match the two
// low bits of STAT.
type Mode uint8

const (
	ModeHBlank Mode = 0
	ModeVBlank Mode = 1
	ModeOamScan Mode = 2
	ModeOamAndVramScan Mode = 3
)

// Per-mode and per-frame clock budgets.
const (
	OamScanClocks        = 80
	OamAndVramScanClocks = 172
	HBlankClocks         = 204
	ScanlineClocks       = OamScanClocks + OamAndVramScanClocks + HBlankClocks
	VisibleLines         = 144
	VBlankLines          = 10
	FrameClocks          = ScanlineClocks * (VisibleLines + VBlankLines)
)

// Register offsets relative to 0xFF40.
const (
	RegLCDC = 0x00
	RegSTAT = 0x01
	RegSCY  = 0x02
	RegSCX  = 0x03
	RegLY   = 0x04
	RegLYC  = 0x05
	RegDMA  = 0x06
	RegBGP  = 0x07
	RegOBP0 = 0x08
	RegOBP1 = 0x09
	RegWY   = 0x0A
	RegWX   = 0x0B
)

// PPU holds VRAM, OAM, the LCD register file, and the sprite index.
type PPU struct {
	vram [0x2000]uint8
	oam  [160]uint8

	lcdc, stat, scy, scx, ly, lyc, dma, bgp, obp0, obp1, wy, wx uint8

	mode     Mode
	sprites  *spriteIndex
	requester interrupt.Requester

	frameCounter uint64
	windowLine   int
	Frame        [VisibleLines][160]uint32
}

// New constructs a PPU wired to req for VBlank/LcdStat interrupts.
func New(req interrupt.Requester) *PPU {
	return &PPU{
		sprites:   newSpriteIndex(),
		requester: req,
		bgp:       0xFC,
		obp0:      0xFF,
		obp1:      0xFF,
	}
}

func (p *PPU) displayEnabled() bool { return p.lcdc&0x80 != 0 }
func (p *PPU) windowEnabled() bool  { return p.lcdc&0x20 != 0 }
func (p *PPU) bgEnabled() bool      { return p.lcdc&0x01 != 0 }
func (p *PPU) spritesEnabled() bool { return p.lcdc&0x02 != 0 }

// GetScanline, GetMode, GetVBlankFlag, GetFrameCounter implement the
// debug.PPUStateReader interface used by the cycle logger.
func (p *PPU) GetScanline() int       { return int(p.ly) }
func (p *PPU) GetMode() int           { return int(p.mode) }
func (p *PPU) GetVBlankFlag() bool    { return p.mode == ModeVBlank }
func (p *PPU) GetFrameCounter() uint64 { return p.frameCounter }

// ReadVRAM and WriteVRAM are gated on the current mode: VRAM is
// inaccessible during OamAndVramScan.
func (p *PPU) ReadVRAM(address uint16) uint8 {
	if p.mode == ModeOamAndVramScan {
		return 0xFF
	}
	return p.vram[address]
}

func (p *PPU) WriteVRAM(address uint16, value uint8) {
	if p.mode == ModeOamAndVramScan {
		return
	}
	p.vram[address] = value
}

// ReadOAM and WriteOAM are gated on the current mode: OAM is
// inaccessible during OamScan and OamAndVramScan.
func (p *PPU) ReadOAM(offset uint8) uint8 {
	if p.mode == ModeOamScan || p.mode == ModeOamAndVramScan {
		return 0xFF
	}
	return p.oam[offset]
}

func (p *PPU) WriteOAM(offset uint8, value uint8) {
	if p.mode == ModeOamScan || p.mode == ModeOamAndVramScan {
		return
	}
	p.writeOAMRaw(offset, value)
}

// DMAWriteOAM writes directly to OAM bypassing mode gating, as DMA does
// on real hardware.
func (p *PPU) DMAWriteOAM(offset uint8, value uint8) {
	p.writeOAMRaw(offset, value)
}

func (p *PPU) writeOAMRaw(offset uint8, value uint8) {
	p.oam[offset] = value
	slot := int(offset) / 4
	switch offset % 4 {
	case 0:
		p.sprites.attrs[slot].Y = value
	case 1:
		p.sprites.attrs[slot].X = value
	case 2:
		p.sprites.attrs[slot].Pattern = value
	case 3:
		p.sprites.attrs[slot].Flags = value
	}
	p.sprites.onSpriteChanged(slot)
}

// ReadRegister reads one of the LCD registers by its offset from 0xFF40.
func (p *PPU) ReadRegister(offset uint16) uint8 {
	switch offset {
	case RegLCDC:
		return p.lcdc
	case RegSTAT:
		return p.stat | 0x80
	case RegSCY:
		return p.scy
	case RegSCX:
		return p.scx
	case RegLY:
		return p.ly
	case RegLYC:
		return p.lyc
	case RegDMA:
		return p.dma
	case RegBGP:
		return p.bgp
	case RegOBP0:
		return p.obp0
	case RegOBP1:
		return p.obp1
	case RegWY:
		return p.wy
	default:
		return p.wx
	}
}

// WriteRegister writes one of the LCD registers.
func (p *PPU) WriteRegister(offset uint16, value uint8) {
	switch offset {
	case RegLCDC:
		wasEnabled := p.displayEnabled()
		p.lcdc = value
		p.sprites.setTall(value&0x04 != 0)
		if wasEnabled && !p.displayEnabled() {
			p.ly = 0
			p.mode = ModeHBlank
		}
	case RegSTAT:
		p.stat = p.stat&0x07 | value&0xF8
		if p.displayEnabled() && (p.mode == ModeHBlank || p.mode == ModeVBlank) {
			p.requester.Request(interrupt.VBlank)
		}
	case RegSCY:
		p.scy = value
	case RegSCX:
		p.scx = value
	case RegLY:
		p.ly = 0
	case RegLYC:
		p.lyc = value
		p.checkLYC()
	case RegDMA:
		p.dma = value
	case RegBGP:
		p.bgp = value
	case RegOBP0:
		p.obp0 = value
	case RegOBP1:
		p.obp1 = value
	case RegWY:
		p.wy = value
	default:
		p.wx = value
	}
}

// SetMode transitions the pipeline to a new mode, raising STAT/VBlank
// interrupts per the mode-entry rules.
func (p *PPU) SetMode(mode Mode) {
	if !p.displayEnabled() {
		mode = ModeVBlank
	}
	p.mode = mode
	p.stat = p.stat&0xFC | uint8(mode)

	if !p.displayEnabled() {
		return
	}

	var interruptMask uint8
	switch mode {
	case ModeOamScan:
		interruptMask = 0x20
	case ModeHBlank:
		interruptMask = 0x08
	case ModeVBlank:
		interruptMask = 0x30
		p.requester.Request(interrupt.VBlank)
	}

	if p.stat&interruptMask != 0 {
		p.requester.Request(interrupt.LCDStat)
	}
}

func (p *PPU) checkLYC() {
	match := p.displayEnabled() && p.ly == p.lyc
	if match {
		p.stat |= 0x04
	} else {
		p.stat &^= 0x04
	}
	if match && p.stat&0x40 != 0 {
		p.requester.Request(interrupt.LCDStat)
	}
}

// ResetFrame resets per-frame scanline bookkeeping before rendering a
// new frame.
func (p *PPU) ResetFrame() {
	p.ly = 0
	p.windowLine = 0
	p.frameCounter++
	p.sprites.setScanline(0)
	p.checkLYC()
}

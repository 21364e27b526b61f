package ppu

const (
	tileMapBase1  = 0x1800
	tileMapBase2  = 0x1C00
	tileDataBase1 = 0x0000 // unsigned tile index, LCDC bit 4 set
	tileDataBase2 = 0x0800 // signed tile index (+128), LCDC bit 4 clear
)

// bgOrWindowColor returns the 2-bit color index at tile-space coordinates
// (x, y) from the given base tile map, per the tile/tilemap layout in the
// rendering contract: 32x32 tile map, 8x8 tiles, 2bpp interleaved rows.
func (p *PPU) bgOrWindowColor(x, y int, tileMapBase uint16) uint8 {
	tileOffset := uint16((y&0xF8)<<2) + uint16((x&0xFF)>>3)
	tileNumber := p.vram[tileMapBase+tileOffset]

	var dataBase uint16
	if p.lcdc&0x10 != 0 {
		dataBase = tileDataBase1
	} else {
		dataBase = tileDataBase2
		tileNumber += 128
	}

	base := dataBase + uint16(tileNumber)*16 + uint16((y&0x7)<<1)
	shift := 7 - uint(x%8)
	lo := (p.vram[base] >> shift) & 1
	hi := (p.vram[base+1] >> shift) & 1
	return lo | hi<<1
}

// spritePixelColor returns the 2-bit color index for sprite slot at
// screen coordinates (x, y), honoring XFlip/YFlip and the tall-sprite
// pattern-index fold (bit 0 of the pattern number selects the sprite's
// top or bottom half, and the Y offset wraps within 8 rows).
func (p *PPU) spritePixelColor(slot int, x, y int) uint8 {
	s := p.sprites.attrs[slot]
	patternX := x - int(s.X) + 8
	patternY := y - int(s.Y) + 16

	if s.Flags&spriteFlagXFlip != 0 {
		patternX = 7 - patternX
	}
	if s.Flags&spriteFlagYFlip != 0 {
		patternY = p.sprites.height - 1 - patternY
	}

	patternNum := s.Pattern
	if p.sprites.height == 16 {
		patternNum = patternNum&0xFE | uint8(patternY>>3)&1
		patternY &= 0x7
	}

	base := uint16(patternNum)*16 + uint16(patternY<<1)
	shift := 7 - uint(patternX%8)
	lo := (p.vram[base] >> shift) & 1
	hi := (p.vram[base+1] >> shift) & 1
	return lo | hi<<1
}

// mapColor maps a 2-bit color index through a palette byte to the
// output pixel contract: alpha 0xC0, RGB (3 - level) * 0x40504a.
func mapColor(index uint8, palette uint8) uint32 {
	level := (palette >> (index << 1)) & 0x3
	return 0xC0000000 | uint32(3-level)*0x40504a
}

// RenderLine renders the current scanline (p.ly) into the frame buffer,
// then advances LY, the window line counter, and the sprite index.
func (p *PPU) RenderLine() {
	windowUsed := false

	if int(p.ly) < VisibleLines {
		if p.displayEnabled() {
			p.renderVisibleLine(p.ly, &windowUsed)
		} else {
			for x := range p.Frame[p.ly] {
				p.Frame[p.ly][x] = 0xFFFFFFFF
			}
		}
	}

	p.ly++
	if windowUsed {
		p.windowLine++
	}
	if p.ly == p.wy {
		p.windowLine = 0
	}
	p.sprites.nextScanline()
	p.checkLYC()
}

func (p *PPU) renderVisibleLine(ly uint8, windowUsed *bool) {
	bgEnabled := p.bgEnabled()
	spritesEnabled := p.spritesEnabled()
	belowWindowStart := p.windowEnabled() && ly >= p.wy

	bgTileMap := tileMapBase1
	if p.lcdc&0x08 != 0 {
		bgTileMap = tileMapBase2
	}
	winTileMap := tileMapBase1
	if p.lcdc&0x40 != 0 {
		winTileMap = tileMapBase2
	}

	visible := p.sprites.visible
	spriteCursor := 0
	spritesThisLine := 0

	for x := 0; x < 160; x++ {
		windowX := x - int(p.wx) + 7
		var color uint8

		if belowWindowStart && windowX >= 0 {
			color = p.bgOrWindowColor(windowX, p.windowLine, uint16(winTileMap))
			*windowUsed = true
		} else if bgEnabled {
			color = p.bgOrWindowColor(x+int(p.scx), int(ly)+int(p.scy), uint16(bgTileMap))
		}

		finalColor := color
		palette := p.bgp

		if spritesEnabled {
			for spriteCursor < len(visible) && int(p.sprites.attrs[visible[spriteCursor]].X) <= x {
				spriteCursor++
				spritesThisLine++
			}

			if spriteCursor < len(visible) && spritesThisLine < 10 && int(p.sprites.attrs[visible[spriteCursor]].X) <= x+8 {
				slot := visible[spriteCursor]
				s := p.sprites.attrs[slot]
				if s.Flags&spriteFlagZPrio == 0 || color == 0 {
					spriteColor := p.spritePixelColor(slot, x, int(ly))
					if spriteColor != 0 {
						finalColor = spriteColor
						if s.Flags&spriteFlagPalette != 0 {
							palette = p.obp1
						} else {
							palette = p.obp0
						}
					}
				}
			}
		}

		p.Frame[ly][x] = mapColor(finalColor, palette)
	}
}

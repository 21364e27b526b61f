package ppu

import "testing"

// writeSolidTile writes an 8x8 2bpp tile of a single color index to VRAM at
// tileDataBase1 + tileNumber*16.
func writeSolidTile(p *PPU, tileNumber int, colorIndex uint8) {
	base := tileDataBase1 + tileNumber*16
	lo := colorIndex & 1
	hi := (colorIndex >> 1) & 1
	for row := 0; row < 8; row++ {
		var loByte, hiByte uint8
		if lo != 0 {
			loByte = 0xFF
		}
		if hi != 0 {
			hiByte = 0xFF
		}
		p.vram[base+row*2] = loByte
		p.vram[base+row*2+1] = hiByte
	}
}

func TestRenderLineFillsBackgroundFromTileMap(t *testing.T) {
	req := &mockRequester{}
	p := New(req)
	p.WriteRegister(RegLCDC, 0x91) // display+BG on, tile map 0x9800, unsigned tile data

	writeSolidTile(p, 3, 3) // color index 3, darkest shade
	p.vram[tileMapBase1] = 3 // tile (0,0) in the 0x9800 map uses tile #3

	p.RenderLine()

	want := mapColor(3, p.bgp)
	if p.Frame[0][0] != want {
		t.Errorf("expected pixel (0,0) = 0x%08X, got 0x%08X", want, p.Frame[0][0])
	}
}

func TestRenderLineBlankWhenDisplayDisabled(t *testing.T) {
	req := &mockRequester{}
	p := New(req)
	p.WriteRegister(RegLCDC, 0x00) // display off

	p.RenderLine()
	if p.Frame[0][0] != 0xFFFFFFFF {
		t.Errorf("expected white fill when display is disabled, got 0x%08X", p.Frame[0][0])
	}
}

func TestSpriteDrawnOverTransparentBackground(t *testing.T) {
	req := &mockRequester{}
	p := New(req)
	p.WriteRegister(RegLCDC, 0x93) // display+BG+sprites on

	writeSolidTile(p, 0, 0) // background tile is color 0 (transparent under sprites)
	writeSolidTile(p, 1, 2) // sprite pattern is a solid color 2

	// Sprite at screen (0,0): OAM Y is screen-Y+16, X is screen-X+8.
	p.WriteOAM(0, 16) // Y
	p.WriteOAM(1, 8)  // X
	p.WriteOAM(2, 1)  // pattern 1
	p.WriteOAM(3, 0)  // flags

	p.RenderLine()

	want := mapColor(2, p.obp0)
	if p.Frame[0][0] != want {
		t.Errorf("expected sprite pixel (0,0) = 0x%08X, got 0x%08X", want, p.Frame[0][0])
	}
}

func TestSpriteDoesNotGhostBeforeItsLeftEdge(t *testing.T) {
	req := &mockRequester{}
	p := New(req)
	p.WriteRegister(RegLCDC, 0x93) // display+BG+sprites on

	writeSolidTile(p, 0, 1) // background is solid color 1
	writeSolidTile(p, 1, 2) // sprite pattern is solid color 2

	// Sprite at screen (8,0): OAM Y is screen-Y+16, X is screen-X+8. Its
	// left edge is screen x=8, so pixels at x<8 must show the background,
	// not a wrapped-around copy of the sprite's leftmost column.
	p.WriteOAM(0, 16) // Y
	p.WriteOAM(1, 16) // X
	p.WriteOAM(2, 1)  // pattern 1
	p.WriteOAM(3, 0)  // flags

	p.RenderLine()

	wantBG := mapColor(1, p.bgp)
	if p.Frame[0][0] != wantBG {
		t.Errorf("expected background color before the sprite's left edge at x=0, got 0x%08X want 0x%08X", p.Frame[0][0], wantBG)
	}

	wantSprite := mapColor(2, p.obp0)
	if p.Frame[0][8] != wantSprite {
		t.Errorf("expected sprite color at its true left edge x=8, got 0x%08X want 0x%08X", p.Frame[0][8], wantSprite)
	}
}

func TestMapColorOutputFormula(t *testing.T) {
	// palette 0xE4 maps index->shade identity (0->0,1->1,2->2,3->3).
	for index := uint8(0); index < 4; index++ {
		got := mapColor(index, 0xE4)
		level := index
		want := uint32(0xC0000000) | uint32(3-level)*0x40504a
		if got != want {
			t.Errorf("index %d: expected 0x%08X, got 0x%08X", index, want, got)
		}
	}
}

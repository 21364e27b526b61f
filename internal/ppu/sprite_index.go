package ppu

import "sort"

// spriteAttrs is one OAM entry: 4 bytes, decoded.
type spriteAttrs struct {
	Y, X, Pattern, Flags uint8
}

const (
	spriteFlagPalette = 0x10
	spriteFlagXFlip   = 0x20
	spriteFlagYFlip   = 0x40
	spriteFlagZPrio   = 0x80
)

// spriteIndex holds the decoded attributes of the 40 OAM sprites and the
// per-scanline visible set, sorted by (X, slot) and iterated left-to-right
// by the compositor. It keeps no separate Y-ordered view: the visible set
// is rebuilt by scanning all 40 slots.
type spriteIndex struct {
	attrs  [40]spriteAttrs
	height int // 8 or 16

	scanline int
	visible  []int // OAM slot indices, sorted by (X, slot)
}

func newSpriteIndex() *spriteIndex {
	return &spriteIndex{height: 8}
}

// setTall sets the sprite height used for visibility and pattern folding.
func (s *spriteIndex) setTall(tall bool) {
	if tall {
		s.height = 16
	} else {
		s.height = 8
	}
}

// onSpriteChanged re-derives the slot's visibility against the current
// scanline. Attrs must already be updated by the caller.
func (s *spriteIndex) onSpriteChanged(slot int) {
	s.setScanline(s.scanline)
}

// setScanline rebuilds the visible-X view for scanline ly from all 40
// slots, selecting sprites whose [Y-16, Y-16+height) range covers ly.
func (s *spriteIndex) setScanline(ly int) {
	s.scanline = ly
	s.visible = s.visible[:0]

	for slot := range s.attrs {
		top := int(s.attrs[slot].Y) - 16
		bottom := top + s.height
		if ly >= top && ly < bottom {
			s.visible = append(s.visible, slot)
		}
	}

	sort.SliceStable(s.visible, func(i, j int) bool {
		a, b := s.visible[i], s.visible[j]
		if s.attrs[a].X != s.attrs[b].X {
			return s.attrs[a].X < s.attrs[b].X
		}
		return a < b
	})
}

// nextScanline advances to ly+1.
func (s *spriteIndex) nextScanline() { s.setScanline(s.scanline + 1) }

// Package input implements the 8-key joypad matrix exposed at 0xFF00.
package input

import "nitro-core-dx/internal/interrupt"

// Key bits within the 8-bit pressed-key state.
const (
	KeyRight uint8 = 1 << iota
	KeyLeft
	KeyUp
	KeyDown
	KeyA
	KeyB
	KeySelect
	KeyStart
)

// Joypad tracks the pressed-key state and the select bits written to
// 0xFF00, raising a Joypad interrupt whenever a newly-selected key bit
// transitions from 1 (released) to 0 (pressed).
type Joypad struct {
	keysDown  uint8
	control   uint8 // bits 4-5 as written; select lines are active-low
	requester interrupt.Requester
}

// New constructs a Joypad wired to req for the Joypad interrupt.
func New(req interrupt.Requester) *Joypad {
	return &Joypad{control: 0x30, requester: req}
}

// SetKeys replaces the full pressed-key state (bit set = pressed) and
// raises an interrupt if the visible register's low nibble gained any
// newly-zero bit as a result.
func (j *Joypad) SetKeys(keys uint8) {
	before := j.readRegister()
	j.keysDown = keys
	after := j.readRegister()

	if before&^after&0x0F != 0 {
		j.requester.Request(interrupt.Joypad)
	}
}

// readRegister builds the 0xFF00 value: 0xC0 | selected control bits |
// the active-low, selection-masked key nibble.
func (j *Joypad) readRegister() uint8 {
	selected := uint8(0)
	if j.control&0x10 == 0 {
		selected |= j.keysDown & 0x0F // direction keys
	}
	if j.control&0x20 == 0 {
		selected |= (j.keysDown >> 4) & 0x0F // action keys
	}
	return 0xC0 | j.control&0x30 | 0x0F&^selected
}

// ReadRegister returns the value read at 0xFF00.
func (j *Joypad) ReadRegister() uint8 { return j.readRegister() }

// WriteRegister handles a write to 0xFF00: only bits 4-5 (the select
// lines) are writable.
func (j *Joypad) WriteRegister(value uint8) {
	before := j.readRegister()
	j.control = value & 0x30
	after := j.readRegister()

	if before&^after&0x0F != 0 {
		j.requester.Request(interrupt.Joypad)
	}
}

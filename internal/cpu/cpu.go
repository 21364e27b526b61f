// Package cpu implements the instruction processor: an 8-bit accumulator
// machine with four register pairs, interrupt acknowledgement, and the
// documented hardware quirks (HALT bug, DAA, flag handling on rotates).
package cpu

import (
	"fmt"

	"nitro-core-dx/internal/interrupt"
)

// Flag bits of the F register. The low nibble of F is always zero.
const (
	FlagZ uint8 = 0x80
	FlagN uint8 = 0x40
	FlagH uint8 = 0x20
	FlagC uint8 = 0x10
)

// State is the CPU's execution mode.
type State uint8

const (
	StateRunning State = iota
	StateHalted
	StateStopped
)

// MemoryBus is everything the CPU needs from the memory bus. The
// interrupt register intercept (0xFF0F/0xFFFF) is handled by the CPU, not
// the bus: IF/IE are CPU-owned state.
type MemoryBus interface {
	Read8(address uint16) uint8
	Write8(address uint16, value uint8)
}

// ErrUndefinedOpcode is returned when the CPU fetches one of the opcodes
// with no defined behavior. It is fatal: the emulator reports the
// offending opcode and PC and halts execution.
var ErrUndefinedOpcode = fmt.Errorf("undefined opcode")

// CPU holds the full architectural register file plus interrupt and
// halt-state bookkeeping.
type CPU struct {
	A, F, B, C, D, E, H, L uint8
	SP, PC                 uint16

	state  State
	cycles uint64

	ime bool
	ie  uint8 // enabled interrupts, 5 bits (0xFFFF)
	ifr uint8 // waiting interrupts, 5 bits (0xFF0F)

	skipNextPCIncrement   bool
	interruptCheckRequired bool

	bus    MemoryBus
	logger LoggerInterface
}

// LoggerInterface decouples the CPU from the concrete debug.Logger so
// tests can supply a lightweight fake.
type LoggerInterface interface {
	LogCPU(instruction uint16, state CPUState, cycles uint32)
}

// CPUState is a register-file snapshot handed to the logger adapter.
type CPUState struct {
	A, F, B, C, D, E, H, L uint8
	SP, PC                 uint16
	IME                    bool
	IE, IF                 uint8
}

// NewCPU constructs a CPU wired to bus for memory access and an optional
// logger. SP starts at 0xFFFE and PC at 0x0000, where execution of the
// boot ROM begins; callers targeting a ROM without the boot ROM should
// set PC explicitly via SetPC.
func NewCPU(bus MemoryBus, logger LoggerInterface) *CPU {
	return &CPU{
		SP:     0xFFFE,
		bus:    bus,
		logger: logger,
		ime:    false,
	}
}

// Reset restores the register file and interrupt state to power-on
// defaults. It does not touch the memory bus.
func (c *CPU) Reset() {
	c.A, c.F, c.B, c.C, c.D, c.E, c.H, c.L = 0, 0, 0, 0, 0, 0, 0, 0
	c.SP = 0xFFFE
	c.PC = 0
	c.state = StateRunning
	c.cycles = 0
	c.ime = false
	c.ie = 0
	c.ifr = 0
	c.skipNextPCIncrement = false
	c.interruptCheckRequired = false
}

// SetPC sets the program counter directly, used by test harnesses and by
// callers that skip the internal boot ROM.
func (c *CPU) SetPC(pc uint16) { c.PC = pc }

// AttachBus replaces the memory bus. Used when the bus can only be
// constructed after the CPU itself, since the bus's peripherals (PPU,
// Timer, Joypad) take the CPU as their interrupt.Requester.
func (c *CPU) AttachBus(bus MemoryBus) { c.bus = bus }

// TotalCycles returns the number of system clocks consumed since
// construction or the last Reset.
func (c *CPU) TotalCycles() uint64 { return c.cycles }

// State returns the current execution mode.
func (c *CPU) State() State { return c.state }

// Snapshot captures the current register file for logging or tests.
func (c *CPU) Snapshot() CPUState {
	return CPUState{
		A: c.A, F: c.F, B: c.B, C: c.C, D: c.D, E: c.E, H: c.H, L: c.L,
		SP: c.SP, PC: c.PC, IME: c.ime, IE: c.ie, IF: c.ifr,
	}
}

// --- register pairs ---

func (c *CPU) af() uint16 { return uint16(c.A)<<8 | uint16(c.F) }
func (c *CPU) bc() uint16 { return uint16(c.B)<<8 | uint16(c.C) }
func (c *CPU) de() uint16 { return uint16(c.D)<<8 | uint16(c.E) }
func (c *CPU) hl() uint16 { return uint16(c.H)<<8 | uint16(c.L) }

func (c *CPU) setAF(v uint16) {
	c.A = uint8(v >> 8)
	c.F = uint8(v) & 0xF0 // low nibble of F is always zero
}
func (c *CPU) setBC(v uint16) { c.B = uint8(v >> 8); c.C = uint8(v) }
func (c *CPU) setDE(v uint16) { c.D = uint8(v >> 8); c.E = uint8(v) }
func (c *CPU) setHL(v uint16) { c.H = uint8(v >> 8); c.L = uint8(v) }

// --- flags ---

func (c *CPU) flag(mask uint8) bool { return c.F&mask != 0 }

func (c *CPU) setFlag(mask uint8, set bool) {
	if set {
		c.F |= mask
	} else {
		c.F &^= mask
	}
}

// --- bus access with the IF/IE intercept ---

func (c *CPU) readByte(address uint16) uint8 {
	switch address {
	case 0xFF0F:
		return c.ifr | 0xE0
	case 0xFFFF:
		return c.ie
	default:
		return c.bus.Read8(address)
	}
}

func (c *CPU) writeByte(address uint16, value uint8) {
	switch address {
	case 0xFF0F:
		c.ifr = value & uint8(interrupt.All)
		c.interruptCheckRequired = true
	case 0xFFFF:
		c.ie = value & uint8(interrupt.All)
		c.interruptCheckRequired = true
	default:
		c.bus.Write8(address, value)
	}
}

// Request implements interrupt.Requester: peripherals call this to raise
// an interrupt without holding a reference to the CPU's internals. Any
// pending interrupt wakes a Halted CPU regardless of IME; only a Joypad
// interrupt wakes a Stopped CPU, and doing so charges 2^16 extra clocks
// to model oscillator restart.
func (c *CPU) Request(kind interrupt.Kind) {
	c.ifr |= uint8(kind)
	c.interruptCheckRequired = true

	switch c.state {
	case StateHalted:
		c.state = StateRunning
	case StateStopped:
		if kind == interrupt.Joypad {
			c.state = StateRunning
			c.cycles += 1 << 16
		}
	}
}

func (c *CPU) fetchByte() uint8 {
	v := c.readByte(c.PC)
	if !c.skipNextPCIncrement {
		c.PC++
	}
	c.skipNextPCIncrement = false
	return v
}

func (c *CPU) fetchWord() uint16 {
	lo := uint16(c.fetchByte())
	hi := uint16(c.fetchByte())
	return hi<<8 | lo
}

func (c *CPU) push16(v uint16) {
	c.SP--
	c.writeByte(c.SP, uint8(v>>8))
	c.SP--
	c.writeByte(c.SP, uint8(v))
}

func (c *CPU) pop16() uint16 {
	lo := uint16(c.readByte(c.SP))
	c.SP++
	hi := uint16(c.readByte(c.SP))
	c.SP++
	return hi<<8 | lo
}

// Step executes one instruction (or, while halted/stopped, idles) and
// returns the number of system clocks consumed.
func (c *CPU) Step() (uint32, error) {
	if c.interruptCheckRequired {
		if cycles, serviced := c.tryServiceInterrupt(); serviced {
			c.cycles += uint64(cycles)
			return cycles, nil
		}
		c.interruptCheckRequired = false
	}

	switch c.state {
	case StateHalted:
		c.cycles += 4
		return 4, nil
	case StateStopped:
		c.cycles += 4
		return 4, nil
	}

	opcode := c.fetchByte()
	cycles, err := c.execute(opcode)
	if err != nil {
		return 0, err
	}

	if c.logger != nil {
		c.logger.LogCPU(uint16(opcode), c.Snapshot(), cycles)
	}

	c.cycles += uint64(cycles)
	return cycles, nil
}

// tryServiceInterrupt performs interrupt acknowledgement if IME is set and
// a priority-ordered pending interrupt exists. Waking from Halted/Stopped
// on a pending interrupt (regardless of IME) is handled in Request; this
// method only handles the IME-gated jump-to-vector sequence.
func (c *CPU) tryServiceInterrupt() (uint32, bool) {
	pending := c.ifr & c.ie
	if pending == 0 {
		c.interruptCheckRequired = false
		return 0, false
	}
	if !c.ime {
		return 0, false
	}

	kind, ok := interrupt.Highest(pending)
	if !ok {
		return 0, false
	}

	c.ime = false
	c.ifr &^= uint8(kind)
	c.push16(c.PC)
	c.PC = kind.Vector()
	c.interruptCheckRequired = false

	return 5 * 4, true
}

// requestHalt implements the HALT opcode's documented bug: if IME is
// clear but an interrupt is already pending, HALT does not stop the CPU;
// instead it arms the PC-increment-skip latch so the next opcode byte is
// refetched without advancing PC.
func (c *CPU) requestHalt() {
	pending := c.ifr & c.ie
	if !c.ime && pending != 0 {
		c.skipNextPCIncrement = true
		return
	}
	c.state = StateHalted
}

func (c *CPU) requestStop() {
	c.state = StateStopped
}

package cpu

import "testing"

// flatMemory is a 64KiB flat address space, enough to exercise the CPU
// in isolation from the real memory bus.
type flatMemory struct {
	data [0x10000]uint8
}

func (m *flatMemory) Read8(address uint16) uint8        { return m.data[address] }
func (m *flatMemory) Write8(address uint16, value uint8) { m.data[address] = value }

func newTestCPU() (*CPU, *flatMemory) {
	mem := &flatMemory{}
	c := NewCPU(mem, nil)
	c.SetPC(0x0100)
	return c, mem
}

func loadProgram(mem *flatMemory, at uint16, bytes ...uint8) {
	for i, b := range bytes {
		mem.data[int(at)+i] = b
	}
}

func TestNOPAdvancesPCAndConsumesFourCycles(t *testing.T) {
	c, mem := newTestCPU()
	loadProgram(mem, 0x0100, 0x00, 0x00)

	cycles, err := c.Step()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cycles != 4 {
		t.Errorf("expected 4 cycles, got %d", cycles)
	}
	if c.PC != 0x0101 {
		t.Errorf("expected PC=0x0101, got 0x%04X", c.PC)
	}

	if _, err := c.Step(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.PC != 0x0102 {
		t.Errorf("expected PC=0x0102 after second NOP, got 0x%04X", c.PC)
	}
}

func TestLDBCImm16(t *testing.T) {
	c, mem := newTestCPU()
	loadProgram(mem, 0x0100, 0x01, 0x34, 0x12) // LD BC, 0x1234

	cycles, err := c.Step()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cycles != 12 {
		t.Errorf("expected 12 cycles, got %d", cycles)
	}
	if c.bc() != 0x1234 {
		t.Errorf("expected BC=0x1234, got 0x%04X", c.bc())
	}
}

func TestConditionalJumpTakenAndNotTaken(t *testing.T) {
	c, mem := newTestCPU()
	// JR NZ, +5  starting with Z set: should NOT jump.
	loadProgram(mem, 0x0100, 0x20, 0x05)
	c.setFlag(FlagZ, true)

	cycles, err := c.Step()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cycles != 8 {
		t.Errorf("expected 8 cycles when not taken, got %d", cycles)
	}
	if c.PC != 0x0102 {
		t.Errorf("expected PC to fall through to 0x0102, got 0x%04X", c.PC)
	}

	// Now with Z clear, the same instruction must jump.
	c.SetPC(0x0100)
	c.setFlag(FlagZ, false)
	cycles, err = c.Step()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cycles != 12 {
		t.Errorf("expected 12 cycles when taken, got %d", cycles)
	}
	if c.PC != 0x0107 {
		t.Errorf("expected PC=0x0107 after taken jump, got 0x%04X", c.PC)
	}
}

func TestIncDecBoundaryFlags(t *testing.T) {
	c, mem := newTestCPU()
	c.B = 0xFF
	loadProgram(mem, 0x0100, 0x04) // INC B

	if _, err := c.Step(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.B != 0x00 {
		t.Errorf("expected B=0x00, got 0x%02X", c.B)
	}
	if !c.flag(FlagZ) || !c.flag(FlagH) || c.flag(FlagN) {
		t.Errorf("expected Z and H set, N clear; got F=0x%02X", c.F)
	}

	c.B = 0x00
	loadProgram(mem, 0x0101, 0x05) // DEC B
	c.SetPC(0x0101)
	if _, err := c.Step(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.B != 0xFF {
		t.Errorf("expected B=0xFF after DEC wraparound, got 0x%02X", c.B)
	}
	if !c.flag(FlagH) || !c.flag(FlagN) || c.flag(FlagZ) {
		t.Errorf("expected H and N set, Z clear; got F=0x%02X", c.F)
	}
}

func TestAddHLBCBoundary(t *testing.T) {
	c, _ := newTestCPU()
	c.setHL(0x0FFF)
	c.setBC(0x0001)
	c.addHL16(c.bc())
	if c.hl() != 0x1000 {
		t.Errorf("expected HL=0x1000, got 0x%04X", c.hl())
	}
	if !c.flag(FlagH) {
		t.Errorf("expected half-carry set crossing bit 11")
	}
	if c.flag(FlagC) {
		t.Errorf("expected no full carry")
	}

	c.setHL(0xFFFF)
	c.setBC(0x0001)
	c.addHL16(c.bc())
	if c.hl() != 0x0000 {
		t.Errorf("expected HL=0x0000 on overflow, got 0x%04X", c.hl())
	}
	if !c.flag(FlagC) {
		t.Errorf("expected carry set on 16-bit overflow")
	}
}

func TestRLCA(t *testing.T) {
	c, mem := newTestCPU()
	c.A = 0x85
	loadProgram(mem, 0x0100, 0x07) // RLCA

	if _, err := c.Step(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.A != 0x0B {
		t.Errorf("expected A=0x0B, got 0x%02X", c.A)
	}
	if !c.flag(FlagC) {
		t.Errorf("expected carry set from bit 7")
	}
	if c.flag(FlagZ) || c.flag(FlagN) || c.flag(FlagH) {
		t.Errorf("expected Z, N, H clear; got F=0x%02X", c.F)
	}
}

func TestDAAAfterBCDAddition(t *testing.T) {
	c, _ := newTestCPU()
	// 0x15 + 0x27 = 0x3C binary, should DAA to 0x42 BCD.
	c.A = 0x15
	c.alu(aluADD, 0x27)
	c.daa()
	if c.A != 0x42 {
		t.Errorf("expected A=0x42 after DAA, got 0x%02X", c.A)
	}
	if c.flag(FlagC) {
		t.Errorf("expected no carry out of this addition")
	}
}

func TestHaltBugSkipsPCIncrement(t *testing.T) {
	c, mem := newTestCPU()
	// HALT immediately followed by INC A, with IME=0 and a pending,
	// enabled interrupt: the documented HALT bug re-reads the next byte
	// as the opcode twice instead of advancing PC past it.
	loadProgram(mem, 0x0100, 0x76, 0x3C) // HALT, INC A
	c.ie = 0x01
	c.ifr = 0x01
	c.ime = false

	if _, err := c.Step(); err != nil { // HALT: bug arms since IME=0 and interrupt pending
		t.Fatalf("unexpected error: %v", err)
	}
	if c.state != StateRunning {
		t.Errorf("expected HALT bug to leave CPU running immediately")
	}

	pcBefore := c.PC
	if _, err := c.Step(); err != nil { // first INC A, PC should NOT advance
		t.Fatalf("unexpected error: %v", err)
	}
	if c.PC != pcBefore {
		t.Errorf("expected PC to stay at 0x%04X after HALT-bug fetch, got 0x%04X", pcBefore, c.PC)
	}
	if c.A != 1 {
		t.Errorf("expected A=1 after first INC A, got %d", c.A)
	}

	if _, err := c.Step(); err != nil { // second INC A, now PC advances normally
		t.Fatalf("unexpected error: %v", err)
	}
	if c.A != 2 {
		t.Errorf("expected A=2 after second INC A, got %d", c.A)
	}
	if c.PC != pcBefore+1 {
		t.Errorf("expected PC=0x%04X, got 0x%04X", pcBefore+1, c.PC)
	}
}

func TestUndefinedOpcodeReturnsError(t *testing.T) {
	c, mem := newTestCPU()
	loadProgram(mem, 0x0100, 0xD3) // undefined

	if _, err := c.Step(); err == nil {
		t.Errorf("expected an error for undefined opcode 0xD3")
	}
}

func TestVBlankInterruptAcknowledgementCycleCost(t *testing.T) {
	c, mem := newTestCPU()
	loadProgram(mem, 0x0100, 0x00) // NOP, never reached
	c.SP = 0xFFFE
	c.ime = true
	c.ie = 0x01
	c.ifr = 0x01
	c.interruptCheckRequired = true

	cycles, err := c.Step()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cycles != 20 {
		t.Errorf("expected interrupt acknowledgement to cost 20 cycles (5 machine cycles), got %d", cycles)
	}
	if c.PC != 0x0040 {
		t.Errorf("expected PC at the VBlank vector 0x0040, got 0x%04X", c.PC)
	}
	if c.ime {
		t.Errorf("expected IME cleared after acknowledgement")
	}
	if c.ifr&0x01 != 0 {
		t.Errorf("expected the serviced interrupt bit cleared in IF")
	}
}

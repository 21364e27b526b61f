// Package emulator wires the CPU, memory bus, pixel pipeline, timer, and
// joypad into a single cooperative frame driver, grounded on the
// reference emulator's Run/GetFrame loop: run the CPU until the next
// timer event or the next mode boundary, whichever comes first, and
// render one scanline after each visible line's HBlank and after each
// VBlank line.
package emulator

import (
	"fmt"

	"nitro-core-dx/internal/cpu"
	"nitro-core-dx/internal/debug"
	"nitro-core-dx/internal/input"
	"nitro-core-dx/internal/memory"
	"nitro-core-dx/internal/ppu"
	"nitro-core-dx/internal/timer"
)

// Emulator owns one Game Boy system: a cartridge, the register/interrupt
// processor, the memory bus, the pixel pipeline, the timer, and the
// joypad. Callers drive it one frame at a time via RunFrame.
type Emulator struct {
	CPU       *cpu.CPU
	Bus       *memory.Bus
	PPU       *ppu.PPU
	Timer     *timer.Timer
	Joypad    *input.Joypad
	Cartridge *memory.Cartridge

	logger      *debug.Logger
	cpuAdapter  *cpu.CPULoggerAdapter
	cycleLogger *debug.CycleLogger

	cycleInFrame int
	frameLimited bool

	// fault latches the error returned by CPU.Step, once set, permanently.
	// A faulted CPU is one of only three documented ways execution ends;
	// RunFrame refuses to step the CPU any further once this is non-nil.
	fault error
}

// Halted reports whether the CPU has latched a fatal fault (an undefined
// opcode) and stopped executing. Once true it never reverts.
func (e *Emulator) Halted() bool { return e.fault != nil }

// Fault returns the error that halted the CPU, or nil if it is still
// running normally.
func (e *Emulator) Fault() error { return e.fault }

// NewEmulator constructs an Emulator with logging disabled.
func NewEmulator() *Emulator {
	return NewEmulatorWithLogger(nil)
}

// NewEmulatorWithLogger constructs an Emulator that forwards CPU,
// cartridge, memory (DMA) and system events to logger; the PPU, timer and
// joypad do not log. A nil logger disables logging entirely.
func NewEmulatorWithLogger(logger *debug.Logger) *Emulator {
	e := &Emulator{logger: logger, frameLimited: true}

	var cpuLogger cpu.LoggerInterface
	if logger != nil {
		e.cpuAdapter = cpu.NewCPULoggerAdapter(logger, cpu.CPULogNone)
		cpuLogger = e.cpuAdapter
	}

	// CPU is constructed before Bus so it can be handed to PPU/Timer/
	// Joypad as their interrupt.Requester; Bus is wired in afterward via
	// AttachBus once a cartridge is loaded.
	e.CPU = cpu.NewCPU(nil, cpuLogger)
	e.PPU = ppu.New(e.CPU)
	e.Timer = timer.New(e.CPU)
	e.Joypad = input.New(e.CPU)

	return e
}

// LoadROM parses romData as a cartridge image, wires the memory bus, and
// resets the CPU to begin execution at 0x0100 (the instruction following
// the boot ROM's handoff, since no boot ROM image is supplied here).
func (e *Emulator) LoadROM(romData []byte) error {
	cartridge, err := memory.NewCartridge(romData, 1, e.logger)
	if err != nil {
		return fmt.Errorf("load rom: %w", err)
	}
	e.Cartridge = cartridge
	e.Bus = memory.NewBus(cartridge, e.PPU, e.Timer, e.Joypad, nil, e.logger)

	e.CPU.AttachBus(e.Bus)
	e.CPU.Reset()
	e.CPU.SetPC(0x0100)
	return nil
}

// SetCPULogLevel adjusts how much the CPU forwards to the logger passed
// to NewEmulatorWithLogger. A no-op if logging was never enabled.
func (e *Emulator) SetCPULogLevel(level cpu.CPULogLevel) {
	if e.cpuAdapter != nil {
		e.cpuAdapter.SetLevel(level)
	}
}

// EnableCycleLog opens a per-instruction register/OAM trace at path,
// useful for diffing execution against a known-good reference emulator.
// maxCycles of 0 logs without limit; startCycle delays logging until
// that many instructions have executed.
func (e *Emulator) EnableCycleLog(path string, maxCycles, startCycle uint64) error {
	logger, err := debug.NewCycleLogger(path, maxCycles, startCycle, e.Bus, e.PPU, e.PPU)
	if err != nil {
		return err
	}
	e.cycleLogger = logger
	return nil
}

// CloseCycleLog flushes and closes the cycle trace file opened by
// EnableCycleLog, if any.
func (e *Emulator) CloseCycleLog() error {
	if e.cycleLogger == nil {
		return nil
	}
	return e.cycleLogger.Close()
}

// SetFrameLimit records whether the front end wants frame pacing. The
// flag is stored only; RunFrame does not read it and runs the same either
// way.
func (e *Emulator) SetFrameLimit(limited bool) { e.frameLimited = limited }

// SetKeys replaces the pressed-key state read through the joypad.
func (e *Emulator) SetKeys(keys uint8) { e.Joypad.SetKeys(keys) }

// RunFrame advances the system by one video frame and returns the
// rendered frame buffer. It steps the CPU until the 70224-clock frame
// budget is reached; the last instruction of a burst may run a few clocks
// past a target, and that overshoot is not carried into the next frame,
// so a frame consumes at least 70224 CPU clocks. It must be called once
// per displayed frame; the frameLimited flag only affects how a
// front end paces calls to it, not its own behavior.
//
// If the CPU has already faulted (see Halted), RunFrame does not step it
// any further and returns the last rendered frame along with the fault.
// A fault encountered mid-frame stops CPU execution at that instant and
// is returned the same way; the caller decides whether to keep
// displaying the frozen frame or to stop.
func (e *Emulator) RunFrame() ([ppu.VisibleLines][160]uint32, error) {
	if e.fault != nil {
		return e.PPU.Frame, e.fault
	}

	e.PPU.ResetFrame()

	cycleTarget := 0
	for line := 0; line < ppu.VisibleLines; line++ {
		e.PPU.SetMode(ppu.ModeOamScan)
		cycleTarget += ppu.OamScanClocks
		e.runUntil(cycleTarget)

		e.PPU.SetMode(ppu.ModeOamAndVramScan)
		cycleTarget += ppu.OamAndVramScanClocks
		e.runUntil(cycleTarget)

		e.PPU.SetMode(ppu.ModeHBlank)
		cycleTarget += ppu.HBlankClocks
		e.runUntil(cycleTarget)

		e.PPU.RenderLine()
		if e.fault != nil {
			return e.PPU.Frame, e.fault
		}
	}

	e.PPU.SetMode(ppu.ModeVBlank)
	for line := 0; line < ppu.VBlankLines; line++ {
		cycleTarget += ppu.ScanlineClocks
		e.runUntil(cycleTarget)
		e.PPU.RenderLine()
		if e.fault != nil {
			return e.PPU.Frame, e.fault
		}
	}

	e.cycleInFrame = 0
	return e.PPU.Frame, nil
}

// runUntil steps the CPU until e.cycleInFrame reaches target, bounding
// each burst by the timer's next scheduled event so Timer.Advance never
// has to straddle an interrupt-causing overflow mid-burst. It returns
// immediately, without stepping the CPU, once a fault has been latched.
func (e *Emulator) runUntil(target int) {
	if e.fault != nil {
		return
	}
	for e.cycleInFrame < target {
		budget := target - e.cycleInFrame
		if event := e.Timer.CyclesToNextEvent(); event < budget {
			budget = event
		}
		if budget <= 0 {
			budget = 1
		}

		ran := 0
		for ran < budget {
			cycles, err := e.CPU.Step()
			if err != nil {
				e.fault = err
				if e.logger != nil {
					e.logger.LogSystemf(debug.LogLevelError, "cpu halted: %v", err)
				}
				e.Timer.Advance(ran)
				e.cycleInFrame += ran
				return
			}
			ran += int(cycles)
			if e.cycleLogger != nil {
				e.cycleLogger.LogCycle(e.cpuStateSnapshot())
			}
		}

		e.Timer.Advance(ran)
		e.cycleInFrame += ran
	}
}

func (e *Emulator) cpuStateSnapshot() *debug.CPUStateSnapshot {
	s := e.CPU.Snapshot()
	return &debug.CPUStateSnapshot{
		A: s.A, F: s.F, B: s.B, C: s.C, D: s.D, E: s.E, H: s.H, L: s.L,
		SP: s.SP, PC: s.PC, IME: s.IME, Cycles: e.CPU.TotalCycles(),
	}
}

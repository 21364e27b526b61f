package cpu

import (
	"fmt"

	"nitro-core-dx/internal/debug"
)

// CPULogLevel controls how much detail the adapter forwards to the
// underlying debug.Logger.
type CPULogLevel int

const (
	CPULogNone         CPULogLevel = iota // no CPU logging
	CPULogErrors                          // reserved for caller-driven error logging
	CPULogBranches                        // jumps, calls, returns
	CPULogRegisters                       // register changes plus branches
	CPULogInstructions                    // every instruction
	CPULogTrace                           // every instruction, trace level
)

// CPULoggerAdapter adapts debug.Logger to the CPU's LoggerInterface.
type CPULoggerAdapter struct {
	logger    *debug.Logger
	level     CPULogLevel
	enabled   bool
	lastState CPUState
}

// NewCPULoggerAdapter constructs an adapter at the given log level.
func NewCPULoggerAdapter(logger *debug.Logger, level CPULogLevel) *CPULoggerAdapter {
	return &CPULoggerAdapter{logger: logger, level: level, enabled: true}
}

func (a *CPULoggerAdapter) SetLevel(level CPULogLevel) { a.level = level }
func (a *CPULoggerAdapter) SetEnabled(enabled bool)     { a.enabled = enabled }

var branchOpcodes = map[uint8]bool{
	0x18: true, 0x20: true, 0x28: true, 0x30: true, 0x38: true, // JR
	0xC0: true, 0xC2: true, 0xC3: true, 0xC4: true, 0xC8: true, 0xC9: true,
	0xCA: true, 0xCC: true, 0xCD: true, 0xD0: true, 0xD2: true, 0xD4: true,
	0xD8: true, 0xD9: true, 0xDA: true, 0xDC: true, 0xE9: true,
	0xC7: true, 0xCF: true, 0xD7: true, 0xDF: true, 0xE7: true, 0xEF: true, 0xF7: true, 0xFF: true, // RST
}

// LogCPU implements LoggerInterface.LogCPU.
func (a *CPULoggerAdapter) LogCPU(instruction uint16, state CPUState, cycles uint32) {
	if !a.enabled || a.logger == nil || a.level == CPULogNone {
		return
	}

	opcode := uint8(instruction)
	isBranch := branchOpcodes[opcode]

	var logLevel debug.LogLevel
	var data map[string]interface{}

	switch a.level {
	case CPULogErrors:
		return

	case CPULogBranches:
		if !isBranch {
			return
		}
		logLevel = debug.LogLevelInfo
		data = a.stateData(state, cycles)

	case CPULogRegisters:
		changed := a.registersChanged(state)
		if !changed && !isBranch {
			return
		}
		logLevel = debug.LogLevelInfo
		data = a.stateData(state, cycles)
		if changed {
			data["registers_changed"] = true
		}

	case CPULogInstructions:
		logLevel = debug.LogLevelDebug
		data = a.stateData(state, cycles)

	case CPULogTrace:
		logLevel = debug.LogLevelTrace
		data = a.stateData(state, cycles)
		data["trace"] = true
	}

	message := a.formatInstruction(opcode, state)
	a.lastState = state
	a.logger.LogCPU(logLevel, message, data)
}

func (a *CPULoggerAdapter) formatInstruction(opcode uint8, state CPUState) string {
	return fmt.Sprintf("op 0x%02X @ PC=0x%04X", opcode, state.PC)
}

func (a *CPULoggerAdapter) stateData(state CPUState, cycles uint32) map[string]interface{} {
	return map[string]interface{}{
		"pc":     fmt.Sprintf("%04X", state.PC),
		"cycles": cycles,
		"af":     fmt.Sprintf("%02X%02X", state.A, state.F),
		"bc":     fmt.Sprintf("%02X%02X", state.B, state.C),
		"de":     fmt.Sprintf("%02X%02X", state.D, state.E),
		"hl":     fmt.Sprintf("%02X%02X", state.H, state.L),
		"sp":     fmt.Sprintf("%04X", state.SP),
		"ime":    state.IME,
	}
}

func (a *CPULoggerAdapter) registersChanged(state CPUState) bool {
	return state.A != a.lastState.A ||
		state.F != a.lastState.F ||
		state.B != a.lastState.B ||
		state.C != a.lastState.C ||
		state.D != a.lastState.D ||
		state.E != a.lastState.E ||
		state.H != a.lastState.H ||
		state.L != a.lastState.L ||
		state.SP != a.lastState.SP
}

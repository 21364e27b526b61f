package main

import (
	"flag"
	"fmt"
	"os"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"nitro-core-dx/internal/cpu"
	"nitro-core-dx/internal/debug"
	"nitro-core-dx/internal/emulator"
	"nitro-core-dx/internal/input"
	"nitro-core-dx/internal/ppu"
)

const (
	screenWidth  = 160
	screenHeight = 144
)

func main() {
	romPath := flag.String("rom", "", "Path to ROM file")
	ramPath := flag.String("ram", "", "Path to battery-backed RAM save file (created if missing)")
	unlimited := flag.Bool("unlimited", false, "Run at unlimited speed (no frame limit)")
	scale := flag.Int("scale", 3, "Display scale (1-6)")
	enableLogging := flag.Bool("log", false, "Enable logging (disabled by default)")
	cycleLogPath := flag.String("cycle-log", "", "Write a per-instruction register trace to this file")
	flag.Parse()

	if *romPath == "" {
		fmt.Println("Usage: nitro-core-dx -rom <path-to-rom>")
		fmt.Println("  -rom <path>      Path to ROM file")
		fmt.Println("  -ram <path>      Path to battery RAM save file")
		fmt.Println("  -unlimited       Run at unlimited speed")
		fmt.Println("  -scale <1-6>     Display scale (default: 3)")
		fmt.Println("  -log             Enable logging (disabled by default)")
		fmt.Println("  -cycle-log <path> Write a per-instruction register trace")
		os.Exit(1)
	}

	if *scale < 1 || *scale > 6 {
		fmt.Fprintf(os.Stderr, "Error: scale must be between 1 and 6\n")
		os.Exit(1)
	}

	romData, err := os.ReadFile(*romPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading ROM file: %v\n", err)
		os.Exit(1)
	}

	var emu *emulator.Emulator
	if *enableLogging {
		logger := debug.NewLogger(10000)
		logger.SetComponentEnabled(debug.ComponentCPU, true)
		logger.SetComponentEnabled(debug.ComponentPPU, true)
		logger.SetComponentEnabled(debug.ComponentMemory, true)
		logger.SetComponentEnabled(debug.ComponentTimer, true)
		logger.SetComponentEnabled(debug.ComponentInput, true)
		logger.SetComponentEnabled(debug.ComponentCartridge, true)
		logger.SetComponentEnabled(debug.ComponentSystem, true)
		emu = emulator.NewEmulatorWithLogger(logger)
		emu.SetCPULogLevel(cpu.CPULogInstructions)
	} else {
		emu = emulator.NewEmulator()
	}

	if err := emu.LoadROM(romData); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading ROM: %v\n", err)
		os.Exit(1)
	}

	if *ramPath != "" {
		if saved, err := os.ReadFile(*ramPath); err == nil {
			if err := emu.Cartridge.LoadRAMBytes(saved); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: ignoring ram save file: %v\n", err)
			}
		}
	}

	emu.SetFrameLimit(!*unlimited)

	if *cycleLogPath != "" {
		if err := emu.EnableCycleLog(*cycleLogPath, 0, 0); err != nil {
			fmt.Fprintf(os.Stderr, "Error opening cycle log: %v\n", err)
			os.Exit(1)
		}
		defer emu.CloseCycleLog()
	}

	fmt.Println("Nitro-Core-DX Emulator")
	fmt.Println("====================")
	fmt.Printf("ROM loaded: %s\n", *romPath)
	fmt.Printf("Frame limit: %v\n", !*unlimited)
	fmt.Printf("Display scale: %dx\n", *scale)
	fmt.Println("\nControls:")
	fmt.Println("  Arrow Keys - D-pad")
	fmt.Println("  Z - A button   X - B button")
	fmt.Println("  Enter - Start  RShift - Select")
	fmt.Println("  ESC - Quit")

	if err := run(emu, *scale, *ramPath, *unlimited); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(emu *emulator.Emulator, scale int, ramPath string, unlimited bool) error {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return fmt.Errorf("sdl init: %w", err)
	}
	defer sdl.Quit()

	window, err := sdl.CreateWindow(
		"Nitro-Core-DX",
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(screenWidth*scale),
		int32(screenHeight*scale),
		sdl.WINDOW_SHOWN,
	)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer window.Destroy()

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	defer renderer.Destroy()

	texture, err := renderer.CreateTexture(
		sdl.PIXELFORMAT_ARGB8888,
		sdl.TEXTUREACCESS_STREAMING,
		screenWidth,
		screenHeight,
	)
	if err != nil {
		return fmt.Errorf("create texture: %w", err)
	}
	defer texture.Destroy()

	keys := uint8(0)
	running := true
	paused := false

	for running {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch e := event.(type) {
			case *sdl.QuitEvent:
				running = false

			case *sdl.KeyboardEvent:
				pressed := e.Type == sdl.KEYDOWN

				if pressed && e.Keysym.Sym == sdl.K_ESCAPE {
					running = false
					continue
				}
				if pressed && e.Keysym.Sym == sdl.K_p {
					paused = !paused
					continue
				}

				var bit uint8
				switch e.Keysym.Sym {
				case sdl.K_RIGHT:
					bit = input.KeyRight
				case sdl.K_LEFT:
					bit = input.KeyLeft
				case sdl.K_UP:
					bit = input.KeyUp
				case sdl.K_DOWN:
					bit = input.KeyDown
				case sdl.K_z:
					bit = input.KeyA
				case sdl.K_x:
					bit = input.KeyB
				case sdl.K_RSHIFT:
					bit = input.KeySelect
				case sdl.K_RETURN:
					bit = input.KeyStart
				}
				if bit != 0 {
					if pressed {
						keys |= bit
					} else {
						keys &^= bit
					}
					emu.SetKeys(keys)
				}
			}
		}

		if !paused {
			frame, err := emu.RunFrame()
			uploadFrame(texture, &frame)
			if err != nil {
				fmt.Fprintf(os.Stderr, "CPU halted: %v\n", err)
				running = false
			}
		}

		renderer.Clear()
		renderer.Copy(texture, nil, nil)
		renderer.Present()

		if paused {
			sdl.Delay(100)
		} else if !unlimited {
			sdl.Delay(16)
		}
	}

	if ramPath != "" {
		if err := os.WriteFile(ramPath, emu.Cartridge.RAMBytes(), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to write ram save file: %v\n", err)
		}
	}

	return nil
}

func uploadFrame(texture *sdl.Texture, frame *[ppu.VisibleLines][160]uint32) {
	pixels := (*[screenHeight * screenWidth]uint32)(unsafe.Pointer(&frame[0][0]))[:]
	texture.Update(nil, unsafe.Pointer(&pixels[0]), screenWidth*4)
}

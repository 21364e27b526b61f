package memory

import (
	"testing"

	"nitro-core-dx/internal/input"
	"nitro-core-dx/internal/interrupt"
	"nitro-core-dx/internal/ppu"
	"nitro-core-dx/internal/timer"
)

type noopRequester struct{}

func (noopRequester) Request(interrupt.Kind) {}

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	rom := make([]byte, romBankSize*2)
	cart, err := NewCartridge(rom, 1, nil)
	if err != nil {
		t.Fatalf("unexpected cartridge error: %v", err)
	}
	p := ppu.New(noopRequester{})
	tm := timer.New(noopRequester{})
	j := input.New(noopRequester{})
	return NewBus(cart, p, tm, j, nil, nil)
}

func TestWorkRAMMirroring(t *testing.T) {
	bus := newTestBus(t)
	bus.Write8(0xC005, 0x42)
	if got := bus.Read8(0xE005); got != 0x42 {
		t.Errorf("expected the 0xE000 mirror to reflect work RAM, got 0x%02X", got)
	}
}

func TestUnmappedSerialByteReadsZero(t *testing.T) {
	bus := newTestBus(t)
	bus.Write8(0xFF01, 0xAB)
	if got := bus.Read8(0xFF01); got != 0xAB {
		t.Errorf("expected SB (0xFF01) to store its written value, got 0x%02X", got)
	}
	bus.Write8(0xFF03, 0x99) // unmapped, must not panic or corrupt SB/SC
	if got := bus.Read8(0xFF03); got != 0 {
		t.Errorf("expected the unmapped 0xFF03 byte to read 0, got 0x%02X", got)
	}
	if got := bus.Read8(0xFF01); got != 0xAB {
		t.Errorf("expected SB untouched by the unmapped write, got 0x%02X", got)
	}
}

func TestBootROMDisableLatchIsOneWay(t *testing.T) {
	bootROM := make([]byte, 0x100)
	bootROM[0] = 0xAA
	cart, err := NewCartridge(make([]byte, romBankSize*2), 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := ppu.New(noopRequester{})
	tm := timer.New(noopRequester{})
	j := input.New(noopRequester{})
	bus := NewBus(cart, p, tm, j, bootROM, nil)

	if got := bus.Read8(0x0000); got != 0xAA {
		t.Errorf("expected the boot ROM to shadow cartridge ROM at 0x0000, got 0x%02X", got)
	}

	bus.Write8(0xFF50, 0x01)
	if got := bus.Read8(0x0000); got == 0xAA {
		t.Errorf("expected cartridge ROM to be visible after the boot ROM disable latch trips")
	}

	bus.Write8(0xFF50, 0x00) // the latch is one-way; this must not re-enable it
	if got := bus.Read8(0x0000); got == 0xAA {
		t.Errorf("expected the boot ROM disable latch to stay tripped")
	}
}

func TestBootROMDisableLatchTripsOnAnyNonZeroByte(t *testing.T) {
	bootROM := make([]byte, 0x100)
	bootROM[0] = 0xAA
	cart, err := NewCartridge(make([]byte, romBankSize*2), 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := ppu.New(noopRequester{})
	tm := timer.New(noopRequester{})
	j := input.New(noopRequester{})
	bus := NewBus(cart, p, tm, j, bootROM, nil)

	bus.Write8(0xFF50, 0x02) // any non-zero byte trips the latch, not just 0x01
	if got := bus.Read8(0x0000); got == 0xAA {
		t.Errorf("expected a non-zero, non-0x01 write to 0xFF50 to disable the boot ROM")
	}
}

func TestDMATransferCopies160Bytes(t *testing.T) {
	bus := newTestBus(t)
	for i := uint16(0); i < 160; i++ {
		bus.workRAM[0x100+i] = uint8(i)
	}
	// Source 0xC100 (page 0xC1) maps to workRAM[0x100:].
	bus.Write8(0xFF46, 0xC1)

	for i := uint16(0); i < 160; i++ {
		if got := bus.Read8(0xFE00 + i); got != uint8(i) {
			t.Fatalf("expected OAM[%d]=%d after DMA, got %d", i, uint8(i), got)
		}
	}
}

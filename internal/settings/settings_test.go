package settings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/timfallmk/glowstick/internal/color"
)

var testDefaults = Settings{
	HSV:               color.HSV{H: 128, S: 255, V: 128},
	White:             128,
	DisplayBrightness: 96,
}

func TestFirstBootWritesDefaults(t *testing.T) {
	m := NewMemoryMedium(64)
	gw := NewGateway(m, 0, testDefaults)

	s, first, err := gw.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !first {
		t.Error("erased medium should be a first boot")
	}
	if s != testDefaults {
		t.Errorf("got %+v, want defaults", s)
	}
	if m.Writes != 1 {
		t.Errorf("expected defaults written once, got %d writes", m.Writes)
	}

	// Second boot reads the same values without writing.
	s, first, err = NewGateway(m, 0, Settings{}).Load()
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if first {
		t.Error("second boot should not be a first boot")
	}
	if s != testDefaults {
		t.Errorf("second boot read %+v, want %+v", s, testDefaults)
	}
	if m.Writes != 1 {
		t.Errorf("second boot should not write, got %d writes", m.Writes)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	m := NewMemoryMedium(64)
	gw := NewGateway(m, 16, testDefaults)

	want := Settings{HSV: color.HSV{H: 1, S: 2, V: 3}, White: 4, DisplayBrightness: 255}
	if err := gw.Save(want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, first, err := gw.Load()
	if err != nil || first {
		t.Fatalf("Load: first=%v err=%v", first, err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	raw := m.Bytes()
	if raw[16] != Marker {
		t.Errorf("marker byte = %#x", raw[16])
	}
	if raw[15] != Erased || raw[22] != Erased {
		t.Error("save wrote outside its record")
	}
}

func TestRecordLayout(t *testing.T) {
	rec := Encode(Settings{HSV: color.HSV{H: 10, S: 20, V: 30}, White: 40, DisplayBrightness: 50})
	want := [RecordSize]byte{Marker, 10, 20, 30, 40, 50}
	if rec != want {
		t.Errorf("record = %v, want %v", rec, want)
	}
}

func TestDecodeRejectsErased(t *testing.T) {
	erased := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	if _, ok := Decode(erased); ok {
		t.Error("erased record must not decode")
	}
	if _, ok := Decode([]byte{Marker, 1}); ok {
		t.Error("short record must not decode")
	}
}

func TestSaveShortWrite(t *testing.T) {
	m := NewMemoryMedium(8)
	gw := NewGateway(m, 4, testDefaults)

	err := gw.Save(testDefaults)
	if !errors.Is(err, ErrShortRecord) {
		t.Errorf("expected ErrShortRecord, got %v", err)
	}
}

func TestFileMediumPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "eeprom.bin")

	m, err := OpenFile(path, 32)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	_, first, err := NewGateway(m, 0, testDefaults).Load()
	if err != nil || !first {
		t.Fatalf("fresh image: first=%v err=%v", first, err)
	}

	changed := testDefaults
	changed.White = 7
	if err := NewGateway(m, 0, testDefaults).Save(changed); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() != 32 {
		t.Errorf("image size = %d, want 32", info.Size())
	}

	m, err = OpenFile(path, 32)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer m.Close()

	got, first, err := NewGateway(m, 0, testDefaults).Load()
	if err != nil || first {
		t.Fatalf("reopened image: first=%v err=%v", first, err)
	}
	if got != changed {
		t.Errorf("got %+v, want %+v", got, changed)
	}
}

func TestFileMediumErasedPadding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eeprom.bin")
	m, err := OpenFile(path, 16)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer m.Close()

	buf := make([]byte, 16)
	if _, err := m.ReadAt(buf, 0); err != nil {
		t.Fatalf("ReadAt failed: %v", err)
	}
	for i, b := range buf {
		if b != Erased {
			t.Fatalf("byte %d = %#x, want erased", i, b)
		}
	}
}

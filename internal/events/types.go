package events

import (
	"time"

	"github.com/timfallmk/glowstick/internal/settings"
)

// Event type constants for kelindar/event.
const (
	TypeModeChanged uint32 = iota + 1
	TypeSettingsSaved
	TypeDisplayBlanked
	TypeConfigReloaded
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// ModeChangedEvent is published when a press switches screens.
type ModeChangedEvent struct {
	From      string
	To        string
	Timestamp time.Time
}

func (e ModeChangedEvent) Type() uint32 { return TypeModeChanged }

// SettingsSavedEvent is published after the persisted record is written.
type SettingsSavedEvent struct {
	Settings  settings.Settings
	FirstBoot bool
	Timestamp time.Time
}

func (e SettingsSavedEvent) Type() uint32 { return TypeSettingsSaved }

// DisplayBlankedEvent is published when the idle timeout turns the display off.
type DisplayBlankedEvent struct {
	Idle      time.Duration
	Timestamp time.Time
}

func (e DisplayBlankedEvent) Type() uint32 { return TypeDisplayBlanked }

// ConfigReloadedEvent is published when the daemon applies a changed config file.
type ConfigReloadedEvent struct {
	Path      string
	Timestamp time.Time
}

func (e ConfigReloadedEvent) Type() uint32 { return TypeConfigReloaded }

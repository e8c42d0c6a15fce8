package events

import (
	"testing"
	"time"

	"github.com/timfallmk/glowstick/internal/settings"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan ModeChangedEvent, 1)

	unsub := bus.Subscribe(func(e ModeChangedEvent) {
		received <- e
	})
	defer unsub()

	bus.Publish(ModeChangedEvent{From: "menu", To: "hsv"})

	select {
	case got := <-received:
		if got.From != "menu" || got.To != "hsv" {
			t.Errorf("got %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_RoutesByType(t *testing.T) {
	bus := New()
	saved := make(chan SettingsSavedEvent, 1)
	blanked := make(chan DisplayBlankedEvent, 1)

	defer bus.Subscribe(func(e SettingsSavedEvent) { saved <- e })()
	defer bus.Subscribe(func(e DisplayBlankedEvent) { blanked <- e })()

	bus.Publish(SettingsSavedEvent{Settings: settings.Settings{White: 7}, FirstBoot: true})

	select {
	case got := <-saved:
		if got.Settings.White != 7 || !got.FirstBoot {
			t.Errorf("got %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("settings event not delivered")
	}

	select {
	case <-blanked:
		t.Error("blank handler received a settings event")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan ConfigReloadedEvent, 1)

	unsub := bus.Subscribe(func(e ConfigReloadedEvent) {
		received <- e
	})

	bus.Publish(ConfigReloadedEvent{Path: "a.yaml"})
	<-received

	unsub()

	bus.Publish(ConfigReloadedEvent{Path: "b.yaml"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_UnknownHandler(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(string) {})
	unsub()
}

func TestEventTypesAreDistinct(t *testing.T) {
	types := []Event{ModeChangedEvent{}, SettingsSavedEvent{}, DisplayBlankedEvent{}, ConfigReloadedEvent{}}
	seen := map[uint32]bool{}
	for _, e := range types {
		if seen[e.Type()] {
			t.Errorf("duplicate event type %d", e.Type())
		}
		seen[e.Type()] = true
	}
}

package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBusDeliversBrightness(t *testing.T) {
	bus := New()

	got := make(chan BrightnessEvent, 1)
	unsub := bus.SubscribeBrightness(func(ev BrightnessEvent) {
		got <- ev
	})
	defer unsub()

	bus.PublishBrightness(BrightnessEvent{Level: 42})

	select {
	case ev := <-got:
		assert.Equal(t, uint8(42), ev.Level)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for brightness event")
	}
}

func TestBusDeliversPower(t *testing.T) {
	bus := New()

	got := make(chan PowerEvent, 2)
	unsub := bus.SubscribePower(func(ev PowerEvent) {
		got <- ev
	})
	defer unsub()

	bus.PublishPower(PowerEvent{On: false})
	bus.PublishPower(PowerEvent{On: true})

	for _, want := range []bool{false, true} {
		select {
		case ev := <-got:
			assert.Equal(t, want, ev.On)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for power event")
		}
	}
}

func TestBusKeepsEventTypesApart(t *testing.T) {
	bus := New()

	power := make(chan PowerEvent, 1)
	unsub := bus.SubscribePower(func(ev PowerEvent) {
		power <- ev
	})
	defer unsub()

	bus.PublishBrightness(BrightnessEvent{Level: 1})

	select {
	case <-power:
		t.Fatal("power subscriber received a brightness event")
	case <-time.After(50 * time.Millisecond):
	}
}

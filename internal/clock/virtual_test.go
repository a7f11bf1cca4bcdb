package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func TestVirtualClock_Advance(t *testing.T) {
	c := NewVirtualClock(epoch)

	if got := c.Now(); !got.Equal(epoch) {
		t.Errorf("Now() = %v, want %v", got, epoch)
	}

	c.Advance(2 * time.Second)
	if got := c.Now(); !got.Equal(epoch.Add(2 * time.Second)) {
		t.Errorf("Now() after Advance = %v, want %v", got, epoch.Add(2*time.Second))
	}

	if got := c.Since(epoch); got != 2*time.Second {
		t.Errorf("Since(epoch) = %v, want 2s", got)
	}
}

func TestVirtualClock_After_FiresOnAdvance(t *testing.T) {
	c := NewVirtualClock(epoch)
	ch := c.After(time.Second)

	select {
	case <-ch:
		t.Fatal("After fired before the clock advanced")
	default:
	}

	c.Advance(500 * time.Millisecond)
	select {
	case <-ch:
		t.Fatal("After fired before its deadline")
	default:
	}

	c.Advance(500 * time.Millisecond)
	select {
	case got := <-ch:
		if !got.Equal(epoch.Add(time.Second)) {
			t.Errorf("After delivered %v, want %v", got, epoch.Add(time.Second))
		}
	default:
		t.Fatal("After did not fire at its deadline")
	}
}

func TestVirtualClock_After_ZeroFiresImmediately(t *testing.T) {
	c := NewVirtualClock(epoch)
	select {
	case <-c.After(0):
	default:
		t.Fatal("After(0) did not fire immediately")
	}
}

func TestVirtualClock_Set(t *testing.T) {
	c := NewVirtualClock(epoch)
	ch := c.After(time.Minute)

	c.Set(epoch.Add(time.Hour))
	select {
	case <-ch:
	default:
		t.Fatal("Set past the deadline did not fire the waiter")
	}

	defer func() {
		if recover() == nil {
			t.Error("Set to the past did not panic")
		}
	}()
	c.Set(epoch)
}

func TestVirtualClock_AdvanceNegativePanics(t *testing.T) {
	c := NewVirtualClock(epoch)
	defer func() {
		if recover() == nil {
			t.Error("Advance(-1) did not panic")
		}
	}()
	c.Advance(-time.Second)
}

func TestMillisRoundTrip(t *testing.T) {
	if got := Millis(1500 * time.Millisecond); got != 1500 {
		t.Errorf("Millis = %d, want 1500", got)
	}
	if got := FromMillis(1500); got != 1500*time.Millisecond {
		t.Errorf("FromMillis = %v, want 1.5s", got)
	}
}

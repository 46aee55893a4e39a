package utils

import (
	"testing"
	"time"
)

func TestManualClockFiresInOrder(t *testing.T) {
	start := time.Unix(1000, 0)
	c := NewManualClock(start)

	var fired []string
	c.AfterFunc(20*time.Millisecond, func() { fired = append(fired, "b") })
	c.AfterFunc(10*time.Millisecond, func() { fired = append(fired, "a") })
	stopped := c.AfterFunc(15*time.Millisecond, func() { fired = append(fired, "x") })

	if !stopped.Stop() {
		t.Fatal("Stop() on a pending timer returned false")
	}
	if stopped.Stop() {
		t.Fatal("second Stop() returned true")
	}

	c.Advance(12 * time.Millisecond)
	if len(fired) != 1 || fired[0] != "a" {
		t.Fatalf("after 12ms fired = %v, want [a]", fired)
	}
	if got := c.Now(); !got.Equal(start.Add(12 * time.Millisecond)) {
		t.Errorf("Now() = %v, want start+12ms", got)
	}

	c.Advance(time.Second)
	if len(fired) != 2 || fired[1] != "b" {
		t.Fatalf("after 1s fired = %v, want [a b]", fired)
	}
	if c.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", c.Pending())
	}
}

func TestManualClockReentrantTimer(t *testing.T) {
	c := NewManualClock(time.Unix(0, 0))
	count := 0
	var tick func()
	tick = func() {
		count++
		if count < 3 {
			c.AfterFunc(time.Millisecond, tick)
		}
	}
	c.AfterFunc(time.Millisecond, tick)

	c.Advance(10 * time.Millisecond)
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

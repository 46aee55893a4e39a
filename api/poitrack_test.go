package api

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Humphrey-He/poitrack/internal/picking"
	"github.com/Humphrey-He/poitrack/pkg/loader"
	"github.com/Humphrey-He/poitrack/pkg/poi"
)

type titles struct {
	mu     sync.Mutex
	titles map[int]string
}

func (r *titles) Clear(*Slot) {}
func (r *titles) Hide(*Slot)  {}
func (r *titles) Render(s *Slot, l Label) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles[s.Ref().Index] = *l.Title
}

func (r *titles) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.titles)
}

func TestFacade_TrackAndRender(t *testing.T) {
	loop := NewLoop()
	clock := NewManualClock(time.Unix(0, 0))
	m := NewMetrics(MetricsBasic)
	rend := &titles{titles: make(map[int]string)}

	tr := loader.TransportFunc(func(_ context.Context, _ Dimension, indices []int) ([]Label, error) {
		out := make([]Label, len(indices))
		for i, idx := range indices {
			out[i] = loader.NewTitled(fmt.Sprintf("node %d", idx))
		}
		return out, nil
	})

	e, err := New(tr, loop, rend,
		WithClock(clock),
		WithMetrics(m),
		WithDebounce(time.Millisecond),
		WithHandleFactory(func(ref Ref) (poi.RenderHandle, error) { return ref.Index, nil }),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	samples := []uint32{
		picking.EncodeGpuIndex(3),
		picking.EncodeGpuIndex(3),
		picking.EncodeGpuIndex(5),
		picking.EncodeGpuIndex(picking.Sentinel),
	}
	e.Tick(Frame{Samples: samples}, true)
	clock.Advance(time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for rend.len() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("rendered %d labels, want 2", rend.len())
		}
		loop.RunPending()
		time.Sleep(time.Millisecond)
	}

	for _, s := range e.Slots() {
		if s.State() != Rendered {
			t.Errorf("slot %s state = %s, want rendered", s.Ref(), s.State())
		}
	}
	if got := rend.titles[3]; got != "node 3" {
		t.Errorf("title for 3 = %q", got)
	}
	if snap := m.GetSnapshot(); snap.Renders != 2 || snap.Assignments != 2 {
		t.Errorf("renders=%d assignments=%d, want 2 and 2", snap.Renders, snap.Assignments)
	}
}

func TestFacade_InvalidOption(t *testing.T) {
	_, err := New(loader.TransportFunc(nil), NewLoop(), nil, WithMaxLabels(0))
	if !IsInvalidConfig(err) {
		t.Errorf("expected invalid config, got %v", err)
	}
}

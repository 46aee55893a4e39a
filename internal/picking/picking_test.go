package picking

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/Humphrey-He/poitrack/pkg/entity"
)

// identity 把采样按有符号整数解释，0xFFFFFFFF 即 Sentinel
func identity(s uint32) int { return int(int32(s)) }

func raw(vals ...int) []uint32 {
	out := make([]uint32, len(vals))
	for i, v := range vals {
		out[i] = uint32(int32(v))
	}
	return out
}

func TestMarkHitsScenario(t *testing.T) {
	samples := raw(5, 5, 5, -1, 7, 7, -1, -1)
	before := slices.Clone(samples)

	hist := MarkHits(samples, identity)
	want := Histogram{{Index: 5, Count: 3}, {Index: 7, Count: 2}}
	if !slices.Equal(hist, want) {
		t.Fatalf("MarkHits() = %v, want %v", hist, want)
	}
	if !slices.Equal(samples, before) {
		t.Errorf("MarkHits() modified the caller's buffer")
	}

	got := Rank(hist, entity.Point, 1)
	if len(got) != 1 || got[0] != (entity.Ref{Index: 5, Dim: entity.Point}) {
		t.Errorf("Rank(limit=1) = %v, want [5,1]", got)
	}
}

func TestMarkHitsEmpty(t *testing.T) {
	for _, samples := range [][]uint32{nil, {}} {
		hist := MarkHits(samples, identity)
		if len(hist) != 0 {
			t.Errorf("MarkHits(%v) = %v, want empty", samples, hist)
		}
		if got := Rank(hist, entity.Point, 20); len(got) != 0 {
			t.Errorf("Rank(empty) = %v, want empty", got)
		}
	}
}

func TestMarkHitsOnlySentinel(t *testing.T) {
	hist := MarkHits(raw(-1, -1, -1), identity)
	if len(hist) != 0 {
		t.Errorf("MarkHits() = %v, want empty", hist)
	}
}

func TestMarkHitsMatchesNaiveCount(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		n := r.Intn(500)
		samples := make([]uint32, n)
		naive := make(map[int]int)
		for i := range samples {
			idx := r.Intn(40) - 1
			samples[i] = EncodeGpuIndex(idx)
			if idx != Sentinel {
				naive[idx]++
			}
		}

		hist := MarkHits(samples, DecodeGpuIndex)
		if len(hist) != len(naive) {
			t.Fatalf("round %d: %d distinct values, want %d", round, len(hist), len(naive))
		}
		for idx, want := range naive {
			if got := hist.Count(idx); got != want {
				t.Fatalf("round %d: Count(%d) = %d, want %d", round, idx, got, want)
			}
		}

		for _, limit := range []int{1, 5, 20, 100} {
			ranked := Rank(hist, entity.Point, limit)
			if want := min(limit, len(naive)); len(ranked) != want {
				t.Fatalf("round %d: len(Rank(%d)) = %d, want %d", round, limit, len(ranked), want)
			}
			for i := 1; i < len(ranked); i++ {
				if hist.Count(ranked[i-1].Index) < hist.Count(ranked[i].Index) {
					t.Fatalf("round %d: ranking not descending at %d", round, i)
				}
			}
		}
	}
}

func TestMarkHitsNonMonotonicDecode(t *testing.T) {
	// 偶数和奇数采样解码到同一个索引，排序后它们交错出现
	decode := func(s uint32) int { return int(s % 2) }
	hist := MarkHits([]uint32{0, 1, 2, 3, 0, 1}, decode)
	if hist.Count(0) != 3 || hist.Count(1) != 3 {
		t.Errorf("MarkHits() = %v, want {0:3 1:3}", hist)
	}
}

func TestRankDeterministicTies(t *testing.T) {
	hist := Histogram{{Index: 1, Count: 2}, {Index: 3, Count: 5}, {Index: 4, Count: 2}, {Index: 9, Count: 2}}
	first := Rank(hist, entity.Edge, 3)
	for i := 0; i < 10; i++ {
		if again := Rank(hist, entity.Edge, 3); !slices.Equal(first, again) {
			t.Fatalf("Rank() not deterministic: %v vs %v", first, again)
		}
	}
	if first[0] != (entity.Ref{Index: 3, Dim: entity.Edge}) {
		t.Errorf("Rank()[0] = %v, want 3,2", first[0])
	}
}

func TestDecodeGpuIndexRoundTrip(t *testing.T) {
	if got := DecodeGpuIndex(0); got != Sentinel {
		t.Errorf("DecodeGpuIndex(0) = %d, want Sentinel", got)
	}
	for _, idx := range []int{0, 1, 255, 65536, indexMask - 1} {
		if got := DecodeGpuIndex(EncodeGpuIndex(idx)); got != idx {
			t.Errorf("DecodeGpuIndex(EncodeGpuIndex(%d)) = %d", idx, got)
		}
	}
}

func BenchmarkMarkHits(b *testing.B) {
	r := rand.New(rand.NewSource(1))
	samples := make([]uint32, 256*256)
	for i := range samples {
		samples[i] = EncodeGpuIndex(r.Intn(5000) - 1)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Sample(samples, DecodeGpuIndex, entity.Point, 20)
	}
}

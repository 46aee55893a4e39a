package entity

import (
	"slices"
	"testing"
)

func TestParseDimension(t *testing.T) {
	tests := []struct {
		in      string
		want    Dimension
		wantErr bool
	}{
		{"point", Point, false},
		{" Edge ", Edge, false},
		{"1", Point, false},
		{"2", Edge, false},
		{"face", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDimension(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDimension(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDimension(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRefKey(t *testing.T) {
	a := Ref{Index: 12, Dim: Point}
	if got := a.String(); got != "12,1" {
		t.Errorf("String() = %q, want 12,1", got)
	}
	if Dimension(7).String() != "dim(7)" {
		t.Errorf("unknown dimension String() = %q", Dimension(7).String())
	}

	// 结构相等即同一个键
	m := map[Ref]int{a: 1}
	if m[Ref{Index: 12, Dim: Point}] != 1 {
		t.Error("equal refs should map to the same key")
	}
	if _, ok := m[Ref{Index: 12, Dim: Edge}]; ok {
		t.Error("refs with different dimensions must not collide")
	}
}

func TestCompare(t *testing.T) {
	refs := []Ref{{3, Edge}, {5, Point}, {1, Edge}, {2, Point}}
	slices.SortFunc(refs, Compare)
	want := []Ref{{2, Point}, {5, Point}, {1, Edge}, {3, Edge}}
	if !slices.Equal(refs, want) {
		t.Errorf("sorted = %v, want %v", refs, want)
	}
}

func TestCandidateSetClone(t *testing.T) {
	var empty CandidateSet
	if empty.Clone() != nil {
		t.Error("Clone of nil should be nil")
	}

	c := CandidateSet{{1, Point}, {2, Point}}
	cp := c.Clone()
	cp[0].Index = 99
	if c[0].Index != 1 {
		t.Error("mutating the clone changed the original")
	}

	s := c.Set()
	if len(s) != 2 || !s.Has(Ref{2, Point}) || s.Has(Ref{99, Point}) {
		t.Errorf("Set() = %v", s)
	}
	s.Add(Ref{7, Edge})
	if !s.Has(Ref{7, Edge}) {
		t.Error("Add did not insert")
	}
}

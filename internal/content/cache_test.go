package content

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Humphrey-He/poitrack/internal/metrics"
	"github.com/Humphrey-He/poitrack/internal/sched"
	"github.com/Humphrey-He/poitrack/pkg/entity"
	poierrors "github.com/Humphrey-He/poitrack/pkg/errors"
	"github.com/Humphrey-He/poitrack/pkg/loader"
)

type reply struct {
	labels []loader.Label
	err    error
}

type call struct {
	dim     entity.Dimension
	indices []int
	reply   chan reply
}

// blockingTransport 把每个请求交给测试，直到测试给出应答才返回
type blockingTransport struct {
	calls chan call
}

func newBlockingTransport() *blockingTransport {
	return &blockingTransport{calls: make(chan call, 16)}
}

func (b *blockingTransport) Fetch(ctx context.Context, dim entity.Dimension, indices []int) ([]loader.Label, error) {
	c := call{dim: dim, indices: indices, reply: make(chan reply, 1)}
	b.calls <- c
	select {
	case r := <-c.reply:
		return r.labels, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *blockingTransport) next(t *testing.T) call {
	t.Helper()
	select {
	case c := <-b.calls:
		return c
	case <-time.After(time.Second):
		t.Fatal("no transport request issued")
		return call{}
	}
}

func (b *blockingTransport) none(t *testing.T) {
	t.Helper()
	select {
	case c := <-b.calls:
		t.Fatalf("unexpected transport request for %v", c.indices)
	case <-time.After(20 * time.Millisecond):
	}
}

// step 执行一个投递回调度器的完成任务
func step(t *testing.T, loop *sched.Loop) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := loop.Step(ctx); err != nil {
		t.Fatalf("Step() error = %v", err)
	}
}

func newTestCache() (*Cache, *blockingTransport, *sched.Loop, *metrics.Metrics) {
	tr := newBlockingTransport()
	loop := sched.NewLoop()
	m := metrics.New(metrics.Basic)
	return New(tr, loop, Options{Metrics: m}), tr, loop, m
}

func TestSingleFlight(t *testing.T) {
	c, tr, loop, m := newTestCache()
	ref := entity.Ref{Index: 12, Dim: entity.Point}

	f1 := c.Get(ref)
	f2 := c.Get(ref)
	if f1 != f2 {
		t.Fatal("concurrent lookups returned different futures")
	}

	req := tr.next(t)
	tr.none(t)
	if req.dim != entity.Point || len(req.indices) != 1 || req.indices[0] != 12 {
		t.Errorf("request = {%v %v}, want {point [12]}", req.dim, req.indices)
	}

	var got []string
	f1.Then(func(r Result) { got = append(got, *r.Label.Title) })
	f2.Then(func(r Result) { got = append(got, *r.Label.Title) })

	req.reply <- reply{labels: []loader.Label{loader.NewTitled("alice")}}
	step(t, loop)

	if len(got) != 2 || got[0] != "alice" || got[1] != "alice" {
		t.Errorf("callbacks saw %v, want alice twice", got)
	}

	// 已解析的条目命中缓存，不再请求
	if f3 := c.Get(ref); f3 != f1 || !f3.Done() {
		t.Error("resolved entry not shared")
	}
	tr.none(t)

	s := m.GetSnapshot()
	if s.Misses != 1 || s.Hits != 2 {
		t.Errorf("hits/misses = %d/%d, want 2/1", s.Hits, s.Misses)
	}
}

func TestResolvedEmptyIsCached(t *testing.T) {
	c, tr, loop, _ := newTestCache()
	ref := entity.Ref{Index: 3, Dim: entity.Edge}

	f := c.Get(ref)
	tr.next(t).reply <- reply{labels: []loader.Label{{}}}
	step(t, loop)

	res, ok := f.Result()
	if !ok || !res.Empty || res.Err != nil {
		t.Fatalf("Result() = %+v, %v; want definite empty", res, ok)
	}
	if _, err := f.Wait(context.Background()); !poierrors.IsEmptyLabel(err) {
		t.Errorf("Wait() error = %v, want ErrEmptyLabel", err)
	}

	c.Get(ref)
	tr.none(t)
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestFailureUnblocksAndRetries(t *testing.T) {
	c, tr, loop, m := newTestCache()
	ref := entity.Ref{Index: 8, Dim: entity.Point}

	f := c.Get(ref)
	tr.next(t).reply <- reply{err: errors.New("socket closed")}
	step(t, loop)

	res, ok := f.Result()
	if !ok || !res.Empty {
		t.Fatalf("failed fetch left waiter blocked: %+v, %v", res, ok)
	}
	if !poierrors.IsTransportFailed(res.Err) {
		t.Errorf("Err = %v, want ErrTransportFailed", res.Err)
	}
	if c.Len() != 0 {
		t.Errorf("failed entry kept in cache")
	}

	retry := c.Get(ref)
	if retry == f {
		t.Fatal("retry reused the failed future")
	}
	tr.next(t).reply <- reply{labels: []loader.Label{loader.NewTitled("bob")}}
	step(t, loop)

	label, err := retry.Wait(context.Background())
	if err != nil || *label.Title != "bob" {
		t.Errorf("Wait() = %+v, %v", label, err)
	}
	if m.GetSnapshot().Failures != 1 {
		t.Errorf("Failures = %d, want 1", m.GetSnapshot().Failures)
	}
}

func TestShortResponseIsFailure(t *testing.T) {
	c, tr, loop, _ := newTestCache()
	f := c.Get(entity.Ref{Index: 1, Dim: entity.Point})
	tr.next(t).reply <- reply{labels: nil}
	step(t, loop)

	res, _ := f.Result()
	if !errors.Is(res.Err, poierrors.ErrShortResponse) {
		t.Errorf("Err = %v, want ErrShortResponse", res.Err)
	}
}

func TestResetDiscardsLateResponses(t *testing.T) {
	c, tr, loop, m := newTestCache()
	a := entity.Ref{Index: 1, Dim: entity.Point}
	b := entity.Ref{Index: 2, Dim: entity.Point}

	fa := c.Get(a)
	fb := c.Get(b)
	reqs := []call{tr.next(t), tr.next(t)}

	if n := c.Reset(); n != 2 {
		t.Errorf("Reset() = %d, want 2", n)
	}
	if c.Len() != 0 {
		t.Fatalf("Len() = %d after reset", c.Len())
	}
	for _, f := range []*Future{fa, fb} {
		res, ok := f.Result()
		if !ok || !poierrors.IsReset(res.Err) {
			t.Errorf("orphaned future = %+v, %v; want ErrReset", res, ok)
		}
	}

	for _, r := range reqs {
		r.reply <- reply{labels: []loader.Label{loader.NewTitled("late")}}
	}
	step(t, loop)
	step(t, loop)

	if c.Len() != 0 {
		t.Errorf("late responses repopulated the cache: Len() = %d", c.Len())
	}
	if m.GetSnapshot().StaleDrops != 2 {
		t.Errorf("StaleDrops = %d, want 2", m.GetSnapshot().StaleDrops)
	}

	// 重置后重新查找会发出新请求
	c.Get(a)
	tr.next(t)
}

func TestClose(t *testing.T) {
	c, tr, _, _ := newTestCache()
	f := c.Get(entity.Ref{Index: 5, Dim: entity.Point})
	tr.next(t)

	c.Close()
	if res, _ := f.Result(); !poierrors.IsReset(res.Err) {
		t.Errorf("in-flight future after Close = %+v", res)
	}
	after := c.Get(entity.Ref{Index: 6, Dim: entity.Point})
	if res, ok := after.Result(); !ok || !poierrors.IsClosed(res.Err) {
		t.Errorf("Get after Close = %+v, %v", res, ok)
	}
	tr.none(t)
}

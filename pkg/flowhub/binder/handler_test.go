package binder_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/flowhub/pkg/flowhub/binder"
	"github.com/randalmurphal/flowhub/pkg/flowhub/event"
	"github.com/randalmurphal/flowhub/pkg/flowhub/event/eventtest"
)

func TestFunc_DistinctIdentity(t *testing.T) {
	h1 := binder.Func(nop)
	h2 := binder.Func(nop)

	assert.NotEqual(t, h1.Key(), h2.Key())
	assert.Equal(t, h1.Key(), h1.Key())
}

func TestKeyed_SharedIdentity(t *testing.T) {
	b := binder.New()
	b.Bind(eventtest.NewLoginReq(), binder.Keyed("login", nop))

	assert.True(t, b.Unbind(eventtest.NewLoginReq(), binder.Keyed("login", nop)))
}

func TestKeyed_RejectsUnusableKeys(t *testing.T) {
	type route struct {
		name string
		tags any
	}

	assert.PanicsWithValue(t, "binder: Keyed with nil key", func() { binder.Keyed(nil, nop) })
	assert.Panics(t, func() { binder.Keyed([]string{"a"}, nop) })
	assert.Panics(t, func() { binder.Keyed(map[string]int{}, nop) })
	assert.Panics(t, func() { binder.Keyed(route{name: "r", tags: []int{1}}, nop) })
	assert.NotPanics(t, func() { binder.Keyed(route{name: "r", tags: 1}, nop) })

	b := binder.New()
	b.Bind(eventtest.NewLoginReq(), binder.Keyed(route{name: "r", tags: 1}, nop))
	assert.True(t, b.Unbind(eventtest.NewLoginReq(), binder.Keyed(route{name: "r", tags: 1}, nop)))
}

func TestTyped(t *testing.T) {
	var got string
	h := binder.Typed(func(_ context.Context, e *eventtest.LoginReq) error {
		got = e.Account()
		return nil
	})

	require.NoError(t, h.Handle(context.Background(), eventtest.NewLoginReq().SetAccount("a")))
	assert.Equal(t, "a", got)

	err := h.Handle(context.Background(), eventtest.NewSampleEvent1())
	assert.ErrorIs(t, err, binder.ErrHandlerType)
}

func TestWhen(t *testing.T) {
	calls := 0
	inner := binder.Func(func(context.Context, event.Event) error {
		calls++
		return nil
	})
	h := binder.When(func(e event.Event) bool {
		return e.(*eventtest.SampleEvent1).Foo() > 0
	}, inner)

	assert.Equal(t, inner.Key(), h.Key())

	ctx := context.Background()
	require.NoError(t, h.Handle(ctx, eventtest.NewSampleEvent1()))
	require.NoError(t, h.Handle(ctx, eventtest.NewSampleEvent1().SetFoo(1)))
	assert.Equal(t, 1, calls)

	t.Run("unbinds with inner handler", func(t *testing.T) {
		b := binder.New()
		b.Bind(eventtest.NewSampleEvent1(), h)
		assert.True(t, b.Unbind(eventtest.NewSampleEvent1(), inner))
	})
}

type spawner struct {
	wg sync.WaitGroup
}

func (s *spawner) Spawn(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func TestAsync(t *testing.T) {
	boom := errors.New("boom")
	inner := binder.Func(func(context.Context, event.Event) error { return boom })
	h := binder.Async(inner)
	assert.Equal(t, inner.Key(), h.Key())

	t.Run("inline without spawner", func(t *testing.T) {
		assert.ErrorIs(t, h.Handle(context.Background(), event.New()), boom)
	})

	t.Run("spawned errors are reported", func(t *testing.T) {
		s := &spawner{}
		var mu sync.Mutex
		var reported []error
		ctx := binder.WithSpawner(context.Background(), s)
		ctx = binder.WithReport(ctx, func(_ binder.Handler, _ event.Event, err error) {
			mu.Lock()
			defer mu.Unlock()
			reported = append(reported, err)
		})

		assert.NoError(t, h.Handle(ctx, event.New()))
		s.wg.Wait()

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, reported, 1)
		assert.ErrorIs(t, reported[0], boom)
	})
}

package benchmarks

import (
	"context"
	"fmt"
	"testing"

	"github.com/randalmurphal/flowhub/pkg/flowhub/binder"
	"github.com/randalmurphal/flowhub/pkg/flowhub/event"
	"github.com/randalmurphal/flowhub/pkg/flowhub/event/eventtest"
)

func nop(context.Context, event.Event) error { return nil }

// buildBinder binds n account-specific login templates plus one catch-all.
func buildBinder(n int) binder.Interface {
	b := binder.New()
	for i := 0; i < n; i++ {
		b.Bind(eventtest.NewLoginReq().SetAccount(fmt.Sprintf("user-%d", i)), binder.Keyed(i, nop))
	}
	b.Bind(event.New(), binder.Keyed("any", nop))
	return b
}

func benchmarkChain(b *testing.B, n int) {
	bd := buildBinder(n)
	e := eventtest.NewLoginReq().SetAccount(fmt.Sprintf("user-%d", n/2)).SetPassword("pw")
	chain := make([]binder.Handler, 0, 4)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		chain = chain[:0]
		if got := bd.BuildHandlerChain(e, &chain); got != 2 {
			b.Fatalf("chain length %d", got)
		}
	}
}

// BenchmarkBuildHandlerChain_10 matches against 10 templates.
func BenchmarkBuildHandlerChain_10(b *testing.B) { benchmarkChain(b, 10) }

// BenchmarkBuildHandlerChain_1000 matches against 1000 templates.
func BenchmarkBuildHandlerChain_1000(b *testing.B) { benchmarkChain(b, 1000) }

// BenchmarkBuildHandlerChain_100000 matches against 100000 templates.
func BenchmarkBuildHandlerChain_100000(b *testing.B) { benchmarkChain(b, 100000) }

// BenchmarkBindUnbind measures a bind/unbind cycle on a populated binder.
func BenchmarkBindUnbind(b *testing.B) {
	bd := buildBinder(1000)
	template := eventtest.NewLoginReq().SetAccount("fresh")
	h := binder.Keyed("fresh", nop)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tok := bd.Bind(template, h)
		bd.UnbindToken(tok)
	}
}

// BenchmarkLockingBinder_Parallel builds chains from many goroutines.
func BenchmarkLockingBinder_Parallel(b *testing.B) {
	bd := binder.NewLocking()
	for i := 0; i < 1000; i++ {
		bd.Bind(eventtest.NewLoginReq().SetAccount(fmt.Sprintf("user-%d", i)), binder.Keyed(i, nop))
	}
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		e := eventtest.NewLoginReq().SetAccount("user-7")
		var chain []binder.Handler
		for pb.Next() {
			chain = chain[:0]
			bd.BuildHandlerChain(e, &chain)
		}
	})
}

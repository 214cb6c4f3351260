package benchmarks

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/randalmurphal/flowhub/pkg/flowhub"
	"github.com/randalmurphal/flowhub/pkg/flowhub/binder"
	"github.com/randalmurphal/flowhub/pkg/flowhub/config"
	"github.com/randalmurphal/flowhub/pkg/flowhub/event"
	"github.com/randalmurphal/flowhub/pkg/flowhub/event/eventtest"
)

func benchmarkPost(b *testing.B, flows int) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	settings := config.DefaultSettings()
	settings.HeartbeatInterval = 0
	hub := flowhub.New(flowhub.WithHubLogger(logger), flowhub.WithHubSettings(settings))
	defer hub.Close()

	var wg sync.WaitGroup
	for i := 0; i < flows; i++ {
		f := flowhub.NewQueueFlow(flowhub.WithLogger(logger))
		f.Subscribe(eventtest.NewSampleEvent1(), binder.Func(func(context.Context, event.Event) error {
			wg.Done()
			return nil
		}))
		hub.Attach(f)
	}
	if err := hub.Startup(context.Background()); err != nil {
		b.Fatal(err)
	}

	e := eventtest.NewSampleEvent1().SetFoo(1)
	e.SetChannel("bench")
	for _, f := range hub.Flows()[1:] {
		if err := f.SubscribeTo("bench"); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		wg.Add(flows)
		hub.Post(e)
	}
	wg.Wait()
}

// BenchmarkHub_Post_1 posts to a single flow and waits for dispatch.
func BenchmarkHub_Post_1(b *testing.B) { benchmarkPost(b, 1) }

// BenchmarkHub_Post_10 posts to ten flows.
func BenchmarkHub_Post_10(b *testing.B) { benchmarkPost(b, 10) }

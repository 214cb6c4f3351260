package flowhub

import (
	"context"
	"sync/atomic"

	"github.com/randalmurphal/flowhub/pkg/flowhub/binder"
	"github.com/randalmurphal/flowhub/pkg/flowhub/event"
)

var waitHandles atomic.Int64

// NextWaitHandle returns a process-unique, non-zero wait handle.
func NextWaitHandle() int {
	return int(waitHandles.Add(1))
}

// Await blocks until f dispatches an event matching template, or ctx is
// done. The temporary binding is removed before Await returns.
//
// Await must not run on f's own dispatch goroutine; the awaited event could
// never be dispatched.
func Await(ctx context.Context, f Flow, template event.Event) (event.Event, error) {
	ch := make(chan event.Event, 1)
	tok := f.Subscribe(template, binder.Func(func(_ context.Context, e event.Event) error {
		select {
		case ch <- e:
		default:
		}
		return nil
	}))
	defer f.Unsubscribe(tok)

	select {
	case e := <-ch:
		return e, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Request posts req through f and waits for a response matching
// respTemplate. Both carry a fresh wait handle, so only the reply to this
// request matches. Responders copy it with Reply.
func Request(ctx context.Context, f Flow, req, respTemplate event.Event) (event.Event, error) {
	wh := NextWaitHandle()
	req.SetWaitHandle(wh)
	respTemplate.SetWaitHandle(wh)

	ch := make(chan event.Event, 1)
	tok := f.Subscribe(respTemplate, binder.Func(func(_ context.Context, e event.Event) error {
		select {
		case ch <- e:
		default:
		}
		return nil
	}))
	defer f.Unsubscribe(tok)

	f.Post(req)

	select {
	case e := <-ch:
		return e, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Reply prepares resp as the answer to req: it copies the wait handle and
// channel so that the requester's template matches.
func Reply(req, resp event.Event) {
	if wh := req.WaitHandle(); wh != 0 {
		resp.SetWaitHandle(wh)
	}
	if ch := req.Channel(); ch != "" && resp.Channel() == "" {
		resp.SetChannel(ch)
	}
}

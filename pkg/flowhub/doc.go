/*
Package flowhub provides an in-process event bus with selective,
hierarchy-aware dispatch.

# Overview

Typed events are posted to a Hub, fanned out to Flows, and dispatched to the
handlers whose templates they match. A template is an ordinary event value:
the properties set on it are the constraints, everything left untouched is a
wildcard. Matching follows event inheritance, so a handler bound to a base
event type also sees derived events.

The library is built around:
  - Fingerprints recording which properties of an event were set
  - A per-type filter index that keeps matching sub-linear in bindings
  - Flows with their own ordering guarantees (queue, pool, timer)
  - Channel routing with counted subscriptions
  - OpenTelemetry metrics and tracing, slog logging

# Basic Usage

Create a hub, attach a flow, subscribe a handler and post:

	hub := flowhub.New()
	defer hub.Close()

	flow := flowhub.NewQueueFlow(flowhub.WithName("auth"))
	hub.Attach(flow)

	template := eventtest.NewLoginReq().SetAccount("alice")
	flow.Subscribe(template, binder.Typed(func(ctx context.Context, req *eventtest.LoginReq) error {
	    fmt.Println("login", req.Account())
	    return nil
	}))

	if err := hub.Startup(ctx); err != nil {
	    log.Fatal(err)
	}
	hub.Post(eventtest.NewLoginReq().SetAccount("alice").SetPassword("pw"))

# Dispatch Order

For one event, handlers run sequentially on the dispatching goroutine. The
chain lists handlers bound to the event's own type first, then each base type
up to the root Event. Within a type, templates and their handlers run in the
order they were first bound.

QueueFlow dispatches events in arrival order. PoolFlow dispatches events
concurrently on a Pool. There is no ordering between flows.

# Channels

An event with an empty channel is broadcast to every attached flow. An event
with a channel reaches only flows subscribed to it:

	flow.SubscribeTo("billing")
	e := eventtest.NewSampleEvent1()
	e.SetChannel("billing")
	hub.Post(e)

# Lifecycle

Every flow dispatches FlowStart when it starts and FlowStop when it stops.
Cases attached with WithCases are set up on FlowStart and torn down on
FlowStop, each at most once:

	flow := flowhub.NewQueueFlow(flowhub.WithCases(&flowhub.SinkCase{
	    Bind: func(ctx context.Context, s *flowhub.Sink) error {
	        s.Subscribe(eventtest.NewLoginReq(), binder.Func(handleLogin))
	        return nil
	    },
	}))

# Error Handling

Handler errors and panics become a *HandlerError passed to the flow's
ErrorHandler. The default, FatalErrorHandler, logs and panics. Use
LogErrorHandler to keep going, or DeadLetterHandler to record failures in a
journal.Store:

	store, _ := journal.NewSQLiteStore("deadletters.db")
	flow := flowhub.NewQueueFlow(flowhub.WithErrorHandler(
	    flowhub.DeadLetterHandler(store, logger, flowhub.LogErrorHandler(logger)),
	))

# Timers

The hub's TimeFlow fires events after a delay or on an interval, and carries
the heartbeat:

	tok := hub.TimeFlow().ReserveTimeout("login", 1, 30*time.Second)
	hub.TimeFlow().Cancel(tok)
*/
package flowhub

package binder

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/randalmurphal/flowhub/pkg/flowhub/event"
)

// ErrHandlerType is returned by a typed handler that receives an event of an
// unexpected type.
var ErrHandlerType = errors.New("handler received unexpected event type")

// Handler processes a dispatched event.
//
// Key identifies the handler inside a binder. Two handlers with equal keys are
// the same binding; keys must be comparable.
type Handler interface {
	Handle(ctx context.Context, e event.Event) error
	Key() any
}

// HandlerFunc is the callback signature wrapped by Func.
type HandlerFunc func(ctx context.Context, e event.Event) error

type funcHandler struct {
	fn HandlerFunc
}

// Func wraps fn in a Handler. Each call returns a distinct identity, so the
// returned value must be kept to unbind it later.
func Func(fn HandlerFunc) Handler {
	return &funcHandler{fn: fn}
}

func (h *funcHandler) Handle(ctx context.Context, e event.Event) error {
	return h.fn(ctx, e)
}

func (h *funcHandler) Key() any {
	return h
}

type keyedHandler struct {
	key any
	fn  HandlerFunc
}

// Keyed wraps fn with an explicit identity. Handlers built with equal keys are
// interchangeable for Bind and Unbind. It panics when key is nil or not
// comparable.
func Keyed(key any, fn HandlerFunc) Handler {
	if key == nil {
		panic("binder: Keyed with nil key")
	}
	if !reflect.ValueOf(key).Comparable() {
		panic(fmt.Sprintf("binder: Keyed key of type %T is not comparable", key))
	}
	return &keyedHandler{key: key, fn: fn}
}

func (h *keyedHandler) Handle(ctx context.Context, e event.Event) error {
	return h.fn(ctx, e)
}

func (h *keyedHandler) Key() any {
	return h.key
}

type typedHandler[E event.Event] struct {
	fn func(ctx context.Context, e E) error
}

// Typed wraps a callback taking a concrete event type.
//
//	binder.Typed(func(ctx context.Context, req *LoginReq) error { ... })
func Typed[E event.Event](fn func(ctx context.Context, e E) error) Handler {
	return &typedHandler[E]{fn: fn}
}

func (h *typedHandler[E]) Handle(ctx context.Context, e event.Event) error {
	typed, ok := e.(E)
	if !ok {
		var want E
		return fmt.Errorf("%w: want %T, got %T", ErrHandlerType, want, e)
	}
	return h.fn(ctx, typed)
}

func (h *typedHandler[E]) Key() any {
	return h
}

type predicateHandler struct {
	pred  func(event.Event) bool
	inner Handler
}

// When runs h only for events accepted by pred. The result has h's identity.
func When(pred func(event.Event) bool, h Handler) Handler {
	return &predicateHandler{pred: pred, inner: h}
}

func (h *predicateHandler) Handle(ctx context.Context, e event.Event) error {
	if !h.pred(e) {
		return nil
	}
	return h.inner.Handle(ctx, e)
}

func (h *predicateHandler) Key() any {
	return h.inner.Key()
}

// Spawner runs fn outside the dispatching goroutine.
type Spawner interface {
	Spawn(fn func())
}

type spawnerKey struct{}

// WithSpawner attaches s to ctx for handlers built by Async.
func WithSpawner(ctx context.Context, s Spawner) context.Context {
	return context.WithValue(ctx, spawnerKey{}, s)
}

// SpawnerFrom returns the spawner attached to ctx, if any.
func SpawnerFrom(ctx context.Context) (Spawner, bool) {
	s, ok := ctx.Value(spawnerKey{}).(Spawner)
	return s, ok
}

type asyncHandler struct {
	inner Handler
}

// Async runs h through the Spawner found in the dispatch context, so a long
// running handler does not hold up the rest of the chain. Without a spawner h
// runs inline. Errors from a spawned run are reported through ReportFunc when
// the context carries one. The result has h's identity.
func Async(h Handler) Handler {
	return &asyncHandler{inner: h}
}

func (h *asyncHandler) Handle(ctx context.Context, e event.Event) error {
	s, ok := SpawnerFrom(ctx)
	if !ok {
		return h.inner.Handle(ctx, e)
	}
	report, _ := ctx.Value(reportKey{}).(ReportFunc)
	s.Spawn(func() {
		if err := h.inner.Handle(ctx, e); err != nil && report != nil {
			report(h.inner, e, err)
		}
	})
	return nil
}

func (h *asyncHandler) Key() any {
	return h.inner.Key()
}

// ReportFunc receives errors from handlers that finish after dispatch returned.
type ReportFunc func(h Handler, e event.Event, err error)

type reportKey struct{}

// WithReport attaches fn to ctx for handlers built by Async.
func WithReport(ctx context.Context, fn ReportFunc) context.Context {
	return context.WithValue(ctx, reportKey{}, fn)
}

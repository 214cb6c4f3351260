package binder

import (
	"fmt"
	"sync"

	"github.com/randalmurphal/flowhub/pkg/flowhub/event"
	"github.com/randalmurphal/flowhub/pkg/flowhub/fingerprint"
)

// Interface is implemented by Binder and LockingBinder.
type Interface interface {
	Bind(template event.Event, h Handler) Token
	Unbind(template event.Event, h Handler) bool
	UnbindToken(tok Token) bool
	BuildHandlerChain(e event.Event, chain *[]Handler) int
	Len() int
}

// Token identifies one binding. The zero Token binds nothing.
type Token struct {
	key      templateKey
	template event.Event
	handler  Handler
}

// Template returns the bound template.
func (t Token) Template() event.Event {
	return t.template
}

// Handler returns the bound handler.
func (t Token) Handler() Handler {
	return t.handler
}

// IsZero reports whether t is the zero Token.
func (t Token) IsZero() bool {
	return t.handler == nil
}

type handlerSet struct {
	template event.Event
	fp       *fingerprint.Fingerprint
	handlers []Handler
}

func (s *handlerSet) index(key any) int {
	for i, h := range s.handlers {
		if h.Key() == key {
			return i
		}
	}
	return -1
}

// Binder maps templates to handler sets. The zero value is not usable; call
// New.
type Binder struct {
	sets   map[templateKey]*handlerSet
	filter *Filter
	count  int
}

// New creates an empty Binder.
func New() *Binder {
	return &Binder{
		sets:   make(map[templateKey]*handlerSet),
		filter: NewFilter(),
	}
}

// Bind adds h to the handler set of template. Binding the same pair twice is a
// no-op; both calls return equal tokens. It panics if h is nil or a touched
// property of template cannot be encoded.
func (b *Binder) Bind(template event.Event, h Handler) Token {
	if h == nil {
		panic("binder: nil handler")
	}
	key, err := templateKeyOf(template)
	if err != nil {
		panic(fmt.Sprintf("binder: template %s: %v", event.Describe(template), err))
	}
	tok := Token{key: key, template: template, handler: h}

	set, ok := b.sets[key]
	if !ok {
		set = &handlerSet{template: template, fp: template.Fingerprint().Clone()}
		b.sets[key] = set
		b.filter.Add(key.typeID, set.fp)
	}
	if set.index(h.Key()) >= 0 {
		return tok
	}
	set.handlers = append(set.handlers, h)
	b.count++
	return tok
}

// Unbind removes h from the handler set of template. It reports whether a
// binding was removed.
func (b *Binder) Unbind(template event.Event, h Handler) bool {
	if h == nil {
		return false
	}
	key, err := templateKeyOf(template)
	if err != nil {
		return false
	}
	return b.unbind(key, h)
}

// UnbindToken removes the binding tok was returned for. It is idempotent.
func (b *Binder) UnbindToken(tok Token) bool {
	if tok.IsZero() {
		return false
	}
	return b.unbind(tok.key, tok.handler)
}

func (b *Binder) unbind(key templateKey, h Handler) bool {
	set, ok := b.sets[key]
	if !ok {
		return false
	}
	i := set.index(h.Key())
	if i < 0 {
		return false
	}
	set.handlers = append(set.handlers[:i], set.handlers[i+1:]...)
	b.count--
	if len(set.handlers) == 0 {
		delete(b.sets, key)
		b.filter.Remove(key.typeID, set.fp)
	}
	return true
}

// BuildHandlerChain appends the handlers matching e to chain, ordered from e's
// most derived type toward the root, and returns how many were appended.
func (b *Binder) BuildHandlerChain(e event.Event, chain *[]Handler) int {
	var buf [8]*Slot
	n := 0
	fp := e.Fingerprint()
	for tag := e.EventTag(); tag != nil; tag = tag.BaseTag() {
		slots := b.filter.Match(tag.TypeID, fp, buf[:0])
		for _, s := range slots {
			key, err := keyOf(tag.TypeID, s.fp, s.key, e)
			if err != nil {
				continue
			}
			set, ok := b.sets[key]
			if !ok {
				continue
			}
			*chain = append(*chain, set.handlers...)
			n += len(set.handlers)
		}
	}
	return n
}

// Len returns the number of bindings.
func (b *Binder) Len() int {
	return b.count
}

// Templates returns the number of distinct templates.
func (b *Binder) Templates() int {
	return len(b.sets)
}

// Filter returns the binder's filter index. Callers must not modify it.
func (b *Binder) Filter() *Filter {
	return b.filter
}

// LockingBinder is a Binder safe for concurrent use.
type LockingBinder struct {
	mu sync.RWMutex
	b  *Binder
}

// NewLocking creates an empty LockingBinder.
func NewLocking() *LockingBinder {
	return &LockingBinder{b: New()}
}

// Bind is Binder.Bind under an exclusive lock.
func (l *LockingBinder) Bind(template event.Event, h Handler) Token {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Bind(template, h)
}

// Unbind is Binder.Unbind under an exclusive lock.
func (l *LockingBinder) Unbind(template event.Event, h Handler) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Unbind(template, h)
}

// UnbindToken is Binder.UnbindToken under an exclusive lock.
func (l *LockingBinder) UnbindToken(tok Token) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.UnbindToken(tok)
}

// BuildHandlerChain is Binder.BuildHandlerChain under a shared lock.
func (l *LockingBinder) BuildHandlerChain(e event.Event, chain *[]Handler) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.b.BuildHandlerChain(e, chain)
}

// Len returns the number of bindings.
func (l *LockingBinder) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.b.Len()
}

var (
	_ Interface = (*Binder)(nil)
	_ Interface = (*LockingBinder)(nil)
)

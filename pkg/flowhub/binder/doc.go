// Package binder matches events against template events and builds the
// ordered handler chain for each dispatch.
//
// # Templates
//
// A handler is bound to a template: an event instance whose touched properties
// constrain which events it matches. A blank SampleEvent1 matches every
// SampleEvent1 and every subtype; a SampleEvent1 with Foo set to 1 matches
// only instances whose Foo is 1.
//
//	b := binder.New()
//	b.Bind(eventtest.NewSampleEvent1(), onAny)
//	b.Bind(eventtest.NewSampleEvent1().SetFoo(1), onFoo1)
//
//	var chain []binder.Handler
//	n := b.BuildHandlerChain(e, &chain)
//
// # Filter
//
// Templates are indexed by type id. For each type id the Filter keeps the
// distinct fingerprints of its templates, sorted and reference counted. Chain
// building walks the event's tag chain from the most derived type to the root,
// asks the Filter for the fingerprints equivalent to the event's, and looks up
// the template formed by the event's own values under each fingerprint. Cost is
// proportional to the number of distinct fingerprints per type, not to the
// number of templates.
//
// # Ordering
//
// Chains are ordered derived to root. Within one type id, handler sets appear
// in the order their fingerprint was first bound, and each set in binding
// order.
//
// # Thread Safety
//
// Binder is not safe for concurrent use. LockingBinder guards Bind and Unbind
// with an exclusive lock and BuildHandlerChain with a shared lock.
package binder

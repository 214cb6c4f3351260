// Package event provides the event type hierarchy dispatched by flowhub.
//
// # Overview
//
// An Event is a cell (see package cell) whose tag also carries an integer type
// identifier. Type ids are unique per concrete event type; 0 is the root Event
// and negative ids are reserved for the built-in events of this package:
//
//   - HeartbeatEvent (-1): posted periodically by the hub's time flow
//   - FlowStart (-2) and FlowStop (-3): posted by a flow to itself
//   - TimeoutEvent (-4): reserved through a time flow
//
// # Defining Events
//
// Event types embed their base type's struct and declare one Tag each, built
// once at package initialization:
//
//	type LoginReq struct {
//	    event.Base
//	    account, password string
//	}
//
//	var loginReqTag = event.NewTag(event.RootTag, reflect.TypeFor[LoginReq](), 2, 100)
//
//	func NewLoginReq() *LoginReq {
//	    e := &LoginReq{}
//	    e.Init(loginReqTag)
//	    return e
//	}
//
// Setters touch the property's fingerprint bit so that only explicitly assigned
// properties constrain matching and encoding. Prop must be implemented by every
// level and delegate indices below its tag's Offset to the embedded base.
//
// # Transport Metadata
//
// The root Event declares two properties, Handle (index 0) and WaitHandle
// (index 1), that take part in matching. Channel and the transform flag are
// routing metadata and never take part in equality.
//
// # Registry
//
// Registry maps type ids to schemas carrying a factory. Decoders use it to
// instantiate an event from its type id:
//
//	event.MustRegister(&event.Schema{Tag: loginReqTag, New: func() event.Event { return NewLoginReq() }})
package event

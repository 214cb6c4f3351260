package event

import "reflect"

// Built-in type ids. Application types use positive ids.
const (
	TypeEvent     = 0
	TypeHeartbeat = -1
	TypeFlowStart = -2
	TypeFlowStop  = -3
	TypeTimeout   = -4
)

var (
	heartbeatTag = NewTag(RootTag, reflect.TypeFor[HeartbeatEvent](), 0, TypeHeartbeat)
	flowStartTag = NewTag(RootTag, reflect.TypeFor[FlowStart](), 0, TypeFlowStart)
	flowStopTag  = NewTag(RootTag, reflect.TypeFor[FlowStop](), 0, TypeFlowStop)
	timeoutTag   = NewTag(RootTag, reflect.TypeFor[TimeoutEvent](), 2, TypeTimeout)
)

// HeartbeatEvent is posted periodically by the hub.
type HeartbeatEvent struct {
	Base
}

// NewHeartbeatEvent creates a heartbeat. Heartbeats are never transformed.
func NewHeartbeatEvent() *HeartbeatEvent {
	e := &HeartbeatEvent{}
	e.Init(heartbeatTag)
	e.SetTransform(false)
	return e
}

// FlowStart is dispatched by a flow to itself when it starts.
type FlowStart struct {
	Base
}

// NewFlowStart creates a FlowStart event.
func NewFlowStart() *FlowStart {
	e := &FlowStart{}
	e.Init(flowStartTag)
	return e
}

// FlowStop is dispatched by a flow to itself when it stops.
type FlowStop struct {
	Base
}

// NewFlowStop creates a FlowStop event.
func NewFlowStop() *FlowStop {
	e := &FlowStop{}
	e.Init(flowStopTag)
	return e
}

// TimeoutEvent is reserved through a time flow and fires once its delay
// elapses.
type TimeoutEvent struct {
	Base

	key      string
	intParam int
}

// NewTimeoutEvent creates a blank TimeoutEvent.
func NewTimeoutEvent() *TimeoutEvent {
	e := &TimeoutEvent{}
	e.Init(timeoutTag)
	return e
}

// Key identifies what timed out.
func (e *TimeoutEvent) Key() string {
	return e.key
}

// SetKey sets the key.
func (e *TimeoutEvent) SetKey(key string) *TimeoutEvent {
	e.Touch(timeoutTag.Offset + 0)
	e.key = key
	return e
}

// IntParam is an optional integer parameter.
func (e *TimeoutEvent) IntParam() int {
	return e.intParam
}

// SetIntParam sets the integer parameter.
func (e *TimeoutEvent) SetIntParam(v int) *TimeoutEvent {
	e.Touch(timeoutTag.Offset + 1)
	e.intParam = v
	return e
}

// Prop implements cell.Cell.
func (e *TimeoutEvent) Prop(i int) any {
	switch i - timeoutTag.Offset {
	case 0:
		return e.key
	case 1:
		return e.intParam
	}
	return e.Base.Prop(i)
}

func init() {
	MustRegister(&Schema{Tag: RootTag, Description: "root event", New: func() Event { return New() }})
	MustRegister(&Schema{Tag: heartbeatTag, Description: "periodic heartbeat", New: func() Event { return NewHeartbeatEvent() }})
	MustRegister(&Schema{Tag: flowStartTag, Description: "flow started", New: func() Event { return NewFlowStart() }})
	MustRegister(&Schema{Tag: flowStopTag, Description: "flow stopping", New: func() Event { return NewFlowStop() }})
	MustRegister(&Schema{Tag: timeoutTag, Description: "reserved timeout", New: func() Event { return NewTimeoutEvent() }})
}

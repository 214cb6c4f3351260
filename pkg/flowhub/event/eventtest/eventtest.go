// Package eventtest provides sample event types for tests.
package eventtest

import (
	"reflect"

	"github.com/randalmurphal/flowhub/pkg/flowhub/event"
)

// Type ids of the sample events.
const (
	TypeSampleEvent1 = 1
	TypeSampleEvent2 = 2
	TypeLoginReq     = 3
	TypeLoginResp    = 4
)

// Tags of the sample events. SampleEvent2Tag derives from SampleEvent1Tag.
var (
	SampleEvent1Tag = event.NewTag(event.RootTag, reflect.TypeFor[SampleEvent1](), 2, TypeSampleEvent1)
	SampleEvent2Tag = event.NewTag(SampleEvent1Tag, reflect.TypeFor[SampleEvent2](), 1, TypeSampleEvent2)
	LoginReqTag     = event.NewTag(event.RootTag, reflect.TypeFor[LoginReq](), 2, TypeLoginReq)
	LoginRespTag    = event.NewTag(event.RootTag, reflect.TypeFor[LoginResp](), 2, TypeLoginResp)
)

// SampleEvent1 has an int and a string property.
type SampleEvent1 struct {
	event.Base

	foo int
	bar string
}

// NewSampleEvent1 creates a blank SampleEvent1.
func NewSampleEvent1() *SampleEvent1 {
	e := &SampleEvent1{}
	e.Init(SampleEvent1Tag)
	return e
}

// Foo returns the int property.
func (e *SampleEvent1) Foo() int { return e.foo }

// Bar returns the string property.
func (e *SampleEvent1) Bar() string { return e.bar }

// SetFoo sets and touches the int property.
func (e *SampleEvent1) SetFoo(v int) *SampleEvent1 {
	e.Touch(SampleEvent1Tag.Offset + 0)
	e.foo = v
	return e
}

// SetBar sets and touches the string property.
func (e *SampleEvent1) SetBar(v string) *SampleEvent1 {
	e.Touch(SampleEvent1Tag.Offset + 1)
	e.bar = v
	return e
}

// Prop returns property i, falling back to the base properties.
func (e *SampleEvent1) Prop(i int) any {
	switch i - SampleEvent1Tag.Offset {
	case 0:
		return e.foo
	case 1:
		return e.bar
	}
	return e.Base.Prop(i)
}

// SampleEvent2 derives from SampleEvent1 and adds a bool property.
type SampleEvent2 struct {
	SampleEvent1

	baz bool
}

// NewSampleEvent2 creates a blank SampleEvent2.
func NewSampleEvent2() *SampleEvent2 {
	e := &SampleEvent2{}
	e.Init(SampleEvent2Tag)
	return e
}

// Baz returns the bool property.
func (e *SampleEvent2) Baz() bool { return e.baz }

// SetBaz sets and touches the bool property.
func (e *SampleEvent2) SetBaz(v bool) *SampleEvent2 {
	e.Touch(SampleEvent2Tag.Offset + 0)
	e.baz = v
	return e
}

// Prop returns property i, falling back to the SampleEvent1 properties.
func (e *SampleEvent2) Prop(i int) any {
	if i-SampleEvent2Tag.Offset == 0 {
		return e.baz
	}
	return e.SampleEvent1.Prop(i)
}

// LoginReq carries credentials.
type LoginReq struct {
	event.Base

	account  string
	password string
}

// NewLoginReq creates a blank LoginReq.
func NewLoginReq() *LoginReq {
	e := &LoginReq{}
	e.Init(LoginReqTag)
	return e
}

// Account returns the account name.
func (e *LoginReq) Account() string { return e.account }

// Password returns the password.
func (e *LoginReq) Password() string { return e.password }

// SetAccount sets and touches the account name.
func (e *LoginReq) SetAccount(v string) *LoginReq {
	e.Touch(LoginReqTag.Offset + 0)
	e.account = v
	return e
}

// SetPassword sets and touches the password.
func (e *LoginReq) SetPassword(v string) *LoginReq {
	e.Touch(LoginReqTag.Offset + 1)
	e.password = v
	return e
}

// Prop returns property i, falling back to the base properties.
func (e *LoginReq) Prop(i int) any {
	switch i - LoginReqTag.Offset {
	case 0:
		return e.account
	case 1:
		return e.password
	}
	return e.Base.Prop(i)
}

// LoginResp answers a LoginReq.
type LoginResp struct {
	event.Base

	account string
	ok      bool
}

// NewLoginResp creates a blank LoginResp.
func NewLoginResp() *LoginResp {
	e := &LoginResp{}
	e.Init(LoginRespTag)
	return e
}

// Account returns the account the response is for.
func (e *LoginResp) Account() string { return e.account }

// OK reports whether the login succeeded.
func (e *LoginResp) OK() bool { return e.ok }

// SetAccount sets and touches the account name.
func (e *LoginResp) SetAccount(v string) *LoginResp {
	e.Touch(LoginRespTag.Offset + 0)
	e.account = v
	return e
}

// SetOK sets and touches the success flag.
func (e *LoginResp) SetOK(v bool) *LoginResp {
	e.Touch(LoginRespTag.Offset + 1)
	e.ok = v
	return e
}

// Prop returns property i, falling back to the base properties.
func (e *LoginResp) Prop(i int) any {
	switch i - LoginRespTag.Offset {
	case 0:
		return e.account
	case 1:
		return e.ok
	}
	return e.Base.Prop(i)
}

func init() {
	event.MustRegister(&event.Schema{Tag: SampleEvent1Tag, New: func() event.Event { return NewSampleEvent1() }})
	event.MustRegister(&event.Schema{Tag: SampleEvent2Tag, New: func() event.Event { return NewSampleEvent2() }})
	event.MustRegister(&event.Schema{Tag: LoginReqTag, New: func() event.Event { return NewLoginReq() }})
	event.MustRegister(&event.Schema{Tag: LoginRespTag, New: func() event.Event { return NewLoginResp() }})
}

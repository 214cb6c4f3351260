// Package codec writes CBOR snapshots of events for journals and
// diagnostics.
//
// A snapshot carries only what the event's fingerprint marks as touched, the
// same subset a wire encoder would transmit:
//
//	data, err := codec.Marshal(e)
//	...
//	snap, err := codec.Unmarshal(data)
//	fmt.Println(snap) // LoginReq{2:alice}
//
// Snapshots use integer map keys and core deterministic encoding, so equal
// events produce identical bytes.
package codec

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/randalmurphal/flowhub/pkg/flowhub/cell"
	"github.com/randalmurphal/flowhub/pkg/flowhub/event"
	"github.com/randalmurphal/flowhub/pkg/flowhub/fingerprint"
)

// Version is the snapshot format version.
const Version = 1

const (
	keyVersion  = 0
	keyTypeID   = 1
	keyTypeName = 2
	keyLength   = 3
	keyMask     = 4
	keyChannel  = 5
	keyProps    = 6
)

var (
	// ErrVersion is returned for a snapshot of an unknown format version.
	ErrVersion = errors.New("unsupported snapshot version")

	// ErrMalformed is returned for a snapshot missing a required field.
	ErrMalformed = errors.New("malformed snapshot")
)

var encMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

// Marshal encodes the touched properties of e.
func Marshal(e event.Event) ([]byte, error) {
	m := map[int]any{
		keyVersion: uint8(Version),
		keyTypeID:  e.TypeID(),
	}
	for k, v := range cellMap(e) {
		m[k] = v
	}
	if ch := e.Channel(); ch != "" {
		m[keyChannel] = ch
	}
	data, err := encMode.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.EventTag(), err)
	}
	return data, nil
}

// cellMap returns the name, mask and touched properties of c.
func cellMap(c cell.Cell) map[int]any {
	fp := c.Fingerprint()
	props := make(map[int]any, fp.Count())
	for i := range fp.Touched() {
		props[i] = propValue(c.Prop(i))
	}
	return map[int]any{
		keyTypeName: c.CellTag().Name,
		keyLength:   fp.Len(),
		keyMask:     fp.Dump(),
		keyProps:    props,
	}
}

func propValue(v any) any {
	c, ok := v.(cell.Cell)
	if !ok {
		return v
	}
	if cell.IsNil(c) {
		return nil
	}
	return cellMap(c)
}

// Snapshot is a decoded event snapshot.
type Snapshot struct {
	TypeID      int
	TypeName    string
	Channel     string
	Fingerprint *fingerprint.Fingerprint

	// Props holds touched properties by index. Nested cells decode as
	// *Snapshot with a zero TypeID.
	Props map[int]any
}

// Unmarshal decodes a snapshot written by Marshal.
func Unmarshal(data []byte) (*Snapshot, error) {
	var m map[int]any
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	ver, ok := m[keyVersion].(uint64)
	if !ok {
		return nil, fmt.Errorf("%w: missing version", ErrMalformed)
	}
	if ver != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, ver)
	}

	typeID, err := intValue(m[keyTypeID])
	if err != nil {
		return nil, fmt.Errorf("%w: type id: %v", ErrMalformed, err)
	}

	snap, err := snapshotFrom(m)
	if err != nil {
		return nil, err
	}
	snap.TypeID = typeID
	snap.Channel, _ = m[keyChannel].(string)
	return snap, nil
}

func snapshotFrom(m map[int]any) (*Snapshot, error) {
	name, _ := m[keyTypeName].(string)
	length, err := intValue(m[keyLength])
	if err != nil || length < 0 {
		return nil, fmt.Errorf("%w: length %v: %v", ErrMalformed, m[keyLength], err)
	}
	mask, _ := m[keyMask].([]byte)

	fp := fingerprint.New(length)
	if err := fp.Load(mask); err != nil {
		return nil, fmt.Errorf("%w: mask: %v", ErrMalformed, err)
	}

	snap := &Snapshot{TypeName: name, Fingerprint: fp, Props: make(map[int]any)}
	raw, _ := m[keyProps].(map[any]any)
	for k, v := range raw {
		i, err := intValue(k)
		if err != nil {
			return nil, fmt.Errorf("%w: property key: %v", ErrMalformed, err)
		}
		if nested, ok := v.(map[any]any); ok && isCellMap(nested) {
			sub, err := snapshotFrom(intKeys(nested))
			if err != nil {
				return nil, err
			}
			v = sub
		}
		snap.Props[i] = v
	}
	return snap, nil
}

func isCellMap(m map[any]any) bool {
	_, hasLength := m[uint64(keyLength)]
	_, hasMask := m[uint64(keyMask)].([]byte)
	return hasLength && hasMask
}

func intKeys(m map[any]any) map[int]any {
	out := make(map[int]any, len(m))
	for k, v := range m {
		if i, err := intValue(k); err == nil {
			out[i] = v
		}
	}
	return out
}

func intValue(v any) (int, error) {
	switch n := v.(type) {
	case uint64:
		return int(n), nil
	case int64:
		return int(n), nil
	}
	return 0, fmt.Errorf("want integer, got %T", v)
}

// String renders the snapshot like event.Describe.
func (s *Snapshot) String() string {
	idx := make([]int, 0, len(s.Props))
	for i := range s.Props {
		idx = append(idx, i)
	}
	sort.Ints(idx)

	var sb strings.Builder
	sb.WriteString(s.TypeName)
	sb.WriteByte('{')
	for n, i := range idx {
		if n > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%d:%v", i, s.Props[i])
	}
	sb.WriteByte('}')
	return sb.String()
}

package binder

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/randalmurphal/flowhub/pkg/flowhub/cell"
	"github.com/randalmurphal/flowhub/pkg/flowhub/event"
	"github.com/randalmurphal/flowhub/pkg/flowhub/fingerprint"
)

// Key encoding errors.
var (
	// errUnmatchable marks a value that is not equal to itself, such as NaN
	// or a non-nil func. No event can match a template holding one.
	errUnmatchable = errors.New("value never equals itself")

	// errTooDeep marks a value nested past maxKeyDepth, usually a cycle.
	errTooDeep = errors.New("value nested too deeply")
)

const maxKeyDepth = 64

// templateKey identifies a template by type id, touched mask and the encoded
// values of its touched properties. Two templates get equal keys exactly
// when their touched properties are equal under cell.PropEqual.
type templateKey struct {
	typeID int
	mask   string
	values string
}

type keyEncoder struct {
	buf bytes.Buffer
	enc *msgpack.Encoder
}

var encoders = sync.Pool{
	New: func() any {
		ke := &keyEncoder{}
		ke.enc = msgpack.NewEncoder(&ke.buf)
		return ke
	},
}

func getEncoder() *keyEncoder {
	ke := encoders.Get().(*keyEncoder)
	ke.buf.Reset()
	return ke
}

// typeIDs numbers dynamic types so that values of distinct types never share
// an encoding, as reflect.DeepEqual requires.
var (
	typeIDs    sync.Map
	nextTypeID atomic.Uint64
)

func typeNumber(t reflect.Type) uint64 {
	if n, ok := typeIDs.Load(t); ok {
		return n.(uint64)
	}
	n, _ := typeIDs.LoadOrStore(t, nextTypeID.Add(1))
	return n.(uint64)
}

// keyOf builds the key of the template formed by c's values under mask, with
// typeID as the matching type.
func keyOf(typeID int, mask *fingerprint.Fingerprint, maskKey string, c cell.Cell) (templateKey, error) {
	ke := getEncoder()
	defer encoders.Put(ke)

	for i := range mask.Touched() {
		if err := ke.encodeProp(c.Prop(i), 0); err != nil {
			return templateKey{}, fmt.Errorf("property %d: %w", i, err)
		}
	}
	return templateKey{typeID: typeID, mask: maskKey, values: ke.buf.String()}, nil
}

// templateKeyOf builds the key a template is stored under.
func templateKeyOf(e event.Event) (templateKey, error) {
	fp := e.Fingerprint()
	return keyOf(e.TypeID(), fp, fp.Key(), e)
}

// encodeProp writes a property value. Nested cells follow cell.Equal: same
// tag, same mask, every property equal. Anything else follows
// reflect.DeepEqual.
func (ke *keyEncoder) encodeProp(v any, depth int) error {
	if c, ok := v.(cell.Cell); ok {
		return ke.encodeCell(c, depth)
	}
	return ke.encodeDynamic(reflect.ValueOf(v), depth)
}

func (ke *keyEncoder) encodeCell(c cell.Cell, depth int) error {
	if depth > maxKeyDepth {
		return errTooDeep
	}
	if cell.IsNil(c) {
		return ke.enc.EncodeNil()
	}
	if err := ke.enc.EncodeUint(uint64(reflect.ValueOf(c.CellTag()).Pointer())); err != nil {
		return err
	}
	fp := c.Fingerprint()
	if err := ke.enc.EncodeBytes(fp.Dump()); err != nil {
		return err
	}
	for i := 0; i < fp.Len(); i++ {
		if err := ke.encodeProp(c.Prop(i), depth+1); err != nil {
			return err
		}
	}
	return nil
}

// encodeDynamic writes the dynamic type of v followed by its value.
func (ke *keyEncoder) encodeDynamic(v reflect.Value, depth int) error {
	if !v.IsValid() {
		return ke.enc.EncodeNil()
	}
	if err := ke.enc.EncodeUint(typeNumber(v.Type())); err != nil {
		return err
	}
	return ke.encodeValue(v, depth)
}

// encodeValue walks v, unexported fields included. It never calls
// Interface, so values behind unexported fields are readable.
func (ke *keyEncoder) encodeValue(v reflect.Value, depth int) error {
	if depth > maxKeyDepth {
		return errTooDeep
	}
	e := ke.enc
	switch v.Kind() {
	case reflect.Bool:
		return e.EncodeBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return e.EncodeInt(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return e.EncodeUint(v.Uint())
	case reflect.Float32, reflect.Float64:
		return encodeFloat(e, v.Float())
	case reflect.Complex64, reflect.Complex128:
		c := v.Complex()
		if err := encodeFloat(e, real(c)); err != nil {
			return err
		}
		return encodeFloat(e, imag(c))
	case reflect.String:
		return e.EncodeString(v.String())
	case reflect.Array:
		return ke.encodeElems(v, depth)
	case reflect.Slice:
		if v.IsNil() {
			return e.EncodeNil()
		}
		return ke.encodeElems(v, depth)
	case reflect.Struct:
		if err := e.EncodeArrayLen(v.NumField()); err != nil {
			return err
		}
		for i := 0; i < v.NumField(); i++ {
			if err := ke.encodeValue(v.Field(i), depth+1); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		return ke.encodeMap(v, depth)
	case reflect.Pointer:
		if v.IsNil() {
			return e.EncodeNil()
		}
		return ke.encodeValue(v.Elem(), depth+1)
	case reflect.Interface:
		if v.IsNil() {
			return e.EncodeNil()
		}
		return ke.encodeDynamic(v.Elem(), depth+1)
	case reflect.Chan, reflect.UnsafePointer:
		return e.EncodeUint(uint64(v.Pointer()))
	case reflect.Func:
		if v.IsNil() {
			return e.EncodeNil()
		}
		return errUnmatchable
	default:
		return fmt.Errorf("unsupported kind %s", v.Kind())
	}
}

func encodeFloat(e *msgpack.Encoder, f float64) error {
	if math.IsNaN(f) {
		return errUnmatchable
	}
	if f == 0 {
		f = 0 // folds -0 into +0
	}
	return e.EncodeFloat64(f)
}

func (ke *keyEncoder) encodeElems(v reflect.Value, depth int) error {
	if err := ke.enc.EncodeArrayLen(v.Len()); err != nil {
		return err
	}
	for i := 0; i < v.Len(); i++ {
		if err := ke.encodeValue(v.Index(i), depth+1); err != nil {
			return err
		}
	}
	return nil
}

// encodeMap writes entries sorted by their encoded key.
func (ke *keyEncoder) encodeMap(v reflect.Value, depth int) error {
	if v.IsNil() {
		return ke.enc.EncodeNil()
	}
	type entry struct{ k, v []byte }
	entries := make([]entry, 0, v.Len())
	sub := getEncoder()
	defer encoders.Put(sub)

	iter := v.MapRange()
	for iter.Next() {
		sub.buf.Reset()
		if err := sub.encodeValue(iter.Key(), depth+1); err != nil {
			return err
		}
		k := bytes.Clone(sub.buf.Bytes())
		sub.buf.Reset()
		if err := sub.encodeValue(iter.Value(), depth+1); err != nil {
			return err
		}
		entries = append(entries, entry{k: k, v: bytes.Clone(sub.buf.Bytes())})
	}
	slices.SortFunc(entries, func(a, b entry) int { return bytes.Compare(a.k, b.k) })

	if err := ke.enc.EncodeMapLen(len(entries)); err != nil {
		return err
	}
	for _, en := range entries {
		ke.buf.Write(en.k)
		ke.buf.Write(en.v)
	}
	return nil
}

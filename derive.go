package stepwire

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"

	"github.com/rawbytedev/stepwire/internal/common"
)

// TagName is the struct tag consulted by Derive. `stepwire:"-"` skips a
// field.
const TagName = "stepwire"

var derived = struct {
	mu     sync.RWMutex
	codecs map[reflect.Type]any
}{codecs: make(map[reflect.Type]any)}

// fieldPlan describes one exported field of a derived struct.
type fieldPlan struct {
	kind   reflect.Kind
	elem   reflect.Kind // element kind for slices
	offset uintptr
}

// Derive builds the codec of struct S from its exported fields, in
// declaration order. Fields may be booleans, sized or platform integers,
// floats, strings, byte slices or slices of those. The result is cached per
// type.
func Derive[S any]() (Codec[S], error) {
	t := reflect.TypeFor[S]()
	derived.mu.RLock()
	if c, ok := derived.codecs[t]; ok {
		derived.mu.RUnlock()
		return c.(Codec[S]), nil
	}
	derived.mu.RUnlock()

	derived.mu.Lock()
	defer derived.mu.Unlock()

	// Double-check
	if c, ok := derived.codecs[t]; ok {
		return c.(Codec[S]), nil
	}
	if t.Kind() != reflect.Struct {
		return nil, ErrNotStruct
	}
	plan, err := planFields(t)
	if err != nil {
		return nil, err
	}
	fields := make([]Field[S], 0, len(plan))
	for _, fp := range plan {
		fields = append(fields, planField[S](fp))
	}
	c := Struct(fields...)
	derived.codecs[t] = c
	return c, nil
}

// MustDerive is Derive that panics on error, for package level codecs.
func MustDerive[S any]() Codec[S] {
	c, err := Derive[S]()
	if err != nil {
		panic(err)
	}
	return c
}

func planFields(t reflect.Type) ([]fieldPlan, error) {
	var plan []fieldPlan
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" || sf.Tag.Get(TagName) == "-" {
			continue
		}
		fp := fieldPlan{kind: sf.Type.Kind(), offset: sf.Offset}
		switch {
		case common.IsFixedKind(fp.kind), fp.kind == reflect.String,
			fp.kind == reflect.Int, fp.kind == reflect.Uint:
		case fp.kind == reflect.Slice:
			fp.elem = sf.Type.Elem().Kind()
			if !common.IsFixedKind(fp.elem) && fp.elem != reflect.String {
				return nil, fmt.Errorf("%w: field %s (%s)", ErrUnsupported, sf.Name, sf.Type)
			}
		default:
			return nil, fmt.Errorf("%w: field %s (%s)", ErrUnsupported, sf.Name, sf.Type)
		}
		plan = append(plan, fp)
	}
	return plan, nil
}

// fieldAt views the field at off as an F. Named types share the layout
// of their underlying kind.
func fieldAt[S, F any](off uintptr, c Codec[F]) Field[S] {
	return FieldOf(func(p *S) *F { return (*F)(unsafe.Add(unsafe.Pointer(p), off)) }, c)
}

func planField[S any](fp fieldPlan) Field[S] {
	off := fp.offset
	switch fp.kind {
	case reflect.Bool:
		return fieldAt[S](off, Bool())
	case reflect.Int8:
		return fieldAt[S](off, Int8())
	case reflect.Int16:
		return fieldAt[S](off, Int16())
	case reflect.Int32:
		return fieldAt[S](off, Int32())
	case reflect.Int64:
		return fieldAt[S](off, Int64())
	case reflect.Int:
		return fieldAt[S](off, Int())
	case reflect.Uint8:
		return fieldAt[S](off, Uint8())
	case reflect.Uint16:
		return fieldAt[S](off, Uint16())
	case reflect.Uint32:
		return fieldAt[S](off, Uint32())
	case reflect.Uint64:
		return fieldAt[S](off, Uint64())
	case reflect.Uint:
		return fieldAt[S](off, Uint())
	case reflect.Float32:
		return fieldAt[S](off, Float32())
	case reflect.Float64:
		return fieldAt[S](off, Float64())
	case reflect.String:
		return fieldAt[S](off, String())
	}
	switch fp.elem {
	case reflect.Bool:
		return fieldAt[S](off, Slice(Bool()))
	case reflect.Int8:
		return fieldAt[S](off, Slice(Int8()))
	case reflect.Int16:
		return fieldAt[S](off, Slice(Int16()))
	case reflect.Int32:
		return fieldAt[S](off, Slice(Int32()))
	case reflect.Int64:
		return fieldAt[S](off, Slice(Int64()))
	case reflect.Uint8:
		return fieldAt[S](off, Bytes())
	case reflect.Uint16:
		return fieldAt[S](off, Slice(Uint16()))
	case reflect.Uint32:
		return fieldAt[S](off, Slice(Uint32()))
	case reflect.Uint64:
		return fieldAt[S](off, Slice(Uint64()))
	case reflect.Float32:
		return fieldAt[S](off, Slice(Float32()))
	case reflect.Float64:
		return fieldAt[S](off, Slice(Float64()))
	default:
		return fieldAt[S](off, Slice(String()))
	}
}

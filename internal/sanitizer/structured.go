package sanitizer

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"go.opentelemetry.io/otel/codes"

	scrubotel "github.com/dativo-io/scrub/internal/otel"
)

// ErrCycleDetected is returned when a structured record references itself.
var ErrCycleDetected = errors.New("cycle detected in structured record")

// CycleError reports where a structured record loops back on itself.
type CycleError struct {
	Path string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s at %s", ErrCycleDetected, e.Path)
}

func (e *CycleError) Unwrap() error { return ErrCycleDetected }

// SanitizeStructured redacts every string leaf of record and returns a new
// record of the same shape. Maps are visited in sorted key order and their
// keys are never redacted. Maps, slices, arrays and pointers of any element
// type are rebuilt with their own type; nil containers stay nil. Structs
// and scalars other than strings pass through unchanged.
//
// The call commits atomically: the engine log becomes the concatenation of
// per-leaf logs and the vault grows only when the whole record succeeds. A
// record that contains itself fails with a *CycleError and leaves the
// engine untouched.
func (e *Engine) SanitizeStructured(ctx context.Context, record any, opts ...CallOption) (any, Log, error) {
	ctx, span := tracer.Start(ctx, "sanitizer.sanitize_structured")
	defer span.End()

	cfg := e.callConfig(opts)
	w := &walker{engine: e, active: make(map[refKey]struct{}), log: Log{}}

	out, err := w.walk(record, "$")
	if err != nil {
		if errors.Is(err, ErrCycleDetected) {
			cyclesRejected.Add(ctx, 1)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "structured sanitization failed")
		return nil, nil, err
	}

	e.runs++
	e.commit(w.log, w.found, cfg.capture)
	recordCall(ctx, "structured", w.log)

	span.SetAttributes(scrubotel.SanitizeAttributes(e.id, "structured", cfg.capture)...)
	span.SetAttributes(scrubotel.ScrubLeaves.Int(w.leaves))
	span.SetAttributes(scrubotel.ResultAttributes(len(w.log), w.log.Total())...)
	e.debugLog(ctx, "structured", w.log)

	return out, w.log.clone(), nil
}

// refKey identifies a container on the current descent path. Slices are
// keyed by length as well so a sub-slice sharing its parent's backing array
// is still distinguishable from the parent.
type refKey struct {
	kind reflect.Kind
	ptr  uintptr
	len  int
}

type walker struct {
	engine *Engine
	active map[refKey]struct{}
	log    Log
	found  []found
	leaves int
}

func (w *walker) walk(v any, path string) (any, error) {
	switch t := v.(type) {
	case string:
		res := w.engine.redact(t)
		w.log = append(w.log, res.log...)
		w.found = append(w.found, res.found...)
		w.leaves++
		return res.text, nil

	case map[string]any:
		if t == nil {
			return t, nil
		}
		leave, err := w.enter(t, path)
		if err != nil {
			return nil, err
		}
		defer leave()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(t))
		for _, k := range keys {
			sv, err := w.walk(t[k], path+"."+k)
			if err != nil {
				return nil, err
			}
			out[k] = sv
		}
		return out, nil

	case map[any]any:
		if t == nil {
			return t, nil
		}
		leave, err := w.enter(t, path)
		if err != nil {
			return nil, err
		}
		defer leave()
		keys := make([]any, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i]) < fmt.Sprint(keys[j])
		})
		out := make(map[any]any, len(t))
		for _, k := range keys {
			sv, err := w.walk(t[k], fmt.Sprintf("%s.%v", path, k))
			if err != nil {
				return nil, err
			}
			out[k] = sv
		}
		return out, nil

	case map[string]string:
		if t == nil {
			return t, nil
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]string, len(t))
		for _, k := range keys {
			sv, _ := w.walk(t[k], path+"."+k)
			out[k] = sv.(string)
		}
		return out, nil

	case []any:
		if t == nil {
			return t, nil
		}
		leave, err := w.enter(t, path)
		if err != nil {
			return nil, err
		}
		defer leave()
		out := make([]any, len(t))
		for i, item := range t {
			sv, err := w.walk(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = sv
		}
		return out, nil

	case []string:
		if t == nil {
			return t, nil
		}
		out := make([]string, len(t))
		for i, item := range t {
			sv, _ := w.walk(item, fmt.Sprintf("%s[%d]", path, i))
			out[i] = sv.(string)
		}
		return out, nil

	case nil:
		return nil, nil

	default:
		out, err := w.walkValue(reflect.ValueOf(v), path)
		if err != nil {
			return nil, err
		}
		return out.Interface(), nil
	}
}

// walkValue handles containers of any other type by reflection and
// rebuilds them with the same type. Structs, funcs and channels pass
// through.
func (w *walker) walkValue(rv reflect.Value, path string) (reflect.Value, error) {
	switch rv.Kind() {
	case reflect.String:
		res := w.engine.redact(rv.String())
		w.log = append(w.log, res.log...)
		w.found = append(w.found, res.found...)
		w.leaves++
		out := reflect.New(rv.Type()).Elem()
		out.SetString(res.text)
		return out, nil

	case reflect.Interface:
		if rv.IsNil() {
			return rv, nil
		}
		inner, err := w.walk(rv.Elem().Interface(), path)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(rv.Type()).Elem()
		if inner != nil {
			out.Set(reflect.ValueOf(inner))
		}
		return out, nil

	case reflect.Pointer:
		if rv.IsNil() || rv.Elem().Kind() == reflect.Struct {
			return rv, nil
		}
		leave, err := w.enterValue(rv, path)
		if err != nil {
			return reflect.Value{}, err
		}
		defer leave()
		elem, err := w.walkValue(rv.Elem(), path)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(rv.Type().Elem())
		out.Elem().Set(elem)
		return out, nil

	case reflect.Map:
		if rv.IsNil() {
			return rv, nil
		}
		leave, err := w.enterValue(rv, path)
		if err != nil {
			return reflect.Value{}, err
		}
		defer leave()
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		out := reflect.MakeMapWithSize(rv.Type(), len(keys))
		for _, k := range keys {
			sv, err := w.walkValue(rv.MapIndex(k), fmt.Sprintf("%s.%v", path, k.Interface()))
			if err != nil {
				return reflect.Value{}, err
			}
			out.SetMapIndex(k, sv)
		}
		return out, nil

	case reflect.Slice:
		if rv.IsNil() {
			return rv, nil
		}
		leave, err := w.enterValue(rv, path)
		if err != nil {
			return reflect.Value{}, err
		}
		defer leave()
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			sv, err := w.walkValue(rv.Index(i), fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(sv)
		}
		return out, nil

	case reflect.Array:
		out := reflect.New(rv.Type()).Elem()
		for i := 0; i < rv.Len(); i++ {
			sv, err := w.walkValue(rv.Index(i), fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(sv)
		}
		return out, nil

	default:
		return rv, nil
	}
}

// enter marks a map or slice as being on the descent path. The returned
// func removes it again, so shared but acyclic references are allowed.
func (w *walker) enter(container any, path string) (func(), error) {
	return w.enterValue(reflect.ValueOf(container), path)
}

func (w *walker) enterValue(rv reflect.Value, path string) (func(), error) {
	if rv.Kind() == reflect.Slice && rv.Len() == 0 {
		return func() {}, nil
	}
	if rv.IsNil() {
		return func() {}, nil
	}
	key := refKey{kind: rv.Kind(), ptr: uintptr(rv.UnsafePointer())}
	if rv.Kind() == reflect.Slice {
		key.len = rv.Len()
	}
	if _, ok := w.active[key]; ok {
		return nil, &CycleError{Path: path}
	}
	w.active[key] = struct{}{}
	return func() { delete(w.active, key) }, nil
}

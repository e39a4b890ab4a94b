// Package param implements the object graph's compact typed parameter store
// (spec §3.3). Each Object (see package object) owns one Store. Storage is a
// flat slice of records plus a name→index map, the same "typed bytes behind
// a name→index map" shape the teacher uses for its shader annotation table
// (engine/renderer/shader/annotations.go) generalized from a fixed annotation
// enum to an open, textually-driven schema.
package param

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the type of a sub-parameter element.
type Kind byte

const (
	KindInt    Kind = 'i' // i32
	KindFloat  Kind = 'f' // f32
	KindVec3   Kind = '3' // vec3f
	KindVec4   Kind = '4' // vec4f
	KindIVec3  Kind = 'I' // vec3i
	KindString Kind = 's' // variable-length string
)

// sizeOf returns the encoded byte size of one element of the given kind,
// matching invariant 7 in spec §8: total size = 2*cnt + Σ sizeof(type_i).
func sizeOf(k Kind, s string) int {
	switch k {
	case KindInt, KindFloat:
		return 4
	case KindVec3, KindIVec3:
		return 12
	case KindVec4:
		return 16
	case KindString:
		return len(s)
	default:
		return 0
	}
}

// Value is one decoded sub-parameter value. Exactly one field is meaningful,
// selected by Kind.
type Value struct {
	Kind Kind
	I    int32
	F    float32
	V3   [3]float32
	V4   [4]float32
	IV3  [3]int32
	S    string
}

// Param is one named parameter: a 64-byte name and one or more typed
// sub-parameter values sharing that name (e.g. a vec3 light color plus a
// scalar intensity both stored under "light").
type Param struct {
	Name   string
	Values []Value
}

// ByteSize returns 2*cnt + Σ sizeof(type_i), the invariant from spec §8.7.
func (p *Param) ByteSize() int {
	total := 2 * len(p.Values)
	for _, v := range p.Values {
		total += sizeOf(v.Kind, v.S)
	}
	return total
}

// maxNameLen is the 64-byte name budget named in spec §3.3. Names are not
// truncated silently — Store.Set returns an error past the limit.
const maxNameLen = 64

// Store is the per-object parameter bag.
type Store struct {
	params []Param
	index  map[string]int
	// schema maps an array base key ("light") to the Kind sequence recorded
	// the first time it was seen, so "light[07]" inherits it.
	schema map[string][]Kind
}

// NewStore returns an empty parameter store.
func NewStore() *Store {
	return &Store{index: make(map[string]int), schema: make(map[string][]Kind)}
}

// baseKey strips an array subscript: "light[07]" -> "light".
func baseKey(name string) string {
	if i := strings.IndexByte(name, '['); i >= 0 {
		return name[:i]
	}
	return name
}

// Define declares (or redeclares) a parameter's type schema without values,
// used by an Object's Define(w,h) to lay out its parameter slots up front.
func (s *Store) Define(name string, kinds ...Kind) error {
	if len(name) > maxNameLen {
		return fmt.Errorf("param: name %q exceeds %d bytes", name, maxNameLen)
	}
	values := make([]Value, len(kinds))
	for i, k := range kinds {
		values[i] = Value{Kind: k}
	}
	s.set(name, values)
	s.schema[baseKey(name)] = kinds
	return nil
}

func (s *Store) set(name string, values []Value) {
	if idx, ok := s.index[name]; ok {
		s.params[idx] = Param{Name: name, Values: values}
		return
	}
	s.index[name] = len(s.params)
	s.params = append(s.params, Param{Name: name, Values: values})
}

// Get returns the named parameter and whether it exists.
func (s *Store) Get(name string) (*Param, bool) {
	idx, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return &s.params[idx], true
}

// All returns every parameter in definition order.
func (s *Store) All() []Param { return s.params }

// typeMismatch is returned by the typed accessors (getParamI, etc.) when the
// stored kind does not match the request — a fatal error per spec §7.
type typeMismatch struct {
	name string
	idx  int
	want Kind
	have Kind
}

func (e *typeMismatch) Error() string {
	return fmt.Sprintf("param: slot %q[%d]: expected type %q, stored type %q", e.name, e.idx, e.want, e.have)
}

// Int returns sub-value idx of the named parameter as an i32, failing loudly
// if it is not KindInt.
func (s *Store) Int(name string, idx int) (int32, error) {
	v, err := s.value(name, idx, KindInt)
	if err != nil {
		return 0, err
	}
	return v.I, nil
}

// Float returns sub-value idx as an f32.
func (s *Store) Float(name string, idx int) (float32, error) {
	v, err := s.value(name, idx, KindFloat)
	if err != nil {
		return 0, err
	}
	return v.F, nil
}

// Vec3 returns sub-value idx as a vec3f.
func (s *Store) Vec3(name string, idx int) ([3]float32, error) {
	v, err := s.value(name, idx, KindVec3)
	if err != nil {
		return [3]float32{}, err
	}
	return v.V3, nil
}

// Vec4 returns sub-value idx as a vec4f.
func (s *Store) Vec4(name string, idx int) ([4]float32, error) {
	v, err := s.value(name, idx, KindVec4)
	if err != nil {
		return [4]float32{}, err
	}
	return v.V4, nil
}

// String returns sub-value idx as a string.
func (s *Store) String(name string, idx int) (string, error) {
	v, err := s.value(name, idx, KindString)
	if err != nil {
		return "", err
	}
	return v.S, nil
}

func (s *Store) value(name string, idx int, want Kind) (Value, error) {
	p, ok := s.Get(name)
	if !ok {
		// An array-indexed name may not have been explicitly set yet but
		// inherits its base schema; absence of the slot itself is still
		// reported as a missing parameter, not a type mismatch.
		return Value{}, fmt.Errorf("param: no such parameter %q", name)
	}
	if idx < 0 || idx >= len(p.Values) {
		return Value{}, fmt.Errorf("param: %q has no sub-value %d", name, idx)
	}
	v := p.Values[idx]
	if v.Kind != want {
		return Value{}, &typeMismatch{name: name, idx: idx, want: want, have: v.Kind}
	}
	return v, nil
}

// SetTyped assigns the full sub-value list for a parameter by typed
// accessor, failing loudly if the stored schema (when the key is already
// known, directly or via base-key inheritance) disagrees in length or kind.
func (s *Store) SetTyped(name string, values []Value) error {
	base := baseKey(name)
	if kinds, ok := s.schema[base]; ok {
		if len(kinds) != len(values) {
			return fmt.Errorf("param: %q expects %d sub-values (schema of %q), got %d", name, len(kinds), base, len(values))
		}
		for i, k := range kinds {
			if values[i].Kind != k {
				return &typeMismatch{name: name, idx: i, want: k, have: values[i].Kind}
			}
		}
	} else {
		kinds := make([]Kind, len(values))
		for i, v := range values {
			kinds[i] = v.Kind
		}
		s.schema[base] = kinds
	}
	s.set(name, values)
	return nil
}

// SetParam implements the textual setter: the value syntax infers the type —
// "<a,b,c>" a vec3, "<a,b,c,d>" a vec4, a signed/unsigned number a scalar
// int or float, anything else a string. Multiple ';'-separated values set
// multiple sub-parameters at once, matching the scene text format's
// "param: name, value[; value ...]" line (spec §6.1).
func (s *Store) SetParam(name string, raw string) error {
	parts := splitTopLevelSemicolons(raw)
	values := make([]Value, 0, len(parts))
	for _, part := range parts {
		v, err := parseValue(strings.TrimSpace(part))
		if err != nil {
			return fmt.Errorf("param: %q: %w", name, err)
		}
		values = append(values, v)
	}
	return s.SetTyped(name, values)
}

// splitTopLevelSemicolons splits on ';' that separate distinct sub-values,
// leaving a single "<a;b;c>" vector literal's internal ';' separator alone
// (parseValue's own fallback for a vector written with ';' instead of ',').
func splitTopLevelSemicolons(raw string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range raw {
		switch r {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ';':
			if depth == 0 {
				parts = append(parts, raw[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, raw[start:])
	return parts
}

func parseValue(tok string) (Value, error) {
	if strings.HasPrefix(tok, "<") && strings.HasSuffix(tok, ">") {
		inner := tok[1 : len(tok)-1]
		sep := ","
		if strings.Contains(inner, ";") {
			sep = ";"
		}
		fields := strings.Split(inner, sep)
		nums := make([]float64, len(fields))
		for i, f := range fields {
			f = strings.TrimSpace(f)
			n, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return Value{}, fmt.Errorf("bad vector component %q", f)
			}
			nums[i] = n
		}
		switch len(fields) {
		case 3:
			return Value{Kind: KindVec3, V3: [3]float32{float32(nums[0]), float32(nums[1]), float32(nums[2])}}, nil
		case 4:
			return Value{Kind: KindVec4, V4: [4]float32{float32(nums[0]), float32(nums[1]), float32(nums[2]), float32(nums[3])}}, nil
		default:
			return Value{}, fmt.Errorf("vector literal %q must have 3 or 4 components", tok)
		}
	}

	if n, err := strconv.ParseInt(tok, 10, 32); err == nil {
		return Value{Kind: KindInt, I: int32(n)}, nil
	}
	if f, err := strconv.ParseFloat(tok, 32); err == nil {
		return Value{Kind: KindFloat, F: float32(f)}, nil
	}
	return Value{Kind: KindString, S: tok}, nil
}

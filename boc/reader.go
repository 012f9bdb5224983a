package boc

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/blockberries/chainbridge/types"
)

// reader extracts typed fields from a Struct. The first error sticks and
// every later accessor returns a zero value.
type reader struct {
	path   string
	fields map[string]*structpb.Value
	err    error
}

func newReader(path string, s *structpb.Struct) *reader {
	return &reader{path: path, fields: s.GetFields()}
}

func (r *reader) fail(key string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%s.%s: %w", r.path, key, err)
	}
}

func (r *reader) value(key string, optional bool) *structpb.Value {
	if r.err != nil {
		return nil
	}
	v, ok := r.fields[key]
	if !ok || isNull(v) {
		if !optional {
			r.fail(key, ErrMissingField)
		}
		return nil
	}
	return v
}

func isNull(v *structpb.Value) bool {
	_, ok := v.GetKind().(*structpb.Value_NullValue)
	return ok
}

func (r *reader) str(key string) string {
	v := r.value(key, false)
	if v == nil {
		return ""
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		r.fail(key, fmt.Errorf("%w: expected string", ErrInvalidField))
		return ""
	}
	return s.StringValue
}

func (r *reader) optStr(key string) *string {
	if r.value(key, true) == nil {
		return nil
	}
	s := r.str(key)
	if r.err != nil {
		return nil
	}
	return &s
}

func (r *reader) boolean(key string) bool {
	v := r.value(key, false)
	if v == nil {
		return false
	}
	b, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		r.fail(key, fmt.Errorf("%w: expected bool", ErrInvalidField))
		return false
	}
	return b.BoolValue
}

func (r *reader) uint32(key string) uint32 {
	v := r.value(key, false)
	if v == nil {
		return 0
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue < 0 || n.NumberValue > math.MaxUint32 || n.NumberValue != math.Trunc(n.NumberValue) {
		r.fail(key, fmt.Errorf("%w: expected uint32", ErrInvalidField))
		return 0
	}
	return uint32(n.NumberValue)
}

func (r *reader) uint64(key string) uint64 {
	s := r.str(key)
	if r.err != nil {
		return 0
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		r.fail(key, fmt.Errorf("%w: expected decimal uint64", ErrInvalidField))
	}
	return n
}

func (r *reader) lt(key string) types.LT {
	s := r.str(key)
	if r.err != nil {
		return 0
	}
	lt, err := types.ParseLT(s)
	if err != nil {
		r.fail(key, err)
	}
	return lt
}

func (r *reader) bytes(key string) []byte {
	if r.value(key, true) == nil {
		return nil
	}
	s := r.str(key)
	if r.err != nil {
		return nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		r.fail(key, err)
		return nil
	}
	return b
}

func (r *reader) grams(key string) types.Grams {
	s := r.str(key)
	if r.err != nil {
		return types.Grams{}
	}
	g, err := types.ParseGrams(s)
	if err != nil {
		r.fail(key, err)
	}
	return g
}

func (r *reader) hash(key string) types.Hash {
	s := r.str(key)
	if r.err != nil {
		return types.Hash{}
	}
	h, err := types.HashFromHex(s)
	if err != nil {
		r.fail(key, err)
	}
	return h
}

func (r *reader) optHash(key string) *types.Hash {
	if r.value(key, true) == nil {
		return nil
	}
	h := r.hash(key)
	if r.err != nil {
		return nil
	}
	return &h
}

func (r *reader) address(key string) types.Address {
	s := r.str(key)
	if r.err != nil {
		return types.Address{}
	}
	a, err := types.ParseAddress(s)
	if err != nil {
		r.fail(key, err)
	}
	return a
}

func (r *reader) status(key string) types.AccountStatus {
	s := r.str(key)
	if r.err != nil {
		return ""
	}
	st, err := types.ParseAccountStatus(s)
	if err != nil {
		r.fail(key, err)
	}
	return st
}

func (r *reader) object(key string) *reader {
	v := r.value(key, false)
	if v == nil {
		return &reader{path: r.path + "." + key, err: r.err}
	}
	s, ok := v.GetKind().(*structpb.Value_StructValue)
	if !ok {
		r.fail(key, fmt.Errorf("%w: expected object", ErrInvalidField))
		return &reader{path: r.path + "." + key, err: r.err}
	}
	return newReader(r.path+"."+key, s.StructValue)
}

func (r *reader) list(key string) []*reader {
	v := r.value(key, false)
	if v == nil {
		return nil
	}
	l, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		r.fail(key, fmt.Errorf("%w: expected list", ErrInvalidField))
		return nil
	}
	out := make([]*reader, 0, len(l.ListValue.GetValues()))
	for i, item := range l.ListValue.GetValues() {
		s, ok := item.GetKind().(*structpb.Value_StructValue)
		if !ok {
			r.fail(fmt.Sprintf("%s[%d]", key, i), fmt.Errorf("%w: expected object", ErrInvalidField))
			return nil
		}
		out = append(out, newReader(fmt.Sprintf("%s.%s[%d]", r.path, key, i), s.StructValue))
	}
	return out
}

// join folds a child reader's error into the parent.
func (r *reader) join(child *reader) {
	if r.err == nil && child.err != nil {
		r.err = child.err
	}
}

// Package boc implements the binary container used to ship account states and
// transaction bodies across transports. A container is a protobuf-encoded
// google.protobuf.Struct tagged with the kind of value it carries. 64-bit
// integers are stored as decimal strings since Struct numbers are doubles.
package boc

import (
	"encoding/base64"
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Container kinds.
const (
	KindAccount     = "account"
	KindContract    = "contract"
	KindTransaction = "transaction"
)

const kindField = "@type"

// Errors returned by the codec.
var (
	ErrEmptyContainer = errors.New("empty container")
	ErrUnexpectedKind = errors.New("unexpected container kind")
	ErrMissingField   = errors.New("missing field")
	ErrInvalidField   = errors.New("invalid field")
)

var marshalOpts = proto.MarshalOptions{Deterministic: true}

// ToBase64 renders a container in its transportable text form.
func ToBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// FromBase64 parses the transportable text form of a container.
func FromBase64(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding base64 container: %w", err)
	}
	return data, nil
}

// encode serialises fields as a container of the given kind.
func encode(kind string, fields map[string]any) ([]byte, error) {
	fields[kindField] = kind
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("building %s container: %w", kind, err)
	}
	data, err := marshalOpts.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshalling %s container: %w", kind, err)
	}
	return data, nil
}

// decode parses a container and checks its kind.
func decode(kind string, data []byte) (*reader, error) {
	if len(data) == 0 {
		return nil, ErrEmptyContainer
	}
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshalling %s container: %w", kind, err)
	}
	r := newReader(kind, &s)
	if got := r.str(kindField); r.err == nil && got != kind {
		return nil, fmt.Errorf("%w: want %s, got %q", ErrUnexpectedKind, kind, got)
	}
	if r.err != nil {
		return nil, r.err
	}
	return r, nil
}

package memory

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes v through a pooled buffer. HTML characters are left
// unescaped and the trailing newline written by json.Encoder is dropped.
// The returned slice is owned by the caller.
func MarshalJSON(v any) ([]byte, error) {
	return marshal(v, SmallBufferSize)
}

// MarshalJSONString is MarshalJSON returning a string.
func MarshalJSONString(v any) (string, error) {
	data, err := marshal(v, SmallBufferSize)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// MarshalJSONStringSized is MarshalJSONString for documents expected to be
// about sizeHint bytes long.
func MarshalJSONStringSized(v any, sizeHint int) (string, error) {
	data, err := marshal(v, sizeHint)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func marshal(v any, sizeHint int) ([]byte, error) {
	buf := GetBuffer(sizeHint)
	defer PutBuffer(buf)

	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding json: %w", err)
	}

	out := buf.Bytes()
	if n := len(out); n > 0 && out[n-1] == '\n' {
		out = out[:n-1]
	}
	return append([]byte(nil), out...), nil
}

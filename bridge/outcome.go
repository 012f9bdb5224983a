package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/blockberries/chainbridge/memory"
)

// Outcome is the result of one call as delivered on its port: either a
// success carrying a JSON payload document, or a failure status with a
// human readable message.
type Outcome struct {
	Status  Status
	Payload string
	Message string
}

// Succeeded returns a successful outcome carrying payload.
func Succeeded(payload string) Outcome {
	return Outcome{Status: StatusSuccess, Payload: payload}
}

// Failed returns the failed outcome for err. Unclassified errors are
// reported as StatusTransportError.
func Failed(err error) Outcome {
	if err == nil {
		return Outcome{Status: StatusTransportError, Message: "unknown error"}
	}
	e := HandleError(err, StatusTransportError).(*Error)
	return Outcome{Status: e.Status, Message: e.Error()}
}

// OK returns true for successful outcomes.
func (o Outcome) OK() bool {
	return o.Status == StatusSuccess
}

// Err returns nil for a success and the classified error otherwise.
func (o Outcome) Err() error {
	if o.OK() {
		return nil
	}
	return &Error{Status: o.Status, Info: o.Message}
}

// outcomeJSON is the wire form of Outcome.
type outcomeJSON struct {
	Status  string  `json:"status"`
	Code    int32   `json:"code"`
	Payload *string `json:"payload,omitempty"`
	Message string  `json:"message,omitempty"`
}

// MarshalJSON encodes a success as
// {"status":"success","code":0,"payload":"..."} and a failure as
// {"status":"<name>","code":<n>,"message":"..."}.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if !o.Status.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, o.Status)
	}
	w := outcomeJSON{
		Status: o.Status.String(),
		Code:   int32(o.Status),
	}
	if o.OK() {
		payload := o.Payload
		w.Payload = &payload
	} else {
		w.Message = o.Message
	}
	return memory.MarshalJSON(w)
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var w outcomeJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	status, err := ParseStatus(w.Status)
	if err != nil {
		return err
	}
	if int32(status) != w.Code {
		return fmt.Errorf("outcome code %d does not match status %q", w.Code, w.Status)
	}

	out := Outcome{Status: status}
	if status == StatusSuccess {
		if w.Payload == nil {
			return fmt.Errorf("successful outcome without payload")
		}
		out.Payload = *w.Payload
	} else {
		out.Message = w.Message
	}
	*o = out
	return nil
}

// Encode returns the JSON form of the outcome.
func (o Outcome) Encode() (string, error) {
	data, err := o.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeOutcome parses the JSON form of an outcome.
func DecodeOutcome(data []byte) (Outcome, error) {
	var o Outcome
	if err := json.Unmarshal(data, &o); err != nil {
		return Outcome{}, fmt.Errorf("decoding outcome: %w", err)
	}
	return o, nil
}

package analyses

import (
	"bytes"
	"encoding/json"
)

// Value is free text taken from the policy. The model is asked for strings but
// sometimes answers with a bare number or null; both decode into text.
type Value string

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Value(s)
		return nil
	}
	// number / bool: keep the literal
	*v = Value(data)
	return nil
}

func (v Value) String() string { return string(v) }

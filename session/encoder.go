package session

import (
	"encoding/json"
	"fmt"
)

// Encode serializes a record into its stored form.
func Encode(rec *Record) ([]byte, error) {
	if rec == nil || rec.RefreshToken == "" {
		return nil, fmt.Errorf("%w: empty refresh token", ErrCorrupt)
	}
	return json.Marshal(rec)
}

// Decode parses a stored value. Anything other than a JSON object with a
// non-empty refresh_token is reported as ErrCorrupt.
func Decode(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if rec.RefreshToken == "" {
		return nil, fmt.Errorf("%w: missing refresh_token", ErrCorrupt)
	}
	return &rec, nil
}

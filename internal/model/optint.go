package model

import (
	"bytes"
	"strconv"
)

// OptInt is an optional integer that serializes as JSON null when unset.
// The portal omits record ids on legacy entries; a plain int64 cannot
// distinguish "absent" from zero and a pointer would break value equality.
type OptInt struct {
	Int64 int64
	Set   bool
}

// SomeInt returns a set OptInt holding v.
func SomeInt(v int64) OptInt {
	return OptInt{Int64: v, Set: true}
}

// MarshalJSON encodes the value, or null when unset.
func (o OptInt) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(o.Int64, 10)), nil
}

// UnmarshalJSON decodes a number or null.
func (o *OptInt) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*o = OptInt{}
		return nil
	}
	v, err := strconv.ParseInt(string(bytes.TrimSpace(data)), 10, 64)
	if err != nil {
		return err
	}
	*o = OptInt{Int64: v, Set: true}
	return nil
}

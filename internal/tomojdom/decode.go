package tomojdom

import (
	"encoding/json"
	"fmt"

	"github.com/jkowalik/billwatch/internal/common"
)

// valueAt walks a path of array indices through nested JSON arrays and
// returns the raw element at the end of the path. Every step validates
// that the current value really is an array and that the index is in
// range, so a shifted or reshaped response fails loudly instead of being
// misread.
func valueAt(data []byte, path ...int) (json.RawMessage, error) {
	cur := json.RawMessage(data)
	for depth, idx := range path {
		var arr []json.RawMessage
		if err := json.Unmarshal(cur, &arr); err != nil {
			return nil, fmt.Errorf("%w: expected array at %v: %v", common.ErrDecoding, path[:depth+1], err)
		}
		if idx < 0 || idx >= len(arr) {
			return nil, fmt.Errorf("%w: index %d out of range at %v (array has %d elements)", common.ErrDecoding, idx, path[:depth+1], len(arr))
		}
		cur = arr[idx]
	}
	return cur, nil
}

// field decodes one positional element of a record into dst, naming the
// position in the error.
func field(arr []json.RawMessage, idx int, name string, dst any) error {
	if err := json.Unmarshal(arr[idx], dst); err != nil {
		return fmt.Errorf("%w: %s at index %d: %v", common.ErrDecoding, name, idx, err)
	}
	return nil
}

package engineclient

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// quantity is a "0x"-prefixed hex-encoded uint64, the JSON-RPC quantity
// encoding used throughout the Engine and eth APIs.
type quantity uint64

func (q quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("0x%x", uint64(q)))
}

func (q *quantity) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		*q = 0
		return nil
	}
	var v uint64
	if _, err := fmt.Sscanf(s, "%x", &v); err != nil {
		return fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	*q = quantity(v)
	return nil
}

// hexBytes is a "0x"-prefixed hex-encoded byte string.
type hexBytes []byte

func (h hexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal("0x" + hex.EncodeToString(h))
}

func (h *hexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid hex bytes %q: %w", s, err)
	}
	*h = b
	return nil
}

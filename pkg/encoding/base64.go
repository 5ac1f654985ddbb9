// Package encoding provides JSON-serializable encoding types.
package encoding

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrBase64 is returned when a payload cannot be repaired into valid base64.
var ErrBase64 = errors.New("encoding: invalid base64")

// DecodeLenient decodes base64 as produced by loosely conforming peers.
// It accepts missing or extra padding, the URL-safe alphabet and embedded
// whitespace. Anything else is rejected with ErrBase64.
func DecodeLenient(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		case '-':
			return '+'
		case '_':
			return '/'
		}
		return r
	}, s)
	s = strings.TrimRight(s, "=")
	if len(s)%4 == 1 {
		return nil, fmt.Errorf("%w: dangling character in %d-byte payload", ErrBase64, len(s))
	}
	out, err := base64.RawStdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBase64, err)
	}
	return out, nil
}

// Base64 is a byte slice that marshals to standard base64 in JSON and
// unmarshals with DecodeLenient.
type Base64 []byte

// MarshalJSON implements json.Marshaler.
func (b Base64) MarshalJSON() ([]byte, error) {
	return []byte(`"` + base64.StdEncoding.EncodeToString(b) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Base64) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return errors.New("unmarshal json base64 data: empty data")
	}
	switch data[0] {
	case 'n': // null
		return nil
	case '"':
		if len(data) < 2 || data[len(data)-1] != '"' {
			return errors.New("unmarshal json base64 data: invalid string")
		}
		decoded, err := DecodeLenient(string(data[1 : len(data)-1]))
		if err != nil {
			return err
		}
		*b = decoded
		return nil
	default:
		return fmt.Errorf("invalid base64 data: %s", string(data))
	}
}

// String returns the standard base64 representation.
func (b Base64) String() string {
	return base64.StdEncoding.EncodeToString(b)
}

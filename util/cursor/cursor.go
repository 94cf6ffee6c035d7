// Package cursor encodes keyset pagination positions as opaque tokens.
package cursor

import (
	"encoding/base64"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigFastest

var ErrInvalid = errors.New("invalid cursor")

// Key is the last row of a page: a sort value plus the row id as tie breaker.
type Key struct {
	S  string    `json:"s,omitempty"`
	T  time.Time `json:"t,omitempty"`
	ID string    `json:"id"`
}

func Encode(k Key) string {
	b, err := json.Marshal(k)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func Decode(s string) (Key, error) {
	var k Key
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return k, ErrInvalid
	}
	if err := json.Unmarshal(b, &k); err != nil || k.ID == "" {
		return k, ErrInvalid
	}
	return k, nil
}

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Limit normalises a requested page size.
func Limit(n, def, max int) int {
	if def <= 0 {
		def = DefaultLimit
	}
	if max <= 0 {
		max = MaxLimit
	}
	if n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

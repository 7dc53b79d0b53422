// Package jsonx selects a JSON codec by payload size. Small payloads go
// through encoding/json; large ones through sonic, which amortizes its
// setup cost only past a few kilobytes.
package jsonx

import (
	"encoding/json"

	"github.com/bytedance/sonic"
)

// SizeThreshold is the payload size in bytes beyond which sonic wins
const SizeThreshold = 10240

// Marshal encodes v with the standard codec
func Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// MarshalLarge encodes v with sonic. Callers use it when the payload is
// known to be large (bulk exports, aggregated listings).
func MarshalLarge(v interface{}) ([]byte, error) {
	return sonic.Marshal(v)
}

// Unmarshal decodes data, switching to sonic past the size threshold
func Unmarshal(data []byte, v interface{}) error {
	if len(data) > SizeThreshold {
		return sonic.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

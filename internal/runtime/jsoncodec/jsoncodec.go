package jsoncodec

import (
	"io"

	"github.com/bytedance/sonic"
)

var defaultConfig = sonic.ConfigStd

func Marshal(v any) ([]byte, error) {
	return defaultConfig.Marshal(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return defaultConfig.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v any) error {
	return defaultConfig.Unmarshal(data, v)
}

func Decode(r io.Reader, v any) error {
	dec := defaultConfig.NewDecoder(r)
	return dec.Decode(v)
}

// Valid reports whether data is syntactically valid JSON without decoding it.
func Valid(data []byte) bool {
	return defaultConfig.Valid(data)
}

// Measure returns the encoded size of v in bytes. Response budget checks use
// this instead of a second Marshal at publish time.
func Measure(v any) (int, error) {
	data, err := defaultConfig.Marshal(v)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}

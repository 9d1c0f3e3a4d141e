package runtime

import (
	"errors"
	"testing"

	errspkg "github.com/edgewire/devlink/internal/runtime/errors"
)

func TestParseRequestID(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		want    uint64
		wantErr bool
	}{
		{name: "simple id", topic: "v1/devices/me/rpc/request/42", want: 42},
		{name: "zero id", topic: "v1/devices/me/rpc/request/0", want: 0},
		{name: "large id", topic: "v1/devices/me/rpc/request/18446744073709551615", want: 18446744073709551615},
		{name: "missing prefix", topic: "v1/devices/me/attributes/42", wantErr: true},
		{name: "empty suffix", topic: "v1/devices/me/rpc/request/", wantErr: true},
		{name: "non numeric suffix", topic: "v1/devices/me/rpc/request/abc", wantErr: true},
		{name: "negative id", topic: "v1/devices/me/rpc/request/-1", wantErr: true},
		{name: "trailing garbage", topic: "v1/devices/me/rpc/request/42x", wantErr: true},
		{name: "overflowing id", topic: "v1/devices/me/rpc/request/18446744073709551616", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRequestID(tt.topic)
			if tt.wantErr {
				if !errors.Is(err, errspkg.ErrBadRequestID) {
					t.Fatalf("parseRequestID(%q) error = %v, want %v", tt.topic, err, errspkg.ErrBadRequestID)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseRequestID(%q) error = %v", tt.topic, err)
			}
			if got != tt.want {
				t.Fatalf("parseRequestID(%q) = %d, want %d", tt.topic, got, tt.want)
			}
		})
	}
}

func TestResponseTopic(t *testing.T) {
	if got := responseTopic(42); got != "v1/devices/me/rpc/response/42" {
		t.Fatalf("responseTopic(42) = %q", got)
	}
	if got := responseTopic(0); got != "v1/devices/me/rpc/response/0" {
		t.Fatalf("responseTopic(0) = %q", got)
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	for _, id := range []uint64{0, 1, 42, 1<<32 + 7} {
		topic := RPCRequestTopicPrefix + responseTopic(id)[len("v1/devices/me/rpc/response/"):]
		got, err := parseRequestID(topic)
		if err != nil {
			t.Fatalf("parseRequestID(%q) error = %v", topic, err)
		}
		if got != id {
			t.Fatalf("round trip of %d gave %d", id, got)
		}
	}
}

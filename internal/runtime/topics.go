package runtime

import (
	"fmt"
	"strconv"
	"strings"

	errspkg "github.com/edgewire/devlink/internal/runtime/errors"
)

// Server-side RPC topics. The shapes are fixed protocol surface and must not
// change: the server publishes requests under the request prefix with a
// decimal request id appended, and expects the reply on the response topic
// carrying the same id.
const (
	RPCSubscribeTopic      = "v1/devices/me/rpc/request/+"
	RPCRequestTopicPrefix  = "v1/devices/me/rpc/request/"
	RPCResponseTopicFormat = "v1/devices/me/rpc/response/%d"
)

// Request document fields.
const (
	RPCMethodField = "method"
	RPCParamsField = "params"
)

// parseRequestID extracts the decimal request id from an inbound request
// topic. A topic without the request prefix or without a parsable decimal
// suffix yields ErrBadRequestID; the dispatcher drops the reply in that case
// rather than publish under a fabricated id.
func parseRequestID(topic string) (uint64, error) {
	suffix, ok := strings.CutPrefix(topic, RPCRequestTopicPrefix)
	if !ok || suffix == "" {
		return 0, fmt.Errorf("%w: %q", errspkg.ErrBadRequestID, topic)
	}
	id, err := strconv.ParseUint(suffix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errspkg.ErrBadRequestID, topic)
	}
	return id, nil
}

// responseTopic formats the outbound response topic for a request id.
func responseTopic(requestID uint64) string {
	return fmt.Sprintf(RPCResponseTopicFormat, requestID)
}

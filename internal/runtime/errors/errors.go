package errors

import sterrors "errors"

var (
	ErrCapacityExceeded   = sterrors.New("devlink: endpoint capacity exceeded")
	ErrHandlerRequired    = sterrors.New("devlink: handler function is required")
	ErrMethodRequired     = sterrors.New("devlink: method name is required")
	ErrServiceRequired    = sterrors.New("devlink: service is required")
	ErrAPIRequired        = sterrors.New("devlink: api implementation is required")
	ErrBrokerRequired     = sterrors.New("devlink: broker is required")
	ErrTopicRequired      = sterrors.New("devlink: topic is required")
	ErrDocumentRequired   = sterrors.New("devlink: document is required")
	ErrNotBound           = sterrors.New("devlink: dispatcher is not bound to a broker")
	ErrBadRequestID       = sterrors.New("devlink: request topic carries no parsable request id")
	ErrResponseOverflowed = sterrors.New("devlink: response exceeds the configured size budget")
)

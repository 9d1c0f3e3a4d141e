package runtime

import (
	errspkg "github.com/edgewire/devlink/internal/runtime/errors"
)

// endpointStore is the ordered collection behind the RPC registry. Two
// backings exist: a fixed-capacity store for constrained deployments and a
// growable store for everything else. Insertion order is what the matcher
// scans in, so both preserve it.
type endpointStore interface {
	// insert appends endpoints in order. The batch is atomic: when it does
	// not fit, nothing is appended and ErrCapacityExceeded is returned.
	insert(endpoints ...RPCEndpoint) error

	// clear removes every endpoint. Always succeeds.
	clear()

	// snapshot returns the endpoints in insertion order. Callers must not
	// mutate the returned slice.
	snapshot() []RPCEndpoint

	size() int
}

// newEndpointStore selects the backing from the configured subscription cap:
// positive caps get the fixed store, zero gets the growable one.
func newEndpointStore(maxSubscriptions int) endpointStore {
	if maxSubscriptions > 0 {
		return &fixedEndpointStore{
			endpoints: make([]RPCEndpoint, 0, maxSubscriptions),
		}
	}
	return &growableEndpointStore{}
}

// fixedEndpointStore rejects inserts that would exceed the capacity chosen at
// construction. The backing array is allocated once and never grows.
type fixedEndpointStore struct {
	endpoints []RPCEndpoint
}

func (s *fixedEndpointStore) insert(endpoints ...RPCEndpoint) error {
	if len(s.endpoints)+len(endpoints) > cap(s.endpoints) {
		return errspkg.ErrCapacityExceeded
	}
	s.endpoints = append(s.endpoints, endpoints...)
	return nil
}

func (s *fixedEndpointStore) clear() {
	s.endpoints = s.endpoints[:0]
}

func (s *fixedEndpointStore) snapshot() []RPCEndpoint {
	return s.endpoints
}

func (s *fixedEndpointStore) size() int {
	return len(s.endpoints)
}

// growableEndpointStore accepts any number of endpoints.
type growableEndpointStore struct {
	endpoints []RPCEndpoint
}

func (s *growableEndpointStore) insert(endpoints ...RPCEndpoint) error {
	s.endpoints = append(s.endpoints, endpoints...)
	return nil
}

func (s *growableEndpointStore) clear() {
	s.endpoints = nil
}

func (s *growableEndpointStore) snapshot() []RPCEndpoint {
	return s.endpoints
}

func (s *growableEndpointStore) size() int {
	return len(s.endpoints)
}

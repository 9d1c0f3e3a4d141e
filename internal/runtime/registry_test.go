package runtime

import (
	"errors"
	"testing"

	errspkg "github.com/edgewire/devlink/internal/runtime/errors"
)

func TestNewEndpointStoreSelection(t *testing.T) {
	if _, ok := newEndpointStore(4).(*fixedEndpointStore); !ok {
		t.Fatal("positive cap did not select the fixed store")
	}
	if _, ok := newEndpointStore(0).(*growableEndpointStore); !ok {
		t.Fatal("zero cap did not select the growable store")
	}
}

func TestFixedEndpointStore(t *testing.T) {
	store := newEndpointStore(2)

	if err := store.insert(RPCEndpoint{Method: "a", Handler: noopHandler}); err != nil {
		t.Fatalf("insert() error = %v", err)
	}

	// A batch that would exceed capacity is rejected wholesale.
	err := store.insert(
		RPCEndpoint{Method: "b", Handler: noopHandler},
		RPCEndpoint{Method: "c", Handler: noopHandler},
	)
	if !errors.Is(err, errspkg.ErrCapacityExceeded) {
		t.Fatalf("insert() error = %v, want %v", err, errspkg.ErrCapacityExceeded)
	}
	if store.size() != 1 {
		t.Fatalf("size after rejected batch = %d, want 1", store.size())
	}

	if err := store.insert(RPCEndpoint{Method: "b", Handler: noopHandler}); err != nil {
		t.Fatalf("insert() error = %v", err)
	}
	if store.size() != 2 {
		t.Fatalf("size = %d, want 2", store.size())
	}

	store.clear()
	if store.size() != 0 {
		t.Fatalf("size after clear = %d, want 0", store.size())
	}

	// Capacity survives a clear.
	err = store.insert(
		RPCEndpoint{Method: "a", Handler: noopHandler},
		RPCEndpoint{Method: "b", Handler: noopHandler},
	)
	if err != nil {
		t.Fatalf("insert() after clear error = %v", err)
	}
}

func TestGrowableEndpointStore(t *testing.T) {
	store := newEndpointStore(0)

	for i := 0; i < 100; i++ {
		if err := store.insert(RPCEndpoint{Method: "m", Handler: noopHandler}); err != nil {
			t.Fatalf("insert() error = %v", err)
		}
	}
	if store.size() != 100 {
		t.Fatalf("size = %d, want 100", store.size())
	}

	store.clear()
	if store.size() != 0 {
		t.Fatalf("size after clear = %d, want 0", store.size())
	}
}

func TestEndpointStoreOrder(t *testing.T) {
	for name, store := range map[string]endpointStore{
		"fixed":    newEndpointStore(3),
		"growable": newEndpointStore(0),
	} {
		t.Run(name, func(t *testing.T) {
			err := store.insert(
				RPCEndpoint{Method: "first", Handler: noopHandler},
				RPCEndpoint{Method: "second", Handler: noopHandler},
			)
			if err != nil {
				t.Fatalf("insert() error = %v", err)
			}
			if err := store.insert(RPCEndpoint{Method: "third", Handler: noopHandler}); err != nil {
				t.Fatalf("insert() error = %v", err)
			}

			want := []string{"first", "second", "third"}
			snapshot := store.snapshot()
			if len(snapshot) != len(want) {
				t.Fatalf("snapshot length = %d, want %d", len(snapshot), len(want))
			}
			for i, endpoint := range snapshot {
				if endpoint.Method != want[i] {
					t.Errorf("snapshot[%d].Method = %q, want %q", i, endpoint.Method, want[i])
				}
			}
		})
	}
}

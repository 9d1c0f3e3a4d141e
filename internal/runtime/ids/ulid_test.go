package ids

import (
	"testing"
)

func TestNewMessageID(t *testing.T) {
	id := NewMessageID()
	if len(id) != 26 {
		t.Fatalf("id length = %d, want 26", len(id))
	}

	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		id := NewMessageID()
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

package cache

import "testing"

func TestNewReadCache_InvalidURL(t *testing.T) {
	_, err := NewReadCache("not-a-valid-url://", 0)
	if err == nil {
		t.Fatal("expected an error for an invalid REDIS_URL")
	}
}

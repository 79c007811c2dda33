package cache

import "testing"

func TestStockKey(t *testing.T) {
	got := stockKey("wh-1", "prod-1")
	want := "stock:wh-1:prod-1"

	if got != want {
		t.Errorf("stockKey() = %q, want %q", got, want)
	}
}

func TestMovementKey(t *testing.T) {
	got := movementKey("mv-1")
	want := "movement:mv-1"

	if got != want {
		t.Errorf("movementKey() = %q, want %q", got, want)
	}
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New("not-a-valid-url://")
	if err == nil {
		t.Fatal("expected an error for an invalid REDIS_URL")
	}
}

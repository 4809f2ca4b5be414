package socket

import (
	"sort"
	"testing"
)

func TestWarehouseAudience(t *testing.T) {
	hub := NewHub()
	hub.Register("admin1@example.com", "admin", "WH-01", nil)
	hub.Register("admin2@example.com", "admin", "WH-02", nil)
	hub.Register("requester1@example.com", "requester", "WH-01", nil)
	hub.Register("root@example.com", "superadmin", "system", nil)

	audience := hub.WarehouseAudience("WH-01")
	sort.Strings(audience)

	want := []string{"admin1@example.com", "root@example.com"}
	if len(audience) != len(want) {
		t.Fatalf("Expected audience %v, got %v", want, audience)
	}
	for i := range want {
		if audience[i] != want[i] {
			t.Fatalf("Expected audience %v, got %v", want, audience)
		}
	}
}

func TestWarehouseAudience_AfterUnregister(t *testing.T) {
	hub := NewHub()
	hub.Register("admin1@example.com", "admin", "WH-01", nil)
	hub.Unregister("admin1@example.com")

	if audience := hub.WarehouseAudience("WH-01"); len(audience) != 0 {
		t.Fatalf("Expected empty audience after unregister, got %v", audience)
	}
}

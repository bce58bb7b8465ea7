package migrations

import (
	"strings"
	"testing"
)

func TestAllIsOrdered(t *testing.T) {
	list, err := All()
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(list) < 2 {
		t.Fatalf("expected embedded migrations, got %d", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].Name >= list[i].Name {
			t.Fatalf("migrations out of order: %s before %s", list[i-1].Name, list[i].Name)
		}
	}
	for _, m := range list {
		if !strings.Contains(m.SQL, "IF NOT EXISTS") {
			t.Fatalf("%s should be re-runnable", m.Name)
		}
	}
}

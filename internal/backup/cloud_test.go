package backup

import (
	"testing"
	"time"
)

func TestObjectName(t *testing.T) {
	at := time.Date(2025, 3, 9, 23, 45, 1, 0, time.FixedZone("IST", 19800))
	if got := ObjectName(12, at); got != "backups/12/20250309T181501Z.csv" {
		t.Fatalf("ObjectName = %q", got)
	}
	earlier := ObjectName(12, at.Add(-time.Hour))
	if !(earlier < ObjectName(12, at)) {
		t.Fatal("object names must sort in time order")
	}
}

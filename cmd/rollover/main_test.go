package main

import "testing"

func TestRun_ExitCodesBeforeConnecting(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")

	t.Run("bad date", func(t *testing.T) {
		t.Setenv("FIRESTORE_PROJECT_ID", "kada-test")
		if code := run("02-01-2025", false); code != 1 {
			t.Fatalf("exit code = %d", code)
		}
	})
	t.Run("no firestore", func(t *testing.T) {
		t.Setenv("FIRESTORE_PROJECT_ID", "")
		if code := run("2025-01-02", false); code != 1 {
			t.Fatalf("exit code = %d", code)
		}
	})
}

package phone

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"9876543210", "+919876543210"},
		{"+91 98765 43210", "+919876543210"},
		{"098765-43210", "+919876543210"},
		{"  +919876543210 ", "+919876543210"},
	}
	for _, tc := range cases {
		got, err := Normalize(tc.in)
		if err != nil {
			t.Fatalf("Normalize(%q) error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalize_Invalid(t *testing.T) {
	for _, in := range []string{"", "12", "abcdefghij"} {
		if _, err := Normalize(in); !errors.Is(err, ErrInvalid) {
			t.Fatalf("Normalize(%q) err = %v, want ErrInvalid", in, err)
		}
	}
}

func TestDigits(t *testing.T) {
	if got := Digits("+91 (987) 654-3210"); got != "919876543210" {
		t.Fatalf("Digits = %q", got)
	}
}

package logger

import (
	"context"
	"testing"
)

func TestWithContextBeforeInitReturnsCachedFallback(t *testing.T) {
	first := WithContext(context.Background())
	second := WithContext(context.Background())

	if first == nil || second == nil {
		t.Fatal("WithContext must never return nil")
	}
	if first != second {
		t.Fatal("uninitialized WithContext must reuse the cached fallback logger")
	}
	if first != nop {
		t.Fatal("uninitialized WithContext must return the nop fallback")
	}
}

func TestMaskEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"john.doe@example.com", "joh***@example.com"},
		{"al@example.com", "al***@example.com"},
		{"not-an-email", "***"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := MaskEmail(tc.in); got != tc.want {
			t.Errorf("MaskEmail(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMaskIP(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"192.168.1.10", "192.***.***.***"},
		{"2001:db8::1", "2001:***"},
		{"garbage", "***"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := MaskIP(tc.in); got != tc.want {
			t.Errorf("MaskIP(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMaskString(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"secret123", "se***23"},
		{"abcd", "***"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := MaskString(tc.in); got != tc.want {
			t.Errorf("MaskString(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

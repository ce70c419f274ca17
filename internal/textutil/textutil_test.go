package textutil_test

import (
	"testing"

	"ytqueue/internal/textutil"
)

func TestStripANSI(t *testing.T) {
	in := "\x1b[0;94m[download]\x1b[0m  42.0% of ~ 10.00MiB"
	if got := textutil.StripANSI(in); got != "[download]  42.0% of ~ 10.00MiB" {
		t.Fatalf("unexpected stripped text: %q", got)
	}
	if got := textutil.StripANSI("plain"); got != "plain" {
		t.Fatalf("unexpected plain text: %q", got)
	}
}

func TestDisplayStatus(t *testing.T) {
	if got := textutil.DisplayStatus("waiting"); got != "Waiting" {
		t.Fatalf("unexpected display status: %q", got)
	}
}

func TestTernary(t *testing.T) {
	if textutil.Ternary(true, "a", "b") != "a" || textutil.Ternary(false, 1, 2) != 2 {
		t.Fatal("unexpected ternary result")
	}
}

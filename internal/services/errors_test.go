package services_test

import (
	"errors"
	"strings"
	"testing"

	"ytqueue/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrDownloadFault, "download", "yt-dlp", "exited with status 1", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrDownloadFault) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"download", "yt-dlp", "exited with status 1"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarkerAndDetail(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestDetailsClassifiesMarkers(t *testing.T) {
	cases := []struct {
		err  error
		want services.Kind
	}{
		{services.Wrap(services.ErrAdmissionRejected, "admission", "", "duplicate", nil), services.KindAdmission},
		{services.Wrap(services.ErrDownloadFault, "download", "", "exit 1", nil), services.KindDownload},
		{services.Wrap(services.ErrPostProcessing, "postprocess", "rename", "", errors.New("denied")), services.KindPostProcess},
		{services.Wrap(services.ErrNotFound, "queue", "reset", "", nil), services.KindNotFound},
		{errors.New("plain"), services.KindUnknown},
		{nil, services.KindUnknown},
	}
	for _, tc := range cases {
		if got := services.Details(tc.err).Kind; got != tc.want {
			t.Fatalf("Details(%v) kind = %s, want %s", tc.err, got, tc.want)
		}
	}
}

package admission_test

import (
	"errors"
	"path/filepath"
	"testing"

	"ytqueue/internal/admission"
	"ytqueue/internal/config"
	"ytqueue/internal/queue"
	"ytqueue/internal/services"
	"ytqueue/internal/testsupport"
)

const watchURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

type stubFiles struct {
	found bool
	err   error
}

func (s stubFiles) HasFileContaining(string, string) (bool, error) { return s.found, s.err }

type stubArchive struct {
	found bool
	err   error
	path  *string
}

func (s stubArchive) HasEntry(path, _ string) (bool, error) {
	if s.path != nil {
		*s.path = path
	}
	return s.found, s.err
}

func newChecker(t *testing.T, files admission.FileProbe, archive admission.ArchiveProbe) (*admission.Checker, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithFormats(
		config.Format{Label: "video", Spec: "bv+ba"},
		config.Format{Label: "dup", Spec: "a"},
		config.Format{Label: "dup", Spec: "b"},
	))
	return admission.NewChecker(admission.OptionsFromConfig(cfg), files, archive), cfg
}

func candidate(cfg *config.Config) admission.Candidate {
	return admission.Candidate{URL: watchURL, Format: "video", TargetDir: cfg.DefaultTargetDir()}
}

func TestCheckAcceptsFreshCandidate(t *testing.T) {
	checker, cfg := newChecker(t, stubFiles{}, stubArchive{})
	if err := checker.Check(candidate(cfg), queue.NewStore().All()); err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !checker.CanAdmit(candidate(cfg), nil) {
		t.Fatal("expected CanAdmit to accept with nil snapshot")
	}
}

func TestCheckRulesInOrder(t *testing.T) {
	queued := queue.NewStore()
	queued.Enqueue(queue.NewJob{URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=x"})

	tests := []struct {
		name    string
		files   stubFiles
		archive stubArchive
		mutate  func(*admission.Candidate)
		store   *queue.Store
		want    admission.Reason
	}{
		{
			name:   "empty url",
			mutate: func(c *admission.Candidate) { c.URL = "" },
			want:   admission.ReasonURLPrefix,
		},
		{
			name:   "foreign host",
			mutate: func(c *admission.Candidate) { c.URL = "https://youtu.be/dQw4w9WgXcQ" },
			want:   admission.ReasonURLPrefix,
		},
		{
			name:   "prefix wins over target dir",
			mutate: func(c *admission.Candidate) { c.URL = "http://www.youtube.com/x"; c.TargetDir = "/nowhere" },
			want:   admission.ReasonURLPrefix,
		},
		{
			name:   "unconfigured target dir",
			mutate: func(c *admission.Candidate) { c.TargetDir = "/nowhere" },
			want:   admission.ReasonTargetDir,
		},
		{
			name:   "unknown format",
			mutate: func(c *admission.Candidate) { c.Format = "8k" },
			want:   admission.ReasonFormat,
		},
		{
			name:   "ambiguous format",
			mutate: func(c *admission.Candidate) { c.Format = "dup" },
			want:   admission.ReasonFormat,
		},
		{
			name:  "already queued by substring",
			store: queued,
			files: stubFiles{found: true},
			want:  admission.ReasonAlreadyQueued,
		},
		{
			name:    "file on disk",
			files:   stubFiles{found: true},
			archive: stubArchive{found: true},
			want:    admission.ReasonFileExists,
		},
		{
			name:    "archived",
			archive: stubArchive{found: true},
			want:    admission.ReasonArchived,
		},
		{
			name:  "probe failure",
			files: stubFiles{err: errors.New("permission denied")},
			want:  admission.ReasonProbeFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker, cfg := newChecker(t, tt.files, tt.archive)
			c := candidate(cfg)
			if tt.mutate != nil {
				tt.mutate(&c)
			}
			store := tt.store
			if store == nil {
				store = queue.NewStore()
			}
			err := checker.Check(c, store.All())
			if err == nil {
				t.Fatal("expected rejection")
			}
			if !errors.Is(err, services.ErrAdmissionRejected) {
				t.Fatalf("expected ErrAdmissionRejected, got %v", err)
			}
			reason, ok := admission.ReasonOf(err)
			if !ok || reason != tt.want {
				t.Fatalf("expected reason %s, got %s (%v)", tt.want, reason, err)
			}
		})
	}
}

func TestCheckMissingFormatIsAllowed(t *testing.T) {
	checker, cfg := newChecker(t, stubFiles{}, stubArchive{})
	c := candidate(cfg)
	c.Format = ""
	if err := checker.Check(c, nil); err != nil {
		t.Fatalf("expected absent format to pass, got %v", err)
	}
}

func TestCheckProbeFailureWrapsCause(t *testing.T) {
	cause := errors.New("disk on fire")
	checker, cfg := newChecker(t, stubFiles{}, stubArchive{err: cause})
	err := checker.Check(candidate(cfg), nil)
	if !errors.Is(err, cause) {
		t.Fatalf("expected probe cause to be wrapped, got %v", err)
	}
}

func TestCheckUsesArchiveInTargetDir(t *testing.T) {
	var seen string
	checker, cfg := newChecker(t, stubFiles{}, stubArchive{path: &seen})
	if err := checker.Check(candidate(cfg), nil); err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if want := filepath.Join(cfg.DefaultTargetDir(), "downloaded.txt"); seen != want {
		t.Fatalf("unexpected archive path: got %q want %q", seen, want)
	}
}

func TestCheckWithFilesystemProbes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	checker := admission.NewChecker(admission.OptionsFromConfig(cfg), nil, nil)
	c := admission.Candidate{URL: watchURL, Format: "video", TargetDir: cfg.DefaultTargetDir()}

	if err := checker.Check(c, nil); err != nil {
		t.Fatalf("expected missing target dir to be admissible, got %v", err)
	}

	testsupport.WriteFile(t, cfg.ArchivePath(cfg.DefaultTargetDir()), "youtube aaaaaaaaaaa\nyoutube dQw4w9WgXcQ\n")
	if reason, _ := admission.ReasonOf(checker.Check(c, nil)); reason != admission.ReasonArchived {
		t.Fatalf("expected archived rejection, got %q", reason)
	}

	testsupport.WriteFile(t, filepath.Join(cfg.DefaultTargetDir(), "20240101 Song  1920x1080 [dQw4w9WgXcQ].mp4"), "x")
	if reason, _ := admission.ReasonOf(checker.Check(c, nil)); reason != admission.ReasonFileExists {
		t.Fatalf("expected file rejection, got %q", reason)
	}
}

package ytdlp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"

	"ytqueue/internal/config"
	"ytqueue/internal/logging"
	"ytqueue/internal/services"
)

// Request describes a single download.
type Request struct {
	URL         string
	TargetDir   string
	FormatSpec  string
	ArchivePath string
	TempDir     string
}

// Downloader defines the behaviour required by the processing engine.
type Downloader interface {
	Download(ctx context.Context, req Request, progress func(string)) error
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDryRun makes Download log the invocation instead of running it.
func WithDryRun(enabled bool) Option {
	return func(c *Client) {
		c.dryRun = enabled
	}
}

// Client wraps yt-dlp CLI interactions.
type Client struct {
	binary         string
	outputTemplate string
	extraArgs      []string
	dryRun         bool
	exec           Executor
	logger         *slog.Logger
}

// New constructs a yt-dlp client.
func New(binary, outputTemplate string, extraArgs []string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	client := &Client{
		binary:         binary,
		outputTemplate: outputTemplate,
		extraArgs:      append([]string(nil), extraArgs...),
		exec:           commandExecutor{},
		logger:         logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// NewFromConfig builds a client from the download section of cfg.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	base := []Option{WithDryRun(cfg.Download.DryRun)}
	return New(cfg.YTDLPBinary(), cfg.Download.OutputTemplate, cfg.Download.ExtraArgs, append(base, opts...)...)
}

// Args returns the argument list used for req. The configured extra
// arguments are copied so per-job values never leak between requests.
func (c *Client) Args(req Request) []string {
	args := make([]string, 0, 12+len(c.extraArgs))
	args = append(args, "--newline")
	if req.FormatSpec != "" {
		args = append(args, "-f", req.FormatSpec)
	}
	if req.ArchivePath != "" {
		args = append(args, "--download-archive", req.ArchivePath)
	}
	args = append(args, "-P", "home:"+req.TargetDir)
	if req.TempDir != "" {
		args = append(args, "-P", "temp:"+req.TempDir)
	}
	if c.outputTemplate != "" {
		args = append(args, "-o", c.outputTemplate)
	}
	args = append(args, c.extraArgs...)
	args = append(args, req.URL)
	return args
}

// Download runs yt-dlp for req, forwarding each output line to progress.
func (c *Client) Download(ctx context.Context, req Request, progress func(string)) error {
	if strings.TrimSpace(req.URL) == "" {
		return services.Wrap(services.ErrValidation, "ytdlp", "download", "url required", nil)
	}
	if strings.TrimSpace(req.TargetDir) == "" {
		return services.Wrap(services.ErrValidation, "ytdlp", "download", "target dir required", nil)
	}

	args := c.Args(req)
	logger := logging.WithContext(ctx, c.logger)
	if c.dryRun {
		logger.Info("dry run: skipping yt-dlp",
			logging.String("binary", c.binary),
			logging.String("args", strings.Join(args, " ")),
		)
		return nil
	}

	logger.Debug("starting yt-dlp",
		logging.String("binary", c.binary),
		logging.String("args", strings.Join(args, " ")),
	)

	var last lastLine
	err := c.exec.Run(ctx, c.binary, args, func(line string) {
		last.observe(line)
		if progress != nil {
			progress(line)
		}
	})
	if err == nil {
		return nil
	}
	return downloadFault(err, last.get())
}

func downloadFault(err error, lastLine string) error {
	var exitErr *exec.ExitError
	message := "yt-dlp failed"
	if errors.As(err, &exitErr) {
		message = fmt.Sprintf("yt-dlp exited with code %d", exitErr.ExitCode())
	}
	if lastLine != "" {
		message += ": " + lastLine
	}
	return services.Wrap(services.ErrDownloadFault, "ytdlp", "download", message, err)
}

type lastLine struct {
	mu   sync.Mutex
	line string
}

func (l *lastLine) observe(line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}
	l.mu.Lock()
	l.line = trimmed
	l.mu.Unlock()
}

func (l *lastLine) get() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.line
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once
	var forwardMu sync.Mutex

	forward := func(line string) {
		forwardMu.Lock()
		defer forwardMu.Unlock()
		if onLine != nil {
			onLine(line)
			return
		}
		fmt.Fprintln(os.Stderr, line)
	}

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			forward(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}

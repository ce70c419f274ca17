package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"ytqueue/internal/admission"
	"ytqueue/internal/daemon"
	"ytqueue/internal/logging"
	"ytqueue/internal/logs"
	"ytqueue/internal/queue"
	"ytqueue/internal/services"
)

// ServiceName is the JSON-RPC service name the daemon registers.
const ServiceName = "YTQueue"

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun ytqueue stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.logger.Debug("daemon start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	s.logger.Info("daemon started via IPC", logging.String(logging.FieldEventType, "daemon_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.logger.Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.logger.Info("daemon stopped via IPC", logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	stats := status.Workflow.Stats
	resp.Running = status.Running
	resp.Processing = status.Workflow.Running
	resp.PID = status.PID
	resp.QueueDBPath = status.QueueDBPath
	resp.LockPath = status.LockFilePath
	resp.LogPath = status.LogPath
	resp.LastError = status.Workflow.LastError
	resp.Progress = status.Progress
	resp.DroppedEvents = status.DroppedEvents
	resp.QueueStats = map[string]int{
		string(queue.StatusWaiting): stats.Waiting,
		string(queue.StatusRunning): stats.Running,
		string(queue.StatusDone):    stats.Done,
		string(queue.StatusError):   stats.Error,
	}
	if status.Workflow.Active != nil {
		job := FromJob(status.Workflow.Active)
		resp.ActiveJob = &job
	}
	if status.Workflow.LastJob != nil {
		job := FromJob(status.Workflow.LastJob)
		resp.LastJob = &job
	}
	resp.Dependencies = FromDependencies(status.Dependencies)
	return nil
}

func (s *service) Submit(req SubmitRequest, resp *SubmitResponse) error {
	job, err := s.daemon.Submit(s.ctx, daemon.Request{URL: req.URL, Format: req.Format, TargetDir: req.TargetDir})
	if err != nil {
		if !daemon.IsRejection(err) {
			return err
		}
		reason, _ := admission.ReasonOf(err)
		resp.Reason = string(reason)
		resp.Message = services.Details(err).Message
		return nil
	}
	wire := FromJob(job)
	resp.Admitted = true
	resp.Job = &wire
	resp.Message = "queued"
	return nil
}

func (s *service) Check(req SubmitRequest, resp *CheckResponse) error {
	candidate, err := s.daemon.Check(s.ctx, daemon.Request{URL: req.URL, Format: req.Format, TargetDir: req.TargetDir})
	resp.URL = candidate.URL
	resp.Format = candidate.Format
	resp.TargetDir = candidate.TargetDir
	if err != nil {
		if !daemon.IsRejection(err) {
			return err
		}
		reason, _ := admission.ReasonOf(err)
		resp.Reason = string(reason)
		resp.Message = services.Details(err).Message
		return nil
	}
	resp.Admitted = true
	resp.Message = "admissible"
	return nil
}

func (s *service) Reset(req ResetRequest, resp *ResetResponse) error {
	s.logger.Debug("job reset requested", logging.String("url", req.URL))
	job, err := s.daemon.Reset(s.ctx, req.URL)
	if err != nil {
		return err
	}
	resp.Job = FromJob(job)
	return nil
}

func (s *service) Compact(_ CompactRequest, resp *CompactResponse) error {
	removed, err := s.daemon.Compact(s.ctx)
	resp.Removed = removed
	return err
}

func (s *service) QueueList(req QueueListRequest, resp *QueueListResponse) error {
	statuses := make([]queue.Status, 0, len(req.Statuses))
	for _, raw := range req.Statuses {
		status, ok := queue.ParseStatus(raw)
		if !ok {
			return fmt.Errorf("unknown status %q", raw)
		}
		statuses = append(statuses, status)
	}
	jobs := s.daemon.List(s.ctx, statuses...)
	resp.Jobs = make([]Job, 0, len(jobs))
	for _, job := range jobs {
		resp.Jobs = append(resp.Jobs, FromJob(job))
	}
	return nil
}

func (s *service) Formats(_ FormatsRequest, resp *FormatsResponse) error {
	for _, format := range s.daemon.Formats() {
		resp.Formats = append(resp.Formats, Format{Label: format.Label, Spec: format.Spec})
	}
	resp.TargetDirs = s.daemon.TargetDirs()
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		return nil
	}
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, logPath, logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}

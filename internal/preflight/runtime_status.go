package preflight

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"ytqueue/internal/config"
)

// CheckNotificationsFromConfig evaluates ntfy status from config and connectivity.
func CheckNotificationsFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "Notifications"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	check := CheckNtfy(ctx, cfg.Notifications.NtfyTopic)
	return Result{Name: name, Passed: check.Passed, Detail: check.Detail}
}

// CheckYTDLPVersion runs "<binary> --version" and reports the version string.
func CheckYTDLPVersion(ctx context.Context, binary string) Result {
	const name = "yt-dlp"

	binary = strings.TrimSpace(binary)
	if binary == "" {
		return Result{Name: name, Detail: "binary not configured"}
	}
	if _, err := exec.LookPath(binary); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("binary %q not found", binary)}
	}

	versionCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(versionCtx, binary, "--version").Output()
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("version check failed (%v)", err)}
	}
	version := strings.TrimSpace(string(output))
	if version == "" {
		version = "unknown version"
	}
	return Result{Name: name, Passed: true, Detail: version}
}

package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// CheckFFmpeg reports the ffmpeg binary available to yt-dlp for merging
// separate video and audio streams.
//
// Bundled yt-dlp installs often place ffmpeg beside the yt-dlp executable, so
// that copy is preferred. Otherwise ffmpegName is resolved from PATH. ffmpeg
// is optional: single-file formats download without it.
func CheckFFmpeg(ytdlpCommand, ffmpegName string) Status {
	result := Status{
		Name:        "FFmpeg",
		Description: "Used by yt-dlp to merge video and audio streams",
		Optional:    true,
	}

	if binary := strings.TrimSpace(ytdlpCommand); binary != "" {
		if resolved, err := exec.LookPath(binary); err == nil {
			candidate := filepath.Join(filepath.Dir(resolved), executableName("ffmpeg"))
			if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
				result.Command = candidate
				result.Available = true
				return result
			}
		}
	}

	ffmpegName = strings.TrimSpace(ffmpegName)
	if ffmpegName == "" {
		ffmpegName = "ffmpeg"
	}
	if ffmpegPath, err := exec.LookPath(ffmpegName); err == nil {
		result.Command = ffmpegPath
		result.Available = true
		return result
	}

	result.Command = ffmpegName
	result.Detail = fmt.Sprintf("binary %q not found", ffmpegName)
	return result
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

package config

const (
	defaultTargetDir             = "~/Videos/YouTube"
	defaultTempDir               = "~/.cache/ytqueue/tmp"
	defaultStateDir              = "~/.local/share/ytqueue"
	defaultLogDir                = "~/.local/share/ytqueue/logs"
	defaultBinary                = "yt-dlp"
	defaultURLPrefix             = "https://www.youtube.com/"
	defaultArchiveFile           = "downloaded.txt"
	defaultOutputTemplate        = "%(upload_date)s %(title)s  %(width)sx%(height)s %(id)s.%(ext)s"
	defaultPacingMinSeconds      = 1.5
	defaultPacingMaxSeconds      = 5.5
	defaultDescriptionSuffix     = ".txt"
	defaultNotifyRequestTimeout  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultVideoFormatLabel      = "video"
	defaultVideoFormatSpec       = "bestvideo[height<=1080]+bestaudio/best[height<=1080]"
	defaultAudioFormatLabel      = "audio"
	defaultAudioFormatSpec       = "bestaudio[ext=m4a]/bestaudio"
	defaultConfigRelativePath    = "~/.config/ytqueue/config.toml"
	defaultProjectConfigFilename = "ytqueue.toml"
)

func defaultFormats() []Format {
	return []Format{
		{Label: defaultVideoFormatLabel, Spec: defaultVideoFormatSpec},
		{Label: defaultAudioFormatLabel, Spec: defaultAudioFormatSpec},
	}
}

// Default returns a Config populated with repository defaults.
// Target directories and the format catalog are filled in by normalization
// when the loaded file leaves them empty.
func Default() Config {
	return Config{
		Paths: Paths{
			TempDir:  defaultTempDir,
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Download: Download{
			Binary:         defaultBinary,
			URLPrefix:      defaultURLPrefix,
			ArchiveFile:    defaultArchiveFile,
			CleanupURL:     true,
			OutputTemplate: defaultOutputTemplate,
		},
		Pacing: Pacing{
			MinSeconds: defaultPacingMinSeconds,
			MaxSeconds: defaultPacingMaxSeconds,
		},
		PostProcessing: PostProcessing{
			RenameDescriptionSuffix: defaultDescriptionSuffix,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			QueueEmpty:     true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

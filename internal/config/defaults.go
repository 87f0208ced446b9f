package config

const (
	defaultDataDir               = "~/.local/share/tarmac"
	defaultLogDir                = "~/.local/share/tarmac/logs"
	defaultCameraDevice          = "/dev/video0"
	defaultCameraAcquireTimeout  = 5
	defaultCameraCaptureTimeout  = 10
	defaultCameraWarmupFrames    = 2
	defaultDecoderTimeoutSeconds = 15
	defaultManifestTimeout       = 20
	defaultNotifyRequestTimeout  = 10
	defaultTickIntervalMS        = 1000
	defaultOverlayHoldMS         = 2500
	defaultMaxRecordsShown       = 50
	defaultAPIBind               = "127.0.0.1:7461"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Camera: Camera{
			Device:               defaultCameraDevice,
			AcquireTimeout:       defaultCameraAcquireTimeout,
			CaptureTimeout:       defaultCameraCaptureTimeout,
			WarmupFrames:         defaultCameraWarmupFrames,
			HotplugNotifications: true,
		},
		Decoder: Decoder{
			TimeoutSeconds: defaultDecoderTimeoutSeconds,
		},
		Manifest: Manifest{
			TimeoutSeconds: defaultManifestTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Matches:        true,
			Unmatched:      true,
			Errors:         true,
		},
		Session: Session{
			TickIntervalMS:  defaultTickIntervalMS,
			OverlayHoldMS:   defaultOverlayHoldMS,
			MaxRecordsShown: defaultMaxRecordsShown,
		},
		Daemon: Daemon{
			APIBind: defaultAPIBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

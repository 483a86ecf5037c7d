package config

import "time"

const (
	// Default client timeout for assistant API calls
	RequestTimeout = 90 * time.Second

	// Fixed per-operation timeouts
	SignupTimeout = 10 * time.Second
	ProbeTimeout  = 5 * time.Second

	// Port used for a user-entered LAN server address
	DefaultServerPort = 8000

	// Greeting returned by GET / on a healthy backend
	WelcomeMessage = "Welcome to the Personal Assistant API"

	// Persisted key names
	KeyToken    = "token"
	KeyTheme    = "theme"
	KeyServerIP = "serverIP"

	// Upload defaults
	DefaultImageType     = "image/jpeg"
	DefaultImageExt      = ".jpg"
	DefaultDocumentType  = "application/pdf"
	MaxUploadBytes       = 20 << 20
	MaxResponseBodyBytes = 4 << 20

	// Telegram limits
	MaxTelegramMessageLen = 4096

	// Cached chat devices are dropped after this long without activity
	DeviceIdleTTL       = 24 * time.Hour
	DeviceSweepInterval = 10 * time.Minute
)

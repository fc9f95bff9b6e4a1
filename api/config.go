// Package api provides the HTTP server that accepts table uploads and streams
// assistant answers about them.
package api

import "time"

const (
	defaultPreviewRows    = 200
	defaultMaxUploadBytes = 50 * 1024 * 1024
	defaultAllowedOrigins = "*"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8000")
	ListenAddr string

	// UploadDir is where uploaded tables are stored. It is created if missing.
	UploadDir string

	// MaxUploadBytes caps the size of an uploaded file (defaults to 50MiB).
	MaxUploadBytes int64

	// SessionTTL is how long an idle session is kept. Zero keeps sessions
	// until they are deleted.
	SessionTTL time.Duration

	// AllowedOrigins is the CORS allow list (defaults to "*").
	AllowedOrigins string

	// PreviewRows is how many rows an upload response carries (defaults to 200).
	PreviewRows int
}

func (c *Config) applyDefaults() {
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = defaultMaxUploadBytes
	}
	if c.AllowedOrigins == "" {
		c.AllowedOrigins = defaultAllowedOrigins
	}
	if c.PreviewRows <= 0 {
		c.PreviewRows = defaultPreviewRows
	}
	if c.UploadDir == "" {
		c.UploadDir = "uploads"
	}
}

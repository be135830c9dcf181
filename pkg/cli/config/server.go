package config

import (
	"crypto/rand"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const minSessionSecret = 32

// Server holds server configuration
type Server struct {
	Addr          string
	SessionSecret string `masq:"secret"`
	SessionTTL    time.Duration
	SecureCookie  bool
	MaxUploadMB   int
}

// Flags returns CLI flags for server configuration
func (c *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Server address",
			Value:       "localhost:8080",
			Destination: &c.Addr,
			Sources:     cli.EnvVars("PDFDESK_ADDR"),
		},
		&cli.StringFlag{
			Name:        "session-secret",
			Usage:       "Key to sign session cookies (at least 32 bytes, random if empty)",
			Destination: &c.SessionSecret,
			Sources:     cli.EnvVars("PDFDESK_SESSION_SECRET"),
		},
		&cli.DurationFlag{
			Name:        "session-ttl",
			Usage:       "Idle time after which a browser session and its files are dropped",
			Value:       2 * time.Hour,
			Destination: &c.SessionTTL,
			Sources:     cli.EnvVars("PDFDESK_SESSION_TTL"),
		},
		&cli.BoolFlag{
			Name:        "secure-cookie",
			Usage:       "Mark the session cookie Secure (serve over HTTPS)",
			Destination: &c.SecureCookie,
			Sources:     cli.EnvVars("PDFDESK_SECURE_COOKIE"),
		},
		&cli.IntFlag{
			Name:        "max-upload-mb",
			Usage:       "Maximum size of one upload request in MiB",
			Value:       256,
			Destination: &c.MaxUploadMB,
			Sources:     cli.EnvVars("PDFDESK_MAX_UPLOAD_MB"),
		},
	}
}

// SessionKey returns the cookie signing key. A random key is generated when
// no secret is configured; sessions then do not survive a restart.
func (c *Server) SessionKey() ([]byte, error) {
	if c.SessionSecret == "" {
		key := make([]byte, minSessionSecret)
		if _, err := rand.Read(key); err != nil {
			return nil, goerr.Wrap(err, "failed to generate session key")
		}
		slog.Warn("No session secret configured, using a random key")
		return key, nil
	}

	if len(c.SessionSecret) < minSessionSecret {
		return nil, goerr.New("session secret is too short", goerr.V("min", minSessionSecret), goerr.V("length", len(c.SessionSecret)))
	}
	return []byte(c.SessionSecret), nil
}

// MaxUpload returns the upload limit in bytes
func (c *Server) MaxUpload() int64 {
	return int64(c.MaxUploadMB) << 20
}

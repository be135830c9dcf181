package config_test

import (
	"context"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/pdfdesk/pkg/cli/config"
)

func TestServer_SessionKey(t *testing.T) {
	t.Run("random key without secret", func(t *testing.T) {
		cfg := &config.Server{}
		k1, err := cfg.SessionKey()
		gt.NoError(t, err)
		k2, err := cfg.SessionKey()
		gt.NoError(t, err)

		gt.A(t, k1).Length(32)
		gt.NotEqual(t, string(k1), string(k2))
	})

	t.Run("configured secret", func(t *testing.T) {
		secret := strings.Repeat("k", 40)
		cfg := &config.Server{SessionSecret: secret}
		key, err := cfg.SessionKey()
		gt.NoError(t, err)
		gt.Equal(t, string(key), secret)
	})

	t.Run("short secret", func(t *testing.T) {
		cfg := &config.Server{SessionSecret: "short"}
		_, err := cfg.SessionKey()
		gt.Error(t, err)
	})
}

func TestServer_MaxUpload(t *testing.T) {
	cfg := &config.Server{MaxUploadMB: 3}
	gt.Equal(t, cfg.MaxUpload(), int64(3<<20))
}

func TestTransition_Configure(t *testing.T) {
	ctx := context.Background()

	t.Run("memory by default", func(t *testing.T) {
		cfg := &config.Transition{}
		store, closer, err := cfg.Configure(ctx)
		gt.NoError(t, err)
		gt.NotNil(t, store)
		closer()
	})

	t.Run("unknown store", func(t *testing.T) {
		cfg := &config.Transition{Store: "etcd"}
		_, _, err := cfg.Configure(ctx)
		gt.Error(t, err)
	})

	t.Run("firestore without project", func(t *testing.T) {
		cfg := &config.Transition{Store: "firestore"}
		_, _, err := cfg.Configure(ctx)
		gt.Error(t, err)
	})
}

func TestStorage_Configure(t *testing.T) {
	cfg := &config.Storage{}
	store, closer, err := cfg.Configure(context.Background())
	gt.NoError(t, err)
	gt.NotNil(t, store)
	closer()
}

func TestNotify_Options(t *testing.T) {
	t.Run("nothing configured", func(t *testing.T) {
		cfg := &config.Notify{}
		opts, closer := cfg.Options()
		gt.A(t, opts).Length(0)
		closer()
	})

	t.Run("kafka and slack", func(t *testing.T) {
		cfg := &config.Notify{
			KafkaBrokers:    []string{"localhost:9092"},
			KafkaTopic:      "jobs",
			SlackWebhookURL: "https://hooks.slack.test/services/x",
		}
		opts, closer := cfg.Options()
		gt.A(t, opts).Length(2)
		closer()
	})
}

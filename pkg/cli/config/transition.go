package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfdesk/pkg/domain/interfaces"
	"github.com/m-mizutani/pdfdesk/pkg/infra/transition"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

// Transition holds configuration of the store for result transition tokens
type Transition struct {
	Store string

	RedisAddr     string
	RedisPassword string `masq:"secret"`
	RedisDB       int
	RedisPrefix   string

	FirestoreProject    string
	FirestoreCollection string
	CredentialsFile     string
}

// Flags returns CLI flags for transition store configuration
func (c *Transition) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "transition-store",
			Usage:       "Transition token store (memory, redis, firestore)",
			Value:       "memory",
			Destination: &c.Store,
			Sources:     cli.EnvVars("PDFDESK_TRANSITION_STORE"),
		},
		&cli.StringFlag{
			Name:        "redis-addr",
			Usage:       "Redis address (host:port)",
			Value:       "localhost:6379",
			Destination: &c.RedisAddr,
			Sources:     cli.EnvVars("PDFDESK_REDIS_ADDR"),
		},
		&cli.StringFlag{
			Name:        "redis-password",
			Usage:       "Redis password",
			Destination: &c.RedisPassword,
			Sources:     cli.EnvVars("PDFDESK_REDIS_PASSWORD"),
		},
		&cli.IntFlag{
			Name:        "redis-db",
			Usage:       "Redis database number",
			Destination: &c.RedisDB,
			Sources:     cli.EnvVars("PDFDESK_REDIS_DB"),
		},
		&cli.StringFlag{
			Name:        "redis-prefix",
			Usage:       "Key prefix in Redis",
			Value:       "pdfdesk:",
			Destination: &c.RedisPrefix,
			Sources:     cli.EnvVars("PDFDESK_REDIS_PREFIX"),
		},
		&cli.StringFlag{
			Name:        "firestore-project",
			Usage:       "Google Cloud project of the Firestore database",
			Destination: &c.FirestoreProject,
			Sources:     cli.EnvVars("PDFDESK_FIRESTORE_PROJECT"),
		},
		&cli.StringFlag{
			Name:        "firestore-collection",
			Usage:       "Firestore collection for transition tokens",
			Value:       "transitions",
			Destination: &c.FirestoreCollection,
			Sources:     cli.EnvVars("PDFDESK_FIRESTORE_COLLECTION"),
		},
		&cli.StringFlag{
			Name:        "firestore-credentials",
			Usage:       "Service account key file (application default credentials if empty)",
			Destination: &c.CredentialsFile,
			Sources:     cli.EnvVars("PDFDESK_FIRESTORE_CREDENTIALS"),
		},
	}
}

// Configure creates the transition store. The returned func releases its resources.
func (c *Transition) Configure(ctx context.Context) (interfaces.TransitionStore, func(), error) {
	switch c.Store {
	case "", "memory":
		return transition.NewMemory(), func() {}, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, goerr.Wrap(err, "failed to connect redis", goerr.V("addr", c.RedisAddr))
		}
		return transition.NewRedis(client, c.RedisPrefix), func() { _ = client.Close() }, nil

	case "firestore":
		if c.FirestoreProject == "" {
			return nil, nil, goerr.New("firestore-project is required for firestore transition store")
		}
		var opts []option.ClientOption
		if c.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(c.CredentialsFile))
		}
		store, err := transition.NewFirestore(ctx, c.FirestoreProject, c.FirestoreCollection, opts...)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	}

	return nil, nil, goerr.New("unknown transition store", goerr.V("store", c.Store))
}

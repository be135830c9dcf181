package transition

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pdfdesk/pkg/domain/model"
	"github.com/m-mizutani/pdfdesk/pkg/domain/types"
	"github.com/redis/go-redis/v9"
)

// Redis keeps transition tokens in Redis. A live token is read and deleted
// atomically with GETDEL; a marker key remembers it was used.
type Redis struct {
	client    *redis.Client
	prefix    string
	replayTTL time.Duration
	now       func() time.Time
}

// NewRedis creates a Redis transition store
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{
		client:    client,
		prefix:    prefix,
		replayTTL: DefaultReplayTTL,
		now:       time.Now,
	}
}

func (r *Redis) liveKey(token types.TransitionToken) string {
	return r.prefix + "transition:live:" + string(token)
}

func (r *Redis) usedKey(token types.TransitionToken) string {
	return r.prefix + "transition:used:" + string(token)
}

func (r *Redis) Issue(ctx context.Context, tr *model.Transition) error {
	ttl := tr.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return goerr.New("transition already expired", goerr.V("token", tr.Token))
	}

	data, err := json.Marshal(tr)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal transition")
	}

	if err := r.client.Set(ctx, r.liveKey(tr.Token), data, ttl).Err(); err != nil {
		return goerr.Wrap(err, "failed to store transition", goerr.V("token", tr.Token))
	}
	return nil
}

func (r *Redis) Redeem(ctx context.Context, token types.TransitionToken) (*model.Redemption, error) {
	data, err := r.client.GetDel(ctx, r.liveKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		tool, err := r.client.Get(ctx, r.usedKey(token)).Result()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read used transition", goerr.V("token", token))
		}
		return &model.Redemption{Replayed: true, Tool: types.Tool(tool)}, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to redeem transition", goerr.V("token", token))
	}

	var tr model.Transition
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal transition", goerr.V("token", token))
	}

	if err := r.client.Set(ctx, r.usedKey(token), string(tr.Reference.Tool), r.replayTTL).Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to mark transition as used", goerr.V("token", token))
	}

	ref := tr.Reference
	return &model.Redemption{Reference: &ref, Tool: ref.Tool}, nil
}

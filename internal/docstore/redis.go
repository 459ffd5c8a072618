package docstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/netplay-club/internal/metrics"
)

const redisBackend = "redis"

// Redis stores documents as plain string keys and uses WATCH/MULTI/EXEC
// for Transact. Every committed write also PUBLISHes the new value on the
// document's channel, an empty payload meaning deletion.
//
// Layout under the namespace ns:
//
//	{ns}doc:{key}       document value
//	{ns}docstore:{key}  change channel
//	{ns}col:{name}      collection hash, field = record id
type Redis struct {
	rdb        redis.UniversalClient
	ns         string
	maxRetries int
	metrics    *metrics.Metrics
}

func NewRedis(rdb redis.UniversalClient, namespace string, opts ...Option) *Redis {
	o := buildOptions(opts)
	return &Redis{rdb: rdb, ns: namespace, maxRetries: o.maxRetries, metrics: o.metrics}
}

func (r *Redis) docKey(key string) string { return r.ns + "doc:" + key }
func (r *Redis) channel(key string) string { return r.ns + "docstore:" + key }
func (r *Redis) colKey(collection string) string { return r.ns + "col:" + collection }

func (r *Redis) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	b, err := r.rdb.Get(ctx, r.docKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("docstore: read %s: %w", key, err)
	}
	return b, nil
}

func (r *Redis) Transact(ctx context.Context, key string, mutate MutateFunc) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	k := r.docKey(key)
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		var (
			result    []byte
			mutateErr error
			unchanged bool
		)
		err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
			cur, err := tx.Get(ctx, k).Bytes()
			switch {
			case errors.Is(err, redis.Nil):
				cur = nil
			case err != nil:
				return err
			}
			next, err := mutate(cur)
			if errors.Is(err, ErrUnchanged) {
				result, unchanged = cur, true
				return nil
			}
			if err != nil {
				mutateErr = err
				return nil
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if next == nil {
					pipe.Del(ctx, k)
					pipe.Publish(ctx, r.channel(key), "")
					return nil
				}
				pipe.Set(ctx, k, next, 0)
				pipe.Publish(ctx, r.channel(key), next)
				return nil
			})
			if err != nil {
				return err
			}
			result = next
			return nil
		}, k)

		switch {
		case errors.Is(err, redis.TxFailedErr):
			r.metrics.StoreTx(redisBackend, metrics.OutcomeConflict)
			continue
		case err != nil:
			return nil, fmt.Errorf("docstore: transact %s: %w", key, err)
		case mutateErr != nil:
			r.metrics.StoreTx(redisBackend, metrics.OutcomeAborted)
			return nil, mutateErr
		case unchanged:
			r.metrics.StoreTx(redisBackend, metrics.OutcomeUnchanged)
			return result, nil
		}
		r.metrics.StoreTx(redisBackend, metrics.OutcomeCommitted)
		return result, nil
	}
	r.metrics.StoreTx(redisBackend, metrics.OutcomeExhausted)
	return nil, ErrConflict
}

func (r *Redis) Replace(ctx context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.docKey(key), value, 0)
		pipe.Publish(ctx, r.channel(key), value)
		return nil
	})
	if err != nil {
		return fmt.Errorf("docstore: replace %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.docKey(key))
		pipe.Publish(ctx, r.channel(key), "")
		return nil
	})
	if err != nil {
		return fmt.Errorf("docstore: delete %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Keys(ctx context.Context, prefix string) ([]string, error) {
	base := r.docKey("")
	var keys []string
	iter := r.rdb.Scan(ctx, 0, base+prefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), base))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("docstore: keys %s: %w", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *Redis) Subscribe(ctx context.Context, prefix string, onChange func(Change)) (func(), error) {
	base := r.channel("")
	ps := r.rdb.PSubscribe(ctx, base+prefix+"*")
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("docstore: subscribe %s: %w", prefix, err)
	}
	done := make(chan struct{})
	go func() {
		ch := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = ps.Close()
				return
			case <-done:
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				c := Change{Key: strings.TrimPrefix(msg.Channel, base)}
				if msg.Payload == "" {
					c.Deleted = true
				} else {
					c.Value = []byte(msg.Payload)
				}
				onChange(c)
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			_ = ps.Close()
		})
	}, nil
}

func (r *Redis) Append(ctx context.Context, collection string, value []byte) (string, error) {
	if err := ValidateKey(collection); err != nil {
		return "", err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	if err := r.rdb.HSet(ctx, r.colKey(collection), id.String(), value).Err(); err != nil {
		return "", fmt.Errorf("docstore: append %s: %w", collection, err)
	}
	return id.String(), nil
}

func (r *Redis) Query(ctx context.Context, collection string, match func([]byte) bool) ([]Record, error) {
	all, err := r.rdb.HGetAll(ctx, r.colKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("docstore: query %s: %w", collection, err)
	}
	out := make([]Record, 0, len(all))
	for id, v := range all {
		b := []byte(v)
		if match != nil && !match(b) {
			continue
		}
		out = append(out, Record{ID: id, Value: b})
	}
	sortRecords(out)
	return out, nil
}

func (r *Redis) DeleteRecord(ctx context.Context, collection, id string) error {
	n, err := r.rdb.HDel(ctx, r.colKey(collection), id).Result()
	if err != nil {
		return fmt.Errorf("docstore: delete record %s/%s: %w", collection, id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/specialistvlad/computesim/internal/metrics"
)

const (
	// RedisAdapter is the adapter name of the Redis-backed store.
	RedisAdapter = "redis"

	// Redis key prefix for database hashes
	redisKeyPrefix = "computesim:db:"

	// Optimistic transactions are retried this many times before giving up.
	redisMaxTxRetries = 8
)

func init() {
	Register(RedisAdapter, func(ctx context.Context, opts Options) (Store, error) {
		url, err := RedisURL(opts)
		if err != nil {
			return nil, err
		}
		redisOpts, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("parse redis URL: %w", err)
		}
		client := redis.NewClient(redisOpts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		return NewRedis(client, opts.Name), nil
	})
}

// RedisURL returns the connection string for opts: the explicit URL when
// set, otherwise redis://<hostname>:<port> of the remote endpoint. The
// endpoint's protocol names the database service and is not used.
func RedisURL(opts Options) (string, error) {
	if opts.URL != "" {
		return opts.URL, nil
	}
	if opts.Endpoint == nil || opts.Endpoint.Hostname == "" || opts.Endpoint.Port <= 0 {
		return "", errors.New("redis adapter requires a URL or a remote endpoint")
	}
	return "redis://" + net.JoinHostPort(opts.Endpoint.Hostname, strconv.Itoa(opts.Endpoint.Port)), nil
}

// hashGetter is satisfied by both *redis.Client and *redis.Tx.
type hashGetter interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

// Redis stores each database as one hash, one field per document. It is the
// store to use when several simulator processes need to share documents.
type Redis struct {
	client *redis.Client
	name   string
	key    string
}

// NewRedis wraps an existing client. The store takes ownership of the client
// and closes it on Close.
func NewRedis(client *redis.Client, name string) *Redis {
	return &Redis{client: client, name: name, key: redisKeyPrefix + name}
}

// Name implements Store.
func (r *Redis) Name() string {
	return r.name
}

// Put implements Store. The revision check and the write run inside a
// WATCH/MULTI transaction on the database hash.
func (r *Redis) Put(ctx context.Context, doc Document) (string, error) {
	rev, err := r.put(ctx, doc)
	metrics.ObserveDocumentWrite(RedisAdapter, err)
	return rev, err
}

func (r *Redis) put(ctx context.Context, doc Document) (string, error) {
	if doc.ID == "" {
		return "", fmt.Errorf("document id must not be empty")
	}

	var rev string
	txf := func(tx *redis.Tx) error {
		current, err := r.load(ctx, tx, doc.ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		rev, err = nextRevision(current.Rev, doc)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(Document{ID: doc.ID, Rev: rev, Body: doc.Body})
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, r.key, doc.ID, payload)
			return nil
		})
		return err
	}

	for i := 0; i < redisMaxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, r.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return "", err
		}
		return rev, nil
	}
	return "", fmt.Errorf("%w: document %q kept changing during write", ErrConflict, doc.ID)
}

func (r *Redis) load(ctx context.Context, cmd hashGetter, id string) (Document, error) {
	raw, err := cmd.HGet(ctx, r.key, id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Document{}, fmt.Errorf("%w: %q in %s", ErrNotFound, id, r.name)
	}
	if err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("corrupt document %q in %s: %w", id, r.name, err)
	}
	return doc, nil
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, id string) (Document, error) {
	return r.load(ctx, r.client, id)
}

// All implements Store.
func (r *Redis) All(ctx context.Context) ([]Document, error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(fields))
	for id, raw := range fields {
		var doc Document
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("corrupt document %q in %s: %w", id, r.name, err)
		}
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// Delete implements Store.
func (r *Redis) Delete(ctx context.Context, id, rev string) error {
	txf := func(tx *redis.Tx) error {
		current, err := r.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.Rev != rev {
			return fmt.Errorf("%w: document %q is at revision %s", ErrConflict, id, current.Rev)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, r.key, id)
			return nil
		})
		return err
	}

	for i := 0; i < redisMaxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, r.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("%w: document %q kept changing during delete", ErrConflict, id)
}

// Close implements Store.
func (r *Redis) Close() error {
	return r.client.Close()
}

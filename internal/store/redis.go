package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ricesearch/rice-insight/internal/pkg/errors"
)

// DefaultKeyPrefix namespaces every key written to Redis.
const DefaultKeyPrefix = "rice:insight:"

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(errors.CodeValidation, "parsing redis URL", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(errors.CodeUnavailable, "connecting to redis", err)
	}

	return client, nil
}

// RedisStore keeps file content as plain string keys and indexes the paths
// of each snapshot in a set.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps a connected client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) fileKey(snapshotID, path string) string {
	return r.prefix + "file:" + snapshotID + ":" + path
}

func (r *RedisStore) filesKey(snapshotID string) string {
	return r.prefix + "files:" + snapshotID
}

func (r *RedisStore) snapshotsKey() string {
	return r.prefix + "snapshots"
}

func (r *RedisStore) PutFile(ctx context.Context, snapshotID, path, content string) error {
	if err := ValidateSnapshotID(snapshotID); err != nil {
		return err
	}
	if path == "" {
		return errors.ValidationError("file path cannot be empty")
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.fileKey(snapshotID, path), content, 0)
	pipe.SAdd(ctx, r.filesKey(snapshotID), path)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.TransientError("redis put file", err)
	}
	return nil
}

func (r *RedisStore) GetFileContent(ctx context.Context, snapshotID, path string) (string, bool, error) {
	content, err := r.client.Get(ctx, r.fileKey(snapshotID, path)).Result()
	if stderrors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.TransientError("redis get file", err)
	}
	return content, true, nil
}

func (r *RedisStore) ListFiles(ctx context.Context, snapshotID string) ([]string, error) {
	paths, err := r.client.SMembers(ctx, r.filesKey(snapshotID)).Result()
	if err != nil {
		return nil, errors.TransientError("redis list files", err)
	}
	sort.Strings(paths)
	return paths, nil
}

func (r *RedisStore) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	if err := ValidateSnapshotID(snap.ID); err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.InternalError("marshal snapshot", err)
	}
	if err := r.client.HSet(ctx, r.snapshotsKey(), snap.ID, data).Err(); err != nil {
		return errors.TransientError("redis save snapshot", err)
	}
	return nil
}

func (r *RedisStore) GetSnapshot(ctx context.Context, snapshotID string) (*Snapshot, error) {
	data, err := r.client.HGet(ctx, r.snapshotsKey(), snapshotID).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, errors.NotFoundError("snapshot " + snapshotID)
	}
	if err != nil {
		return nil, errors.TransientError("redis get snapshot", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.InternalError("unmarshal snapshot", err)
	}
	return &snap, nil
}

func (r *RedisStore) ListSnapshots(ctx context.Context) ([]Snapshot, error) {
	all, err := r.client.HGetAll(ctx, r.snapshotsKey()).Result()
	if err != nil {
		return nil, errors.TransientError("redis list snapshots", err)
	}

	snaps := make([]Snapshot, 0, len(all))
	for _, data := range all {
		var snap Snapshot
		if err := json.Unmarshal([]byte(data), &snap); err != nil {
			continue // skip corrupt records
		}
		snaps = append(snaps, snap)
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].ID < snaps[j].ID })
	return snaps, nil
}

func (r *RedisStore) DeleteSnapshot(ctx context.Context, snapshotID string) error {
	paths, err := r.client.SMembers(ctx, r.filesKey(snapshotID)).Result()
	if err != nil {
		return errors.TransientError("redis list files", err)
	}

	pipe := r.client.TxPipeline()
	for _, p := range paths {
		pipe.Del(ctx, r.fileKey(snapshotID, p))
	}
	pipe.Del(ctx, r.filesKey(snapshotID))
	pipe.HDel(ctx, r.snapshotsKey(), snapshotID)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.TransientError("redis delete snapshot", err)
	}
	return nil
}

// Close closes the underlying client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

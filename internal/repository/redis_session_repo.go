package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/secretapp/internal/model"
)

const redisSessionKeyPrefix = "session:"

// redisSessionRecord はRedisに保存するセッションのJSON表現。
type redisSessionRecord struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RedisSessionRepo はRedisを使用したセッションリポジトリ。
// キーのTTLを残り有効期間に合わせるため、期限切れセッションは自動的に消える。
type RedisSessionRepo struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRedisSessionRepo はRedisSessionRepoを生成する。
func NewRedisSessionRepo(client redis.UniversalClient) *RedisSessionRepo {
	return &RedisSessionRepo{client: client, now: time.Now}
}

func redisSessionKey(id string) string {
	return redisSessionKeyPrefix + id
}

// Create はセッションを作成する。既に期限切れのセッションは保存しない。
func (r *RedisSessionRepo) Create(ctx context.Context, session *model.Session) error {
	ttl := session.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return model.NewStorageError("sessions.create", fmt.Errorf("session %q already expired", session.ID))
	}

	data, err := json.Marshal(redisSessionRecord{
		UserID:    session.UserID,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	// SET NX: 万一トークンが衝突しても既存セッションを上書きしない
	ok, err := r.client.SetNX(ctx, redisSessionKey(session.ID), data, ttl).Result()
	if err != nil {
		return model.NewStorageError("sessions.create", err)
	}
	if !ok {
		return model.NewStorageError("sessions.create", fmt.Errorf("session %q already exists", session.ID))
	}
	return nil
}

// FindByID は指定IDのセッションを取得する。期限切れまたは存在しない場合はnilを返す。
func (r *RedisSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	data, err := r.client.Get(ctx, redisSessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, model.NewStorageError("sessions.find_by_id", err)
	}

	var rec redisSessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, model.NewStorageError("sessions.find_by_id", fmt.Errorf("corrupt session record: %w", err))
	}

	session := &model.Session{
		ID:        id,
		UserID:    rec.UserID,
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt,
	}
	if session.Expired(r.now()) {
		return nil, nil
	}
	return session, nil
}

// DeleteByID は指定IDのセッションを削除する。
func (r *RedisSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, redisSessionKey(id)).Err(); err != nil {
		return model.NewStorageError("sessions.delete_by_id", err)
	}
	return nil
}

// compile-time interface check
var _ SessionRepository = (*RedisSessionRepo)(nil)

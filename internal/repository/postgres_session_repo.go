package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/secretapp/internal/model"
)

// PostgresSessionRepo はPostgreSQLを使用したセッションリポジトリ。
// ユーザーと同じデータベースのsessionsテーブルに保存する。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// Create はセッションを作成する。
func (r *PostgresSessionRepo) Create(ctx context.Context, session *model.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, expires_at, created_at)
		 VALUES ($1, $2, $3, $4)`,
		session.ID, session.UserID, session.ExpiresAt, session.CreatedAt,
	)
	if err != nil {
		return model.NewStorageError("sessions.create", err)
	}
	return nil
}

// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
func (r *PostgresSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	session := &model.Session{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, expires_at, created_at
		 FROM sessions
		 WHERE id = $1 AND expires_at > now()`,
		id,
	).Scan(&session.ID, &session.UserID, &session.ExpiresAt, &session.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, model.NewStorageError("sessions.find_by_id", err)
	}

	return session, nil
}

// DeleteByID は指定IDのセッションを削除する。
func (r *PostgresSessionRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = $1`,
		id,
	)
	if err != nil {
		return model.NewStorageError("sessions.delete_by_id", err)
	}
	return nil
}

// DeleteExpired は期限切れのセッションをすべて削除し、削除件数を返す。
// 冪等: 削除対象がない場合でもエラーにならない。
func (r *PostgresSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= now()`,
	)
	if err != nil {
		return 0, model.NewStorageError("sessions.delete_expired", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, model.NewStorageError("sessions.delete_expired", err)
	}
	return deleted, nil
}

// compile-time interface check
var (
	_ SessionRepository    = (*PostgresSessionRepo)(nil)
	_ ExpiredSessionPurger = (*PostgresSessionRepo)(nil)
)

// Package cleanup は期限切れセッションの定期削除ジョブを提供する。
// 期限切れのセッションは検証時に不在として扱われるが、
// レコード自体はこのジョブがまとめて削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/secretapp/internal/repository"
)

// DefaultInterval はジョブの既定の実行間隔。
const DefaultInterval = time.Hour

// PurgeRecorder は削除件数を記録するメトリクスのインターフェース。
type PurgeRecorder interface {
	RecordSessionsPurged(count int64)
}

// CleanupJob は期限切れセッションの削除ジョブ。
// 冪等な削除処理のため、複数のワーカーが同時に実行しても問題ない。
type CleanupJob struct {
	purger   repository.ExpiredSessionPurger
	logger   *slog.Logger
	recorder PurgeRecorder
	Interval time.Duration // 実行間隔（デフォルト: 1時間）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// recorderがnilの場合はメトリクスを記録しない。
func NewCleanupJob(purger repository.ExpiredSessionPurger, logger *slog.Logger, recorder PurgeRecorder) *CleanupJob {
	return &CleanupJob{
		purger:   purger,
		logger:   logger,
		recorder: recorder,
		Interval: DefaultInterval,
	}
}

// Run は期限切れセッションを1回削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deletedCount, err := j.purger.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("セッションクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	if j.recorder != nil {
		j.recorder.RecordSessionsPurged(deletedCount)
	}

	duration := time.Since(start)
	j.logger.Info("セッションクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Start は起動直後に1回実行し、以降Intervalごとに実行する。
// ctxがキャンセルされるまでブロックする。個々の実行エラーはログのみで継続する。
func (j *CleanupJob) Start(ctx context.Context) {
	interval := j.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	_ = j.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}

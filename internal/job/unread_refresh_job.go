package job

import (
	"Stagelink/internal/pkg/logger"
	"Stagelink/internal/service"
	"context"
	"errors"
	log "log/slog"

	"github.com/google/uuid"
)

// UnreadRefreshJob 定时全量刷新：相当于 App 回到前台时的重算
// 丢失的中间写入在下一次全量通道自然收敛
type UnreadRefreshJob struct {
	syncService service.SyncService
}

func NewUnreadRefreshJob(syncService service.SyncService) *UnreadRefreshJob {
	return &UnreadRefreshJob{
		syncService: syncService,
	}
}

func (s *UnreadRefreshJob) Run() {
	traceID := "job-unread-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	unread, err := s.syncService.RefreshUnread(ctx)
	if err != nil {
		if errors.Is(err, service.ErrEngineStopped) {
			return
		}
		log.ErrorContext(ctx, "unread refresh error", "err", err)
		return
	}

	log.InfoContext(ctx, "UnreadRefreshJob done", "unread", unread)
}

package cron

import (
	"Stagelink/internal/job"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

type Manager struct {
	engine           *cron.Cron
	unreadRefreshJob *job.UnreadRefreshJob
	refreshSpec      string
}

func NewCronManager(unreadRefreshJob *job.UnreadRefreshJob, refreshSpec string) *Manager {
	if refreshSpec == "" {
		refreshSpec = "@every 5m"
	}
	return &Manager{
		engine:           cron.New(cron.WithSeconds()),
		unreadRefreshJob: unreadRefreshJob,
		refreshSpec:      refreshSpec,
	}
}

// RegisterJobs 注册定时任务
func (s *Manager) RegisterJobs() error {
	if _, err := s.engine.AddJob(s.refreshSpec, s.unreadRefreshJob); err != nil {
		return err
	}
	return nil
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动")
	s.engine.Start()
}

func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	s.engine.Stop()
}

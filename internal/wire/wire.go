package wire

import (
	"Stagelink/internal/config"
	"Stagelink/internal/job"
	"Stagelink/internal/pkg/cron"
	"Stagelink/internal/pkg/kafka"
	imongo "Stagelink/internal/pkg/mongo"
	"Stagelink/internal/repository"
	"Stagelink/internal/service"

	"go.mongodb.org/mongo-driver/mongo"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Sync         service.SyncService
	Notification service.NotificationService
	KafkaManager *kafka.ConsumerManager
	CronMgr      *cron.Manager
}

func BuildApplication(mongoDB *mongo.Database, cfg *config.Config) (*ApplicationContainer, error) {
	convStore := repository.NewConversationStore()
	notifStore := repository.NewNotificationStore()
	messageRepo := imongo.NewMessageRepo(mongoDB)

	notifService := service.NewNotificationService(notifStore)
	syncService := service.NewSyncService(convStore, messageRepo, notifService, cfg.Sync)

	kafkaMgr, err := kafka.NewConsumerManager(cfg, syncService)
	if err != nil {
		return nil, err
	}

	cronMgr := cron.NewCronManager(job.NewUnreadRefreshJob(syncService), cfg.Sync.RefreshSpec)

	return &ApplicationContainer{
		Sync:         syncService,
		Notification: notifService,
		KafkaManager: kafkaMgr,
		CronMgr:      cronMgr,
	}, nil
}

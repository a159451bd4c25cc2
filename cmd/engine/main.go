package main

import (
	"Stagelink/internal/config"
	"Stagelink/internal/pkg/consts"
	"Stagelink/internal/pkg/cron"
	"Stagelink/internal/pkg/logger"
	"Stagelink/internal/pkg/mongo"
	"Stagelink/internal/pkg/redis"
	"Stagelink/internal/wire"
	"context"
	"errors"
	log "log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

func main() {
	// 加载配置
	if err := config.LoadConfig(); err != nil {
		log.Error("Fatal error: failed to load configuration", "err", err)
		panic(err)
	}
	cfg := config.Cfg

	// 初始化日志
	logger.InitLogger()

	// Redis 连接
	redisCfg := cfg.Redis
	err := redis.InitRedis(redisCfg)
	if err != nil {
		log.Error("Fatal error: failed to create redis connection", "err", err)
		panic(err)
	}

	// Mongo 连接
	mongoCfg := cfg.Mongo
	mongoConn, err := mongo.InitMongo(mongoCfg)
	if err != nil {
		log.Error("Fatal error: failed to create mongo connection", "err", err)
		panic(err)
	}

	// 依赖注入
	app, err := wire.BuildApplication(mongoConn, cfg)
	if err != nil {
		log.Error("Fatal error: failed to create application", "err", err)
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	// 同步引擎：以配置的登录身份启动
	if cfg.Sync.Identity != "" {
		if err = app.Sync.Start(cfg.Sync.Identity); err != nil {
			log.Error("Fatal error: failed to start sync engine", "err", err)
			panic(err)
		}
	}
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Sync engine stopping...")
		app.Sync.Stop()
		return nil
	})

	// 身份提供方：监听登录/登出事件，换号前先拆除旧订阅
	g.Go(func() error {
		pubsub := redis.Subscribe(ctx, consts.IMIdentityKey)
		defer func() {
			_ = pubsub.Close()
		}()

		for {
			select {
			case msg := <-pubsub.Channel():
				identity := msg.Payload
				if identity == "" {
					log.Info("Identity logged out")
					app.Sync.Stop()
					continue
				}
				log.Info("Identity changed", "identity", identity)
				if err := app.Sync.Start(identity); err != nil {
					log.Error("Failed to restart sync engine", "err", err)
				}
			case <-ctx.Done():
				return nil
			}
		}
	})

	// 定时任务
	err = cron.InitCron(app.CronMgr)
	if err != nil {
		log.Error("Fatal error: failed to start cron jobs", "err", err)
		panic(err)
	}
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Cron Jobs stopping...")
		app.CronMgr.Stop()
		return nil
	})

	// Kafka 消费者
	g.Go(func() error {
		log.Info("Kafka Consumers starting...")
		return app.KafkaManager.Start(ctx, cfg)
	})

	// 优雅退出
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig := <-quit:
			log.Info("Received signal, shutting down...", "signal", sig)
			cancel()
		}
		return nil
	})

	if err = g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("App exited with error", "err", err)
	}
	log.Info("App exited successfully.")
}

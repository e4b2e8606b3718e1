package app

import (
	"context"
	"fmt"
	"time"

	"socialmatch/config"
	"socialmatch/services"
	"socialmatch/services/matching"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App - собранные зависимости сервиса. Общая сборка для HTTP-сервера и фонового sweeper
type App struct {
	Config        *config.ConfigSchema
	Log           *zap.Logger
	DB            *gorm.DB
	Redis         *redis.Client
	Broker        *services.RabbitBroker
	WS            *services.WSConnManager
	Users         *services.UserService
	Friends       *services.FriendService
	Dialogs       *services.DialogService
	Notifications *services.NotificationService
	Coordinator   *matching.Coordinator
}

// New собирает сервисы поверх открытой базы. Redis и RabbitMQ подключаются, только если настроены
func New(ctx context.Context, conf *config.ConfigSchema, orm *gorm.DB, log *zap.Logger) (*App, error) {
	a := &App{
		Config: conf,
		Log:    log,
		DB:     orm,
		WS:     services.NewWSConnManager(),
	}

	var locker matching.PairLocker = matching.NewLocalPairLocker()
	if conf.Redis.Addr() != "" {
		client, err := services.NewRedisClient(ctx, conf.Redis)
		if err != nil {
			return nil, err
		}
		a.Redis = client
		locker = matching.NewRedisPairLocker(client, conf.Match.LockTTL)
		log.Info("using redis pair lock", zap.String("addr", conf.Redis.Addr()))
	}

	var publisher services.Publisher = a.WS
	if conf.RabbitMQ.URL != "" {
		broker, err := services.NewRabbitBroker(conf.RabbitMQ, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Broker = broker
		publisher = broker
	}

	a.Users = services.NewUserService(orm)
	a.Friends = services.NewFriendService(orm)
	a.Dialogs = services.NewDialogService(orm)
	a.Notifications = services.NewNotificationService(orm, publisher, log.Named("notify"))

	coord, err := matching.NewCoordinator(matching.Options{
		DB:       orm,
		Oracle:   a.Friends,
		Chat:     a.Dialogs,
		Notifier: a.Notifications,
		Locker:   locker,
		Calendar: matching.Calendar{DefaultOffsetMinutes: conf.Match.DefaultTZOffsetMinutes},
		Rules:    matching.RulesFromConfig(conf.Match),
		Log:      log.Named("match"),
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to build coordinator: %w", err)
	}
	a.Coordinator = coord
	return a, nil
}

func (a *App) Close() {
	if a.Broker != nil {
		if err := a.Broker.Close(); err != nil {
			a.Log.Warn("failed to close RabbitMQ", zap.Error(err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Log.Warn("failed to close Redis", zap.Error(err))
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

// Sweeper - то, что умеет закрывать просроченные мэтчи пачками
type Sweeper interface {
	SweepExpired(ctx context.Context, batch int) (int, error)
}

// RunSweeper раз в interval закрывает мэтчи с просроченным финальным анлайком, пока не отменен ctx.
// Полная пачка означает, что могли остаться еще, поэтому проход повторяется сразу
func RunSweeper(ctx context.Context, s Sweeper, interval time.Duration, batch int, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		for {
			n, err := s.SweepExpired(ctx, batch)
			if err != nil {
				log.Error("sweep failed", zap.Error(err))
				break
			}
			if n > 0 {
				log.Info("expired matches dissolved", zap.Int("count", n))
			}
			if n < batch || ctx.Err() != nil {
				break
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

package main // Entry point package

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/auth"
	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/database"
	"github.com/iliyamo/auth-service/internal/handler"
	"github.com/iliyamo/auth-service/internal/notify"
	"github.com/iliyamo/auth-service/internal/queue"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/router"
	queue_publisher "github.com/iliyamo/auth-service/internal/service"
	"github.com/iliyamo/auth-service/internal/token"
)

func main() {
	// Load a local .env file when present; real deployments set the
	// environment directly.
	if err := godotenv.Load(); err == nil {
		log.Println("loaded configuration from .env")
	}

	cfg := config.Load()
	notifCfg := config.LoadNotificationConfig()

	// User repository: MySQL when configured, in-memory otherwise.
	var users repository.UserRepository
	if cfg.DBHost != "" {
		db, err := database.Open(database.Config{
			User:         cfg.DBUser,
			Pass:         cfg.DBPass,
			Host:         cfg.DBHost,
			Port:         cfg.DBPort,
			Name:         cfg.DBName,
			MaxOpenConns: cfg.DBMaxOpenConns,
		})
		if err != nil {
			log.Fatalf("mysql: %v", err)
		}
		users = repository.NewMySQLUserRepo(db)
		log.Printf("using mysql user repository at %s:%s/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)
	} else {
		users = repository.NewMemoryUserRepo()
		log.Println("DB_HOST not set; using in-memory user repository")
	}

	// Token store: Redis when reachable, in-memory otherwise.
	var store token.Store
	if rdb := config.NewRedisClient(); rdb != nil {
		store = token.NewRedisStore(rdb)
		log.Println("using redis token store")
	} else {
		store = token.NewMemoryStore()
		log.Println("redis unreachable; using in-memory token store")
	}

	tokens := token.NewService(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL, cfg.TokenType, store)
	hasher := auth.NewHasher(cfg.BcryptCost)
	factory := auth.NewFactory()

	strategies := auth.NewStrategyRegistry(
		auth.NewUsernamePasswordStrategy(users, hasher),
		auth.NewEmailPasswordStrategy(users, hasher),
	)

	// Notification sink: queue-backed when enabled, inline SMTP when email
	// is on, otherwise log-only.
	var notifier notify.Notifier
	switch {
	case notifCfg.UseQueue:
		notifier = notify.NewQueueNotifier(notifCfg.Templates, queue_publisher.PublishNotification)
		deliver := notificationDeliverer(notifCfg)
		go queue.StartNotificationConsumer(queue_publisher.BrokerURL(), deliver)
		log.Println("notifications: publishing to rabbitmq")
	case notifCfg.EmailEnabled:
		notifier = notify.NewSMTPNotifier(notifCfg.SMTP, notifCfg.Templates)
		log.Println("notifications: inline smtp delivery")
	default:
		notifier = notify.NewLogNotifier(notifCfg.Templates)
		log.Println("notifications: email disabled, logging only")
	}

	engine := auth.NewEngine(users, strategies, tokens, hasher, notifier, factory)
	defer engine.Wait()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, engine), tokens)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// notificationDeliverer picks the transport used by the queue consumer:
// SMTP when email is enabled, the process log otherwise.
func notificationDeliverer(cfg config.NotificationConfig) queue.Deliver {
	if !cfg.EmailEnabled {
		return func(ev queue.NotificationEvent) error {
			log.Printf("notify: [%s] to=%s subject=%q (email delivery disabled)", ev.Kind, ev.Recipient, ev.Subject)
			return nil
		}
	}
	sender := notify.NewSMTPNotifier(cfg.SMTP, cfg.Templates)
	return func(ev queue.NotificationEvent) error {
		return sender.DeliverRendered(context.Background(), ev.Recipient, ev.Subject, ev.Body)
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/recipefox/recipefox/app/controllers"
	"github.com/recipefox/recipefox/app/repository"
	"github.com/recipefox/recipefox/internal/pkg/billing"
	"github.com/recipefox/recipefox/internal/pkg/cache"
	"github.com/recipefox/recipefox/internal/pkg/database"
	"github.com/recipefox/recipefox/internal/pkg/entitlements"
	"github.com/recipefox/recipefox/internal/pkg/env"
	"github.com/recipefox/recipefox/internal/pkg/jobqueue"
	"github.com/recipefox/recipefox/internal/pkg/metrics/premium"
	"github.com/recipefox/recipefox/internal/pkg/notify"
	"github.com/recipefox/recipefox/internal/pkg/router"
	"github.com/recipefox/recipefox/views"
)

func main() {
	app, cleanup := NewApplication()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))); err != nil {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
	cleanup()
}

func NewApplication() (*fiber.App, func()) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	cfg, err := billing.NewConfigFromEnv()
	if err != nil {
		log.Fatalf("Invalid payment configuration: %v", err)
	}

	basePath := findBasePath()

	// metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	premiumMetrics := premium.New(reg)
	premium.RegisterActiveSubscribers(reg, repository.GetGlobalFactory().GetUserRepository().CountActivePremium)

	// job queue for activation mails
	jobs := jobqueue.GetManager()
	jobs.Start()

	notifier, closers := newNotifier(jobs.GetQueue())

	// payment flow
	signer := billing.NewSigner(cfg.SecretKey)
	store := entitlements.NewStoreFromDB(database.GetDB())
	verifier := billing.NewVerifier(cfg, signer, billing.NewEsewaClient(cfg), store,
		billing.WithNotifier(notifier),
		billing.WithMetrics(premiumMetrics),
	)
	controllers.InitializePremiumController(controllers.NewPremiumController(
		cfg,
		billing.NewSessionBuilder(cfg, signer, premiumMetrics),
		verifier,
		store,
	))
	controllers.InitializeAuthController()

	// init fiber app
	app := fiber.New(fiber.Config{
		Views:     views.NewEngine(),
		BodyLimit: 1 << 20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// metrics and monitor behind basic auth
	if users := metricsUsers(); users != nil {
		auth := basicauth.New(basicauth.Config{Users: users})
		app.Get("/metrics", auth, adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
		app.Get("/monitor", auth, monitor.New())
	} else {
		log.Println("METRICS_PASSWORD not set, /metrics and /monitor are disabled")
	}

	// SWAGGER / OPENAPI
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}))

	// ROUTER
	router.InstallRouter(app, router.Deps{
		Statuses:     store,
		LoginURL:     cfg.FrontendURL + "/login",
		AllowOrigins: cfg.FrontendURL,
	})

	cleanup := func() {
		verifier.Wait()
		jobs.Stop()
		for _, c := range closers {
			if err := c.Close(); err != nil {
				log.Printf("Closing notifier: %v", err)
			}
		}
	}
	return app, cleanup
}

// newNotifier always mails the subscriber and additionally publishes to
// Kafka when KAFKA_BROKERS is set.
func newNotifier(queue notify.JobEnqueuer) (notify.Notifier, []io.Closer) {
	notifiers := notify.Multi{notify.NewMailNotifier(queue)}
	var closers []io.Closer

	if brokers := env.GetList("KAFKA_BROKERS"); len(brokers) > 0 {
		kafka, err := notify.NewKafkaNotifier(brokers, env.GetEnv("KAFKA_TOPIC_PREMIUM", notify.DefaultPremiumTopic))
		if err != nil {
			log.Printf("Kafka notifier disabled: %v", err)
		} else {
			notifiers = append(notifiers, kafka)
			closers = append(closers, kafka)
		}
	}
	return notifiers, closers
}

func metricsUsers() map[string]string {
	password := env.GetEnv("METRICS_PASSWORD", "")
	if password == "" {
		return nil
	}
	return map[string]string{env.GetEnv("METRICS_USER", "admin"): password}
}

func findBasePath() string {
	basePaths := []string{
		"./",     // Current directory
		"../../", // From cmd/recipefox to project root
	}
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public/docs/v1/openapi.yml"); err == nil {
			return path
		}
	}
	panic("Could not find project root directory")
}

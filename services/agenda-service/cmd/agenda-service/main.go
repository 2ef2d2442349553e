package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mv-carvalho/clinsched/libs/config"
	"github.com/mv-carvalho/clinsched/libs/db"
	"github.com/mv-carvalho/clinsched/libs/httpx"
	"github.com/mv-carvalho/clinsched/libs/kafkax"
	otelx "github.com/mv-carvalho/clinsched/libs/otel"
	"github.com/mv-carvalho/clinsched/libs/runtime"
	"github.com/mv-carvalho/clinsched/services/agenda-service/internal/consumer"
	"github.com/mv-carvalho/clinsched/services/agenda-service/internal/directory"
	"github.com/mv-carvalho/clinsched/services/agenda-service/internal/engine"
	"github.com/mv-carvalho/clinsched/services/agenda-service/internal/handlers"
	"github.com/mv-carvalho/clinsched/services/agenda-service/internal/inbox"
	"github.com/mv-carvalho/clinsched/services/agenda-service/internal/model"
	"github.com/mv-carvalho/clinsched/services/agenda-service/internal/outbox"
	"github.com/mv-carvalho/clinsched/services/agenda-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "agenda-service")
	port, err := config.Port("PORT", "8084")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	scheduleRepo := storage.NewScheduleRepository(pool)
	appointmentRepo := storage.NewAppointmentRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	directoryProvider, err := directory.NewProvider(config.String("DIRECTORY_GRPC_ADDR", ""))
	if err != nil {
		logger.Error("directory provider init failed; using local schedules only", "err", err)
		directoryProvider = nil
	}
	scheduleSource := directory.NewFallbackSource(directoryProvider, scheduleRepo, logger)
	eng := engine.New(scheduleSource, appointmentRepo)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	inboxRepo := inbox.NewRepository(pool)
	if topic := strings.TrimSpace(config.String("KAFKA_CONSUME_TOPIC", "directory.schedule.updated.v1")); topic != "" {
		consumerCfg := consumer.Config{
			Brokers: config.String("KAFKA_BROKERS", ""),
			GroupID: config.String("KAFKA_GROUP_ID", "agenda-service"),
			Topic:   topic,
		}
		eventConsumer := consumer.New(logger, inboxRepo, consumerCfg, scheduleUpdateHandler(logger, scheduleRepo))
		go eventConsumer.Run(ctx)
	}

	agendaHandler := handlers.NewAgendaHandler(eng, appointmentRepo, outboxRepo, logger)
	scheduleHandler := handlers.NewScheduleHandler(scheduleRepo, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.HandleFunc("/api/v1/public/availability", agendaHandler.Availability)
	mux.HandleFunc("/api/v1/public/slots", agendaHandler.Slots)
	mux.HandleFunc("/api/v1/appointments", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			agendaHandler.List(w, r)
			return
		}
		agendaHandler.Book(w, r)
	})
	mux.HandleFunc("/api/v1/appointments/reschedule", agendaHandler.Reschedule)
	mux.HandleFunc("/api/v1/appointments/cancel", agendaHandler.Cancel)
	mux.Handle("/api/v1/admin/schedules",
		httpx.WithAdminToken(config.String("ADMIN_TOKEN_BCRYPT", ""))(http.HandlerFunc(scheduleHandler.Handle)))

	var rateLimitMW httpx.Middleware
	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()

		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl"))
		rateLimitMW = rl.Middleware(logger, true)
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute, "redis_addr", addr)
	} else {
		rl := httpx.NewRateLimiter(limitPerMinute, time.Minute)
		rateLimitMW = rl.Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: parseList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods: parseList(config.String("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS")),
			AllowedHeaders: parseList(config.String("CORS_ALLOWED_HEADERS", "Authorization,Content-Type,X-Request-Id")),
			MaxAge:         time.Duration(config.Int("CORS_MAX_AGE_SECONDS", 600)) * time.Second,
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20))),
		rateLimitMW,
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "agenda")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

func parseList(raw string) []string {
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// scheduleUpdateHandler mirrors directory schedule changes into the local
// read model, so booking validation keeps working when the directory service
// is down. Malformed events are logged and dropped, not retried.
func scheduleUpdateHandler(logger *slog.Logger, scheduleRepo *storage.ScheduleRepository) consumer.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var payload struct {
			ProfessionalID string `json:"professional_id"`
			Weekday        int    `json:"weekday"`
			WorkStart      string `json:"work_start"`
			WorkEnd        string `json:"work_end"`
			LunchStart     string `json:"lunch_start"`
			LunchEnd       string `json:"lunch_end"`
			SlotMinutes    int    `json:"slot_minutes"`
			Deleted        bool   `json:"deleted"`
		}
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid event payload", "err", err, "topic", msg.Topic)
			return nil
		}

		if payload.Deleted {
			return scheduleRepo.Delete(ctx, payload.ProfessionalID, time.Weekday(payload.Weekday))
		}

		sched := model.WeeklySchedule{
			ProfessionalID: payload.ProfessionalID,
			Weekday:        time.Weekday(payload.Weekday),
			WorkStart:      payload.WorkStart,
			WorkEnd:        payload.WorkEnd,
			LunchStart:     payload.LunchStart,
			LunchEnd:       payload.LunchEnd,
			SlotMinutes:    payload.SlotMinutes,
		}
		if err := sched.Validate(); err != nil {
			logger.Error("rejected schedule event", "err", err, "professional_id", payload.ProfessionalID)
			return nil
		}
		_, err := scheduleRepo.Upsert(ctx, sched)
		return err
	}
}

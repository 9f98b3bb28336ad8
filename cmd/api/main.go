package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mentortrack/internal/attendance"
	"mentortrack/internal/backup"
	"mentortrack/internal/config"
	"mentortrack/internal/dispatch"
	"mentortrack/internal/httpmiddleware"
	"mentortrack/internal/mailer"
	"mentortrack/internal/queue"
	"mentortrack/internal/report"
	"mentortrack/internal/roster"
	"mentortrack/internal/store"
	"mentortrack/internal/term"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if db == nil {
		return err
	}
	if err != nil {
		log.Printf("warning: db not reachable: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	loc := cfg.Location()

	rosterRepo := roster.NewRepository(db.Client)
	rosterSvc := roster.NewService(rosterRepo)
	attendanceRepo := attendance.NewRepository(db.Client)
	recorder := attendance.NewService(attendanceRepo, rosterRepo, loc)
	termResolver := term.NewResolver(rosterRepo, redisClient, cfg.TermCacheTTL, loc)

	mailRepo := mailer.NewRepository(db.Client)
	smtpSender := mailer.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
	syncDispatch := mailer.NewSyncDispatcher(mailRepo, smtpSender)

	// Report emails either go out in the request path or through the queue
	// to the worker, depending on QUEUE_BACKEND.
	var reportDispatcher report.Dispatcher = syncDispatch
	switch cfg.QueueBackend {
	case "redis":
		reportDispatcher = mailer.NewQueueDispatcher(queue.NewRedisQueue(redisClient.Client, "mentortrack:outbox"))
	case "memory":
		q := queue.NewInMemory(64)
		reportDispatcher = mailer.NewQueueDispatcher(q)
		go runInProcessMailer(q, syncDispatch)
	}

	engine := report.NewEngine(attendanceRepo, report.NewCourseStore(db.Client), rosterRepo, reportDispatcher)
	backups := backup.NewRunner(cfg.PGDumpPath, cfg.DatabaseURL, cfg.BackupDir)

	handler := dispatch.New(engine, recorder, rosterSvc, termResolver, backups)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.RequestID())
	r.Use(httpmiddleware.NewRateLimiter(cfg.RateLimitPerMin, redisClient.Client).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Healthy(c.Request.Context())
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.GET("/api", handler.Handle)
	r.POST("/api", handler.Handle)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// runInProcessMailer drains an in-memory queue when no external worker runs.
func runInProcessMailer(q queue.Queue, d *mailer.SyncDispatcher) {
	ctx := context.Background()
	messages, err := q.Consume(ctx)
	if err != nil {
		log.Printf("in-process mailer init failed: %v", err)
		return
	}
	for msg := range messages {
		if msg.Type != mailer.MsgTypeReportEmail {
			continue
		}
		if err := mailer.HandleQueued(ctx, msg, d); err != nil {
			log.Printf("queued email %s failed: %v", msg.ID, err)
		}
	}
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"mentortrack/internal/config"
	"mentortrack/internal/mailer"
	"mentortrack/internal/queue"
	"mentortrack/internal/store"
)

// Worker consumes queued report emails and delivers them over SMTP.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	q := queue.NewRedisQueue(redisClient.Client, "mentortrack:outbox")

	sender := mailer.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
	dispatcher := mailer.NewSyncDispatcher(mailer.NewRepository(db.Client), sender)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.Type != mailer.MsgTypeReportEmail {
			continue
		}

		log.Printf("sending queued report email %s", msg.ID)
		if err := mailer.HandleQueued(ctx, msg, dispatcher); err != nil {
			log.Printf("email %s failed: %v", msg.ID, err)
			continue
		}
		log.Printf("email %s sent", msg.ID)
	}

	log.Println("worker stopped")
}

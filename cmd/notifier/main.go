package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/edulibros/backoffice/internal/config"
	kafkax "github.com/edulibros/backoffice/internal/kafka"
	"github.com/edulibros/backoffice/internal/notifier"
	"github.com/edulibros/backoffice/internal/orders"
	"github.com/edulibros/backoffice/internal/postgres"
	"github.com/edulibros/backoffice/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	vocab, err := orders.ParseVocab(cfg.StatusVocab)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Collaborator struk/email
	var sender notifier.Sender = notifier.LogSender{}
	if cfg.ReceiptURL != "" {
		sender = notifier.NewHTTPSender(cfg.ReceiptURL)
	}

	svc := &notifier.Service{
		Orders:      &orders.Repo{DB: db, Vocab: vocab},
		Redis:       rdb,
		Receipts:    sender,
		ServiceName: cfg.ServiceName + "-notifier",
	}

	group := getenv("NOTIFIER_GROUP", "receipt-notifier")
	workers := mustAtoi(os.Getenv("NOTIFIER_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicReceiptRequested, workers)

	go func() {
		log.Printf("notifier consumer started: group=%s topic=%s workers=%d", group, orders.TopicReceiptRequested, workers)
		if err := cons.Start(ctx, svc.HandleReceiptRequested); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down notifier...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

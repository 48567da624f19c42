package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edulibros/backoffice/internal/config"
	"github.com/edulibros/backoffice/internal/httpx"
	kafkax "github.com/edulibros/backoffice/internal/kafka"
	"github.com/edulibros/backoffice/internal/orders"
	"github.com/edulibros/backoffice/internal/payments"
	"github.com/edulibros/backoffice/internal/postgres"
	"github.com/edulibros/backoffice/internal/recon"
	"github.com/edulibros/backoffice/internal/redisx"
	"github.com/edulibros/backoffice/migrations"
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
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	if err := migrations.Apply(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer per topic (receipt + status change)
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicReceiptRequested, 1024)
	prod.Start(ctx)
	prodStatus := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStatusChanged, 1024)
	prodStatus.Start(ctx)

	// Repos + provider + engine
	repo := &orders.Repo{DB: db, Vocab: vocab}
	provider := payments.NewHTTPClient(cfg.ProviderBaseURL, cfg.ProviderToken)
	engine := &recon.Engine{
		Provider: provider,
		Orders:   repo,
		Payments: &orders.PaymentRepo{DB: db},
		Stock:    &orders.StockRepo{DB: db},
		Tx:       repo,
		Producer: prod,
		Status:   prodStatus,
		Name:     cfg.ProviderName,
		Service:  cfg.ServiceName,
	}

	router := httpx.NewRouter()
	(&httpx.OrdersHandler{
		Repo:          repo,
		Provider:      provider,
		Redis:         rdb,
		SessionSecret: cfg.SessionSecret,
		ProviderName:  cfg.ProviderName,
		PublicBaseURL: cfg.PublicBaseURL,
	}).Register(router)
	(&httpx.PaymentsHandler{
		Engine:        engine,
		Redis:         rdb,
		WebhookSecret: cfg.WebhookSecret,
		SessionSecret: cfg.SessionSecret,
	}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close() // tutup inbox -> flush & close writer
	prodStatus.Close()
	prod.WaitClosed() // drain
	prodStatus.WaitClosed()
}

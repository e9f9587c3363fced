package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tokenledger/internal/config"
	"tokenledger/internal/handler"
	"tokenledger/internal/infrastructure/cache"
	"tokenledger/internal/infrastructure/database"
	"tokenledger/internal/infrastructure/mq"
	"tokenledger/internal/job"
	"tokenledger/internal/service"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg := config.LoadConfig(*configPath)

	db := database.InitMySQL(&cfg.MySQL)
	redisClient := cache.InitRedis(&cfg.Redis)
	mq.InitKafka(&cfg.Kafka)
	defer mq.CloseKafka()

	accounts := service.NewAccountService(db)
	ledger := service.NewLedgerService(db, cfg)
	confirm := service.NewConfirmService(db, redisClient, cfg)
	topups := service.NewTopupService(ledger)
	generations := service.NewGenerationService(db, cfg, ledger)

	jobCtx, stopJobs := context.WithCancel(context.Background())
	go job.NewOutboxSender(db, cfg).Start(jobCtx)
	go job.NewGenerationReaper(db, cfg, generations).Start(jobCtx)

	h := handler.NewHandler(accounts, ledger, confirm, topups, generations)
	router := handler.NewRouter(h)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down")

	stopJobs()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	log.Println("server stopped")
}

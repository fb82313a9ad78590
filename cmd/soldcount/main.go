package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecapp/internal/authz"
	"ecapp/internal/config"
	"ecapp/internal/infra/db"
	"ecapp/internal/infra/logger"
	infraRepo "ecapp/internal/infra/repository"
	"ecapp/internal/usecase"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// 配達済み注文からsold_countを作り直す。-intervalを付けると定期実行
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	interval := flag.Duration("interval", cfg.SoldCountInterval, "repeat every interval (0 = run once)")
	flag.Parse()

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	gormDB, err := db.Connect(cfg)
	if err != nil {
		zl.Fatal("db connect", zap.Error(err))
	}

	uc := usecase.NewSoldCountUsecase(infraRepo.NewTxManagerGorm(gormDB), zl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runOnce(ctx, uc); err != nil {
		zl.Error("recalculate failed", zap.Error(err))
		if *interval <= 0 {
			os.Exit(1)
		}
	}
	if *interval <= 0 {
		return
	}

	t := time.NewTicker(*interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := runOnce(ctx, uc); err != nil {
				zl.Error("recalculate failed", zap.Error(err))
			}
		}
	}
}

func runOnce(ctx context.Context, uc *usecase.SoldCountUsecase) error {
	_, err := uc.Recalculate(ctx, authz.System())
	return err
}

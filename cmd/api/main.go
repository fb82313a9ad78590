package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ecapp/internal/config"
	"ecapp/internal/handler"
	"ecapp/internal/infra/db"
	"ecapp/internal/infra/kafka"
	"ecapp/internal/infra/logger"
	"ecapp/internal/infra/momo"
	"ecapp/internal/infra/redisx"
	infraRepo "ecapp/internal/infra/repository"
	"ecapp/internal/server"
	"ecapp/internal/usecase"
	"ecapp/internal/validator"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .envは無くてもよい（本番は環境変数）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, zl *zap.Logger) error {
	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	categoryRepo := infraRepo.NewCategoryGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	cartItemRepo := infraRepo.NewCartItemGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	auditLogRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	// イベント送信先（未設定なら捨てる）
	var publisher usecase.EventPublisher = usecase.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		p := kafka.NewProducer(cfg.KafkaBrokers, 0, zl)
		defer p.Close()
		publisher = p
	}

	// IPNの重複排除（未設定ならプロセス内）
	var dedup redisx.Deduper = redisx.NewMemoryDeduper(redisx.TTLDedup)
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			zl.Warn("redis unavailable, using in-memory dedup", zap.Error(err))
		} else {
			dedup = redisx.NewRedisDeduper(rdb, redisx.TTLDedup)
		}
	}

	momoClient := momo.NewClient(cfg.MoMo, zl)

	//Usecase生成
	ledger := usecase.NewInventoryLedger(zl)
	authUC := usecase.NewAuthUsecase(cfg, userRepo, validator.NewAuthValidator(userRepo, validator.New()))
	productUC := usecase.NewProductUsecase(txm, productRepo, zl)
	categoryUC := usecase.NewCategoryUsecase(txm, categoryRepo, zl)
	cartUC := usecase.NewCartUsecase(txm, cartRepo, cartItemRepo, ledger)
	orderUC := usecase.NewOrderUsecase(txm, orderRepo, ledger, momoClient, publisher, zl)
	adminOrderUC := usecase.NewAdminOrderUsecase(txm, orderRepo, ledger, publisher, zl)
	paymentUC := usecase.NewPaymentUsecase(txm, orderRepo, momoClient, dedup, publisher, zl)
	soldCountUC := usecase.NewSoldCountUsecase(txm, zl)
	auditLogUC := usecase.NewAuditLogUsecase(auditLogRepo)

	//Handler生成
	e := server.New(cfg, zl, userRepo, server.Handlers{
		Auth:          handler.NewAuthHandler(authUC),
		Product:       handler.NewProductHandler(productUC),
		Category:      handler.NewCategoryHandler(categoryUC),
		Cart:          handler.NewCartHandler(cartUC),
		Order:         handler.NewOrderHandler(orderUC, paymentUC),
		Payment:       handler.NewPaymentHandler(paymentUC),
		AdminOrder:    handler.NewAdminOrderHandler(adminOrderUC),
		AdminProduct:  handler.NewAdminProductHandler(productUC, soldCountUC),
		AdminCategory: handler.NewAdminCategoryHandler(categoryUC),
		AdminAuditLog: handler.NewAdminAuditLogHandler(auditLogUC),
	})

	addr := cfg.Port
	if addr != "" && addr[0] != ':' {
		addr = ":" + addr
	}
	return server.Start(ctx, e, addr, zl)
}

package main

import (
	"log"

	"bookstore/internal/config"
	"bookstore/internal/domain/model"
	"bookstore/internal/handler"
	"bookstore/internal/infra/db"
	infraRepo "bookstore/internal/infra/repository"
	"bookstore/internal/logger"
	"bookstore/internal/server"
	"bookstore/internal/usecase"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	//.envは無くてもよい（本番は環境変数直）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zlog, err := logger.New(cfg.GoEnv, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer zlog.Sync()

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		zlog.Fatal("db connect failed", zap.Error(err))
	}
	if err := gormDB.AutoMigrate(
		&model.Book{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderDetail{},
		&model.Payment{},
		&model.OrderHistory{},
	); err != nil {
		zlog.Fatal("migrate failed", zap.Error(err))
	}

	//Repository（GORM実装）生成
	bookRepo := infraRepo.NewBookGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	cartItemRepo := infraRepo.NewCartItemGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//Usecase生成
	bookUC := usecase.NewBookUsecase(bookRepo)
	cartUC := usecase.NewCartUsecase(cartRepo, cartItemRepo, bookRepo)
	orderUC := usecase.NewOrderUsecase(txManager, zlog)
	adminOrderUC := usecase.NewAdminOrderUsecase(txManager, zlog)
	paymentUC := usecase.NewPaymentUsecase(txManager, zlog)

	//Handler生成
	bookH := handler.NewBookHandler(bookUC)
	cartH := handler.NewCartHandler(cartUC)
	orderH := handler.NewOrderHandler(orderUC)
	paymentH := handler.NewPaymentHandler(paymentUC)
	adminH := handler.NewAdminOrderHandler(adminOrderUC, paymentUC)

	//Server起動
	e := server.New(cfg, bookH, cartH, orderH, paymentH, adminH)

	addr := ":" + cfg.Port
	if cfg.Port[0] == ':' {
		addr = cfg.Port
	}

	zlog.Info("server starting", zap.String("addr", addr))
	if err := server.Start(e, addr); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}

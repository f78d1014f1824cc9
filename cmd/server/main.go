package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"shop-orders-service/internal/config"
	"shop-orders-service/internal/controller"
	"shop-orders-service/internal/middleware"
	"shop-orders-service/internal/rabbit"
	"shop-orders-service/internal/repository"
	"shop-orders-service/internal/service"
)

func main() {
	cfg := config.Load()

	zaplog, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer zaplog.Sync()

	// Conexión a MongoDB
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		zaplog.Fatal("error conectando a MongoDB", zap.Error(err))
	}
	db := client.Database(cfg.MongoDBName)

	// Repositorios
	orderRepo := repository.NewMongoOrderRepository(db)
	trackingRepo := repository.NewMongoTrackingRepository(db)
	userRepo := repository.NewMongoUserRepository(db)
	methodRepo := repository.NewMongoDeliveryMethodRepository(db)

	if err := methodRepo.Seed(ctx); err != nil {
		zaplog.Fatal("error sembrando métodos de entrega", zap.Error(err))
	}

	// Servicios
	ledger := service.NewLedgerService(userRepo, orderRepo, cfg.UnsettledStatuses, zaplog)
	orderService := service.NewOrderService(orderRepo, trackingRepo, methodRepo, ledger, zaplog)
	trackingService := service.NewTrackingService(trackingRepo, orderRepo, zaplog)
	authService := service.NewAuthService(cfg.AuthURL)

	// Handlers
	ctl := controller.NewOrderController(orderService, trackingService, ledger)

	// Router
	r := gin.Default()

	// Rutas públicas
	r.GET("/delivery-methods", ctl.ListDeliveryMethods)
	r.POST("/estimate", ctl.EstimateShipping)
	r.POST("/orders/init", ctl.InitOrder)

	// Rutas protegidas (requieren token)
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(authService))

	auth.GET("/orders/mine", ctl.GetMyOrders)
	auth.GET("/orders/:orderId", ctl.GetOrder)
	auth.GET("/orders/:orderId/tracking", ctl.GetTracking)
	auth.GET("/users/me", ctl.GetMe)
	auth.GET("/users/me/balance", ctl.GetMyBalance)
	auth.GET("/users/me/tracking/latest", ctl.GetMyLatestTracking)

	// Rutas admin
	admin := auth.Group("/admin")
	admin.Use(middleware.AdminOnly())
	admin.GET("/orders", ctl.GetAllOrders)
	admin.GET("/orders/status/:status", ctl.GetOrdersByStatus)
	admin.PATCH("/orders/:orderId/status", ctl.UpdateStatus)
	admin.DELETE("/orders/:orderId", ctl.DeleteOrder)
	admin.PUT("/orders/:orderId/tracking", ctl.UpsertTracking)
	admin.PUT("/delivery-methods/:code", ctl.UpsertDeliveryMethod)
	admin.GET("/users/:userId", ctl.GetUser)
	admin.GET("/users/:userId/balance", ctl.GetUserBalance)
	admin.GET("/users/:userId/balance/history", ctl.GetBalanceHistory)
	admin.POST("/users/:userId/balance/adjust", ctl.AdjustBalance)
	admin.PATCH("/users/:userId/transport-fees", ctl.UpdateTransportFees)
	admin.GET("/users/:userId/tracking/latest", ctl.GetUserLatestTracking)

	// Conexión a RabbitMQ
	conn, err := amqp091.Dial(cfg.RabbitURL)
	if err != nil {
		zaplog.Fatal("error conectando a RabbitMQ", zap.Error(err))
	}
	ch, err := conn.Channel()
	if err != nil {
		zaplog.Fatal("error creando canal en RabbitMQ", zap.Error(err))
	}

	rabbit.SetupConsumers(ch, orderService, zaplog)

	// Ejecutar servidor
	zaplog.Info("shop orders service escuchando", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		zaplog.Fatal("server error", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zapcfg := zap.NewProductionConfig()
	zapcfg.Level = lvl
	return zapcfg.Build()
}

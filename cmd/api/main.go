package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apporder "github.com/eason8811/international-shopping-sub001/internal/application/order"
	apppayment "github.com/eason8811/international-shopping-sub001/internal/application/payment"
	appuser "github.com/eason8811/international-shopping-sub001/internal/application/user"
	"github.com/eason8811/international-shopping-sub001/internal/domain/user"
	"github.com/eason8811/international-shopping-sub001/internal/infrastructure/config"
	"github.com/eason8811/international-shopping-sub001/internal/infrastructure/gateway/paypal"
	"github.com/eason8811/international-shopping-sub001/internal/infrastructure/persistence/mysql"
	"github.com/eason8811/international-shopping-sub001/internal/infrastructure/persistence/redis"
	"github.com/eason8811/international-shopping-sub001/internal/interface/http/handler"
	"github.com/eason8811/international-shopping-sub001/internal/interface/http/middleware"
	"github.com/eason8811/international-shopping-sub001/pkg/clock"
	"github.com/eason8811/international-shopping-sub001/pkg/jwt"
	"github.com/eason8811/international-shopping-sub001/pkg/metrics"
	"github.com/eason8811/international-shopping-sub001/pkg/mq"
	"github.com/eason8811/international-shopping-sub001/pkg/response"
)

// main 主程序入口
// 说明：手动依赖注入（wire.go提供Wire版本的组装）
func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	fmt.Printf("✓ 配置加载成功\n")
	fmt.Printf("  - 服务端口: %d\n", cfg.Server.Port)
	fmt.Printf("  - 运行模式: %s\n", cfg.Server.Mode)
	fmt.Printf("  - 数据库: %s:%d/%s\n", cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)
	fmt.Printf("  - Redis: %s\n", cfg.Redis.Addr())
	fmt.Printf("  - PayPal沙箱: %t\n", cfg.PayPal.Sandbox)

	// 2. 初始化指标（必须先于任何业务代码使用metrics包）
	metrics.InitMetrics()

	// 3. 初始化数据库连接
	db, err := mysql.NewDB(cfg)
	if err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}

	// 4. 初始化Redis连接
	redisClient, err := redis.NewClient(cfg)
	if err != nil {
		log.Fatalf("初始化Redis失败: %v", err)
	}

	// 5. 依赖注入（手动组装）
	// 学习要点：依赖注入链
	// Repository ← UseCase ← Handler

	// 基础设施层
	userRepo := mysql.NewUserRepository(db)
	orderRepo := mysql.NewOrderRepository(db)
	productRepo := mysql.NewProductRepository(db)
	paymentRepo := mysql.NewPaymentRepository(db)
	clk := clock.Real{}
	ledger := mysql.NewStockLedger(db, clk)
	txManager := mysql.NewTxManager(db)
	guardStore := redis.NewGuardStore(redisClient)
	jwtManager := jwt.NewManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpire,
		cfg.JWT.RefreshTokenExpire,
	)

	gatewayAdapter, err := paypal.NewAdapter(cfg)
	if err != nil {
		log.Fatalf("初始化支付网关失败: %v", err)
	}

	// 事件发布（本地开发可通过mq.enabled=false关闭）
	var orderPublisher apporder.EventPublisher
	var paymentPublisher apppayment.EventPublisher
	if cfg.MQ.Enabled {
		publisher, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, "topic")
		if err != nil {
			log.Fatalf("初始化MQ失败: %v", err)
		}
		defer publisher.Close()
		orderPublisher = publisher
		paymentPublisher = publisher
	}

	// 应用层
	userService := user.NewService(userRepo)
	registerUseCase := appuser.NewRegisterUseCase(userService)
	loginUseCase := appuser.NewLoginUseCase(userService, jwtManager)
	logoutUseCase := appuser.NewLogoutUseCase(guardStore)
	createOrderUseCase := apporder.NewCreateOrderUseCase(
		orderRepo, productRepo, paymentRepo, ledger, txManager, orderPublisher, clk)
	cancelOrderUseCase := apporder.NewCancelOrderUseCase(
		orderRepo, paymentRepo, ledger, txManager, orderPublisher, clk)
	requestRefundUseCase := apporder.NewRequestRefundUseCase(orderRepo, txManager, clk)
	changeAddressUseCase := apporder.NewChangeAddressUseCase(orderRepo, guardStore, clk)
	queryOrdersUseCase := apporder.NewQueryOrdersUseCase(orderRepo)
	confirmRefundUseCase := apppayment.NewConfirmRefundUseCase(
		orderRepo, paymentRepo, ledger, gatewayAdapter, txManager, paymentPublisher, clk)
	syncRefundsUseCase := apppayment.NewSyncRefundsUseCase(
		paymentRepo, gatewayAdapter, confirmRefundUseCase)

	// 接口层
	userHandler := handler.NewUserHandler(registerUseCase, loginUseCase, logoutUseCase)
	orderHandler := handler.NewOrderHandler(
		createOrderUseCase, cancelOrderUseCase, requestRefundUseCase,
		changeAddressUseCase, queryOrdersUseCase)
	refundHandler := handler.NewRefundHandler(confirmRefundUseCase, syncRefundsUseCase)
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, guardStore)

	// 6. 初始化Gin引擎
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(middleware.Metrics())

	// 7. 注册路由
	registerRoutes(r, userHandler, orderHandler, refundHandler, authMiddleware)

	// 8. 启动服务（带优雅停机）
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		fmt.Printf("\n🚀 服务启动成功！\n")
		fmt.Printf("   访问地址: http://localhost%s\n", addr)
		fmt.Printf("   健康检查: http://localhost%s/ping\n", addr)
		fmt.Printf("   指标采集: http://localhost%s/metrics\n", addr)
		fmt.Printf("   创建订单: POST http://localhost%s/api/v1/orders (需要登录)\n", addr)
		fmt.Printf("\n按Ctrl+C停止服务\n\n")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("启动服务失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("收到停机信号,开始优雅停机...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("停机失败: %v", err)
	}
	log.Println("服务已退出")
}

// registerRoutes 注册路由
func registerRoutes(r *gin.Engine, userHandler *handler.UserHandler,
	orderHandler *handler.OrderHandler, refundHandler *handler.RefundHandler,
	authMiddleware *middleware.AuthMiddleware) {

	// 健康检查
	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})

	// Prometheus指标
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API路由组
	v1 := r.Group("/api/v1")
	{
		// 用户模块
		users := v1.Group("/users")
		{
			users.POST("/register", userHandler.Register)
			users.POST("/login", userHandler.Login)
			users.POST("/logout", authMiddleware.RequireAuth(), userHandler.Logout)
		}

		// 订单模块（需要登录）
		orders := v1.Group("/orders")
		orders.Use(authMiddleware.RequireAuth())
		{
			orders.POST("", orderHandler.CreateOrder)
			orders.GET("", orderHandler.ListOrders)
			orders.GET("/:orderNo", orderHandler.GetOrder)
			orders.POST("/:orderNo/cancel", orderHandler.CancelOrder)
			orders.POST("/:orderNo/refund-request", orderHandler.RequestRefund)
			orders.POST("/:orderNo/address", orderHandler.ChangeAddress)
		}

		// 管理端（登录 + 管理员角色）
		admin := v1.Group("/admin")
		admin.Use(authMiddleware.RequireAuth(), authMiddleware.RequireAdmin())
		{
			admin.POST("/refunds", refundHandler.ConfirmRefund)
			admin.POST("/refunds/sync", refundHandler.SyncRefunds)
		}
	}
}

//go:build wireinject
// +build wireinject

// Wire依赖注入配置文件
//
// 教学说明：
// 1. Wire是Google开发的编译期依赖注入工具
// 2. 与运行时反射注入（如Spring的@Autowired）不同，Wire在编译期生成代码
// 3. 优势：零运行时开销、类型安全、编译期检测循环依赖
//
// Wire工作流程：
// Step 1: 编写wire.go（本文件），定义Providers和Injector
// Step 2: 运行 `wire gen ./cmd/api`
// Step 3: Wire生成wire_gen.go，包含完整的依赖创建代码
// Step 4: main.go调用wire_gen.go中的InitializeApp()
//
// 核心概念：
// - Provider: 提供依赖的构造函数（如NewOrderRepository）
// - Injector: 声明最终要构造的目标类型（如*gin.Engine）
// - wire.Build(): 告诉Wire如何组装依赖链

package main

import (
	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	apporder "github.com/eason8811/international-shopping-sub001/internal/application/order"
	apppayment "github.com/eason8811/international-shopping-sub001/internal/application/payment"
	appuser "github.com/eason8811/international-shopping-sub001/internal/application/user"
	"github.com/eason8811/international-shopping-sub001/internal/domain/payment"
	"github.com/eason8811/international-shopping-sub001/internal/domain/user"
	"github.com/eason8811/international-shopping-sub001/internal/infrastructure/config"
	"github.com/eason8811/international-shopping-sub001/internal/infrastructure/gateway/paypal"
	"github.com/eason8811/international-shopping-sub001/internal/infrastructure/persistence/mysql"
	"github.com/eason8811/international-shopping-sub001/internal/infrastructure/persistence/redis"
	"github.com/eason8811/international-shopping-sub001/internal/interface/http/handler"
	"github.com/eason8811/international-shopping-sub001/internal/interface/http/middleware"
	"github.com/eason8811/international-shopping-sub001/pkg/clock"
	"github.com/eason8811/international-shopping-sub001/pkg/jwt"
	"github.com/eason8811/international-shopping-sub001/pkg/mq"
	"github.com/eason8811/international-shopping-sub001/pkg/response"
)

// ========================================
// Wire Provider Sets (依赖分组)
// ========================================

// infrastructureSet 基础设施层依赖
// 包含：配置加载、数据库连接、Redis连接、支付网关
var infrastructureSet = wire.NewSet(
	config.Load,       // 加载配置文件
	mysql.NewDB,       // 创建MySQL连接
	redis.NewClient,   // 创建Redis连接
	paypal.NewAdapter, // PayPal网关适配器
	wire.Bind(new(payment.Gateway), new(*paypal.Adapter)),
)

// repositorySet 仓储层依赖
// 包含：所有Repository的构造函数
var repositorySet = wire.NewSet(
	mysql.NewUserRepository,    // 用户仓储
	mysql.NewOrderRepository,   // 订单仓储
	mysql.NewProductRepository, // 商品/SKU仓储
	mysql.NewPaymentRepository, // 支付/退款仓储
	mysql.NewStockLedger,       // 库存台账
	mysql.NewTxManager,         // 事务管理器
	wire.Bind(new(apporder.TxManager), new(*mysql.TxManager)),
	wire.Bind(new(apppayment.TxManager), new(*mysql.TxManager)),
)

// applicationSet 应用层依赖
// 包含：所有Use Case的构造函数
var applicationSet = wire.NewSet(
	provideClock,
	user.NewService,                    // 用户领域服务
	appuser.NewRegisterUseCase,         // 注册用例
	appuser.NewLoginUseCase,            // 登录用例
	appuser.NewLogoutUseCase,           // 登出用例
	apporder.NewCreateOrderUseCase,     // 创建订单用例
	apporder.NewCancelOrderUseCase,     // 取消订单用例
	apporder.NewRequestRefundUseCase,   // 申请退款用例
	apporder.NewChangeAddressUseCase,   // 改址用例
	apporder.NewQueryOrdersUseCase,     // 订单查询用例
	apppayment.NewConfirmRefundUseCase, // 退款编排用例
	apppayment.NewSyncRefundsUseCase,   // 退款对账用例
)

// middlewareSet 中间件依赖
// 包含：JWT管理器、认证中间件、Redis守卫
var middlewareSet = wire.NewSet(
	provideJWTManager, // JWT管理器（需要从config提取参数）
	provideGuardStore, // Redis守卫（改址标记 + Token黑名单）
	wire.Bind(new(apporder.AddressGuard), new(*redis.GuardStore)),
	middleware.NewAuthMiddleware, // 认证中间件
)

// eventSet 事件发布依赖
// MQ可以通过配置关闭,此时Publisher为nil(用例内部容忍空发布器)
var eventSet = wire.NewSet(
	providePublisher,
	provideOrderEventPublisher,
	providePaymentEventPublisher,
)

// handlerSet HTTP处理器依赖
// 包含：所有Handler的构造函数
var handlerSet = wire.NewSet(
	handler.NewUserHandler,   // 用户处理器
	handler.NewOrderHandler,  // 订单处理器
	handler.NewRefundHandler, // 退款处理器
)

// ========================================
// Custom Providers (自定义Provider)
// ========================================

// provideClock 全局时钟
// 教学要点:用例依赖clock.Clock接口而不是time.Now(),测试可注入固定时钟
func provideClock() clock.Clock {
	return clock.Real{}
}

// provideJWTManager 从配置创建JWT管理器
// 教学要点：config.Config 包含多个字段，但jwt.NewManager只需要JWT相关的配置
// Wire无法自动知道如何从Config提取参数，所以需要手动编写Provider
func provideJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpire,
		cfg.JWT.RefreshTokenExpire,
	)
}

// provideGuardStore 从Redis客户端创建守卫存储
func provideGuardStore(client *goredis.Client) *redis.GuardStore {
	return redis.NewGuardStore(client)
}

// providePublisher 按配置创建MQ发布器,关闭时返回nil
func providePublisher(cfg *config.Config) (*mq.Publisher, error) {
	if !cfg.MQ.Enabled {
		return nil, nil
	}
	return mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, "topic")
}

// provideOrderEventPublisher 订单事件发布端口
// 注意nil守卫:接口持有nil指针时!=nil,必须在这里转换
func provideOrderEventPublisher(p *mq.Publisher) apporder.EventPublisher {
	if p == nil {
		return nil
	}
	return p
}

// providePaymentEventPublisher 退款事件发布端口
func providePaymentEventPublisher(p *mq.Publisher) apppayment.EventPublisher {
	if p == nil {
		return nil
	}
	return p
}

// provideGinEngine 创建并配置Gin引擎
// 教学要点：
// 1. Gin引擎需要注册所有路由
// 2. 路由注册需要所有的Handler和Middleware
// 3. Wire会自动注入这些依赖
func provideGinEngine(
	cfg *config.Config,
	userHandler *handler.UserHandler,
	orderHandler *handler.OrderHandler,
	refundHandler *handler.RefundHandler,
	authMiddleware *middleware.AuthMiddleware,
) *gin.Engine {
	// 设置运行模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.Metrics())

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

	return r
}

// ========================================
// Wire Injector (依赖注入器)
// ========================================

// InitializeApp 初始化整个应用
// 返回：配置好的Gin引擎
// 错误：如果任何依赖创建失败
func InitializeApp() (*gin.Engine, error) {
	wire.Build(
		// 基础设施层
		infrastructureSet,

		// 仓储层
		repositorySet,

		// 应用层
		applicationSet,

		// 事件发布
		eventSet,

		// 中间件层
		middlewareSet,

		// 接口层
		handlerSet,

		// Gin引擎
		provideGinEngine,
	)

	// 返回值类型必须与wire.Build的最终产出一致
	// Wire会在wire_gen.go中生成实际的初始化代码
	// 这里的返回值是占位符，实际运行时会被wire_gen.go替代
	return nil, nil
}

package mysql

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/eason8811/international-shopping-sub001/internal/domain/order"
	"github.com/eason8811/international-shopping-sub001/internal/infrastructure/config"
)

// NewDB 创建数据库连接
// 设计说明：
// 1. 使用GORM v2作为ORM框架
// 2. 配置连接池参数（MaxOpenConns、MaxIdleConns、ConnMaxLifetime）
// 3. 开发环境开启SQL日志，生产环境关闭
// 4. 自动迁移表结构（AutoMigrate，生产环境应换成版本化迁移脚本）
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := cfg.Database.DSN()

	logLevel := logger.Silent
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info // 开发环境打印SQL
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	log.Println("✓ 数据库连接成功")

	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	return db, nil
}

// autoMigrate 自动迁移表结构
// 注意：AutoMigrate只会创建表、添加字段，不会删除或修改现有字段
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&ProductModel{},
		&SkuModel{},
		&CartItemModel{},
		&OrderModel{},
		&OrderItemModel{},
		&OrderStatusLogModel{},
		&InventoryLogModel{},
		&DiscountAppliedModel{},
		&PaymentOrderModel{},
		&PaymentRefundModel{},
		&RefundItemModel{},
	)
}

// ProductModel GORM商品模型
type ProductModel struct {
	ID        uint64    `gorm:"primaryKey"`
	Title     string    `gorm:"size:200;not null;comment:商品标题"`
	Status    string    `gorm:"index;size:16;not null;default:ON_SALE;comment:商品状态(ON_SALE/OFF_SHELF)"`
	CreatedAt time.Time `gorm:"comment:创建时间"`
	UpdatedAt time.Time `gorm:"comment:更新时间"`
}

func (ProductModel) TableName() string { return "product" }

// SkuModel GORM SKU模型
// 设计说明:
// 1. 价格用int64存储最小货币单位(避免浮点数精度问题)
// 2. Stock只允许通过库存台账的条件UPDATE修改
type SkuModel struct {
	ID            uint64    `gorm:"primaryKey"`
	ProductID     uint64    `gorm:"index;not null;comment:商品ID"`
	Title         string    `gorm:"size:200;not null;comment:SKU标题"`
	Attrs         string    `gorm:"size:200;comment:规格快照"`
	CoverImageURL string    `gorm:"size:500;comment:封面图URL"`
	Price         int64     `gorm:"not null;comment:单价(最小货币单位)"`
	Currency      string    `gorm:"size:3;not null;comment:币种"`
	Stock         int       `gorm:"not null;default:0;comment:可售库存"`
	Status        string    `gorm:"index;size:16;not null;default:ENABLED;comment:SKU状态(ENABLED/DISABLED)"`
	CreatedAt     time.Time `gorm:"comment:创建时间"`
	UpdatedAt     time.Time `gorm:"comment:更新时间"`
}

func (SkuModel) TableName() string { return "sku" }

// CartItemModel GORM购物车模型
type CartItemModel struct {
	ID        uint64    `gorm:"primaryKey"`
	UserID    uint64    `gorm:"uniqueIndex:uk_cart_user_sku;not null;comment:用户ID"`
	SkuID     uint64    `gorm:"uniqueIndex:uk_cart_user_sku;not null;comment:SKU ID"`
	Quantity  int       `gorm:"not null;comment:数量"`
	CreatedAt time.Time `gorm:"comment:创建时间"`
	UpdatedAt time.Time `gorm:"comment:更新时间"`
}

func (CartItemModel) TableName() string { return "cart_item" }

// OrderModel GORM订单模型
// 教学要点:
// 1. OrderNo唯一索引是业务主键;幂等键走(UserID, IdempotencyKey)复合唯一索引,
//    作用域是单个用户,不提供键则存NULL(MySQL唯一索引允许多个NULL)
// 2. 地址/退款原因快照是结构体,走GORM的json序列化器落库
// 3. ActivePaymentID可空,绑定时只在IS NULL条件下UPDATE
type OrderModel struct {
	ID             uint64 `gorm:"primaryKey"`
	OrderNo        string `gorm:"uniqueIndex;size:32;not null;comment:订单号"`
	UserID         uint64 `gorm:"index;uniqueIndex:uk_order_user_idem;not null;comment:买家用户ID"`
	Currency       string `gorm:"size:3;not null;comment:币种"`
	TotalAmount    int64  `gorm:"not null;comment:明细合计(最小货币单位)"`
	DiscountAmount int64  `gorm:"not null;default:0;comment:优惠金额"`
	ShippingAmount int64  `gorm:"not null;default:0;comment:运费"`
	TaxAmount      int64  `gorm:"not null;default:0;comment:税费"`
	PayAmount      int64  `gorm:"not null;comment:应付金额"`

	Status    string `gorm:"index;size:20;not null;comment:订单状态"`
	PayStatus string `gorm:"size:20;not null;default:NONE;comment:支付状态镜像"`

	Address        *order.AddressSnapshot `gorm:"serializer:json;type:json;comment:收货地址快照"`
	AddressChanged bool                   `gorm:"not null;default:0;comment:地址是否已修改过"`
	RefundReason   *order.RefundReason    `gorm:"serializer:json;type:json;comment:退款原因快照"`

	IdempotencyKey  *string `gorm:"uniqueIndex:uk_order_user_idem;size:64;comment:创建幂等键(不提供则为NULL)"`
	ActivePaymentID *uint64 `gorm:"comment:生效支付单ID"`

	Items []OrderItemModel `gorm:"foreignKey:OrderID"`

	PaidAt    *time.Time `gorm:"comment:支付时间"`
	CreatedAt time.Time  `gorm:"index;comment:创建时间"`
	UpdatedAt time.Time  `gorm:"comment:更新时间"`
}

func (OrderModel) TableName() string { return "orders" }

// OrderItemModel GORM订单明细模型
type OrderItemModel struct {
	ID             uint64 `gorm:"primaryKey"`
	OrderID        uint64 `gorm:"index;not null;comment:订单ID"`
	ProductID      uint64 `gorm:"not null;comment:商品ID"`
	SkuID          uint64 `gorm:"index;not null;comment:SKU ID"`
	DiscountCodeID uint64 `gorm:"not null;default:0;comment:优惠码ID(0未用券)"`
	Title          string `gorm:"size:200;not null;comment:标题快照"`
	SkuAttrs       string `gorm:"size:200;comment:规格快照"`
	CoverImageURL  string `gorm:"size:500;comment:封面图快照"`
	UnitPrice      int64  `gorm:"not null;comment:下单时单价"`
	Quantity       int    `gorm:"not null;comment:购买数量"`
	Subtotal       int64  `gorm:"not null;comment:行小计"`
}

func (OrderItemModel) TableName() string { return "order_item" }

// OrderStatusLogModel GORM订单状态流转日志模型
type OrderStatusLogModel struct {
	ID         uint64    `gorm:"primaryKey"`
	OrderNo    string    `gorm:"index;size:32;not null;comment:订单号"`
	FromStatus string    `gorm:"size:20;comment:原状态(创建时为空)"`
	ToStatus   string    `gorm:"size:20;not null;comment:新状态"`
	Note       string    `gorm:"size:255;comment:备注"`
	CreatedAt  time.Time `gorm:"index;comment:创建时间"`
}

func (OrderStatusLogModel) TableName() string { return "order_status_log" }

// InventoryLogModel GORM库存流水模型
// (order_no, sku_id, change_type)唯一索引是库存幂等的根基
type InventoryLogModel struct {
	ID         uint64    `gorm:"primaryKey"`
	OrderNo    string    `gorm:"uniqueIndex:uk_inv_change;size:32;not null;comment:订单号"`
	SkuID      uint64    `gorm:"uniqueIndex:uk_inv_change;not null;comment:SKU ID"`
	ChangeType string    `gorm:"uniqueIndex:uk_inv_change;size:16;not null;comment:变更类型(RESERVE/RELEASE/RESTOCK)"`
	Quantity   int       `gorm:"not null;comment:变更数量(恒为正)"`
	Reason     string    `gorm:"size:100;comment:变更原因"`
	CreatedAt  time.Time `gorm:"index;comment:创建时间"`
}

func (InventoryLogModel) TableName() string { return "inventory_log" }

// DiscountAppliedModel GORM优惠使用记录模型(审计)
type DiscountAppliedModel struct {
	ID             uint64    `gorm:"primaryKey"`
	OrderNo        string    `gorm:"index;size:32;not null;comment:订单号"`
	SkuID          uint64    `gorm:"not null;comment:SKU ID"`
	DiscountCodeID uint64    `gorm:"index;not null;comment:优惠码ID"`
	CreatedAt      time.Time `gorm:"comment:创建时间"`
}

func (DiscountAppliedModel) TableName() string { return "discount_applied" }

// PaymentOrderModel GORM支付单模型
type PaymentOrderModel struct {
	ID              uint64    `gorm:"primaryKey"`
	PaymentNo       string    `gorm:"uniqueIndex;size:32;not null;comment:支付单号"`
	OrderNo         string    `gorm:"index;size:32;not null;comment:订单号"`
	Channel         string    `gorm:"size:16;not null;default:NONE;comment:支付渠道"`
	Status          string    `gorm:"index;size:16;not null;default:NONE;comment:支付状态"`
	Amount          int64     `gorm:"not null;comment:支付金额"`
	Currency        string    `gorm:"size:3;not null;comment:币种"`
	ExternalOrderID string    `gorm:"size:64;comment:渠道订单号"`
	CaptureID       string    `gorm:"size:64;comment:资金捕获凭证"`
	RequestPayload  string    `gorm:"type:text;comment:渠道请求报文"`
	ResponsePayload string    `gorm:"type:text;comment:渠道响应报文"`
	CreatedAt       time.Time `gorm:"comment:创建时间"`
	UpdatedAt       time.Time `gorm:"comment:更新时间"`
}

func (PaymentOrderModel) TableName() string { return "payment_order" }

// PaymentRefundModel GORM退款单模型
// UpdatedAt带索引:对账任务按updated_at升序捞取,最久未动的先处理
type PaymentRefundModel struct {
	ID               uint64     `gorm:"primaryKey"`
	RefundNo         string     `gorm:"uniqueIndex;size:32;not null;comment:退款单号"`
	OrderNo          string     `gorm:"index;size:32;not null;comment:订单号"`
	PaymentOrderID   uint64     `gorm:"not null;comment:支付单ID"`
	ExternalRefundID string     `gorm:"index;size:64;comment:渠道退款ID"`
	ClientRefundNo   string     `gorm:"size:64;not null;comment:渠道幂等键"`
	Amount           int64      `gorm:"not null;comment:退款金额"`
	ItemsAmount      int64      `gorm:"not null;default:0;comment:明细金额合计"`
	ShippingAmount   int64      `gorm:"not null;default:0;comment:退运费金额"`
	Currency         string     `gorm:"size:3;not null;comment:币种"`
	Status           string     `gorm:"index;size:16;not null;comment:退款状态"`
	Full             bool       `gorm:"not null;default:0;comment:是否整单退款"`
	ReasonCode       string     `gorm:"size:32;comment:原因代码"`
	ReasonText       string     `gorm:"size:255;comment:原因描述"`
	Initiator        string     `gorm:"size:16;comment:发起方"`
	RequestPayload   string     `gorm:"type:text;comment:渠道请求报文"`
	ResponsePayload  string     `gorm:"type:text;comment:渠道响应报文"`
	Items            []RefundItemModel `gorm:"foreignKey:RefundID"`
	LastPolledAt     *time.Time `gorm:"comment:最后轮询时间"`
	CreatedAt        time.Time  `gorm:"comment:创建时间"`
	UpdatedAt        time.Time  `gorm:"index;comment:更新时间"`
}

func (PaymentRefundModel) TableName() string { return "payment_refund" }

// RefundItemModel GORM退款明细模型
type RefundItemModel struct {
	ID       uint64 `gorm:"primaryKey"`
	RefundID uint64 `gorm:"index;not null;comment:退款单ID"`
	SkuID    uint64 `gorm:"not null;comment:SKU ID"`
	Quantity int    `gorm:"not null;comment:退款数量"`
	Amount   int64  `gorm:"not null;comment:行退款金额"`
}

func (RefundItemModel) TableName() string { return "refund_item" }

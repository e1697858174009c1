package order

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/eason8811/international-shopping-sub001/internal/domain/money"
	"github.com/eason8811/international-shopping-sub001/internal/domain/order"
	"github.com/eason8811/international-shopping-sub001/internal/domain/payment"
	"github.com/eason8811/international-shopping-sub001/internal/domain/product"
	"github.com/eason8811/international-shopping-sub001/pkg/clock"
	apperrors "github.com/eason8811/international-shopping-sub001/pkg/errors"
	"github.com/eason8811/international-shopping-sub001/pkg/metrics"
)

// TxManager 事务端口
// 教学要点:应用层只依赖这个小接口,不依赖具体的GORM事务管理器,
// 单测里用"直接执行fn"的假实现即可
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher 事件发布端口(pkg/mq.Publisher实现)
type EventPublisher interface {
	Publish(routingKey string, message interface{}) error
}

// CreateOrderUseCase 创建订单用例
// 教学要点:这是整个项目最核心的用例之一
// 涉及:事务处理、创建幂等、库存台账、支付单占位
type CreateOrderUseCase struct {
	orderRepo   order.Repository
	productRepo product.Repository
	paymentRepo payment.Repository
	ledger      order.StockLedger
	txManager   TxManager
	publisher   EventPublisher
	clock       clock.Clock
}

// NewCreateOrderUseCase 创建下单用例
func NewCreateOrderUseCase(
	orderRepo order.Repository,
	productRepo product.Repository,
	paymentRepo payment.Repository,
	ledger order.StockLedger,
	txManager TxManager,
	publisher EventPublisher,
	clk clock.Clock,
) *CreateOrderUseCase {
	return &CreateOrderUseCase{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		paymentRepo: paymentRepo,
		ledger:      ledger,
		txManager:   txManager,
		publisher:   publisher,
		clock:       clk,
	}
}

// CreateOrderRequest 下单请求DTO
type CreateOrderRequest struct {
	UserID         uint64            // 买家用户ID(从JWT中提取)
	IdempotencyKey string            // 创建幂等键
	Currency       string            // 订单币种
	Items          []CreateOrderItem // 订单明细
	DiscountMinor  int64             // 优惠金额(最小货币单位)
	ShippingMinor  int64             // 运费
	TaxMinor       int64             // 税费
	Address        *order.AddressSnapshot
}

// CreateOrderItem 订单明细项
type CreateOrderItem struct {
	SkuID          uint64
	Quantity       int
	DiscountCodeID uint64 // 0表示未用券
}

// OrderCreatedEvent 订单创建事件
type OrderCreatedEvent struct {
	OrderNo   string `json:"order_no"`
	UserID    uint64 `json:"user_id"`
	PayAmount int64  `json:"pay_amount"`
	Currency  string `json:"currency"`
	CreatedAt string `json:"created_at"`
}

// Execute 执行下单用例
// 教学重点:防止超卖 + 创建幂等的完整流程
//
// 核心问题一:库存超卖
// 场景:商品库存10个,100人同时下单
// 错误实现:先SELECT库存再判断再UPDATE,并发下100个请求都能通过判断
// 正确实现:条件UPDATE原子扣减(stock = stock - ? WHERE stock >= ?),
// 零行命中即库存不足,由数据库保证原子性
//
// 核心问题二:重复下单
// 场景:网络超时后客户端重试,同一个购物车下了两单
// 解法:客户端带幂等键,(user_id, idempotency_key)唯一索引兜底,
// 重复请求返回第一次创建的订单而不是报错。
// 幂等键是可选项:不带键的请求每次都创建新订单,由客户端自己承担重试风险
func (uc *CreateOrderUseCase) Execute(ctx context.Context, req CreateOrderRequest) (*order.Order, error) {
	start := time.Now()

	// 1. 参数校验
	if len(req.Items) == 0 {
		return nil, order.ErrInvalidOrderItems
	}
	if req.Currency == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidParams, "币种不能为空")
	}
	// 同一个SKU不允许拆成多行:库存流水按(订单, SKU, 类型)去重,
	// 第二行会被当成重放跳过,导致下单数量大于实际预占数量
	seen := make(map[uint64]bool, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, order.ErrInvalidQuantity
		}
		if seen[item.SkuID] {
			return nil, apperrors.Newf(apperrors.ErrCodeInvalidParams, "订单明细SKU重复: %d", item.SkuID)
		}
		seen[item.SkuID] = true
	}

	// 2. 幂等预检:同一个用户的同一个幂等键直接返回已存在的订单
	if req.IdempotencyKey != "" {
		if existing, err := uc.orderRepo.FindByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey); err == nil {
			return existing, nil
		} else if !errors.Is(err, order.ErrOrderNotFound) {
			return nil, err
		}
	}

	var result *order.Order
	err := uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		created, err := uc.createInTx(txCtx, req)
		if err != nil {
			return err
		}
		result = created
		return nil
	})

	if err != nil {
		// 并发重复:两个携带同一幂等键的请求同时通过了预检,
		// 后插入的撞唯一索引,按幂等键重读返回第一单
		if req.IdempotencyKey != "" && errors.Is(err, order.ErrDuplicateOrder) {
			return uc.orderRepo.FindByIdempotencyKey(ctx, req.UserID, req.IdempotencyKey)
		}
		metrics.OrdersFailedTotal.Inc()
		return nil, err
	}

	metrics.OrdersCreatedTotal.Inc()
	metrics.OrderCreationDuration.Observe(time.Since(start).Seconds())

	uc.publishCreated(result)
	return result, nil
}

// createInTx 事务内的下单主流程
func (uc *CreateOrderUseCase) createInTx(ctx context.Context, req CreateOrderRequest) (*order.Order, error) {
	now := uc.clock.Now()

	// ========================================
	// 步骤1:加载SKU,取"数据库里的当前价格"做快照
	// ========================================
	// 教学要点:金额永远以服务端数据为准,防止改价攻击
	skuIDs := make([]uint64, len(req.Items))
	for i, item := range req.Items {
		skuIDs[i] = item.SkuID
	}
	skus, err := uc.productRepo.FindSkus(ctx, skuIDs)
	if err != nil {
		return nil, err
	}

	items := make([]order.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		sku, ok := skus[item.SkuID]
		if !ok {
			return nil, apperrors.Newf(apperrors.ErrCodeSkuNotFound, "SKU不存在: %d", item.SkuID)
		}
		if !sku.Sellable() {
			return nil, apperrors.Newf(apperrors.ErrCodeInsufficientStock, "SKU %d 已下架", item.SkuID)
		}
		if sku.Price.Currency != req.Currency {
			return nil, apperrors.Newf(apperrors.ErrCodeInvalidParams,
				"SKU %d 币种与订单不一致: %s vs %s", item.SkuID, sku.Price.Currency, req.Currency)
		}

		oi, err := order.NewOrderItem(sku.ProductID, sku.ID, item.DiscountCodeID,
			sku.Title, sku.Attrs, sku.CoverImageURL, sku.Price, item.Quantity)
		if err != nil {
			return nil, err
		}
		items = append(items, oi)
	}

	// ========================================
	// 步骤2:构建聚合,金额由明细重算
	// ========================================
	discount, err := money.New(req.DiscountMinor, req.Currency)
	if err != nil {
		return nil, err
	}
	shipping, err := money.New(req.ShippingMinor, req.Currency)
	if err != nil {
		return nil, err
	}
	tax, err := money.New(req.TaxMinor, req.Currency)
	if err != nil {
		return nil, err
	}

	newOrder, err := order.New(order.GenerateOrderNo(), req.IdempotencyKey, req.UserID,
		req.Currency, items, discount, shipping, tax, req.Address, now)
	if err != nil {
		return nil, err
	}

	// ========================================
	// 步骤3:持久化订单(含明细)
	// ========================================
	if err := uc.orderRepo.Create(ctx, newOrder); err != nil {
		return nil, err
	}

	// ========================================
	// 步骤4:预占库存(条件扣减 + RESERVE流水)
	// ========================================
	reserve := make([]order.SkuQuantity, len(newOrder.Items))
	for i, it := range newOrder.Items {
		reserve[i] = order.SkuQuantity{SkuID: it.SkuID, Quantity: it.Quantity}
	}
	if err := uc.ledger.Apply(ctx, newOrder.OrderNo, order.ChangeReserve, reserve, "下单预占"); err != nil {
		return nil, err
	}

	// ========================================
	// 步骤5:状态日志(∅ → CREATED)
	// ========================================
	if err := uc.orderRepo.AppendStatusLog(ctx, order.StatusLog{
		OrderNo:   newOrder.OrderNo,
		ToStatus:  order.StatusCreated,
		Note:      "订单创建",
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	// ========================================
	// 步骤6:清购物车 + 记录优惠使用
	// ========================================
	if err := uc.orderRepo.ClearCartItems(ctx, req.UserID, skuIDs); err != nil {
		return nil, err
	}
	if err := uc.orderRepo.RecordAppliedDiscounts(ctx, newOrder); err != nil {
		return nil, err
	}

	// ========================================
	// 步骤7:占位支付单 + 绑定active_payment_id
	// ========================================
	// 教学要点:先占位再绑定,保证"订单必有支付单"的不变式,
	// 后续发起支付只改写这条记录,不再插新行
	placeholder := &payment.PaymentOrder{
		PaymentNo: order.GenerateOrderNo(),
		OrderNo:   newOrder.OrderNo,
		Channel:   payment.ChannelNone,
		Status:    payment.StatusNone,
		Amount:    newOrder.PayAmount,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.paymentRepo.CreatePlaceholder(ctx, placeholder); err != nil {
		return nil, err
	}
	if err := uc.orderRepo.BindActivePayment(ctx, newOrder.OrderNo, placeholder.ID); err != nil {
		return nil, err
	}
	newOrder.ActivePaymentID = placeholder.ID

	return newOrder, nil
}

// publishCreated 发布订单创建事件(尽力而为,失败只记日志)
func (uc *CreateOrderUseCase) publishCreated(o *order.Order) {
	if uc.publisher == nil {
		return
	}
	event := OrderCreatedEvent{
		OrderNo:   o.OrderNo,
		UserID:    o.UserID,
		PayAmount: o.PayAmount.Amount,
		Currency:  o.Currency,
		CreatedAt: o.CreatedAt.Format(time.RFC3339),
	}
	if err := uc.publisher.Publish("order.created", event); err != nil {
		log.Printf("发布order.created事件失败: orderNo=%s, err=%v", o.OrderNo, err)
	}
}

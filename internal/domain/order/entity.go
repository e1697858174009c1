package order

import (
	"time"

	"github.com/eason8811/international-shopping-sub001/internal/domain/money"
	apperrors "github.com/eason8811/international-shopping-sub001/pkg/errors"
)

// Status 订单状态
// 教学要点:
// 1. 使用string类型,数据库和日志中直接可读,排查问题不用查码表
// 2. 状态机集中在实体上,所有流转必须走实体方法,禁止散落的UPDATE
type Status string

const (
	StatusCreated        Status = "CREATED"         // 已创建(未发起支付)
	StatusPendingPayment Status = "PENDING_PAYMENT" // 待支付(已发起支付)
	StatusPaid           Status = "PAID"            // 已支付
	StatusRefunding      Status = "REFUNDING"       // 退款中
	StatusRefunded       Status = "REFUNDED"        // 已退款
	StatusCancelled      Status = "CANCELLED"       // 已取消
	StatusFulfilled      Status = "FULFILLED"       // 已履约
	StatusClosed         Status = "CLOSED"          // 已关闭(终态)
)

// PayStatus 订单侧的支付状态镜像
// 真实支付状态在支付单上,订单冗余一份便于查询
type PayStatus string

const (
	PayStatusNone    PayStatus = "NONE"    // 未发起支付
	PayStatusInit    PayStatus = "INIT"    // 支付单已创建
	PayStatusPending PayStatus = "PENDING" // 支付处理中
	PayStatusSuccess PayStatus = "SUCCESS" // 支付成功
	PayStatusFail    PayStatus = "FAIL"    // 支付失败
	PayStatusClosed  PayStatus = "CLOSED"  // 支付已关闭
)

// AddressSnapshot 收货地址快照(结构化存储,JSON序列化进订单表)
type AddressSnapshot struct {
	Receiver   string `json:"receiver"`
	Phone      string `json:"phone"`
	Country    string `json:"country"`
	Province   string `json:"province"`
	City       string `json:"city"`
	Detail     string `json:"detail"`
	PostalCode string `json:"postalCode"`
}

// RefundReason 退款原因快照
type RefundReason struct {
	Code      string `json:"code"`      // 原因代码(如 QUALITY / CHANGE_MIND)
	Text      string `json:"text"`      // 原因描述
	Initiator string `json:"initiator"` // 发起方: USER | ADMIN | SYSTEM
}

// StatusLog 订单状态流转日志
type StatusLog struct {
	ID         uint64
	OrderNo    string
	FromStatus Status // 创建时为空
	ToStatus   Status
	Note       string // 超过255字符会被截断
	CreatedAt  time.Time
}

// OrderItem 订单明细项
// 教学要点:
// 1. 不是独立聚合根,必须通过Order访问
// 2. 标题/属性/单价都是"下单时的快照",商品改价不影响历史订单
// 3. 不直接关联SKU对象,只保存SkuID(避免跨聚合引用)
type OrderItem struct {
	ID             uint64
	OrderID        uint64
	ProductID      uint64
	SkuID          uint64
	DiscountCodeID uint64 // 0表示未用券
	Title          string
	SkuAttrs       string // 规格快照,如 "颜色:黑;尺码:L"
	CoverImageURL  string
	UnitPrice      money.Money // 下单时单价快照
	Quantity       int
	Subtotal       money.Money // 单价×数量,冗余存储
}

// NewOrderItem 创建订单明细(快照构造)
func NewOrderItem(productID, skuID, discountCodeID uint64, title, skuAttrs, coverImageURL string,
	unitPrice money.Money, quantity int) (OrderItem, error) {

	if quantity <= 0 {
		return OrderItem{}, apperrors.Newf(apperrors.ErrCodeInvalidParams, "购买数量必须大于0: %d", quantity)
	}
	subtotal, err := unitPrice.MulQty(quantity)
	if err != nil {
		return OrderItem{}, err
	}
	return OrderItem{
		ProductID:      productID,
		SkuID:          skuID,
		DiscountCodeID: discountCodeID,
		Title:          title,
		SkuAttrs:       skuAttrs,
		CoverImageURL:  coverImageURL,
		UnitPrice:      unitPrice,
		Quantity:       quantity,
		Subtotal:       subtotal,
	}, nil
}

// Order 订单实体(聚合根)
// 教学要点:
// 1. Order是聚合根,OrderItem是子实体
// 2. 金额字段全部冗余存储并在创建时由明细重算(防止改价攻击)
// 3. 所有状态流转集中在实体方法中,非法流转返回状态冲突错误
type Order struct {
	ID      uint64
	OrderNo string // 业务主键,全局唯一
	UserID  uint64

	Currency       string
	TotalAmount    money.Money // 明细小计之和
	DiscountAmount money.Money
	ShippingAmount money.Money
	TaxAmount      money.Money
	PayAmount      money.Money // total - discount + shipping + tax

	Status    Status
	PayStatus PayStatus
	Items     []OrderItem

	Address        *AddressSnapshot
	AddressChanged bool // 收货地址只允许修改一次
	RefundReason   *RefundReason

	IdempotencyKey  string // 创建幂等键,唯一索引
	ActivePaymentID uint64 // 当前生效的支付单ID,0表示未绑定

	PaidAt    *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New 创建新订单(工厂方法)
// 金额由明细重算,不信任外部传入的total
func New(orderNo, idempotencyKey string, userID uint64, currency string, items []OrderItem,
	discount, shipping, tax money.Money, address *AddressSnapshot, now time.Time) (*Order, error) {

	if orderNo == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidParams, "订单号不能为空")
	}
	if len(items) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidParams, "订单明细不能为空")
	}

	o := &Order{
		OrderNo:        orderNo,
		UserID:         userID,
		Currency:       currency,
		DiscountAmount: discount,
		ShippingAmount: shipping,
		TaxAmount:      tax,
		Status:         StatusCreated,
		PayStatus:      PayStatusNone,
		Items:          items,
		Address:        address,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := o.RecalcAmounts(); err != nil {
		return nil, err
	}
	return o, nil
}

// RecalcAmounts 由明细重算订单金额
// total = Σ小计;  payAmount = total - discount + shipping + tax
// 所有金额字段必须与订单币种一致
func (o *Order) RecalcAmounts() error {
	total := money.Zero(o.Currency)
	for i := range o.Items {
		if err := o.ensureCurrency(o.Items[i].UnitPrice); err != nil {
			return err
		}
		var err error
		total, err = total.Add(o.Items[i].Subtotal)
		if err != nil {
			return err
		}
	}

	for _, m := range []money.Money{o.DiscountAmount, o.ShippingAmount, o.TaxAmount} {
		if err := o.ensureCurrency(m); err != nil {
			return err
		}
	}

	afterDiscount, err := total.Sub(o.DiscountAmount)
	if err != nil {
		return err
	}
	pay, err := afterDiscount.Add(o.ShippingAmount)
	if err != nil {
		return err
	}
	pay, err = pay.Add(o.TaxAmount)
	if err != nil {
		return err
	}

	o.TotalAmount = total
	o.PayAmount = pay
	return nil
}

func (o *Order) ensureCurrency(m money.Money) error {
	if m.Currency != o.Currency {
		return apperrors.Newf(apperrors.ErrCodeInvalidParams,
			"金额币种与订单不一致: %s vs %s", m.Currency, o.Currency)
	}
	return nil
}

// requireStatus 校验当前状态是否在允许集合中,否则返回状态冲突
func (o *Order) requireStatus(op string, allowed ...Status) error {
	for _, s := range allowed {
		if o.Status == s {
			return nil
		}
	}
	return apperrors.Newf(apperrors.ErrCodeStateConflict,
		"订单%s当前状态%s不允许操作: %s", o.OrderNo, o.Status, op)
}

// =========================================
// 状态流转(状态机)
// =========================================

// MarkPendingPayment 进入待支付
func (o *Order) MarkPendingPayment(now time.Time) error {
	if err := o.requireStatus("进入待支付", StatusCreated); err != nil {
		return err
	}
	o.Status = StatusPendingPayment
	o.UpdatedAt = now
	return nil
}

// MarkPaymentInitiated 支付单已创建
// CREATED会顺带推进到PENDING_PAYMENT,重复发起支付不算冲突
func (o *Order) MarkPaymentInitiated(now time.Time) error {
	if err := o.requireStatus("发起支付", StatusCreated, StatusPendingPayment); err != nil {
		return err
	}
	o.Status = StatusPendingPayment
	o.PayStatus = PayStatusInit
	o.UpdatedAt = now
	return nil
}

// MarkPaid 支付成功
func (o *Order) MarkPaid(now time.Time) error {
	if err := o.requireStatus("支付", StatusCreated, StatusPendingPayment); err != nil {
		return err
	}
	o.Status = StatusPaid
	o.PayStatus = PayStatusSuccess
	o.PaidAt = &now
	o.UpdatedAt = now
	return nil
}

// Cancel 取消订单
// 支付状态未成功/未关闭时强制置为CLOSED
func (o *Order) Cancel(now time.Time) error {
	if err := o.requireStatus("取消", StatusCreated, StatusPendingPayment, StatusPaid); err != nil {
		return err
	}
	o.Status = StatusCancelled
	if o.PayStatus != PayStatusSuccess && o.PayStatus != PayStatusClosed {
		o.PayStatus = PayStatusClosed
	}
	o.UpdatedAt = now
	return nil
}

// RequestRefund 申请退款,记录原因快照
func (o *Order) RequestRefund(reason RefundReason, now time.Time) error {
	if err := o.requireStatus("申请退款", StatusPaid, StatusFulfilled); err != nil {
		return err
	}
	o.Status = StatusRefunding
	o.RefundReason = &reason
	o.UpdatedAt = now
	return nil
}

// ConfirmRefund 退款完成
func (o *Order) ConfirmRefund(now time.Time) error {
	if err := o.requireStatus("确认退款", StatusRefunding); err != nil {
		return err
	}
	o.Status = StatusRefunded
	o.PayStatus = PayStatusClosed
	o.UpdatedAt = now
	return nil
}

// MarkFulfilled 履约完成
func (o *Order) MarkFulfilled(now time.Time) error {
	if err := o.requireStatus("履约", StatusPaid); err != nil {
		return err
	}
	o.Status = StatusFulfilled
	o.UpdatedAt = now
	return nil
}

// Close 关单(归档终态)
func (o *Order) Close(now time.Time) error {
	if err := o.requireStatus("关单", StatusCancelled, StatusRefunded, StatusFulfilled); err != nil {
		return err
	}
	o.Status = StatusClosed
	o.UpdatedAt = now
	return nil
}

// ChangeAddress 修改收货地址
// 教学要点:一次性操作,第二次修改返回冲突而不是静默覆盖
func (o *Order) ChangeAddress(addr AddressSnapshot, now time.Time) error {
	if err := o.requireStatus("改址", StatusCreated, StatusPendingPayment, StatusPaid); err != nil {
		return err
	}
	if o.AddressChanged {
		return apperrors.ErrAddressChanged
	}
	o.Address = &addr
	o.AddressChanged = true
	o.UpdatedAt = now
	return nil
}

// IsOwnedBy 检查订单是否属于指定用户
func (o *Order) IsOwnedBy(userID uint64) bool {
	return o.UserID == userID
}

package order

import (
	"context"
	"time"

	apperrors "github.com/eason8811/international-shopping-sub001/pkg/errors"
)

// ChangeType 库存变更类型
type ChangeType string

const (
	ChangeReserve ChangeType = "RESERVE" // 下单预占(条件扣减)
	ChangeRelease ChangeType = "RELEASE" // 取消释放(无条件加回)
	ChangeRestock ChangeType = "RESTOCK" // 退款回补(无条件加回)
)

// SkuQuantity SKU与数量对
type SkuQuantity struct {
	SkuID    uint64
	Quantity int
}

// InventoryLog 库存流水
// 教学要点:
// 1. (order_no, sku_id, change_type)唯一索引是幂等的根基:
//    同一订单对同一SKU的同类变更只会生效一次,重复写入直接跳过
// 2. 先写流水再动库存,库存的每一次增减都能追溯到订单
type InventoryLog struct {
	ID         uint64
	SkuID      uint64
	OrderNo    string
	ChangeType ChangeType
	Quantity   int // 恒为正数,方向由ChangeType表达
	Reason     string
	CreatedAt  time.Time
}

// NewInventoryLog 创建库存流水
func NewInventoryLog(skuID uint64, orderNo string, change ChangeType, quantity int, reason string) (InventoryLog, error) {
	if quantity <= 0 {
		return InventoryLog{}, apperrors.Newf(apperrors.ErrCodeInvalidParams,
			"库存变更数量必须大于0: %d", quantity)
	}
	return InventoryLog{
		SkuID:      skuID,
		OrderNo:    orderNo,
		ChangeType: change,
		Quantity:   quantity,
		Reason:     reason,
	}, nil
}

// StockLedger 库存台账端口(由MySQL仓储实现)
//
// Apply在一次调用中完成一批SKU的流水写入与库存增减:
// - SKU按ID升序处理(固定加锁顺序,避免并发下单互相死锁)
// - 流水命中唯一索引时跳过该SKU的库存变更(幂等重放)
// - RESERVE是条件扣减(库存充足且SKU/商品在售),不满足返回库存不足
// - RELEASE/RESTOCK无条件加回
// 必须在事务上下文中调用
type StockLedger interface {
	Apply(ctx context.Context, orderNo string, change ChangeType, items []SkuQuantity, reason string) error
}

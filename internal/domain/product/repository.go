package product

import (
	"context"
)

// Repository SKU查询仓储
// 下单链路只需要按ID批量取SKU快照,库存增减走order.StockLedger
type Repository interface {
	// FindSkus 批量查SKU(带商品在售状态),任一ID不存在返回ErrSkuNotFound
	FindSkus(ctx context.Context, skuIDs []uint64) (map[uint64]*Sku, error)
}

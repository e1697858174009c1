package product

import (
	"github.com/eason8811/international-shopping-sub001/internal/domain/money"
)

// ProductStatus 商品状态
type ProductStatus string

const (
	ProductOnSale   ProductStatus = "ON_SALE"
	ProductOffShelf ProductStatus = "OFF_SHELF"
)

// SkuStatus SKU状态
type SkuStatus string

const (
	SkuEnabled  SkuStatus = "ENABLED"
	SkuDisabled SkuStatus = "DISABLED"
)

// Sku 商品SKU
// 下单时从这里取价格和标题快照;库存字段只由库存台账修改,
// 业务代码不直接读写Stock做判断(并发下读到的值立刻过期)
type Sku struct {
	ID            uint64
	ProductID     uint64
	Title         string
	Attrs         string // 规格,如 "颜色:黑;尺码:L"
	CoverImageURL string
	Price         money.Money
	Stock         int
	Status        SkuStatus
	ProductStatus ProductStatus // 冗余自商品,查询时带出
}

// Sellable SKU当前是否可售
func (s *Sku) Sellable() bool {
	return s.Status == SkuEnabled && s.ProductStatus == ProductOnSale
}

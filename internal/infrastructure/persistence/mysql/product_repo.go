package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/eason8811/international-shopping-sub001/internal/domain/money"
	"github.com/eason8811/international-shopping-sub001/internal/domain/product"
	apperrors "github.com/eason8811/international-shopping-sub001/pkg/errors"
)

// productRepository 商品仓储实现(MySQL)
type productRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) product.Repository {
	return &productRepository{db: db}
}

// FindSkus 批量查SKU(带商品状态),返回按SKU ID索引的map
// 缺失的SKU不报错,由调用方对照请求逐个检查
func (r *productRepository) FindSkus(ctx context.Context, skuIDs []uint64) (map[uint64]*product.Sku, error) {
	if len(skuIDs) == 0 {
		return map[uint64]*product.Sku{}, nil
	}

	type skuRow struct {
		SkuModel
		ProductStatus string
	}

	var rows []skuRow
	db := getDB(ctx, r.db)
	err := db.Model(&SkuModel{}).
		Select("sku.*, product.status AS product_status").
		Joins("JOIN product ON product.id = sku.product_id").
		Where("sku.id IN ?", skuIDs).
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询SKU失败")
	}

	skus := make(map[uint64]*product.Sku, len(rows))
	for i := range rows {
		row := &rows[i]
		skus[row.ID] = &product.Sku{
			ID:            row.ID,
			ProductID:     row.ProductID,
			Title:         row.Title,
			Attrs:         row.Attrs,
			CoverImageURL: row.CoverImageURL,
			Price:         money.Money{Amount: row.Price, Currency: row.Currency},
			Stock:         row.Stock,
			Status:        product.SkuStatus(row.Status),
			ProductStatus: product.ProductStatus(row.ProductStatus),
		}
	}

	return skus, nil
}

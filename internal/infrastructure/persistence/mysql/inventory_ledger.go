package mysql

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"github.com/eason8811/international-shopping-sub001/internal/domain/order"
	"github.com/eason8811/international-shopping-sub001/pkg/clock"
	apperrors "github.com/eason8811/international-shopping-sub001/pkg/errors"
)

// stockLedger 库存台账实现(MySQL)
// 教学要点:
// 1. 每次库存变更先插流水,(order_no, sku_id, change_type)唯一索引兜底幂等:
//    流水命中重复键说明这笔变更已经执行过,直接跳过计数更新
// 2. RESERVE用条件UPDATE扣减(stock >= ? 且商品/SKU在售),零行命中即库存不足
// 3. SKU按ID升序处理,多单并发抢多个SKU时保持一致加锁顺序,避免死锁
// 4. 必须在事务内调用,由TxManager保证流水和计数同生共死
type stockLedger struct {
	db    *gorm.DB
	clock clock.Clock
}

// NewStockLedger 创建库存台账
func NewStockLedger(db *gorm.DB, clk clock.Clock) order.StockLedger {
	return &stockLedger{db: db, clock: clk}
}

// Apply 执行一批库存变更
func (l *stockLedger) Apply(ctx context.Context, orderNo string, change order.ChangeType, items []order.SkuQuantity, reason string) error {
	sorted := make([]order.SkuQuantity, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SkuID < sorted[j].SkuID })

	db := getDB(ctx, l.db)
	for _, item := range sorted {
		logEntry, err := order.NewInventoryLog(item.SkuID, orderNo, change, item.Quantity, reason)
		if err != nil {
			return err
		}
		logEntry.CreatedAt = l.clock.Now()

		inserted, err := l.tryInsertLog(db, logEntry)
		if err != nil {
			return err
		}
		if !inserted {
			// 流水已存在:这笔变更之前已经生效,跳过计数更新
			continue
		}

		if err := l.applyCounter(db, item, change); err != nil {
			return err
		}
	}

	return nil
}

// tryInsertLog 插入库存流水,命中唯一索引返回false
func (l *stockLedger) tryInsertLog(db *gorm.DB, entry order.InventoryLog) (bool, error) {
	model := InventoryLogModel{
		OrderNo:    entry.OrderNo,
		SkuID:      entry.SkuID,
		ChangeType: string(entry.ChangeType),
		Quantity:   entry.Quantity,
		Reason:     truncate(entry.Reason, 100),
		CreatedAt:  entry.CreatedAt,
	}

	if err := db.Create(&model).Error; err != nil {
		if isDuplicateError(err) {
			return false, nil
		}
		return false, apperrors.Wrap(err, "写入库存流水失败")
	}
	return true, nil
}

// applyCounter 更新SKU库存计数
func (l *stockLedger) applyCounter(db *gorm.DB, item order.SkuQuantity, change order.ChangeType) error {
	switch change {
	case order.ChangeReserve:
		// 条件扣减:库存充足且SKU/商品都在售才命中
		result := db.Model(&SkuModel{}).
			Where("id = ? AND stock >= ? AND status = ?", item.SkuID, item.Quantity, "ENABLED").
			Where("product_id IN (?)",
				db.Session(&gorm.Session{NewDB: true}).Model(&ProductModel{}).
					Select("id").Where("status = ?", "ON_SALE")).
			Update("stock", gorm.Expr("stock - ?", item.Quantity))
		if result.Error != nil {
			return apperrors.Wrap(result.Error, "扣减库存失败")
		}
		if result.RowsAffected == 0 {
			return apperrors.Newf(apperrors.ErrCodeInsufficientStock,
				"SKU %d 库存不足或已下架", item.SkuID)
		}
		return nil

	case order.ChangeRelease, order.ChangeRestock:
		// 归还/回补:无条件加回
		result := db.Model(&SkuModel{}).
			Where("id = ?", item.SkuID).
			Update("stock", gorm.Expr("stock + ?", item.Quantity))
		if result.Error != nil {
			return apperrors.Wrap(result.Error, "归还库存失败")
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrSkuNotFound
		}
		return nil

	default:
		return apperrors.Newf(apperrors.ErrCodeInvalidParams, "未知的库存变更类型: %s", change)
	}
}

// Package money 金额值对象
//
// 教学要点:
// 1. 金额用int64存储最小货币单位(如美分),避免浮点数精度问题
// 2. 金额和币种绑定在一起,跨币种运算直接报错
// 3. 值对象不可变:所有运算返回新值,不修改接收者
package money

import (
	"fmt"

	apperrors "github.com/eason8811/international-shopping-sub001/pkg/errors"
)

// Money 金额值对象(最小货币单位+币种)
type Money struct {
	Amount   int64  // 最小货币单位数量(如美分),非负
	Currency string // ISO 4217币种代码(如USD)
}

// New 创建金额
// 校验:金额非负,币种非空
func New(amount int64, currency string) (Money, error) {
	if amount < 0 {
		return Money{}, apperrors.Newf(apperrors.ErrCodeInvalidParams, "金额不能为负数: %d", amount)
	}
	if currency == "" {
		return Money{}, apperrors.New(apperrors.ErrCodeInvalidParams, "币种不能为空")
	}
	return Money{Amount: amount, Currency: currency}, nil
}

// MustNew 创建金额(参数非法时panic,仅用于常量初始化和测试)
func MustNew(amount int64, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero 指定币种的零金额
func Zero(currency string) Money {
	return Money{Amount: 0, Currency: currency}
}

// IsZero 是否为零金额
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// Add 加法(要求同币种)
func (m Money) Add(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

// Sub 减法(要求同币种,结果不能为负)
func (m Money) Sub(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	if m.Amount < other.Amount {
		return Money{}, apperrors.Newf(apperrors.ErrCodeInvalidParams,
			"金额减法结果不能为负: %s - %s", m, other)
	}
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}, nil
}

// MulQty 乘以数量(用于单价×数量)
func (m Money) MulQty(qty int) (Money, error) {
	if qty < 0 {
		return Money{}, apperrors.Newf(apperrors.ErrCodeInvalidParams, "数量不能为负数: %d", qty)
	}
	return Money{Amount: m.Amount * int64(qty), Currency: m.Currency}, nil
}

// Cmp 比较(要求同币种): -1小于, 0等于, 1大于
func (m Money) Cmp(other Money) (int, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return 0, err
	}
	switch {
	case m.Amount < other.Amount:
		return -1, nil
	case m.Amount > other.Amount:
		return 1, nil
	default:
		return 0, nil
	}
}

// PartHalfUp 按比例分摊: amount × num / den,除法按HALF_UP取整
// 用于部分退款时按请求数量分摊行小计
func (m Money) PartHalfUp(num, den int64) (Money, error) {
	if num < 0 || den <= 0 {
		return Money{}, apperrors.Newf(apperrors.ErrCodeInvalidParams,
			"分摊比例非法: %d/%d", num, den)
	}
	// 整数HALF_UP: (a*num + den/2) / den,被分摊金额非负所以不用处理负数取整
	v := (m.Amount*num + den/2) / den
	return Money{Amount: v, Currency: m.Currency}, nil
}

// String 日志友好格式,如 "12.34 USD"(按两位小数展示)
func (m Money) String() string {
	return fmt.Sprintf("%d.%02d %s", m.Amount/100, m.Amount%100, m.Currency)
}

func (m Money) ensureSameCurrency(other Money) error {
	if m.Currency != other.Currency {
		return apperrors.Newf(apperrors.ErrCodeInvalidParams,
			"币种不一致: %s vs %s", m.Currency, other.Currency)
	}
	return nil
}

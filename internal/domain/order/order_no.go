package order

import (
	"github.com/eason8811/international-shopping-sub001/pkg/ident"
)

// GenerateOrderNo 生成订单号
// 26位Crockford Base32:48位毫秒时间戳 + 80位加密随机数
// 全局唯一、时间有序、不可预测,见pkg/ident
func GenerateOrderNo() string {
	return ident.New()
}

// Package clock 提供可注入的时钟抽象
//
// 超时取消、退款轮询等逻辑都依赖"当前时间"，直接调用time.Now()
// 会让这类逻辑无法在测试中复现。用例统一通过Clock接口取时间，
// 测试注入固定时钟即可。
package clock

import "time"

// Clock 时钟接口
type Clock interface {
	Now() time.Time
}

// Real 系统时钟
type Real struct{}

func (Real) Now() time.Time {
	return time.Now()
}

// Fixed 固定时钟（测试用）
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time {
	return f.T
}

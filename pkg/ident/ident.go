// Package ident 生成订单号/退款号等业务单号
//
// 单号设计原则：
// 1. 全局唯一（避免冲突）
// 2. 时间有序（便于分库分表、按时间排查问题）
// 3. 不可预测（防止恶意遍历）
//
// 格式：16字节 = 48位毫秒时间戳（大端） + 80位加密随机数，
// 整体按Crockford Base32编码为26个字符。
// 示例：01JMT5W8G0A1B2C3D4E5F6G7H8
package ident

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// crockford Base32字符表（去掉易混淆的 I L O U）
const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// New 生成一个26位单号
func New() string {
	return NewAt(time.Now())
}

// NewAt 以指定时间生成单号（时间部分可控，便于测试）
func NewAt(t time.Time) string {
	var buf [16]byte

	// 前6字节：毫秒时间戳（48位，大端）
	ms := uint64(t.UnixMilli())
	binary.BigEndian.PutUint64(buf[:8], ms<<16)

	// 后10字节：加密安全随机数（80位）
	if _, err := rand.Read(buf[6:]); err != nil {
		// crypto/rand在正常运行环境下不会失败
		panic("ident: crypto/rand unavailable: " + err.Error())
	}

	return encode(buf)
}

// encode 将16字节（128位）编码为26个Base32字符
// 130位容量 > 128位，最高位补2个0
func encode(src [16]byte) string {
	out := make([]byte, 26)

	// 逐5位取值：第i个字符取位区间 [i*5-2, i*5+3)（偏移-2对应高位补零）
	bitPos := -2
	for i := 0; i < 26; i++ {
		out[i] = crockford[take5(src, bitPos)]
		bitPos += 5
	}
	return string(out)
}

// take5 从大端位流的pos位置取5个bit（pos可为负，越界位按0处理）
func take5(src [16]byte, pos int) int {
	v := 0
	for b := 0; b < 5; b++ {
		p := pos + b
		v <<= 1
		if p < 0 || p >= 128 {
			continue
		}
		if src[p/8]&(1<<(7-p%8)) != 0 {
			v |= 1
		}
	}
	return v
}

package ident

import (
	"strings"
	"testing"
	"time"
)

func TestNewLengthAndAlphabet(t *testing.T) {
	no := New()
	if len(no) != 26 {
		t.Fatalf("单号长度应为26, 实际: %d (%s)", len(no), no)
	}
	for _, ch := range no {
		if !strings.ContainsRune(crockford, ch) {
			t.Fatalf("单号包含非法字符: %c (%s)", ch, no)
		}
	}
}

func TestNewUniqueness(t *testing.T) {
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		no := New()
		if seen[no] {
			t.Fatalf("单号重复: %s", no)
		}
		seen[no] = true
	}
}

// 时间戳在高位，晚生成的单号字典序应更大
func TestNewAtTimeOrdered(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	a := NewAt(t1)
	b := NewAt(t2)
	if !(a < b) {
		t.Fatalf("单号应按时间有序: %s >= %s", a, b)
	}
}

// 同一时刻生成的单号时间前缀应一致（前48位来自时间戳）
func TestNewAtSamePrefix(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := NewAt(ts)
	b := NewAt(ts)

	// 48位时间戳 + 2位补零 = 前10个字符
	if a[:10] != b[:10] {
		t.Fatalf("同一时刻的单号时间前缀应相同: %s / %s", a[:10], b[:10])
	}
	if a == b {
		t.Fatalf("随机部分不应相同: %s", a)
	}
}

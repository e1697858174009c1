package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("正常创建", func(t *testing.T) {
		m, err := New(1234, "USD")
		require.NoError(t, err)
		assert.Equal(t, int64(1234), m.Amount)
		assert.Equal(t, "USD", m.Currency)
	})

	t.Run("负数金额应失败", func(t *testing.T) {
		_, err := New(-1, "USD")
		assert.Error(t, err)
	})

	t.Run("空币种应失败", func(t *testing.T) {
		_, err := New(100, "")
		assert.Error(t, err)
	})
}

func TestAddSub(t *testing.T) {
	a := MustNew(1000, "USD")
	b := MustNew(234, "USD")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), sum.Amount)

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, int64(766), diff.Amount)

	t.Run("减出负数应失败", func(t *testing.T) {
		_, err := b.Sub(a)
		assert.Error(t, err)
	})

	t.Run("跨币种运算应失败", func(t *testing.T) {
		eur := MustNew(100, "EUR")
		_, err := a.Add(eur)
		assert.Error(t, err)
		_, err = a.Sub(eur)
		assert.Error(t, err)
	})
}

func TestMulQty(t *testing.T) {
	unit := MustNew(299, "USD")

	total, err := unit.MulQty(3)
	require.NoError(t, err)
	assert.Equal(t, int64(897), total.Amount)

	_, err = unit.MulQty(-1)
	assert.Error(t, err)
}

func TestCmp(t *testing.T) {
	a := MustNew(100, "USD")
	b := MustNew(200, "USD")

	c, err := a.Cmp(b)
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	c, err = b.Cmp(a)
	require.NoError(t, err)
	assert.Equal(t, 1, c)

	c, err = a.Cmp(a)
	require.NoError(t, err)
	assert.Equal(t, 0, c)

	_, err = a.Cmp(MustNew(100, "EUR"))
	assert.Error(t, err)
}

func TestPartHalfUp(t *testing.T) {
	// 部分退款分摊:小计按 请求数量/下单数量 取比例,除法HALF_UP
	cases := []struct {
		name     string
		subtotal int64
		num, den int64
		want     int64
	}{
		{"整除", 900, 1, 3, 300},
		{"向上取整", 1000, 1, 3, 333}, // 333.33... → 333
		{"正好半数进位", 100, 1, 8, 13}, // 12.5 → 13
		{"全量", 999, 3, 3, 999},
		{"零数量", 999, 0, 3, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := MustNew(tc.subtotal, "USD")
			got, err := m.PartHalfUp(tc.num, tc.den)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Amount)
		})
	}

	t.Run("非法比例", func(t *testing.T) {
		m := MustNew(100, "USD")
		_, err := m.PartHalfUp(1, 0)
		assert.Error(t, err)
		_, err = m.PartHalfUp(-1, 3)
		assert.Error(t, err)
	})
}

func TestString(t *testing.T) {
	assert.Equal(t, "12.34 USD", MustNew(1234, "USD").String())
	assert.Equal(t, "0.05 EUR", MustNew(5, "EUR").String())
}

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// TestInitMetrics 测试指标初始化
func TestInitMetrics(t *testing.T) {
	InitMetrics()

	// 验证关键指标已创建
	if HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal未初始化")
	}
	if OrdersCreatedTotal == nil {
		t.Error("OrdersCreatedTotal未初始化")
	}
	if RefundsConfirmedTotal == nil {
		t.Error("RefundsConfirmedTotal未初始化")
	}
	if RefundSyncTotal == nil {
		t.Error("RefundSyncTotal未初始化")
	}
	if GatewayRequestDuration == nil {
		t.Error("GatewayRequestDuration未初始化")
	}

	// 重复调用不应panic（promauto重复注册会panic，靠initialized标记挡住）
	InitMetrics()

	t.Log("✅ 所有指标初始化成功")
}

// TestOrderCounters 测试订单业务计数器
func TestOrderCounters(t *testing.T) {
	InitMetrics()

	// 初始值应为0
	if v := getCounterValue(t, OrdersCreatedTotal); v != 0 {
		t.Errorf("Counter初始值错误: expected=0, got=%f", v)
	}

	// 模拟3笔下单
	OrdersCreatedTotal.Inc()
	OrdersCreatedTotal.Inc()
	OrdersCreatedTotal.Inc()

	if v := getCounterValue(t, OrdersCreatedTotal); v != 3 {
		t.Errorf("Counter值错误: expected=3, got=%f", v)
	}

	// 取消计数按发起方分维度
	OrdersCancelledTotal.WithLabelValues("USER").Inc()
	OrdersCancelledTotal.WithLabelValues("SYSTEM").Inc()
	OrdersCancelledTotal.WithLabelValues("SYSTEM").Inc()

	if v := getVecValue(t, OrdersCancelledTotal.WithLabelValues("SYSTEM")); v != 2 {
		t.Errorf("CounterVec值错误: expected=2, got=%f", v)
	}

	t.Log("✅ 订单计数器测试通过")
}

// TestRefundCounters 测试退款业务计数器
func TestRefundCounters(t *testing.T) {
	InitMetrics()

	// 落账结果分success/pending/failure
	RefundsConfirmedTotal.WithLabelValues("success").Inc()
	RefundsConfirmedTotal.WithLabelValues("pending").Inc()
	RefundsConfirmedTotal.WithLabelValues("success").Inc()

	if v := getVecValue(t, RefundsConfirmedTotal.WithLabelValues("success")); v != 2 {
		t.Errorf("退款落账计数错误: expected=2, got=%f", v)
	}

	// 对账结果额外有error维度（网关查询失败）
	RefundSyncTotal.WithLabelValues("error").Inc()
	if v := getVecValue(t, RefundSyncTotal.WithLabelValues("error")); v != 1 {
		t.Errorf("对账计数错误: expected=1, got=%f", v)
	}

	t.Log("✅ 退款计数器测试通过")
}

// TestCircuitBreakerGauge 测试熔断器状态Gauge
func TestCircuitBreakerGauge(t *testing.T) {
	InitMetrics()

	// 0=CLOSED, 1=OPEN, 2=HALF_OPEN
	CircuitBreakerState.WithLabelValues("paypal").Set(0)
	if v := getVecValue(t, CircuitBreakerState.WithLabelValues("paypal")); v != 0 {
		t.Errorf("熔断器状态错误: expected=0, got=%f", v)
	}

	CircuitBreakerState.WithLabelValues("paypal").Set(1)
	if v := getVecValue(t, CircuitBreakerState.WithLabelValues("paypal")); v != 1 {
		t.Errorf("熔断器状态错误: expected=1, got=%f", v)
	}

	t.Log("✅ 熔断器Gauge测试通过")
}

// TestGatewayHistogram 测试渠道调用耗时直方图
func TestGatewayHistogram(t *testing.T) {
	InitMetrics()

	durations := []float64{0.05, 0.1, 0.5, 1.0, 5.0}
	for _, d := range durations {
		GatewayRequestDuration.WithLabelValues("refund_capture").Observe(d)
	}

	count, sum := getHistogramStats(t, GatewayRequestDuration.WithLabelValues("refund_capture"))
	if count != 5 {
		t.Errorf("Histogram观测次数错误: expected=5, got=%d", count)
	}
	expectedSum := 0.05 + 0.1 + 0.5 + 1.0 + 5.0
	if sum != expectedSum {
		t.Errorf("Histogram总和错误: expected=%f, got=%f", expectedSum, sum)
	}

	t.Logf("✅ Histogram测试通过, 观测次数=%d, 总和=%f, 平均值=%f", count, sum, sum/float64(count))
}

// TestRealWorldScenario 真实场景：模拟HTTP请求处理
func TestRealWorldScenario(t *testing.T) {
	InitMetrics()

	// 重置Gauge（清理之前测试的影响）
	HTTPRequestsInProgress.Set(0)

	// 模拟10个下单请求
	for i := 0; i < 10; i++ {
		HTTPRequestsInProgress.Inc()

		start := time.Now()
		time.Sleep(10 * time.Millisecond)
		duration := time.Since(start).Seconds()

		HTTPRequestDuration.WithLabelValues("POST", "/api/v1/orders").Observe(duration)
		HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/orders", "200").Inc()

		HTTPRequestsInProgress.Dec()
	}

	// 验证正在处理的请求数（应归零）
	if v := getGaugeValue(t, HTTPRequestsInProgress); v != 0 {
		t.Errorf("正在处理的请求数错误: expected=0, got=%f", v)
	}

	count, _ := getHistogramStats(t, HTTPRequestDuration.WithLabelValues("POST", "/api/v1/orders"))
	if count != 10 {
		t.Errorf("请求耗时观测次数错误: expected=10, got=%d", count)
	}

	t.Log("✅ 真实场景测试通过")
	t.Log("   提示: 启动Prometheus和Grafana后可在Dashboard中查看这些指标")
}

// 辅助函数：获取Counter值
func getCounterValue(t *testing.T, counter prometheus.Counter) float64 {
	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("读取Counter值失败: %v", err)
	}
	return metric.Counter.GetValue()
}

// 辅助函数：获取Gauge值
func getGaugeValue(t *testing.T, gauge prometheus.Gauge) float64 {
	var metric dto.Metric
	if err := gauge.Write(&metric); err != nil {
		t.Fatalf("读取Gauge值失败: %v", err)
	}
	return metric.Gauge.GetValue()
}

// 辅助函数：从带标签的子指标读取当前值（Counter/Gauge通用）
func getVecValue(t *testing.T, m prometheus.Metric) float64 {
	var metric dto.Metric
	if err := m.Write(&metric); err != nil {
		t.Fatalf("读取指标值失败: %v", err)
	}
	if metric.Counter != nil {
		return metric.Counter.GetValue()
	}
	return metric.Gauge.GetValue()
}

// 辅助函数：获取Histogram观测次数与总和
func getHistogramStats(t *testing.T, o prometheus.Observer) (uint64, float64) {
	var metric dto.Metric
	if err := o.(prometheus.Metric).Write(&metric); err != nil {
		t.Fatalf("读取Histogram值失败: %v", err)
	}
	return metric.Histogram.GetSampleCount(), metric.Histogram.GetSampleSum()
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	apporder "github.com/eason8811/international-shopping-sub001/internal/application/order"
	apppayment "github.com/eason8811/international-shopping-sub001/internal/application/payment"
	"github.com/eason8811/international-shopping-sub001/internal/infrastructure/config"
	"github.com/eason8811/international-shopping-sub001/internal/infrastructure/gateway/paypal"
	"github.com/eason8811/international-shopping-sub001/internal/infrastructure/persistence/mysql"
	"github.com/eason8811/international-shopping-sub001/pkg/clock"
	"github.com/eason8811/international-shopping-sub001/pkg/metrics"
	"github.com/eason8811/international-shopping-sub001/pkg/mq"
)

// main 后台任务入口
// 两个定时任务兜住订单/退款链路的"没人再来推一把"场景：
// 1. 超时未支付订单自动取消（释放预占库存）
// 2. 退款对账（轮询渠道结果 + 重放没做完的落账动作）
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	metrics.InitMetrics()

	db, err := mysql.NewDB(cfg)
	if err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}

	gatewayAdapter, err := paypal.NewAdapter(cfg)
	if err != nil {
		log.Fatalf("初始化支付网关失败: %v", err)
	}

	clk := clock.Real{}
	orderRepo := mysql.NewOrderRepository(db)
	paymentRepo := mysql.NewPaymentRepository(db)
	ledger := mysql.NewStockLedger(db, clk)
	txManager := mysql.NewTxManager(db)

	var orderPublisher apporder.EventPublisher
	var paymentPublisher apppayment.EventPublisher
	if cfg.MQ.Enabled {
		publisher, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, "topic")
		if err != nil {
			log.Fatalf("初始化MQ失败: %v", err)
		}
		defer publisher.Close()
		orderPublisher = publisher
		paymentPublisher = publisher
	}

	cancelOrderUseCase := apporder.NewCancelOrderUseCase(
		orderRepo, paymentRepo, ledger, txManager, orderPublisher, clk)
	confirmRefundUseCase := apppayment.NewConfirmRefundUseCase(
		orderRepo, paymentRepo, ledger, gatewayAdapter, txManager, paymentPublisher, clk)
	syncRefundsUseCase := apppayment.NewSyncRefundsUseCase(
		paymentRepo, gatewayAdapter, confirmRefundUseCase)

	// cron表达式带秒级字段,如 "0 */5 * * * *" 每5分钟
	c := cron.New(cron.WithSeconds())

	_, err = c.AddFunc(cfg.Jobs.OrderSweepCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		cancelled, err := cancelOrderUseCase.CancelExpired(ctx,
			cfg.Jobs.OrderTimeout, cfg.Jobs.OrderSweepBatch)
		if err != nil {
			log.Printf("超时订单扫描失败: %v", err)
			return
		}
		if cancelled > 0 {
			log.Printf("超时订单扫描完成: 取消=%d", cancelled)
		}
	})
	if err != nil {
		log.Fatalf("注册超时取消任务失败: %v", err)
	}

	_, err = c.AddFunc(cfg.Jobs.RefundSyncCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
		defer cancel()

		if _, _, err := syncRefundsUseCase.Execute(ctx, cfg.Jobs.RefundSyncBatch); err != nil {
			log.Printf("退款对账失败: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("注册退款对账任务失败: %v", err)
	}

	c.Start()
	fmt.Printf("✓ 后台任务启动成功\n")
	fmt.Printf("  - 超时取消: %s (存活%s, 每批%d)\n",
		cfg.Jobs.OrderSweepCron, cfg.Jobs.OrderTimeout, cfg.Jobs.OrderSweepBatch)
	fmt.Printf("  - 退款对账: %s (每批%d)\n",
		cfg.Jobs.RefundSyncCron, cfg.Jobs.RefundSyncBatch)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("收到停机信号,等待在途任务结束...")
	<-c.Stop().Done()
	log.Println("后台任务已退出")
}

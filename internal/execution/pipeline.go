package execution

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coinbase-trader/internal/config"
	"coinbase-trader/internal/risk"
)

const simulatedOrderPrefix = "DRY-RUN-"

// Pipeline 执行市价买入：先做安全检查，再根据模式模拟或真实下单。
type Pipeline struct {
	cfg      config.TradingConfig
	gateway  Gateway
	guard    *risk.Guard
	recorder Recorder
	logger   *zap.Logger

	now           func() time.Time
	newClientID   func() string
	newSimulateID func() string
}

// Option 调整 Pipeline 的可选依赖。
type Option func(*Pipeline)

// WithRecorder 设置下单结果记录器。
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.recorder = r
		}
	}
}

// WithClock 替换时间来源。
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// NewPipeline 创建下单流水线。cfg 按值保存，创建后外部修改不会影响流水线。
func NewPipeline(cfg config.TradingConfig, gateway Gateway, logger *zap.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		cfg:     cfg,
		gateway: gateway,
		guard: risk.NewGuard(risk.Limits{
			MaxOrderUSD: cfg.MaxOrderUSD,
			MinOrderUSD: cfg.MinOrderUSD,
		}, logger),
		recorder:      nopRecorder{},
		logger:        logger,
		now:           time.Now,
		newClientID:   uuid.NewString,
		newSimulateID: newSimulatedOrderID,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DryRun 返回流水线是否处于模拟模式。
func (p *Pipeline) DryRun() bool {
	return p.cfg.IsDryRun()
}

// PlaceMarketBuy 按美元金额市价买入配置的交易对。
// 返回的错误可能是 *risk.Rejection 或 ErrNotSubmitted（确定未下单），
// 也可能是 *SubmissionError（状态未知）。
func (p *Pipeline) PlaceMarketBuy(ctx context.Context, req OrderRequest) (Result, error) {
	logger := p.logger.With(
		zap.String("pair", p.cfg.Pair),
		zap.Float64("usd_amount", req.USDAmount),
		zap.Bool("dry_run", p.cfg.IsDryRun()),
	)
	logger.Info("准备市价买单", zap.String("stage", string(StageReceived)))

	if err := p.guard.CheckAmount(req.USDAmount); err != nil {
		logger.Warn("订单未通过安全检查", zap.String("stage", string(StageRejected)))
		p.recorder.RecordRejection(ctx, req, err)
		return nil, err
	}
	logger.Debug("安全检查通过", zap.String("stage", string(StageValidated)))

	if p.cfg.IsDryRun() {
		order := p.simulate(ctx, req.USDAmount, logger)
		p.recorder.RecordSimulated(ctx, order)
		return order, nil
	}

	order, err := p.execute(ctx, req.USDAmount, logger)
	if err != nil {
		var rejection *risk.Rejection
		if errors.As(err, &rejection) {
			logger.Warn("订单未通过余额检查", zap.String("stage", string(StageRejected)))
			p.recorder.RecordRejection(ctx, req, err)
		} else {
			logger.Error("真实下单失败", zap.String("stage", string(StageFailed)), zap.Error(err))
			p.recorder.RecordFailure(ctx, req, err)
		}
		return nil, err
	}

	p.recorder.RecordPlaced(ctx, order)
	return order, nil
}

// newSimulatedOrderID 生成带 DRY-RUN 前缀的订单号，与交易所订单号明显区分。
func newSimulatedOrderID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return simulatedOrderPrefix + strings.ToUpper(hex[:8])
}

// IsSimulatedOrderID 判断订单号是否由模拟模式生成。
func IsSimulatedOrderID(id string) bool {
	return strings.HasPrefix(id, simulatedOrderPrefix)
}

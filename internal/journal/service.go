package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"coinbase-trader/internal/diagnostics"
	"coinbase-trader/internal/execution"
	"coinbase-trader/internal/risk"
	"coinbase-trader/internal/store"
)

const defaultListLimit = 20

// Service 将下单与自检结果写入 SQLite，供事后审计。
// 写入失败只记录告警，不影响下单流程。
type Service struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

var _ execution.Recorder = (*Service)(nil)

// NewService 初始化审计服务，创建所需表结构。
func NewService(store *store.Store, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("journal: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		db:     store.DB(),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}

	if err := s.initSchema(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) initSchema() error {
	stmt := `
CREATE TABLE IF NOT EXISTS order_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	order_id TEXT,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_order_events_type ON order_events(event_type);
`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("journal: 初始化表失败: %w", err)
	}
	return nil
}

// Record 写入单个事件。
func (s *Service) Record(ctx context.Context, event Event, orderID string) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("journal: 序列化事件失败: %w", err)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}

	var id sql.NullString
	if orderID != "" {
		id = sql.NullString{String: orderID, Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO order_events (event_type, order_id, payload, created_at) VALUES (?, ?, ?, ?)`,
		string(event.Type), id, string(payload), event.Timestamp.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("journal: 写入事件失败: %w", err)
	}

	return nil
}

// RecordSimulated 记录模拟订单。
func (s *Service) RecordSimulated(ctx context.Context, order *execution.Simulated) {
	s.record(ctx, Event{
		Type:      EventOrderSimulated,
		Timestamp: order.Timestamp,
		Payload:   SimulatedPayload{Order: order},
	}, order.OrderID)
}

// RecordPlaced 记录真实订单。
func (s *Service) RecordPlaced(ctx context.Context, order *execution.Placed) {
	s.record(ctx, Event{
		Type:      EventOrderPlaced,
		Timestamp: order.Timestamp,
		Payload:   PlacedPayload{Order: order},
	}, order.OrderID)
}

// RecordRejection 记录被拒绝的下单请求。
func (s *Service) RecordRejection(ctx context.Context, req execution.OrderRequest, err error) {
	payload := RejectionPayload{
		USDAmount: req.USDAmount,
		Error:     errorString(err),
	}
	var rejection *risk.Rejection
	if errors.As(err, &rejection) {
		payload.Reason = string(rejection.Reason)
	}
	s.record(ctx, Event{Type: EventOrderRejected, Payload: payload}, "")
}

// RecordFailure 记录提交失败，保留客户端订单号便于对账。
func (s *Service) RecordFailure(ctx context.Context, req execution.OrderRequest, err error) {
	payload := FailurePayload{
		USDAmount: req.USDAmount,
		Error:     errorString(err),
	}
	var subErr *execution.SubmissionError
	if errors.As(err, &subErr) {
		payload.ClientOrderID = subErr.ClientOrderID
		payload.ProductID = subErr.ProductID
	}
	s.record(ctx, Event{Type: EventOrderFailed, Payload: payload}, payload.ClientOrderID)
}

// RecordDiagnostics 记录自检结果。
func (s *Service) RecordDiagnostics(ctx context.Context, report diagnostics.Report) {
	s.record(ctx, Event{Type: EventDiagnostics, Payload: DiagnosticsPayload{Report: report}}, "")
}

// record 在收到中断信号后仍要写入，提交失败的 client_order_id 是对账的唯一线索。
func (s *Service) record(ctx context.Context, event Event, orderID string) {
	if err := s.Record(context.WithoutCancel(ctx), event, orderID); err != nil {
		s.logger.Warn("记录审计事件失败", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

// ListEvents 按类型检索最近事件，eventType 为空时返回全部类型。
func (s *Service) ListEvents(ctx context.Context, eventType EventType, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT event_type, payload, created_at FROM order_events`
	args := make([]interface{}, 0, 2)
	if eventType != "" {
		query += ` WHERE event_type = ?`
		args = append(args, string(eventType))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: 查询事件失败: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		var (
			typ     string
			payload string
			created string
		)
		if scanErr := rows.Scan(&typ, &payload, &created); scanErr != nil {
			return nil, fmt.Errorf("journal: 解析事件失败: %w", scanErr)
		}

		ts, parseErr := time.Parse(time.RFC3339Nano, created)
		if parseErr != nil {
			s.logger.Debug("事件时间格式异常", zap.String("created_at", created))
		}

		events = append(events, Event{
			Type:      EventType(typ),
			Timestamp: ts,
			Payload:   json.RawMessage(payload),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: 读取事件失败: %w", err)
	}

	return events, nil
}

// FindByOrderID 返回与订单号（或客户端订单号）相关的全部事件，按写入顺序排列。
func (s *Service) FindByOrderID(ctx context.Context, orderID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_type, payload, created_at FROM order_events WHERE order_id = ? ORDER BY id ASC`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("journal: 查询订单事件失败: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var typ, payload, created string
		if err := rows.Scan(&typ, &payload, &created); err != nil {
			return nil, fmt.Errorf("journal: 解析事件失败: %w", err)
		}
		ts, _ := time.Parse(time.RFC3339Nano, created)
		events = append(events, Event{Type: EventType(typ), Timestamp: ts, Payload: json.RawMessage(payload)})
	}
	return events, rows.Err()
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

package monitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/delist"
	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/placement"
	"github.com/xucheng2024/crypto-trading-automation-sub000/internal/store"
)

// Service 负责持久化监控事件。
type Service struct {
	db      *sql.DB
	metrics *Metrics
	logger  *zap.Logger
}

// NewService 初始化监控服务，创建所需表结构。
func NewService(store *store.Store, metrics *Metrics, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("monitor: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		db:      store.DB(),
		metrics: metrics,
		logger:  logger,
	}

	if err := s.initSchema(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) initSchema() error {
	stmt := `
CREATE TABLE IF NOT EXISTS monitor_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_monitor_events_type ON monitor_events(event_type);
`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("monitor: 初始化表失败: %w", err)
	}
	return nil
}

// Record 写入单个事件。
func (s *Service) Record(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("monitor: 序列化事件失败: %w", err)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO monitor_events (event_type, payload, created_at) VALUES (?, ?, ?)`,
		string(event.Type), string(payload), event.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("monitor: 写入事件失败: %w", err)
	}

	return nil
}

// RecordOrderPlaced 记录一次下单。
func (s *Service) RecordOrderPlaced(ctx context.Context, result placement.Result) {
	if s.metrics != nil {
		s.metrics.OrdersPlaced.WithLabelValues(string(result.Decision)).Inc()
	}
	if err := s.Record(ctx, Event{
		Type:      EventOrderPlaced,
		Timestamp: time.Now().UTC(),
		Payload:   OrderPlacedPayload{Result: result},
	}); err != nil {
		s.logger.Warn("记录下单事件失败", zap.Error(err))
	}
}

// RecordBatchRun 记录一轮批量创建触发单的结果。
func (s *Service) RecordBatchRun(ctx context.Context, tally placement.Tally) {
	if s.metrics != nil {
		s.metrics.OrdersFailed.Add(float64(tally.Failed))
	}
	if err := s.Record(ctx, Event{
		Type:      EventBatchRun,
		Timestamp: time.Now().UTC(),
		Payload:   BatchRunPayload{Placed: tally.Placed, Skipped: tally.Skipped, Failed: tally.Failed},
	}); err != nil {
		s.logger.Warn("记录批量下单事件失败", zap.Error(err))
	}
}

// RecordAutoSell 记录一次到期市价卖出。
func (s *Service) RecordAutoSell(ctx context.Context, payload AutoSellPayload) {
	if s.metrics != nil {
		s.metrics.AutoSells.Inc()
	}
	if err := s.Record(ctx, Event{
		Type:      EventAutoSell,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}); err != nil {
		s.logger.Warn("记录到期卖出事件失败", zap.Error(err))
	}
}

// RecordProtection 记录一次下架防护。
func (s *Service) RecordProtection(ctx context.Context, report delist.ProtectionReport) {
	if s.metrics != nil {
		s.metrics.ProtectionsRun.Inc()
		s.metrics.TriggersCancelled.Add(float64(report.AlgosCancelled))
	}
	if err := s.Record(ctx, Event{
		Type:      EventProtection,
		Timestamp: time.Now().UTC(),
		Payload:   ProtectionPayload{Report: report},
	}); err != nil {
		s.logger.Warn("记录防护事件失败", zap.Error(err))
	}
}

// RecordError 记录异常。
func (s *Service) RecordError(ctx context.Context, msg string, err error, ctxMap map[string]interface{}) {
	if s.metrics != nil {
		s.metrics.Errors.Inc()
	}
	payload := ErrorPayload{
		Message: msg,
		Error:   err.Error(),
		Context: ctxMap,
	}
	if recErr := s.Record(ctx, Event{
		Type:      EventError,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}); recErr != nil {
		s.logger.Warn("记录异常事件失败", zap.Error(recErr))
	}
}

// ListEvents 按类型检索最近事件。
func (s *Service) ListEvents(ctx context.Context, eventType EventType, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT event_type, payload, created_at FROM monitor_events`
	args := make([]interface{}, 0, 2)
	if eventType != "" {
		query += ` WHERE event_type = ?`
		args = append(args, string(eventType))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("monitor: 查询事件失败: %w", err)
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
			return nil, fmt.Errorf("monitor: 解析事件失败: %w", scanErr)
		}

		ts, parseErr := time.Parse(time.RFC3339, created)
		if parseErr != nil {
			ts = time.Now().UTC()
		}

		events = append(events, Event{
			Type:      EventType(typ),
			Timestamp: ts,
			Payload:   json.RawMessage(payload),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monitor: 读取事件失败: %w", err)
	}

	return events, nil
}

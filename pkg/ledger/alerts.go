package ledger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// AlertManager implements the ReorderAlertManager interface
// ReorderAlertManagerインターフェースの実装
type AlertManager struct {
	storage Storage
	logger  *zap.Logger
	metrics *Metrics
	config  *Config
}

var _ ReorderAlertManager = (*AlertManager)(nil)

// NewAlertManager creates a new reorder alert manager
// 新しいリオーダーアラートマネージャーを作成
func NewAlertManager(storage Storage, logger *zap.Logger, metrics *Metrics, config *Config) *AlertManager {
	if config == nil {
		config = &Config{
			DefaultMovementLimit: 50,
			DefaultAlertPriority: AlertPriorityMedium,
		}
	}

	return &AlertManager{
		storage: storage,
		logger:  logger,
		metrics: metrics,
		config:  config,
	}
}

// CreateReorderAlert creates a "needs restocking" alert for an item.
// The duplicate check and the insert run in one transaction, and the storage
// layer additionally enforces a one-active-alert-per-item constraint, so two
// concurrent calls can never both succeed.
// 材料の要補充アラートを作成する。重複チェックとインサートは1トランザクションで
// 実行され、ストレージ層も材料ごと1件のアクティブアラート制約を強制するため、
// 並行呼び出しが両方成功することはない。
func (am *AlertManager) CreateReorderAlert(ctx context.Context, input CreateAlertInput) (*ReorderAlert, error) {
	if err := ValidateItemID(input.ItemID); err != nil {
		return nil, err
	}

	priority := input.Priority
	if priority == "" {
		priority = am.config.DefaultAlertPriority
	}
	if err := ValidateAlertPriority(priority); err != nil {
		return nil, err
	}

	var alert *ReorderAlert

	err := am.storage.WithTx(ctx, func(s Store) error {
		item, err := s.GetItem(ctx, input.ItemID)
		if err != nil {
			if errors.Is(err, ErrItemNotFound) {
				return ErrItemNotFound
			}
			return NewStorageError("get_item", "材料取得に失敗しました", err)
		}

		existing, err := s.GetActiveAlertByItem(ctx, input.ItemID)
		if err != nil {
			return NewStorageError("get_active_alert", "アクティブアラートの確認に失敗しました", err)
		}
		if existing != nil {
			return NewConflictError(existing)
		}

		now := time.Now()
		alert = &ReorderAlert{
			ID:     NewID(),
			ItemID: item.ID,
			// 作成時点のスナップショット。以後の材料の変化は追跡しない。
			ItemName:     item.Name,
			CurrentStock: item.CurrentStock,
			ReorderLevel: item.ReorderLevel,
			Status:       AlertStatusPending,
			Priority:     priority,
			Notes:        input.Notes,
			CreatedBy:    input.Actor,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := s.CreateAlert(ctx, alert); err != nil {
			if errors.Is(err, ErrActiveAlertExists) {
				return ErrActiveAlertExists
			}
			return NewStorageError("create_alert", "アラート作成に失敗しました", err)
		}
		return nil
	})

	if err != nil {
		// 制約違反はチェックとインサートの間に割り込んだ並行作成を意味する。
		// 中断されたトランザクションの外で既存アラートを取り直して返す。
		if errors.Is(err, ErrActiveAlertExists) {
			am.metrics.alertConflicted()
			existing, getErr := am.storage.GetActiveAlertByItem(ctx, input.ItemID)
			if getErr != nil || existing == nil {
				return nil, NewStorageError("get_active_alert", "既存アラートの取得に失敗しました", getErr)
			}
			return nil, NewConflictError(existing)
		}
		var ce *ConflictError
		if errors.As(err, &ce) {
			am.metrics.alertConflicted()
			am.logger.Info("重複のためアラート作成を拒否しました",
				zap.String("item_id", input.ItemID),
				zap.String("existing_alert_id", ce.Existing.ID),
				zap.String("existing_status", string(ce.Existing.Status)),
			)
		}
		return nil, err
	}

	am.metrics.alertCreated()
	am.logger.Info("リオーダーアラートを作成しました",
		zap.String("alert_id", alert.ID),
		zap.String("item_id", alert.ItemID),
		zap.Int64("current_stock", alert.CurrentStock),
		zap.Int64("reorder_level", alert.ReorderLevel),
		zap.String("priority", string(alert.Priority)),
		zap.String("actor", input.Actor),
	)

	return alert, nil
}

// UpdateReorderAlert advances the lifecycle of an alert. Any status is
// reachable from any other; only entry into acknowledged/resolved has side
// effects (actor and timestamp stamps).
// アラートのライフサイクルを進める。どのステータスからどのステータスへも遷移可能。
// acknowledged/resolvedへの遷移のみ副作用（操作者とタイムスタンプの記録）を持つ。
func (am *AlertManager) UpdateReorderAlert(ctx context.Context, alertID string, input UpdateAlertInput) (*ReorderAlert, error) {
	if err := ValidateAlertID(alertID); err != nil {
		return nil, err
	}
	if input.Status != nil {
		if err := ValidateAlertStatus(*input.Status); err != nil {
			return nil, err
		}
	}

	var alert *ReorderAlert

	err := am.storage.WithTx(ctx, func(s Store) error {
		var err error
		alert, err = s.GetAlertForUpdate(ctx, alertID)
		if err != nil {
			if errors.Is(err, ErrAlertNotFound) {
				return ErrAlertNotFound
			}
			return NewStorageError("get_alert", "アラート取得に失敗しました", err)
		}

		now := time.Now()
		if input.Status != nil && *input.Status != alert.Status {
			alert.Status = *input.Status
			switch *input.Status {
			case AlertStatusAcknowledged:
				actor := input.Actor
				alert.AcknowledgedBy = &actor
				alert.AcknowledgedAt = &now
			case AlertStatusResolved:
				alert.ResolvedAt = &now
			}
		}
		if input.Notes != nil {
			alert.Notes = *input.Notes
		}
		alert.UpdatedAt = now

		if err := s.UpdateAlert(ctx, alert); err != nil {
			return NewStorageError("update_alert", "アラート更新に失敗しました", err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	am.logger.Info("リオーダーアラートを更新しました",
		zap.String("alert_id", alert.ID),
		zap.String("status", string(alert.Status)),
		zap.String("actor", input.Actor),
	)

	return alert, nil
}

// ListReorderAlerts returns alerts newest-first, optionally filtered by status
// ステータスで絞り込み可能なアラート一覧を新しい順で返す
func (am *AlertManager) ListReorderAlerts(ctx context.Context, status *AlertStatus) ([]ReorderAlert, error) {
	if status != nil {
		if err := ValidateAlertStatus(*status); err != nil {
			return nil, err
		}
	}

	alerts, err := am.storage.ListAlerts(ctx, status)
	if err != nil {
		return nil, NewStorageError("list_alerts", "アラート一覧の取得に失敗しました", err)
	}
	return alerts, nil
}

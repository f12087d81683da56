package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Manager implements the StockLedger interface
// StockLedgerインターフェースの実装
type Manager struct {
	storage Storage     // ストレージ層
	logger  *zap.Logger // ログ
	metrics *Metrics    // メトリクス（nil可）
	config  *Config     // 設定
}

// すべてのインターフェースを実装することを明示
var _ StockLedger = (*Manager)(nil)

// Config holds configuration for the ledger manager
// 台帳マネージャーの設定を保持
type Config struct {
	DefaultMovementLimit int           `yaml:"default_movement_limit"` // 移動一覧のデフォルト件数
	DefaultAlertPriority AlertPriority `yaml:"default_alert_priority"` // アラートのデフォルト優先度
}

// NewManager creates a new ledger manager
// 新しい台帳マネージャーを作成
func NewManager(storage Storage, logger *zap.Logger, metrics *Metrics, config *Config) *Manager {
	if config == nil {
		config = &Config{
			DefaultMovementLimit: 50,
			DefaultAlertPriority: AlertPriorityMedium,
		}
	}

	return &Manager{
		storage: storage,
		logger:  logger,
		metrics: metrics,
		config:  config,
	}
}

// RecordMovement appends a movement to the ledger and updates the stock
// projection in the same transaction. The item row is locked for the duration
// of the transaction so concurrent writers on the same item serialize and the
// negative-stock guard always sees a fresh value.
// 台帳に移動を追加し、同一トランザクション内で在庫プロジェクションを更新する。
// トランザクション中は材料行をロックするため、同一材料への並行書き込みは直列化され、
// 負在庫ガードは常に最新の値を参照する。
func (m *Manager) RecordMovement(ctx context.Context, input RecordMovementInput) (*MovementResult, error) {
	if err := ValidateItemID(input.ItemID); err != nil {
		return nil, err
	}
	if err := ValidateMovementType(input.Type); err != nil {
		return nil, err
	}
	if err := ValidateQuantity(input.Type, input.Quantity); err != nil {
		return nil, err
	}

	var result *MovementResult

	err := m.storage.WithTx(ctx, func(s Store) error {
		item, err := s.GetItemForUpdate(ctx, input.ItemID)
		if err != nil {
			if errors.Is(err, ErrItemNotFound) {
				return ErrItemNotFound
			}
			return NewStorageError("get_item", "材料取得に失敗しました", err)
		}

		newStock := applyMovement(input.Type, item.CurrentStock, input.Quantity)
		if newStock < 0 {
			// 永続化前に拒否する。行もフィールドも一切書き込まない。
			return NewInsufficientStockError(item)
		}

		// 適用単価: 指定があればそれを、なければ材料の単価を使う
		unitCost := item.UnitCost
		if input.UnitCost != nil {
			unitCost = *input.UnitCost
		}

		now := time.Now()
		movement := &MovementRecord{
			ID:        NewID(),
			Type:      input.Type,
			ItemID:    item.ID,
			Quantity:  input.Quantity,
			UnitCost:  unitCost,
			TotalCost: unitCost.Mul(decimal.NewFromInt(input.Quantity)),
			Reason:    input.Reason,
			OrderID:   input.OrderID,
			Notes:     input.Notes,
			CreatedBy: input.Actor,
			CreatedAt: now,
		}

		if err := s.CreateMovement(ctx, movement); err != nil {
			return NewStorageError("create_movement", "移動記録の作成に失敗しました", err)
		}
		if err := s.UpdateItemStock(ctx, item.ID, newStock, now); err != nil {
			return NewStorageError("update_item_stock", "在庫数の更新に失敗しました", err)
		}

		result = &MovementResult{
			MovementID: movement.ID,
			NewStock:   newStock,
		}
		return nil
	})

	if err != nil {
		var ise *InsufficientStockError
		if errors.As(err, &ise) {
			m.metrics.stockRejected()
			m.logger.Warn("在庫不足により移動を拒否しました",
				zap.String("item_id", input.ItemID),
				zap.String("type", string(input.Type)),
				zap.Int64("quantity", input.Quantity),
				zap.Int64("available", ise.Available),
			)
		}
		return nil, err
	}

	m.metrics.movementRecorded(input.Type)
	m.logger.Info("在庫移動を記録しました",
		zap.String("movement_id", result.MovementID),
		zap.String("item_id", input.ItemID),
		zap.String("type", string(input.Type)),
		zap.Int64("quantity", input.Quantity),
		zap.Int64("new_stock", result.NewStock),
		zap.String("actor", input.Actor),
	)

	return result, nil
}

// applyMovement computes the new stock level for a movement type.
// adjustmentは差分ではなく絶対値リセットとして扱う。
func applyMovement(t MovementType, currentStock, quantity int64) int64 {
	switch t {
	case MovementTypePurchase:
		return currentStock + quantity
	case MovementTypeUsage, MovementTypeSale, MovementTypeWaste:
		return currentStock - quantity
	case MovementTypeAdjustment:
		return quantity
	default:
		return currentStock
	}
}

// ListMovements returns movements newest-first, joined with the item name
// 材料名を結合した移動一覧を新しい順で返す
func (m *Manager) ListMovements(ctx context.Context, filter MovementFilter) ([]MovementWithItem, error) {
	if filter.Type != "" {
		if err := ValidateMovementType(filter.Type); err != nil {
			return nil, err
		}
	}
	if filter.Limit <= 0 {
		filter.Limit = m.config.DefaultMovementLimit
	}

	movements, err := m.storage.ListMovements(ctx, filter)
	if err != nil {
		return nil, NewStorageError("list_movements", "移動一覧の取得に失敗しました", err)
	}
	return movements, nil
}

// GetItem retrieves a material item by ID
// IDで材料を取得
func (m *Manager) GetItem(ctx context.Context, itemID string) (*MaterialItem, error) {
	item, err := m.storage.GetItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, NewStorageError("get_item", "材料取得に失敗しました", err)
	}
	return item, nil
}

// ListItems retrieves material items with pagination
// ページネーション付きで材料一覧を取得
func (m *Manager) ListItems(ctx context.Context, offset, limit int) ([]MaterialItem, error) {
	if limit <= 0 {
		limit = m.config.DefaultMovementLimit
	}
	items, err := m.storage.ListItems(ctx, offset, limit)
	if err != nil {
		return nil, NewStorageError("list_items", "材料一覧の取得に失敗しました", err)
	}
	return items, nil
}

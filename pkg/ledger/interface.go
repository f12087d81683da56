package ledger

import (
	"context"
	"time"
)

// StockLedger defines the core interface for the movement ledger and stock projection
// 移動台帳と在庫プロジェクションのコアインターフェースを定義
type StockLedger interface {
	// 台帳操作 - Ledger operations
	RecordMovement(ctx context.Context, input RecordMovementInput) (*MovementResult, error)

	// 照会 - Read operations
	ListMovements(ctx context.Context, filter MovementFilter) ([]MovementWithItem, error)
	ListLowStock(ctx context.Context) ([]MaterialItem, error)
	GetStats(ctx context.Context) (*Stats, error)

	// カタログ照会（カタログの作成・編集は外部コラボレーターの責務）
	GetItem(ctx context.Context, itemID string) (*MaterialItem, error)
	ListItems(ctx context.Context, offset, limit int) ([]MaterialItem, error)
}

// ReorderAlertManager defines the interface for reorder alert lifecycle management
// リオーダーアラートのライフサイクル管理インターフェースを定義
type ReorderAlertManager interface {
	CreateReorderAlert(ctx context.Context, input CreateAlertInput) (*ReorderAlert, error)
	UpdateReorderAlert(ctx context.Context, alertID string, input UpdateAlertInput) (*ReorderAlert, error)
	ListReorderAlerts(ctx context.Context, status *AlertStatus) ([]ReorderAlert, error)
}

// Store defines the data operations available both inside and outside a transaction
// トランザクション内外で利用可能なデータ操作を定義
type Store interface {
	// Item catalog (read + stock projection update only)
	GetItem(ctx context.Context, itemID string) (*MaterialItem, error)
	GetItemForUpdate(ctx context.Context, itemID string) (*MaterialItem, error)
	ListItems(ctx context.Context, offset, limit int) ([]MaterialItem, error)
	UpdateItemStock(ctx context.Context, itemID string, newStock int64, updatedAt time.Time) error

	// Movement ledger (append-only)
	CreateMovement(ctx context.Context, movement *MovementRecord) error
	ListMovements(ctx context.Context, filter MovementFilter) ([]MovementWithItem, error)

	// Query / stats
	ListLowStockItems(ctx context.Context) ([]MaterialItem, error)
	GetStats(ctx context.Context) (*Stats, error)

	// Reorder alerts
	CreateAlert(ctx context.Context, alert *ReorderAlert) error
	GetAlert(ctx context.Context, alertID string) (*ReorderAlert, error)
	GetAlertForUpdate(ctx context.Context, alertID string) (*ReorderAlert, error)
	GetActiveAlertByItem(ctx context.Context, itemID string) (*ReorderAlert, error)
	UpdateAlert(ctx context.Context, alert *ReorderAlert) error
	ListAlerts(ctx context.Context, status *AlertStatus) ([]ReorderAlert, error)
}

// Storage adds transaction scope and lifecycle on top of Store.
// WithTx runs fn against a transactional Store: it commits on nil return and
// rolls back on error or panic, so no partial effect ever becomes observable.
// Storeにトランザクションスコープとライフサイクルを追加する。
// WithTxはトランザクション内のStoreに対してfnを実行し、nilリターンでコミット、
// エラーまたはpanic時にロールバックする。部分的な効果は決して観測されない。
type Storage interface {
	Store

	WithTx(ctx context.Context, fn func(s Store) error) error

	// Health check
	Ping(ctx context.Context) error
	Close() error
}

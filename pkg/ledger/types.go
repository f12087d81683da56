// Package ledger provides the stock ledger and reorder alert core
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaterialItem represents a raw material in the item catalog
// 品目カタログ内の材料を表現
type MaterialItem struct {
	ID           string          `json:"id" db:"id"`                       // 材料ID
	Name         string          `json:"name" db:"name"`                   // 材料名
	Category     string          `json:"category" db:"category"`           // カテゴリ
	Supplier     string          `json:"supplier" db:"supplier"`           // 仕入先
	UnitCost     decimal.Decimal `json:"unit_cost" db:"unit_cost"`         // 単価
	CurrentStock int64           `json:"current_stock" db:"current_stock"` // 現在在庫（常に0以上）
	ReorderLevel int64           `json:"reorder_level" db:"reorder_level"` // 発注点
	Unit         string          `json:"unit" db:"unit"`                   // 単位ラベル（枚、kgなど）
	Notes        string          `json:"notes" db:"notes"`                 // 備考
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`       // 作成日時
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`       // 更新日時
}

// MovementRecord represents an immutable stock movement event
// 不変の在庫移動イベントを表現
type MovementRecord struct {
	ID        string          `json:"id" db:"id"`                 // 移動ID
	Type      MovementType    `json:"type" db:"type"`             // 移動タイプ
	ItemID    string          `json:"item_id" db:"item_id"`       // 材料ID
	Quantity  int64           `json:"quantity" db:"quantity"`     // 数量
	UnitCost  decimal.Decimal `json:"unit_cost" db:"unit_cost"`   // 適用単価
	TotalCost decimal.Decimal `json:"total_cost" db:"total_cost"` // 合計金額（数量×適用単価）
	Reason    string          `json:"reason" db:"reason"`         // 理由
	OrderID   *string         `json:"order_id" db:"order_id"`     // 関連注文ID（任意）
	Notes     string          `json:"notes" db:"notes"`           // 備考
	CreatedBy string          `json:"created_by" db:"created_by"` // 記録者
	CreatedAt time.Time       `json:"created_at" db:"created_at"` // 作成日時
}

// MovementType defines the type of stock movement
// 在庫移動のタイプを定義
type MovementType string

const (
	MovementTypePurchase   MovementType = "purchase"   // 仕入（在庫増加）
	MovementTypeUsage      MovementType = "usage"      // 使用（在庫減少）
	MovementTypeSale       MovementType = "sale"       // 販売（在庫減少）
	MovementTypeWaste      MovementType = "waste"      // 廃棄（在庫減少）
	MovementTypeAdjustment MovementType = "adjustment" // 棚卸調整（絶対値リセット）
)

// MovementWithItem is a movement joined with the item display name
// 材料名を結合した移動記録
type MovementWithItem struct {
	MovementRecord
	ItemName string `json:"item_name" db:"item_name"` // 材料名
}

// ReorderAlert represents a "needs restocking" flag for an item
// 材料の要補充フラグを表現
type ReorderAlert struct {
	ID             string        `json:"id" db:"id"`                           // アラートID
	ItemID         string        `json:"item_id" db:"item_id"`                 // 材料ID
	ItemName       string        `json:"item_name" db:"item_name"`             // 材料名（作成時スナップショット）
	CurrentStock   int64         `json:"current_stock" db:"current_stock"`     // 在庫数（作成時スナップショット）
	ReorderLevel   int64         `json:"reorder_level" db:"reorder_level"`     // 発注点（作成時スナップショット）
	Status         AlertStatus   `json:"status" db:"status"`                   // ステータス
	Priority       AlertPriority `json:"priority" db:"priority"`               // 優先度
	Notes          string        `json:"notes" db:"notes"`                     // 備考
	CreatedBy      string        `json:"created_by" db:"created_by"`           // 作成者
	AcknowledgedBy *string       `json:"acknowledged_by" db:"acknowledged_by"` // 確認者
	AcknowledgedAt *time.Time    `json:"acknowledged_at" db:"acknowledged_at"` // 確認日時
	ResolvedAt     *time.Time    `json:"resolved_at" db:"resolved_at"`         // 解決日時
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`           // 作成日時
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`           // 更新日時
}

// AlertStatus defines the lifecycle status of a reorder alert
// リオーダーアラートのライフサイクルステータスを定義
type AlertStatus string

const (
	AlertStatusPending      AlertStatus = "pending"      // 未対応
	AlertStatusAcknowledged AlertStatus = "acknowledged" // 確認済み
	AlertStatusOrdered      AlertStatus = "ordered"      // 発注済み
	AlertStatusResolved     AlertStatus = "resolved"     // 解決済み
)

// IsActive reports whether the alert still blocks creation of a new one
// アラートがまだ新規作成をブロックするかどうかを返す
func (s AlertStatus) IsActive() bool {
	return s == AlertStatusPending || s == AlertStatusAcknowledged
}

// AlertPriority defines the priority of a reorder alert
// リオーダーアラートの優先度を定義
type AlertPriority string

const (
	AlertPriorityLow    AlertPriority = "low"    // 低
	AlertPriorityMedium AlertPriority = "medium" // 中
	AlertPriorityHigh   AlertPriority = "high"   // 高
	AlertPriorityUrgent AlertPriority = "urgent" // 緊急
)

// RecordMovementInput carries the parameters of a RecordMovement call
// RecordMovement呼び出しのパラメータを保持
type RecordMovementInput struct {
	Type     MovementType     `json:"type"`
	ItemID   string           `json:"item_id"`
	Quantity int64            `json:"quantity"`
	UnitCost *decimal.Decimal `json:"unit_cost,omitempty"` // nilの場合は材料の単価を適用
	Reason   string           `json:"reason,omitempty"`
	OrderID  *string          `json:"order_id,omitempty"`
	Notes    string           `json:"notes,omitempty"`
	Actor    string           `json:"-"` // 認証層から供給される操作者ID
}

// MovementResult is the result of a successful RecordMovement call
// RecordMovement成功時の結果
type MovementResult struct {
	MovementID string `json:"movement_id"` // 作成された移動ID
	NewStock   int64  `json:"new_stock"`   // 更新後の在庫数
}

// MovementFilter filters the movement listing
// 移動一覧の絞り込み条件
type MovementFilter struct {
	ItemID string       // 空の場合は全材料
	Type   MovementType // 空の場合は全タイプ
	Limit  int          // 0以下の場合はデフォルト値を適用
}

// CreateAlertInput carries the parameters of a CreateReorderAlert call
// CreateReorderAlert呼び出しのパラメータを保持
type CreateAlertInput struct {
	ItemID   string        `json:"item_id"`
	Priority AlertPriority `json:"priority,omitempty"` // 空の場合はデフォルト優先度
	Notes    string        `json:"notes,omitempty"`
	Actor    string        `json:"-"`
}

// UpdateAlertInput carries the mutable fields of an alert update
// アラート更新の可変フィールドを保持
type UpdateAlertInput struct {
	Status *AlertStatus `json:"status,omitempty"`
	Notes  *string      `json:"notes,omitempty"`
	Actor  string       `json:"-"`
}

// Stats is the read-only inventory aggregate
// 読み取り専用の在庫集計
type Stats struct {
	TotalItems int64            `json:"total_items"`  // 材料総数
	ByCategory map[string]int64 `json:"by_category"`  // カテゴリ別件数
	LowStock   int64            `json:"low_stock"`    // 低在庫件数
	OutOfStock int64            `json:"out_of_stock"` // 在庫切れ件数
	TotalValue decimal.Decimal  `json:"total_value"`  // 在庫総額（Σ 在庫数×単価）
}

// NewID generates a new opaque entity ID
// 新しい不透明なエンティティIDを生成
func NewID() string {
	return uuid.New().String()
}

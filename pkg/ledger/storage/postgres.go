package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/nemonet1337/zairyoGoBackend/pkg/ledger"
)

// activeAlertConstraint is the partial unique index that structurally
// enforces at most one pending/acknowledged alert per item.
// 材料ごと最大1件のpending/acknowledgedアラートを構造的に強制する部分ユニークインデックス
const activeAlertConstraint = "reorder_alerts_one_active_per_item"

// queryer abstracts *sql.DB and *sql.Tx so the same query code runs inside
// and outside a transaction
// 同一のクエリコードをトランザクション内外で実行できるよう*sql.DBと*sql.Txを抽象化
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// pgStore implements ledger.Store against a queryer
// queryerに対するledger.Storeの実装
type pgStore struct {
	q      queryer
	logger *zap.Logger
}

// PostgreSQLStorage implements the ledger.Storage interface using PostgreSQL
// PostgreSQLを使用したledger.Storageインターフェースの実装
type PostgreSQLStorage struct {
	pgStore
	db *sql.DB
}

var _ ledger.Storage = (*PostgreSQLStorage)(nil)

// NewPostgreSQLStorage creates a new PostgreSQL storage instance
// 新しいPostgreSQLストレージインスタンスを作成
func NewPostgreSQLStorage(dsn string, logger *zap.Logger) (*PostgreSQLStorage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗しました: %w", err)
	}

	// 接続テスト
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("データベースpingに失敗しました: %w", err)
	}

	// 接続プール設定
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgreSQLStorage{
		pgStore: pgStore{q: db, logger: logger},
		db:      db,
	}, nil
}

// WithTx runs fn against a transactional store. Commit happens only when fn
// returns nil; every other exit path rolls back, so the pair of writes inside
// RecordMovement / CreateReorderAlert is all-or-nothing.
// トランザクション内のストアに対してfnを実行する。fnがnilを返した場合のみコミットし、
// それ以外の経路ではすべてロールバックする。RecordMovement / CreateReorderAlert内の
// 書き込みペアはall-or-nothingとなる。
func (s *PostgreSQLStorage) WithTx(ctx context.Context, fn func(store ledger.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗しました: %w", err)
	}

	// コミット済みの場合のRollbackはErrTxDoneを返すだけで無害
	defer tx.Rollback()

	if err := fn(&pgStore{q: tx, logger: s.logger}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

const itemColumns = "id, name, category, supplier, unit_cost, current_stock, reorder_level, unit, notes, created_at, updated_at"

func scanItem(row interface{ Scan(...interface{}) error }, item *ledger.MaterialItem) error {
	return row.Scan(
		&item.ID,
		&item.Name,
		&item.Category,
		&item.Supplier,
		&item.UnitCost,
		&item.CurrentStock,
		&item.ReorderLevel,
		&item.Unit,
		&item.Notes,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
}

// GetItem retrieves a material item by ID
// IDで材料を取得
func (s *pgStore) GetItem(ctx context.Context, itemID string) (*ledger.MaterialItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM material_items
		WHERE id = $1`

	item := &ledger.MaterialItem{}
	err := scanItem(s.q.QueryRowContext(ctx, query, itemID), item)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrItemNotFound
		}
		return nil, fmt.Errorf("材料取得に失敗しました: %w", err)
	}

	return item, nil
}

// GetItemForUpdate retrieves a material item and locks its row until the
// surrounding transaction ends
// 材料を取得し、トランザクション終了まで行をロック
func (s *pgStore) GetItemForUpdate(ctx context.Context, itemID string) (*ledger.MaterialItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM material_items
		WHERE id = $1
		FOR UPDATE`

	item := &ledger.MaterialItem{}
	err := scanItem(s.q.QueryRowContext(ctx, query, itemID), item)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrItemNotFound
		}
		return nil, fmt.Errorf("材料取得（行ロック）に失敗しました: %w", err)
	}

	return item, nil
}

// ListItems retrieves material items with pagination
// ページネーション付きで材料一覧を取得
func (s *pgStore) ListItems(ctx context.Context, offset, limit int) ([]ledger.MaterialItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM material_items
		ORDER BY created_at DESC
		OFFSET $1 LIMIT $2`

	rows, err := s.q.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("材料一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var items []ledger.MaterialItem
	for rows.Next() {
		var item ledger.MaterialItem
		if err := scanItem(rows, &item); err != nil {
			return nil, fmt.Errorf("材料スキャンに失敗しました: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// UpdateItemStock updates only the stock projection fields of an item
// 材料の在庫プロジェクションフィールドのみを更新
func (s *pgStore) UpdateItemStock(ctx context.Context, itemID string, newStock int64, updatedAt time.Time) error {
	query := `
		UPDATE material_items
		SET current_stock = $2, updated_at = $3
		WHERE id = $1`

	result, err := s.q.ExecContext(ctx, query, itemID, newStock, updatedAt)
	if err != nil {
		return fmt.Errorf("在庫数更新に失敗しました: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新行数の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return ledger.ErrItemNotFound
	}

	return nil
}

// CreateMovement appends a movement record to the ledger
// 台帳に移動記録を追加
func (s *pgStore) CreateMovement(ctx context.Context, movement *ledger.MovementRecord) error {
	query := `
		INSERT INTO stock_movements (id, type, item_id, quantity, unit_cost, total_cost, reason, order_id, notes, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.q.ExecContext(ctx, query,
		movement.ID,
		movement.Type,
		movement.ItemID,
		movement.Quantity,
		movement.UnitCost,
		movement.TotalCost,
		movement.Reason,
		movement.OrderID,
		movement.Notes,
		movement.CreatedBy,
		movement.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("移動記録作成に失敗しました: %w", err)
	}

	return nil
}

// ListMovements retrieves movements newest-first, joined with the item name
// 材料名を結合した移動一覧を新しい順で取得
func (s *pgStore) ListMovements(ctx context.Context, filter ledger.MovementFilter) ([]ledger.MovementWithItem, error) {
	conditions := []string{}
	args := []interface{}{}

	if filter.ItemID != "" {
		args = append(args, filter.ItemID)
		conditions = append(conditions, fmt.Sprintf("m.item_id = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("m.type = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, filter.Limit)
	query := fmt.Sprintf(`
		SELECT m.id, m.type, m.item_id, m.quantity, m.unit_cost, m.total_cost, m.reason, m.order_id, m.notes, m.created_by, m.created_at, i.name AS item_name
		FROM stock_movements m
		JOIN material_items i ON i.id = m.item_id%s
		ORDER BY m.created_at DESC
		LIMIT $%d`, where, len(args))

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("移動一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var movements []ledger.MovementWithItem
	for rows.Next() {
		var m ledger.MovementWithItem
		err := rows.Scan(
			&m.ID,
			&m.Type,
			&m.ItemID,
			&m.Quantity,
			&m.UnitCost,
			&m.TotalCost,
			&m.Reason,
			&m.OrderID,
			&m.Notes,
			&m.CreatedBy,
			&m.CreatedAt,
			&m.ItemName,
		)
		if err != nil {
			return nil, fmt.Errorf("移動記録スキャンに失敗しました: %w", err)
		}
		movements = append(movements, m)
	}

	return movements, rows.Err()
}

// ListLowStockItems retrieves items at or below their reorder level.
// 深刻度ティアの並べ替えは呼び出し側（ledger.Manager）の責務。
func (s *pgStore) ListLowStockItems(ctx context.Context) ([]ledger.MaterialItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM material_items
		WHERE current_stock <= reorder_level`

	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("低在庫一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var items []ledger.MaterialItem
	for rows.Next() {
		var item ledger.MaterialItem
		if err := scanItem(rows, &item); err != nil {
			return nil, fmt.Errorf("材料スキャンに失敗しました: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// GetStats computes the read-only inventory aggregate
// 読み取り専用の在庫集計を計算
func (s *pgStore) GetStats(ctx context.Context) (*ledger.Stats, error) {
	stats := &ledger.Stats{
		ByCategory: make(map[string]int64),
	}

	summary := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE current_stock <= reorder_level),
			COUNT(*) FILTER (WHERE current_stock <= 0),
			COALESCE(SUM(current_stock * unit_cost), 0)
		FROM material_items`

	err := s.q.QueryRowContext(ctx, summary).Scan(
		&stats.TotalItems,
		&stats.LowStock,
		&stats.OutOfStock,
		&stats.TotalValue,
	)
	if err != nil {
		return nil, fmt.Errorf("在庫集計取得に失敗しました: %w", err)
	}

	rows, err := s.q.QueryContext(ctx, `SELECT category, COUNT(*) FROM material_items GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ別集計取得に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var count int64
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("カテゴリ集計スキャンに失敗しました: %w", err)
		}
		stats.ByCategory[category] = count
	}

	return stats, rows.Err()
}

const alertColumns = "id, item_id, item_name, current_stock, reorder_level, status, priority, notes, created_by, acknowledged_by, acknowledged_at, resolved_at, created_at, updated_at"

func scanAlert(row interface{ Scan(...interface{}) error }, alert *ledger.ReorderAlert) error {
	return row.Scan(
		&alert.ID,
		&alert.ItemID,
		&alert.ItemName,
		&alert.CurrentStock,
		&alert.ReorderLevel,
		&alert.Status,
		&alert.Priority,
		&alert.Notes,
		&alert.CreatedBy,
		&alert.AcknowledgedBy,
		&alert.AcknowledgedAt,
		&alert.ResolvedAt,
		&alert.CreatedAt,
		&alert.UpdatedAt,
	)
}

// CreateAlert inserts a new reorder alert. A violation of the partial unique
// index is reported as ledger.ErrActiveAlertExists so the caller can resolve
// the race to a Conflict.
// 新しいリオーダーアラートをインサートする。部分ユニークインデックス違反は
// ledger.ErrActiveAlertExistsとして報告し、呼び出し側がConflictに解決できるようにする。
func (s *pgStore) CreateAlert(ctx context.Context, alert *ledger.ReorderAlert) error {
	query := `
		INSERT INTO reorder_alerts (id, item_id, item_name, current_stock, reorder_level, status, priority, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.q.ExecContext(ctx, query,
		alert.ID,
		alert.ItemID,
		alert.ItemName,
		alert.CurrentStock,
		alert.ReorderLevel,
		alert.Status,
		alert.Priority,
		alert.Notes,
		alert.CreatedBy,
		alert.CreatedAt,
		alert.UpdatedAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == activeAlertConstraint {
			return ledger.ErrActiveAlertExists
		}
		return fmt.Errorf("アラート作成に失敗しました: %w", err)
	}

	return nil
}

// GetAlert retrieves a reorder alert by ID
// IDでリオーダーアラートを取得
func (s *pgStore) GetAlert(ctx context.Context, alertID string) (*ledger.ReorderAlert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM reorder_alerts
		WHERE id = $1`

	alert := &ledger.ReorderAlert{}
	err := scanAlert(s.q.QueryRowContext(ctx, query, alertID), alert)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrAlertNotFound
		}
		return nil, fmt.Errorf("アラート取得に失敗しました: %w", err)
	}

	return alert, nil
}

// GetAlertForUpdate retrieves a reorder alert and locks its row
// リオーダーアラートを取得し行をロック
func (s *pgStore) GetAlertForUpdate(ctx context.Context, alertID string) (*ledger.ReorderAlert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM reorder_alerts
		WHERE id = $1
		FOR UPDATE`

	alert := &ledger.ReorderAlert{}
	err := scanAlert(s.q.QueryRowContext(ctx, query, alertID), alert)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ledger.ErrAlertNotFound
		}
		return nil, fmt.Errorf("アラート取得（行ロック）に失敗しました: %w", err)
	}

	return alert, nil
}

// GetActiveAlertByItem retrieves the pending/acknowledged alert for an item,
// or nil when none exists
// 材料のpending/acknowledgedアラートを取得。存在しない場合はnil
func (s *pgStore) GetActiveAlertByItem(ctx context.Context, itemID string) (*ledger.ReorderAlert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM reorder_alerts
		WHERE item_id = $1 AND status IN ($2, $3)`

	alert := &ledger.ReorderAlert{}
	err := scanAlert(s.q.QueryRowContext(ctx, query, itemID, ledger.AlertStatusPending, ledger.AlertStatusAcknowledged), alert)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("アクティブアラート取得に失敗しました: %w", err)
	}

	return alert, nil
}

// UpdateAlert persists the mutable fields of a reorder alert
// リオーダーアラートの可変フィールドを永続化
func (s *pgStore) UpdateAlert(ctx context.Context, alert *ledger.ReorderAlert) error {
	query := `
		UPDATE reorder_alerts
		SET status = $2, priority = $3, notes = $4, acknowledged_by = $5, acknowledged_at = $6, resolved_at = $7, updated_at = $8
		WHERE id = $1`

	result, err := s.q.ExecContext(ctx, query,
		alert.ID,
		alert.Status,
		alert.Priority,
		alert.Notes,
		alert.AcknowledgedBy,
		alert.AcknowledgedAt,
		alert.ResolvedAt,
		alert.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("アラート更新に失敗しました: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新行数の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return ledger.ErrAlertNotFound
	}

	return nil
}

// ListAlerts retrieves alerts newest-first, optionally filtered by status
// ステータスで絞り込み可能なアラート一覧を新しい順で取得
func (s *pgStore) ListAlerts(ctx context.Context, status *ledger.AlertStatus) ([]ledger.ReorderAlert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM reorder_alerts`
	args := []interface{}{}

	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("アラート一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var alerts []ledger.ReorderAlert
	for rows.Next() {
		var alert ledger.ReorderAlert
		if err := scanAlert(rows, &alert); err != nil {
			return nil, fmt.Errorf("アラートスキャンに失敗しました: %w", err)
		}
		alerts = append(alerts, alert)
	}

	return alerts, rows.Err()
}

// Ping checks database connectivity
// データベース接続をチェック
func (s *PostgreSQLStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
// データベース接続を閉じる
func (s *PostgreSQLStorage) Close() error {
	return s.db.Close()
}

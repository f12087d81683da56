package ledger

import (
	"context"
	"sort"

	"go.uber.org/zap"
)

// Low stock severity tiers, most severe first
// 低在庫の深刻度ティア。数値が小さいほど深刻。
const (
	tierOutOfStock = 1 // 在庫切れ (current_stock <= 0)
	tierCritical   = 2 // 危険水準 (current_stock <= reorder_level * 0.5)
	tierLow        = 3 // 発注点以下のその他
)

// lowStockTier classifies an item already known to be at or below its reorder level
// 発注点以下と判明している材料をティアに分類
func lowStockTier(item *MaterialItem) int {
	switch {
	case item.CurrentStock <= 0:
		return tierOutOfStock
	case float64(item.CurrentStock) <= float64(item.ReorderLevel)*0.5:
		return tierCritical
	default:
		return tierLow
	}
}

// ListLowStock returns items at or below their reorder level, ordered by
// severity tier and then by ascending stock. This ordering drives operational
// triage and must stay stable.
// 発注点以下の材料を深刻度ティア順、同ティア内では在庫昇順で返す。
// この並び順は現場のトリアージを決めるため変更してはならない。
func (m *Manager) ListLowStock(ctx context.Context) ([]MaterialItem, error) {
	items, err := m.storage.ListLowStockItems(ctx)
	if err != nil {
		return nil, NewStorageError("list_low_stock", "低在庫一覧の取得に失敗しました", err)
	}

	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := lowStockTier(&items[i]), lowStockTier(&items[j])
		if ti != tj {
			return ti < tj
		}
		return items[i].CurrentStock < items[j].CurrentStock
	})

	m.logger.Debug("低在庫一覧を取得しました", zap.Int("count", len(items)))

	return items, nil
}

// GetStats returns the read-only inventory aggregate
// 読み取り専用の在庫集計を返す
func (m *Manager) GetStats(ctx context.Context) (*Stats, error) {
	stats, err := m.storage.GetStats(ctx)
	if err != nil {
		return nil, NewStorageError("get_stats", "在庫集計の取得に失敗しました", err)
	}

	m.logger.Debug("在庫集計を取得しました",
		zap.Int64("total_items", stats.TotalItems),
		zap.Int64("low_stock", stats.LowStock),
		zap.Int64("out_of_stock", stats.OutOfStock),
	)

	return stats, nil
}

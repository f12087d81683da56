package ledger

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// TestManager_ListLowStock_SeverityOrdering は深刻度順ソートのテスト
func TestManager_ListLowStock_SeverityOrdering(t *testing.T) {
	mockStorage := new(MockStorage)
	manager := NewManager(mockStorage, zap.NewNop(), nil, nil)
	ctx := context.Background()

	// ストレージはソートされていない一覧を返す。
	// A: 在庫切れ、B: 発注点の半分以下、C: 発注点以下のその他。
	unsorted := []MaterialItem{
		{ID: "C", CurrentStock: 9, ReorderLevel: 10},
		{ID: "A", CurrentStock: 0, ReorderLevel: 10},
		{ID: "B", CurrentStock: 3, ReorderLevel: 10},
	}

	mockStorage.On("ListLowStockItems", ctx).Return(unsorted, nil)

	items, err := manager.ListLowStock(ctx)

	assert.NoError(t, err)
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	assert.Equal(t, []string{"A", "B", "C"}, ids)
	mockStorage.AssertExpectations(t)
}

// TestManager_ListLowStock_TieBreakByStock は同ティア内の在庫昇順のテスト
func TestManager_ListLowStock_TieBreakByStock(t *testing.T) {
	mockStorage := new(MockStorage)
	manager := NewManager(mockStorage, zap.NewNop(), nil, nil)
	ctx := context.Background()

	// 全員が危険水準ティア（在庫 <= 発注点の半分）
	unsorted := []MaterialItem{
		{ID: "X", CurrentStock: 5, ReorderLevel: 20},
		{ID: "Y", CurrentStock: 2, ReorderLevel: 20},
		{ID: "Z", CurrentStock: 8, ReorderLevel: 20},
	}

	mockStorage.On("ListLowStockItems", ctx).Return(unsorted, nil)

	items, err := manager.ListLowStock(ctx)

	assert.NoError(t, err)
	assert.Equal(t, "Y", items[0].ID)
	assert.Equal(t, "X", items[1].ID)
	assert.Equal(t, "Z", items[2].ID)
	mockStorage.AssertExpectations(t)
}

// TestLowStockTier はティア分類の境界値テスト
func TestLowStockTier(t *testing.T) {
	tests := []struct {
		name string
		item MaterialItem
		want int
	}{
		{"在庫0は在庫切れ", MaterialItem{CurrentStock: 0, ReorderLevel: 10}, tierOutOfStock},
		{"発注点の半分ちょうどは危険水準", MaterialItem{CurrentStock: 5, ReorderLevel: 10}, tierCritical},
		{"半分超〜発注点以下は低在庫", MaterialItem{CurrentStock: 6, ReorderLevel: 10}, tierLow},
		{"発注点ちょうどは低在庫", MaterialItem{CurrentStock: 10, ReorderLevel: 10}, tierLow},
		{"奇数発注点の半分は切り捨てない", MaterialItem{CurrentStock: 3, ReorderLevel: 7}, tierCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lowStockTier(&tt.item))
		})
	}
}

// TestManager_GetStats は在庫集計取得のテスト
func TestManager_GetStats(t *testing.T) {
	mockStorage := new(MockStorage)
	manager := NewManager(mockStorage, zap.NewNop(), nil, nil)
	ctx := context.Background()

	expected := &Stats{
		TotalItems: 42,
		ByCategory: map[string]int64{"原料": 30, "包材": 12},
		LowStock:   7,
		OutOfStock: 2,
		TotalValue: decimal.NewFromInt(1234500),
	}

	mockStorage.On("GetStats", ctx).Return(expected, nil)

	stats, err := manager.GetStats(ctx)

	assert.NoError(t, err)
	assert.Equal(t, int64(42), stats.TotalItems)
	assert.Equal(t, int64(7), stats.LowStock)
	assert.Equal(t, int64(2), stats.OutOfStock)
	assert.True(t, stats.TotalValue.Equal(decimal.NewFromInt(1234500)))
	mockStorage.AssertExpectations(t)
}

package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// TestAlertManager_CreateReorderAlert はアラート作成のテスト
func TestAlertManager_CreateReorderAlert(t *testing.T) {
	mockStorage := new(MockStorage)
	manager := NewAlertManager(mockStorage, zap.NewNop(), nil, nil)
	ctx := context.Background()

	item := sampleItem()
	item.CurrentStock = 5

	mockStorage.On("GetItem", ctx, "TEST-ITEM").Return(item, nil)
	mockStorage.On("GetActiveAlertByItem", ctx, "TEST-ITEM").Return(nil, nil)
	mockStorage.On("CreateAlert", ctx, mock.AnythingOfType("*ledger.ReorderAlert")).Return(nil)

	alert, err := manager.CreateReorderAlert(ctx, CreateAlertInput{
		ItemID: "TEST-ITEM",
		Notes:  "早めに発注すること",
		Actor:  "test-user",
	})

	assert.NoError(t, err)
	assert.Equal(t, AlertStatusPending, alert.Status)
	// 優先度未指定時はデフォルトが適用される
	assert.Equal(t, AlertPriorityMedium, alert.Priority)
	// 作成時点の材料スナップショットが保持される
	assert.Equal(t, "テスト材料", alert.ItemName)
	assert.Equal(t, int64(5), alert.CurrentStock)
	assert.Equal(t, int64(20), alert.ReorderLevel)
	assert.Equal(t, "test-user", alert.CreatedBy)
	assert.Nil(t, alert.AcknowledgedBy)
	assert.Nil(t, alert.ResolvedAt)
	mockStorage.AssertExpectations(t)
}

// TestAlertManager_CreateReorderAlert_Duplicate はアクティブアラート重複のテスト
func TestAlertManager_CreateReorderAlert_Duplicate(t *testing.T) {
	mockStorage := new(MockStorage)
	manager := NewAlertManager(mockStorage, zap.NewNop(), nil, nil)
	ctx := context.Background()

	existing := &ReorderAlert{
		ID:     "EXISTING-ALERT",
		ItemID: "TEST-ITEM",
		Status: AlertStatusAcknowledged,
	}

	mockStorage.On("GetItem", ctx, "TEST-ITEM").Return(sampleItem(), nil)
	mockStorage.On("GetActiveAlertByItem", ctx, "TEST-ITEM").Return(existing, nil)

	alert, err := manager.CreateReorderAlert(ctx, CreateAlertInput{
		ItemID: "TEST-ITEM",
		Actor:  "test-user",
	})

	assert.Nil(t, alert)
	// エラーには既存アラートがそのまま含まれる
	var ce *ConflictError
	assert.ErrorAs(t, err, &ce)
	assert.Equal(t, "EXISTING-ALERT", ce.Existing.ID)
	assert.Equal(t, AlertStatusAcknowledged, ce.Existing.Status)
	assert.Equal(t, KindConflict, Kind(err))

	mockStorage.AssertNotCalled(t, "CreateAlert", mock.Anything, mock.Anything)
	mockStorage.AssertExpectations(t)
}

// TestAlertManager_CreateReorderAlert_RaceLostToConstraint は
// チェックとインサートの間に並行作成が割り込んだ場合のテスト
func TestAlertManager_CreateReorderAlert_RaceLostToConstraint(t *testing.T) {
	mockStorage := new(MockStorage)
	manager := NewAlertManager(mockStorage, zap.NewNop(), nil, nil)
	ctx := context.Background()

	winner := &ReorderAlert{
		ID:     "WINNER-ALERT",
		ItemID: "TEST-ITEM",
		Status: AlertStatusPending,
	}

	mockStorage.On("GetItem", ctx, "TEST-ITEM").Return(sampleItem(), nil)
	// トランザクション内のチェックでは存在せず、インサートが一意制約で失敗し、
	// トランザクション外の取り直しで勝者が見える
	mockStorage.On("GetActiveAlertByItem", ctx, "TEST-ITEM").Return(nil, nil).Once()
	mockStorage.On("CreateAlert", ctx, mock.AnythingOfType("*ledger.ReorderAlert")).Return(ErrActiveAlertExists)
	mockStorage.On("GetActiveAlertByItem", ctx, "TEST-ITEM").Return(winner, nil).Once()

	alert, err := manager.CreateReorderAlert(ctx, CreateAlertInput{
		ItemID: "TEST-ITEM",
		Actor:  "test-user",
	})

	assert.Nil(t, alert)
	var ce *ConflictError
	assert.ErrorAs(t, err, &ce)
	assert.Equal(t, "WINNER-ALERT", ce.Existing.ID)
	mockStorage.AssertExpectations(t)
}

// TestAlertManager_CreateReorderAlert_InvalidPriority は優先度バリデーションのテスト
func TestAlertManager_CreateReorderAlert_InvalidPriority(t *testing.T) {
	mockStorage := new(MockStorage)
	manager := NewAlertManager(mockStorage, zap.NewNop(), nil, nil)
	ctx := context.Background()

	alert, err := manager.CreateReorderAlert(ctx, CreateAlertInput{
		ItemID:   "TEST-ITEM",
		Priority: "extreme",
		Actor:    "test-user",
	})

	assert.Nil(t, alert)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
	mockStorage.AssertNotCalled(t, "GetItem", mock.Anything, mock.Anything)
}

// TestAlertManager_UpdateReorderAlert_Acknowledge は確認遷移の副作用のテスト
func TestAlertManager_UpdateReorderAlert_Acknowledge(t *testing.T) {
	mockStorage := new(MockStorage)
	manager := NewAlertManager(mockStorage, zap.NewNop(), nil, nil)
	ctx := context.Background()

	stored := &ReorderAlert{
		ID:        "TEST-ALERT",
		ItemID:    "TEST-ITEM",
		Status:    AlertStatusPending,
		CreatedAt: time.Now().Add(-time.Hour),
	}

	mockStorage.On("GetAlertForUpdate", ctx, "TEST-ALERT").Return(stored, nil)
	mockStorage.On("UpdateAlert", ctx, mock.AnythingOfType("*ledger.ReorderAlert")).Return(nil)

	acknowledged := AlertStatusAcknowledged
	alert, err := manager.UpdateReorderAlert(ctx, "TEST-ALERT", UpdateAlertInput{
		Status: &acknowledged,
		Actor:  "test-manager",
	})

	assert.NoError(t, err)
	assert.Equal(t, AlertStatusAcknowledged, alert.Status)
	assert.Equal(t, "test-manager", *alert.AcknowledgedBy)
	assert.NotNil(t, alert.AcknowledgedAt)
	assert.Nil(t, alert.ResolvedAt)
	mockStorage.AssertExpectations(t)
}

// TestAlertManager_UpdateReorderAlert_Resolve は解決遷移の副作用のテスト
func TestAlertManager_UpdateReorderAlert_Resolve(t *testing.T) {
	mockStorage := new(MockStorage)
	manager := NewAlertManager(mockStorage, zap.NewNop(), nil, nil)
	ctx := context.Background()

	stored := &ReorderAlert{
		ID:     "TEST-ALERT",
		ItemID: "TEST-ITEM",
		Status: AlertStatusOrdered,
	}

	mockStorage.On("GetAlertForUpdate", ctx, "TEST-ALERT").Return(stored, nil)
	mockStorage.On("UpdateAlert", ctx, mock.AnythingOfType("*ledger.ReorderAlert")).Return(nil)

	resolved := AlertStatusResolved
	alert, err := manager.UpdateReorderAlert(ctx, "TEST-ALERT", UpdateAlertInput{
		Status: &resolved,
		Actor:  "test-manager",
	})

	assert.NoError(t, err)
	assert.Equal(t, AlertStatusResolved, alert.Status)
	assert.NotNil(t, alert.ResolvedAt)
	// 解決は確認の記録を作らない
	assert.Nil(t, alert.AcknowledgedBy)
	mockStorage.AssertExpectations(t)
}

// TestAlertManager_UpdateReorderAlert_ReopenResolved は任意の遷移が許可されるテスト
func TestAlertManager_UpdateReorderAlert_ReopenResolved(t *testing.T) {
	mockStorage := new(MockStorage)
	manager := NewAlertManager(mockStorage, zap.NewNop(), nil, nil)
	ctx := context.Background()

	resolvedAt := time.Now().Add(-time.Hour)
	stored := &ReorderAlert{
		ID:         "TEST-ALERT",
		ItemID:     "TEST-ITEM",
		Status:     AlertStatusResolved,
		ResolvedAt: &resolvedAt,
	}

	mockStorage.On("GetAlertForUpdate", ctx, "TEST-ALERT").Return(stored, nil)
	mockStorage.On("UpdateAlert", ctx, mock.AnythingOfType("*ledger.ReorderAlert")).Return(nil)

	// resolved → pending の差し戻しも許可される
	pending := AlertStatusPending
	alert, err := manager.UpdateReorderAlert(ctx, "TEST-ALERT", UpdateAlertInput{
		Status: &pending,
		Actor:  "test-manager",
	})

	assert.NoError(t, err)
	assert.Equal(t, AlertStatusPending, alert.Status)
	mockStorage.AssertExpectations(t)
}

// TestAlertManager_UpdateReorderAlert_NotesOnly はステータス変更なしの備考更新テスト
func TestAlertManager_UpdateReorderAlert_NotesOnly(t *testing.T) {
	mockStorage := new(MockStorage)
	manager := NewAlertManager(mockStorage, zap.NewNop(), nil, nil)
	ctx := context.Background()

	stored := &ReorderAlert{
		ID:     "TEST-ALERT",
		ItemID: "TEST-ITEM",
		Status: AlertStatusPending,
		Notes:  "古い備考",
	}

	mockStorage.On("GetAlertForUpdate", ctx, "TEST-ALERT").Return(stored, nil)
	mockStorage.On("UpdateAlert", ctx, mock.AnythingOfType("*ledger.ReorderAlert")).Return(nil)

	notes := "新しい備考"
	alert, err := manager.UpdateReorderAlert(ctx, "TEST-ALERT", UpdateAlertInput{
		Notes: &notes,
		Actor: "test-manager",
	})

	assert.NoError(t, err)
	assert.Equal(t, "新しい備考", alert.Notes)
	assert.Equal(t, AlertStatusPending, alert.Status)
	assert.Nil(t, alert.AcknowledgedBy)
	mockStorage.AssertExpectations(t)
}

// TestAlertManager_UpdateReorderAlert_NotFound は存在しないアラートのテスト
func TestAlertManager_UpdateReorderAlert_NotFound(t *testing.T) {
	mockStorage := new(MockStorage)
	manager := NewAlertManager(mockStorage, zap.NewNop(), nil, nil)
	ctx := context.Background()

	mockStorage.On("GetAlertForUpdate", ctx, "MISSING").Return(nil, ErrAlertNotFound)

	alert, err := manager.UpdateReorderAlert(ctx, "MISSING", UpdateAlertInput{Actor: "test-manager"})

	assert.Nil(t, alert)
	assert.ErrorIs(t, err, ErrAlertNotFound)
	assert.Equal(t, KindNotFound, Kind(err))
	mockStorage.AssertExpectations(t)
}

// TestAlertManager_UpdateReorderAlert_InvalidStatus は未知ステータス拒否のテスト
func TestAlertManager_UpdateReorderAlert_InvalidStatus(t *testing.T) {
	mockStorage := new(MockStorage)
	manager := NewAlertManager(mockStorage, zap.NewNop(), nil, nil)
	ctx := context.Background()

	bogus := AlertStatus("escalated")
	alert, err := manager.UpdateReorderAlert(ctx, "TEST-ALERT", UpdateAlertInput{
		Status: &bogus,
		Actor:  "test-manager",
	})

	assert.Nil(t, alert)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
	mockStorage.AssertNotCalled(t, "GetAlertForUpdate", mock.Anything, mock.Anything)
}

// TestAlertManager_ListReorderAlerts はステータス絞り込みのテスト
func TestAlertManager_ListReorderAlerts(t *testing.T) {
	mockStorage := new(MockStorage)
	manager := NewAlertManager(mockStorage, zap.NewNop(), nil, nil)
	ctx := context.Background()

	pending := AlertStatusPending
	expected := []ReorderAlert{
		{ID: "ALERT-1", Status: AlertStatusPending},
		{ID: "ALERT-2", Status: AlertStatusPending},
	}

	mockStorage.On("ListAlerts", ctx, &pending).Return(expected, nil)

	alerts, err := manager.ListReorderAlerts(ctx, &pending)

	assert.NoError(t, err)
	assert.Len(t, alerts, 2)
	mockStorage.AssertExpectations(t)
}

// TestAlertStatus_IsActive はアクティブ判定のテスト
func TestAlertStatus_IsActive(t *testing.T) {
	assert.True(t, AlertStatusPending.IsActive())
	assert.True(t, AlertStatusAcknowledged.IsActive())
	assert.False(t, AlertStatusOrdered.IsActive())
	assert.False(t, AlertStatusResolved.IsActive())
}

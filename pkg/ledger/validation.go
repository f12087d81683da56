package ledger

import (
	"fmt"
	"regexp"
)

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateItemID 材料IDの形式をバリデーション
func ValidateItemID(itemID string) error {
	if itemID == "" {
		return NewValidationError("item_id", "材料IDが空です", itemID)
	}
	if len(itemID) > 255 {
		return NewValidationError("item_id", "材料IDが長すぎます", itemID)
	}
	// 英数字、ハイフン、アンダースコアのみ許可
	if !idPattern.MatchString(itemID) {
		return NewValidationError("item_id", "材料IDに無効な文字が含まれています", itemID)
	}
	return nil
}

// ValidateAlertID アラートIDの形式をバリデーション
func ValidateAlertID(alertID string) error {
	if alertID == "" {
		return NewValidationError("alert_id", "アラートIDが空です", alertID)
	}
	if len(alertID) > 255 {
		return NewValidationError("alert_id", "アラートIDが長すぎます", alertID)
	}
	if !idPattern.MatchString(alertID) {
		return NewValidationError("alert_id", "アラートIDに無効な文字が含まれています", alertID)
	}
	return nil
}

// ValidateMovementType 移動タイプをバリデーション
func ValidateMovementType(t MovementType) error {
	switch t {
	case MovementTypePurchase, MovementTypeUsage, MovementTypeSale, MovementTypeWaste, MovementTypeAdjustment:
		return nil
	default:
		return NewValidationError("type", "未知の移動タイプです", string(t))
	}
}

// ValidateQuantity 数量をバリデーション。
// adjustmentは棚卸結果0の記録を許可するため、0を受け付ける。
func ValidateQuantity(t MovementType, quantity int64) error {
	if quantity < 0 {
		return NewValidationError("quantity", "数量は正の値である必要があります", fmt.Sprintf("%d", quantity))
	}
	if quantity == 0 && t != MovementTypeAdjustment {
		return NewValidationError("quantity", "数量は正の値である必要があります", fmt.Sprintf("%d", quantity))
	}
	if quantity > 999999999 {
		return NewValidationError("quantity", "数量が有効範囲を超えています", fmt.Sprintf("%d", quantity))
	}
	return nil
}

// ValidateAlertStatus アラートステータスをバリデーション
func ValidateAlertStatus(s AlertStatus) error {
	switch s {
	case AlertStatusPending, AlertStatusAcknowledged, AlertStatusOrdered, AlertStatusResolved:
		return nil
	default:
		return NewValidationError("status", "未知のアラートステータスです", string(s))
	}
}

// ValidateAlertPriority アラート優先度をバリデーション
func ValidateAlertPriority(p AlertPriority) error {
	switch p {
	case AlertPriorityLow, AlertPriorityMedium, AlertPriorityHigh, AlertPriorityUrgent:
		return nil
	default:
		return NewValidationError("priority", "未知のアラート優先度です", string(p))
	}
}

package ledger

import (
	"errors"
	"fmt"
)

// Common ledger errors
// 共通の台帳エラー定義

var (
	// ErrItemNotFound is returned when a material item doesn't exist
	// 材料が存在しない場合のエラー
	ErrItemNotFound = errors.New("材料が見つかりません")

	// ErrAlertNotFound is returned when a reorder alert doesn't exist
	// リオーダーアラートが存在しない場合のエラー
	ErrAlertNotFound = errors.New("リオーダーアラートが見つかりません")

	// ErrActiveAlertExists is returned by the storage layer when the
	// one-active-alert-per-item constraint rejects an insert
	// 材料ごと1件のアクティブアラート制約がインサートを拒否した場合のエラー
	ErrActiveAlertExists = errors.New("アクティブなリオーダーアラートが既に存在します")
)

// ErrorKind is the machine-readable classification of a ledger failure
// 台帳エラーの機械可読な分類
type ErrorKind string

const (
	KindNotFound          ErrorKind = "not_found"          // 対象が存在しない
	KindValidation        ErrorKind = "validation_error"   // 入力が無効
	KindInsufficientStock ErrorKind = "insufficient_stock" // 在庫不足
	KindConflict          ErrorKind = "conflict"           // アクティブアラート重複
	KindStorage           ErrorKind = "storage_error"      // ストレージ層の失敗
)

// Kind classifies err into the ledger error taxonomy
// エラーを台帳エラー分類に振り分け
func Kind(err error) ErrorKind {
	var ve *ValidationError
	var ise *InsufficientStockError
	var ce *ConflictError
	switch {
	case errors.Is(err, ErrItemNotFound), errors.Is(err, ErrAlertNotFound):
		return KindNotFound
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &ise):
		return KindInsufficientStock
	case errors.As(err, &ce):
		return KindConflict
	default:
		return KindStorage
	}
}

// ValidationError represents a validation error with details
// 詳細付きバリデーションエラーを表現
type ValidationError struct {
	Field   string `json:"field"`   // エラーフィールド
	Message string `json:"message"` // エラーメッセージ
	Value   string `json:"value"`   // 無効な値
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("バリデーションエラー [%s]: %s (値: %s)", e.Field, e.Message, e.Value)
}

// InsufficientStockError is returned when a movement would drive stock negative
// 移動により在庫が負になる場合に返されるエラー
type InsufficientStockError struct {
	ItemID    string `json:"item_id"`   // 材料ID
	Available int64  `json:"available"` // 利用可能数量
	Unit      string `json:"unit"`      // 単位ラベル
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("在庫が不足しています。利用可能: %d %s", e.Available, e.Unit)
}

// ConflictError is returned when an active reorder alert already exists.
// The existing alert is carried so the caller can act on it instead.
// アクティブなリオーダーアラートが既に存在する場合に返されるエラー。
// 既存アラートを保持し、呼び出し側がそのまま利用できるようにする。
type ConflictError struct {
	Existing *ReorderAlert `json:"existing"` // 既存のアクティブアラート
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("材料 %s にはアクティブなリオーダーアラートが既に存在します (ステータス: %s)",
		e.Existing.ItemID, e.Existing.Status)
}

// StorageError represents a storage layer error
// ストレージ層のエラーを表現
type StorageError struct {
	Operation string `json:"operation"` // 操作名
	Message   string `json:"message"`   // エラーメッセージ
	Cause     error  `json:"cause"`     // 原因エラー
}

func (e *StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ストレージエラー [%s]: %s (原因: %v)", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("ストレージエラー [%s]: %s", e.Operation, e.Message)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
// 新しいバリデーションエラーを作成
func NewValidationError(field, message, value string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// NewInsufficientStockError creates a new insufficient stock error for an item
// 材料の在庫不足エラーを作成
func NewInsufficientStockError(item *MaterialItem) *InsufficientStockError {
	return &InsufficientStockError{
		ItemID:    item.ID,
		Available: item.CurrentStock,
		Unit:      item.Unit,
	}
}

// NewConflictError creates a new conflict error carrying the existing alert
// 既存アラートを保持した重複エラーを作成
func NewConflictError(existing *ReorderAlert) *ConflictError {
	return &ConflictError{Existing: existing}
}

// NewStorageError creates a new storage error
// 新しいストレージエラーを作成
func NewStorageError(operation, message string, cause error) *StorageError {
	return &StorageError{
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}

package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nemonet1337/zairyoGoBackend/internal/auth"
	"github.com/nemonet1337/zairyoGoBackend/pkg/ledger"
)

// Handlers holds HTTP handlers for the stock ledger API
// 在庫台帳API用のHTTPハンドラーを保持
type Handlers struct {
	ledger  ledger.StockLedger
	alerts  ledger.ReorderAlertManager
	storage ledger.Storage
	logger  *zap.Logger
}

// NewHandlers creates new HTTP handlers
// 新しいHTTPハンドラーを作成
func NewHandlers(stockLedger ledger.StockLedger, alerts ledger.ReorderAlertManager, storage ledger.Storage, logger *zap.Logger) *Handlers {
	return &Handlers{
		ledger:  stockLedger,
		alerts:  alerts,
		storage: storage,
		logger:  logger,
	}
}

// APIResponse represents standard API response format
// 標準的なAPIレスポンス形式を表現
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`    // 機械可読なエラー分類
	Details interface{} `json:"details,omitempty"` // エラー固有の付加情報
}

// RecordMovementRequest represents a request to record a stock movement
// 在庫移動記録リクエストを表現
type RecordMovementRequest struct {
	Type     string           `json:"type"`
	ItemID   string           `json:"item_id"`
	Quantity int64            `json:"quantity"`
	UnitCost *decimal.Decimal `json:"unit_cost,omitempty"`
	Reason   string           `json:"reason,omitempty"`
	OrderID  *string          `json:"order_id,omitempty"`
	Notes    string           `json:"notes,omitempty"`
}

// CreateAlertRequest represents a request to create a reorder alert
// リオーダーアラート作成リクエストを表現
type CreateAlertRequest struct {
	ItemID   string `json:"item_id"`
	Priority string `json:"priority,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// UpdateAlertRequest represents a request to update a reorder alert
// リオーダーアラート更新リクエストを表現
type UpdateAlertRequest struct {
	Status *string `json:"status,omitempty"`
	Notes  *string `json:"notes,omitempty"`
}

// HealthCheck handles health check requests
// ヘルスチェックリクエストを処理
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if err := h.storage.Ping(r.Context()); err != nil {
		h.logger.Error("ストレージのヘルスチェックに失敗しました", zap.Error(err))
		status = "degraded"
	}

	h.sendSuccess(w, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now(),
		"service":   "zairyoGoBackend",
	})
}

// RecordMovement handles movement recording requests
// 在庫移動記録リクエストを処理
func (h *Handlers) RecordMovement(w http.ResponseWriter, r *http.Request) {
	var req RecordMovementRequest
	if err := decodeStrict(r, &req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です", string(ledger.KindValidation), nil)
		return
	}

	result, err := h.ledger.RecordMovement(r.Context(), ledger.RecordMovementInput{
		Type:     ledger.MovementType(req.Type),
		ItemID:   req.ItemID,
		Quantity: req.Quantity,
		UnitCost: req.UnitCost,
		Reason:   req.Reason,
		OrderID:  req.OrderID,
		Notes:    req.Notes,
		Actor:    auth.Actor(r.Context()),
	})
	if err != nil {
		h.sendLedgerError(w, err)
		return
	}

	h.sendSuccess(w, result)
}

// ListMovements handles movement listing requests
// 移動一覧リクエストを処理
func (h *Handlers) ListMovements(w http.ResponseWriter, r *http.Request) {
	filter := ledger.MovementFilter{
		ItemID: r.URL.Query().Get("item_id"),
		Type:   ledger.MovementType(r.URL.Query().Get("type")),
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			filter.Limit = limit
		}
	}

	movements, err := h.ledger.ListMovements(r.Context(), filter)
	if err != nil {
		h.sendLedgerError(w, err)
		return
	}

	h.sendSuccess(w, movements)
}

// GetItem handles item retrieval requests
// 材料取得リクエストを処理
func (h *Handlers) GetItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	item, err := h.ledger.GetItem(r.Context(), vars["itemId"])
	if err != nil {
		h.sendLedgerError(w, err)
		return
	}

	h.sendSuccess(w, item)
}

// ListItems handles item listing requests
// 材料一覧リクエストを処理
func (h *Handlers) ListItems(w http.ResponseWriter, r *http.Request) {
	offset := 0
	limit := 50
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	items, err := h.ledger.ListItems(r.Context(), offset, limit)
	if err != nil {
		h.sendLedgerError(w, err)
		return
	}

	h.sendSuccess(w, items)
}

// ListLowStock handles low stock listing requests
// 低在庫一覧リクエストを処理
func (h *Handlers) ListLowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.ledger.ListLowStock(r.Context())
	if err != nil {
		h.sendLedgerError(w, err)
		return
	}

	h.sendSuccess(w, items)
}

// GetStats handles inventory stats requests
// 在庫集計リクエストを処理
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ledger.GetStats(r.Context())
	if err != nil {
		h.sendLedgerError(w, err)
		return
	}

	h.sendSuccess(w, stats)
}

// CreateAlert handles reorder alert creation requests
// リオーダーアラート作成リクエストを処理
func (h *Handlers) CreateAlert(w http.ResponseWriter, r *http.Request) {
	var req CreateAlertRequest
	if err := decodeStrict(r, &req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です", string(ledger.KindValidation), nil)
		return
	}

	alert, err := h.alerts.CreateReorderAlert(r.Context(), ledger.CreateAlertInput{
		ItemID:   req.ItemID,
		Priority: ledger.AlertPriority(req.Priority),
		Notes:    req.Notes,
		Actor:    auth.Actor(r.Context()),
	})
	if err != nil {
		h.sendLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(APIResponse{Success: true, Data: alert}); err != nil {
		h.logger.Error("レスポンス送信に失敗しました", zap.Error(err))
	}
}

// UpdateAlert handles reorder alert update requests
// リオーダーアラート更新リクエストを処理
func (h *Handlers) UpdateAlert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req UpdateAlertRequest
	if err := decodeStrict(r, &req); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です", string(ledger.KindValidation), nil)
		return
	}

	input := ledger.UpdateAlertInput{
		Notes: req.Notes,
		Actor: auth.Actor(r.Context()),
	}
	if req.Status != nil {
		status := ledger.AlertStatus(*req.Status)
		input.Status = &status
	}

	alert, err := h.alerts.UpdateReorderAlert(r.Context(), vars["alertId"], input)
	if err != nil {
		h.sendLedgerError(w, err)
		return
	}

	h.sendSuccess(w, alert)
}

// ListAlerts handles reorder alert listing requests
// リオーダーアラート一覧リクエストを処理
func (h *Handlers) ListAlerts(w http.ResponseWriter, r *http.Request) {
	var status *ledger.AlertStatus
	if v := r.URL.Query().Get("status"); v != "" {
		s := ledger.AlertStatus(v)
		status = &s
	}

	alerts, err := h.alerts.ListReorderAlerts(r.Context(), status)
	if err != nil {
		h.sendLedgerError(w, err)
		return
	}

	h.sendSuccess(w, alerts)
}

// ヘルパーメソッド

// decodeStrict decodes a JSON request body and rejects unknown fields
// JSONリクエストボディをデコードし、未知のフィールドを拒否
func decodeStrict(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// sendLedgerError maps a ledger error onto an HTTP status and response body
// 台帳エラーをHTTPステータスとレスポンスボディに変換
func (h *Handlers) sendLedgerError(w http.ResponseWriter, err error) {
	kind := ledger.Kind(err)

	var details interface{}
	switch kind {
	case ledger.KindInsufficientStock:
		var ise *ledger.InsufficientStockError
		if errors.As(err, &ise) {
			details = ise
		}
	case ledger.KindConflict:
		var ce *ledger.ConflictError
		if errors.As(err, &ce) {
			details = ce
		}
	}

	status := http.StatusInternalServerError
	switch kind {
	case ledger.KindNotFound:
		status = http.StatusNotFound
	case ledger.KindValidation:
		status = http.StatusBadRequest
	case ledger.KindInsufficientStock, ledger.KindConflict:
		status = http.StatusConflict
	case ledger.KindStorage:
		h.logger.Error("ストレージエラーが発生しました", zap.Error(err))
	}

	h.sendError(w, status, err.Error(), string(kind), details)
}

// sendSuccess sends a successful API response
// 成功APIレスポンスを送信
func (h *Handlers) sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := APIResponse{
		Success: true,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("レスポンス送信に失敗しました", zap.Error(err))
	}
}

// sendError sends an error API response
// エラーAPIレスポンスを送信
func (h *Handlers) sendError(w http.ResponseWriter, statusCode int, message, code string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := APIResponse{
		Success: false,
		Error:   message,
		Code:    code,
		Details: details,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("エラーレスポンス送信に失敗しました", zap.Error(err))
	}
}

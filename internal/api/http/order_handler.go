package http

import (
	"net/http"
	"strconv"
	"time"

	"peerrent-backend/internal/domain"
	"peerrent-backend/internal/service"

	"github.com/gorilla/mux"
)

type OrderHandler struct {
	orders service.OrderService
}

func NewOrderHandler(orders service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type createDraftRequest struct {
	StartDate time.Time         `json:"start_date"`
	EndDate   time.Time         `json:"end_date"`
	Items     []domain.CartItem `json:"items"`
}

func (h *OrderHandler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, domain.AuthorizationError("unauthenticated"))
		return
	}
	var req createDraftRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	order, err := h.orders.CreateDraft(r.Context(), domain.Cart{
		RenterID: actor.ID,
		Period:   domain.RentalPeriod{StartDate: req.StartDate, EndDate: req.EndDate},
		Items:    req.Items,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *OrderHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	order, err := h.orders.ConfirmOrder(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type paymentRequest struct {
	Method domain.PaymentMethod `json:"method"`
	Amount int64                `json:"amount"`
	TxnRef string               `json:"txn_ref"`
}

func (h *OrderHandler) Pay(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	var req paymentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	order, err := h.orders.ProcessPayment(r.Context(), actor, mux.Vars(r)["id"], req.Method, req.Amount, req.TxnRef)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type ownerConfirmRequest struct {
	Decision domain.ConfirmDecision `json:"decision"`
	Reason   string                 `json:"reason,omitempty"`
}

func (h *OrderHandler) OwnerConfirm(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	var req ownerConfirmRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sub, err := h.orders.OwnerConfirm(r.Context(), actor, mux.Vars(r)["id"], req.Decision, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	var req cancelRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	order, err := h.orders.CancelOrder(r.Context(), actor, mux.Vars(r)["id"], req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

type returnRequest struct {
	ProductIndex int32                `json:"product_index"`
	Status       domain.ProductStatus `json:"status"`
}

func (h *OrderHandler) MarkReturn(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	var req returnRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sub, err := h.orders.MarkLineItemReturn(r.Context(), actor, mux.Vars(r)["id"], req.ProductIndex, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	order, err := h.orders.GetOrder(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	page, size := pagination(r)
	orders, total, err := h.orders.ListOrders(r.Context(), actor, r.URL.Query().Get("status"), page, size)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.MasterOrder]{Items: orders, Total: total, Page: page, PageSize: size})
}

func (h *OrderHandler) ListLendings(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	page, size := pagination(r)
	subs, total, err := h.orders.ListLendings(r.Context(), actor, r.URL.Query().Get("status"), page, size)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.SubOrder]{Items: subs, Total: total, Page: page, PageSize: size})
}

type listResponse[T any] struct {
	Items    []T   `json:"items"`
	Total    int32 `json:"total"`
	Page     int32 `json:"page"`
	PageSize int32 `json:"page_size"`
}

func pagination(r *http.Request) (page, size int32) {
	page, size = 1, 20
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = int32(v)
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && v > 0 && v <= 100 {
		size = int32(v)
	}
	return page, size
}

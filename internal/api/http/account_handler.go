package http

import (
	"net/http"

	"peerrent-backend/internal/domain"
	"peerrent-backend/internal/service"

	"github.com/gorilla/mux"
)

// AccountHandler serves the caller-scoped wallet and notification reads.
type AccountHandler struct {
	ledger        service.LedgerService
	notifications service.NotificationService
}

func NewAccountHandler(ledger service.LedgerService, notifications service.NotificationService) *AccountHandler {
	return &AccountHandler{ledger: ledger, notifications: notifications}
}

func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	accountID := mux.Vars(r)["id"]
	balance, err := h.ledger.GetAvailableBalance(r.Context(), actor, accountID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"available_balance": balance})
}

func (h *AccountHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	page, size := pagination(r)
	txs, total, err := h.ledger.ListTransactions(r.Context(), actor, mux.Vars(r)["id"], page, size)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.LedgerTransaction]{Items: txs, Total: total, Page: page, PageSize: size})
}

func (h *AccountHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	page, size := pagination(r)
	notes, total, err := h.notifications.GetNotifications(r.Context(), actor.ID, page, size)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.Notification]{Items: notes, Total: total, Page: page, PageSize: size})
}

func (h *AccountHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	if err := h.notifications.MarkAsRead(r.Context(), actor.ID, mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"read": true})
}

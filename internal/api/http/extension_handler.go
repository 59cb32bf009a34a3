package http

import (
	"net/http"
	"time"

	"peerrent-backend/internal/domain"
	"peerrent-backend/internal/service"

	"github.com/gorilla/mux"
)

type ExtensionHandler struct {
	extensions service.ExtensionService
}

func NewExtensionHandler(extensions service.ExtensionService) *ExtensionHandler {
	return &ExtensionHandler{extensions: extensions}
}

type requestExtensionRequest struct {
	SubOrderID string               `json:"sub_order_id"`
	NewEndDate time.Time            `json:"new_end_date"`
	Fee        int64                `json:"fee"`
	Method     domain.PaymentMethod `json:"payment_method"`
	Notes      string               `json:"notes,omitempty"`
}

func (h *ExtensionHandler) Request(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	var req requestExtensionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ext, err := h.extensions.RequestExtension(r.Context(), actor, req.SubOrderID, req.NewEndDate, req.Fee, req.Method, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ext)
}

func (h *ExtensionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	ext, err := h.extensions.ApproveExtension(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ext)
}

func (h *ExtensionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	var req reasonRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ext, err := h.extensions.RejectExtension(r.Context(), actor, mux.Vars(r)["id"], req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ext)
}

func (h *ExtensionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	ext, err := h.extensions.CancelExtension(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ext)
}

func (h *ExtensionHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	ext, err := h.extensions.GetExtension(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ext)
}

package http

import (
	"net/http"
	"time"

	"peerrent-backend/internal/service"

	"github.com/gorilla/mux"
)

type ContractHandler struct {
	contracts service.ContractService
}

func NewContractHandler(contracts service.ContractService) *ContractHandler {
	return &ContractHandler{contracts: contracts}
}

func (h *ContractHandler) RequestOtp(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	expiresAt, err := h.contracts.RequestOtp(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]time.Time{"expires_at": expiresAt})
}

type verifyOtpRequest struct {
	Code string `json:"code"`
}

func (h *ContractHandler) VerifyOtp(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	var req verifyOtpRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.contracts.VerifyOtp(r.Context(), actor, mux.Vars(r)["id"], req.Code); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

type signRequest struct {
	Signature string `json:"signature"`
}

func (h *ContractHandler) Sign(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	var req signRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	contract, err := h.contracts.Sign(r.Context(), actor, mux.Vars(r)["id"], req.Signature)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

func (h *ContractHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	contract, err := h.contracts.GetContract(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

func (h *ContractHandler) GetBySubOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	contract, err := h.contracts.GetBySubOrder(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

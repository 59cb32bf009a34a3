package http

import (
	"net/http"
	"time"

	"peerrent-backend/internal/domain"
	"peerrent-backend/internal/service"

	"github.com/gorilla/mux"
)

type DisputeHandler struct {
	disputes service.DisputeService
}

func NewDisputeHandler(disputes service.DisputeService) *DisputeHandler {
	return &DisputeHandler{disputes: disputes}
}

func (h *DisputeHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	var req service.CreateDisputeInput
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	d, err := h.disputes.CreateDispute(r.Context(), actor, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

type respondRequest struct {
	Decision domain.RespondDecision `json:"decision"`
	Reason   string                 `json:"reason,omitempty"`
	Photos   []string               `json:"photos,omitempty"`
	Videos   []string               `json:"videos,omitempty"`
}

func (h *DisputeHandler) Respond(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	var req respondRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	d, err := h.disputes.Respond(r.Context(), actor, mux.Vars(r)["id"], req.Decision, req.Reason, req.Photos, req.Videos)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type rescheduleRequest struct {
	NewReturnDate time.Time `json:"new_return_date"`
	Note          string    `json:"note,omitempty"`
	Photos        []string  `json:"photos,omitempty"`
}

func (h *DisputeHandler) ProposeReschedule(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	var req rescheduleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	d, err := h.disputes.ProposeReschedule(r.Context(), actor, mux.Vars(r)["id"], req.NewReturnDate, req.Note, req.Photos)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DisputeHandler) AcceptReschedule(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	d, err := h.disputes.AcceptReschedule(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *DisputeHandler) RejectReschedule(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	var req reasonRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	d, err := h.disputes.RejectReschedule(r.Context(), actor, mux.Vars(r)["id"], req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DisputeHandler) StartNegotiation(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	d, err := h.disputes.StartNegotiation(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type agreeRequest struct {
	AgreedAmount int64 `json:"agreed_amount"`
}

func (h *DisputeHandler) AgreeNegotiation(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	var req agreeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	d, err := h.disputes.AgreeNegotiation(r.Context(), actor, mux.Vars(r)["id"], req.AgreedAmount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DisputeHandler) EscalateThirdParty(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	d, err := h.disputes.EscalateThirdParty(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type thirdPartyRequest struct {
	OfficialDecision string   `json:"official_decision"`
	Photos           []string `json:"photos,omitempty"`
	Videos           []string `json:"videos,omitempty"`
}

func (h *DisputeHandler) SubmitThirdPartyEvidence(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	var req thirdPartyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	d, err := h.disputes.SubmitThirdPartyEvidence(r.Context(), actor, mux.Vars(r)["id"], req.OfficialDecision, req.Photos, req.Videos)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type externalPaymentRequest struct {
	RepairCost int64 `json:"repair_cost"`
}

func (h *DisputeHandler) InitiateExternalPayment(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	var req externalPaymentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	d, err := h.disputes.InitiateExternalPayment(r.Context(), actor, mux.Vars(r)["id"], req.RepairCost)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type receiptRequest struct {
	Images []string `json:"images"`
}

func (h *DisputeHandler) ProposeReceipt(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	var req receiptRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	d, err := h.disputes.ProposeExternalPaymentReceipt(r.Context(), actor, mux.Vars(r)["id"], req.Images)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type confirmPaymentRequest struct {
	Confirmed bool   `json:"confirmed"`
	Note      string `json:"note,omitempty"`
}

func (h *DisputeHandler) ConfirmExternalPayment(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	var req confirmPaymentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	d, err := h.disputes.ConfirmExternalPayment(r.Context(), actor, mux.Vars(r)["id"], req.Confirmed, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type adminReviewRequest struct {
	Approved  bool   `json:"approved"`
	Reasoning string `json:"reasoning"`
}

func (h *DisputeHandler) AdminReviewExternalPayment(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	var req adminReviewRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	d, err := h.disputes.AdminReviewExternalPayment(r.Context(), actor, mux.Vars(r)["id"], req.Approved, req.Reasoning)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type finalDecisionRequest struct {
	Outcome            domain.DecisionOutcome `json:"outcome"`
	CompensationAmount int64                  `json:"compensation_amount,omitempty"`
	Reasoning          string                 `json:"reasoning"`
}

func (h *DisputeHandler) AdminFinalDecision(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	var req finalDecisionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	d, err := h.disputes.AdminFinalDecision(r.Context(), actor, mux.Vars(r)["id"], req.Outcome, req.CompensationAmount, req.Reasoning)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DisputeHandler) AdminResolveShipperDamage(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	var req service.ShipperDamageInput
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	d, err := h.disputes.AdminResolveShipperDamage(r.Context(), actor, mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DisputeHandler) AdminProcessPayment(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	d, err := h.disputes.AdminProcessPayment(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DisputeHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	d, err := h.disputes.GetDispute(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DisputeHandler) ListBySubOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	list, err := h.disputes.ListBySubOrder(r.Context(), actor, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

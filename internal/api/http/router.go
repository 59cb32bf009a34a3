// Package http exposes the orchestration engines over a JSON API. Routes
// are grouped per aggregate; every mutating route requires a bearer token.
package http

import (
	"net/http"

	"peerrent-backend/internal/security"
	"peerrent-backend/internal/service"
	"peerrent-backend/internal/storage"

	"github.com/gorilla/mux"
)

type RouterDeps struct {
	Orders        service.OrderService
	Contracts     service.ContractService
	Disputes      service.DisputeService
	Extensions    service.ExtensionService
	Ledger        service.LedgerService
	Notifications service.NotificationService
	Media         storage.MediaStorage
	Tokens        security.TokenManager
}

func NewRouter(deps RouterDeps) *mux.Router {
	r := mux.NewRouter()
	r.Use(LoggingMiddleware)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(AuthMiddleware(deps.Tokens))

	orders := NewOrderHandler(deps.Orders)
	api.HandleFunc("/orders", orders.CreateDraft).Methods("POST")
	api.HandleFunc("/orders", orders.List).Methods("GET")
	api.HandleFunc("/orders/{id}", orders.Get).Methods("GET")
	api.HandleFunc("/orders/{id}/confirm", orders.Confirm).Methods("POST")
	api.HandleFunc("/orders/{id}/pay", orders.Pay).Methods("POST")
	api.HandleFunc("/orders/{id}/cancel", orders.Cancel).Methods("POST")
	api.HandleFunc("/lendings", orders.ListLendings).Methods("GET")
	api.HandleFunc("/sub-orders/{id}/confirm", orders.OwnerConfirm).Methods("POST")
	api.HandleFunc("/sub-orders/{id}/return", orders.MarkReturn).Methods("POST")

	contracts := NewContractHandler(deps.Contracts)
	api.HandleFunc("/contracts/{id}", contracts.Get).Methods("GET")
	api.HandleFunc("/contracts/{id}/otp", contracts.RequestOtp).Methods("POST")
	api.HandleFunc("/contracts/{id}/otp/verify", contracts.VerifyOtp).Methods("POST")
	api.HandleFunc("/contracts/{id}/sign", contracts.Sign).Methods("POST")
	api.HandleFunc("/sub-orders/{id}/contract", contracts.GetBySubOrder).Methods("GET")

	disputes := NewDisputeHandler(deps.Disputes)
	api.HandleFunc("/disputes", disputes.Create).Methods("POST")
	api.HandleFunc("/disputes/{id}", disputes.Get).Methods("GET")
	api.HandleFunc("/disputes/{id}/respond", disputes.Respond).Methods("POST")
	api.HandleFunc("/disputes/{id}/reschedule", disputes.ProposeReschedule).Methods("POST")
	api.HandleFunc("/disputes/{id}/reschedule/accept", disputes.AcceptReschedule).Methods("POST")
	api.HandleFunc("/disputes/{id}/reschedule/reject", disputes.RejectReschedule).Methods("POST")
	api.HandleFunc("/disputes/{id}/negotiation", disputes.StartNegotiation).Methods("POST")
	api.HandleFunc("/disputes/{id}/negotiation/agree", disputes.AgreeNegotiation).Methods("POST")
	api.HandleFunc("/disputes/{id}/third-party", disputes.EscalateThirdParty).Methods("POST")
	api.HandleFunc("/disputes/{id}/third-party/evidence", disputes.SubmitThirdPartyEvidence).Methods("POST")
	api.HandleFunc("/disputes/{id}/external-payment", disputes.InitiateExternalPayment).Methods("POST")
	api.HandleFunc("/disputes/{id}/external-payment/receipt", disputes.ProposeReceipt).Methods("POST")
	api.HandleFunc("/disputes/{id}/external-payment/confirm", disputes.ConfirmExternalPayment).Methods("POST")
	api.HandleFunc("/admin/disputes/{id}/external-payment/review", disputes.AdminReviewExternalPayment).Methods("POST")
	api.HandleFunc("/admin/disputes/{id}/decision", disputes.AdminFinalDecision).Methods("POST")
	api.HandleFunc("/admin/disputes/{id}/shipper-damage", disputes.AdminResolveShipperDamage).Methods("POST")
	api.HandleFunc("/admin/disputes/{id}/process-payment", disputes.AdminProcessPayment).Methods("POST")
	api.HandleFunc("/sub-orders/{id}/disputes", disputes.ListBySubOrder).Methods("GET")

	extensions := NewExtensionHandler(deps.Extensions)
	api.HandleFunc("/extensions", extensions.Request).Methods("POST")
	api.HandleFunc("/extensions/{id}", extensions.Get).Methods("GET")
	api.HandleFunc("/extensions/{id}/approve", extensions.Approve).Methods("POST")
	api.HandleFunc("/extensions/{id}/reject", extensions.Reject).Methods("POST")
	api.HandleFunc("/extensions/{id}/cancel", extensions.Cancel).Methods("POST")

	account := NewAccountHandler(deps.Ledger, deps.Notifications)
	api.HandleFunc("/accounts/{id}/balance", account.GetBalance).Methods("GET")
	api.HandleFunc("/accounts/{id}/transactions", account.ListTransactions).Methods("GET")
	api.HandleFunc("/notifications", account.ListNotifications).Methods("GET")
	api.HandleFunc("/notifications/{id}/read", account.MarkNotificationRead).Methods("POST")

	media := NewMediaHandler(deps.Media)
	api.HandleFunc("/media", media.Upload).Methods("PUT", "POST")
	api.HandleFunc("/media/{key}", media.Download).Methods("GET")

	return r
}

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/crm-engine/internal/domain"
	"github.com/ignite/crm-engine/internal/pkg/httputil"
	"github.com/ignite/crm-engine/internal/segment"
	"github.com/ignite/crm-engine/internal/service/audience"
	"github.com/ignite/crm-engine/internal/service/ingest"
)

// Handlers holds the HTTP handlers and their service dependencies
type Handlers struct {
	ingest   *ingest.Service
	audience *audience.Service
}

// NewHandlers creates handlers over the intake and audience services
func NewHandlers(ingestSvc *ingest.Service, audienceSvc *audience.Service) *Handlers {
	return &Handlers{ingest: ingestSvc, audience: audienceSvc}
}

// HealthCheck reports liveness
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}

// SubmitCustomer accepts a customer record, persists it and publishes the
// change event.
func (h *Handlers) SubmitCustomer(w http.ResponseWriter, r *http.Request) {
	var in ingest.CustomerInput
	if !httputil.Decode(w, r, &in) {
		return
	}

	customer, err := h.ingest.SubmitCustomer(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrValidation):
			httputil.BadRequest(w, err.Error())
		case errors.Is(err, ingest.ErrConflict):
			httputil.Conflict(w, err.Error())
		default:
			httputil.InternalError(w, err)
		}
		return
	}
	httputil.Created(w, customer)
}

// SubmitOrder accepts an order for an existing customer.
func (h *Handlers) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var in ingest.OrderInput
	if !httputil.Decode(w, r, &in) {
		return
	}

	order, err := h.ingest.SubmitOrder(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrValidation):
			httputil.BadRequest(w, err.Error())
		case errors.Is(err, ingest.ErrCustomerNotFound):
			httputil.NotFound(w, err.Error())
		default:
			httputil.InternalError(w, err)
		}
		return
	}
	httputil.Created(w, order)
}

// ListCustomerOrders returns the orders of one customer, oldest first.
func (h *Handlers) ListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "id")

	orders, err := h.ingest.ListOrdersForCustomer(r.Context(), customerID)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrValidation):
			httputil.BadRequest(w, err.Error())
		case errors.Is(err, ingest.ErrCustomerNotFound):
			httputil.NotFound(w, err.Error())
		default:
			httputil.InternalError(w, err)
		}
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	httputil.OK(w, orders)
}

type audienceRequest struct {
	Rules []domain.FilterRule `json:"rules"`
}

// AudienceSize resolves a filter into a count without creating anything.
func (h *Handlers) AudienceSize(w http.ResponseWriter, r *http.Request) {
	var req audienceRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	size, err := h.audience.CheckAudienceSize(r.Context(), req.Rules)
	if err != nil {
		if errors.Is(err, segment.ErrBadFilter) {
			httputil.BadRequest(w, err.Error())
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]int{"audienceSize": size})
}

// SaveAudience snapshots the matching audience into a communication log and
// kicks off delivery to every member.
func (h *Handlers) SaveAudience(w http.ResponseWriter, r *http.Request) {
	var req audienceRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	result, err := h.audience.SaveAudience(r.Context(), req.Rules)
	if err != nil {
		if errors.Is(err, segment.ErrBadFilter) {
			httputil.BadRequest(w, err.Error())
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.Created(w, result)
}

type deliveryReceiptRequest struct {
	LogID  string                `json:"logId"`
	Status domain.DeliveryStatus `json:"status"`
}

// DeliveryReceipt records a vendor callback against a communication log.
func (h *Handlers) DeliveryReceipt(w http.ResponseWriter, r *http.Request) {
	var req deliveryReceiptRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	err := h.audience.RecordDeliveryReceipt(r.Context(), req.LogID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, audience.ErrValidation):
			httputil.BadRequest(w, err.Error())
		case errors.Is(err, audience.ErrLogNotFound):
			httputil.NotFound(w, err.Error())
		default:
			httputil.InternalError(w, err)
		}
		return
	}
	httputil.OK(w, map[string]string{"status": "recorded"})
}

// ListCampaigns returns every communication log, newest first.
func (h *Handlers) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	logs, err := h.audience.ListCampaigns(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if logs == nil {
		logs = []domain.CommunicationLog{}
	}
	httputil.OK(w, logs)
}

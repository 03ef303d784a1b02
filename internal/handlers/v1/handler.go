package v1

import (
	"net/http"
	"time"

	"github.com/dcm-project/hpc-marketplace/internal/service"
	"go.uber.org/zap"
)

// completedAtLayout renders timestamps as UTC ISO-8601 with a trailing Z.
const completedAtLayout = "2006-01-02T15:04:05.000000Z"

type Handler struct {
	services *service.Services
}

func NewHandler(services *service.Services) *Handler {
	return &Handler{services: services}
}

// GetHealth (GET /health)
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Login (POST /login)
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := zap.S().Named("handler:login")

	var body LoginRequest
	if err := decodeBody(r, &body); err != nil {
		badRequest(w, "%v", err)
		return
	}
	if body.ID == nil || body.UserType == nil {
		badRequest(w, "id and user_type are required")
		return
	}

	userType := service.UserType(*body.UserType)
	if err := h.services.Catalog.Login(r.Context(), *body.ID, userType); err != nil {
		writeError(w, logger, err)
		return
	}

	id := *body.ID
	if userType == service.UserTypeClient {
		respondJSON(w, http.StatusOK, LoginResponse{Message: "Client logged in", ClientID: &id})
		return
	}
	respondJSON(w, http.StatusOK, LoginResponse{Message: "Provider logged in", ProviderID: &id})
}

// PublishSpecs (POST /providers/{pid}/specs)
func (h *Handler) PublishSpecs(w http.ResponseWriter, r *http.Request) {
	logger := zap.S().Named("handler:publish-specs")

	pid, err := pathID(r, "pid")
	if err != nil {
		badRequest(w, "%v", err)
		return
	}
	var body SpecsRequest
	if err := decodeBody(r, &body); err != nil {
		badRequest(w, "%v", err)
		return
	}
	if body.Cores == nil || body.ClockSpeed == nil || body.Memory == nil {
		badRequest(w, "cores, clock_speed and memory are required")
		return
	}

	_, err = h.services.Catalog.PublishSpecs(r.Context(), pid, service.Specs{
		Cores:      *body.Cores,
		ClockSpeed: *body.ClockSpeed,
		Memory:     *body.Memory,
	})
	if err != nil {
		writeError(w, logger, err)
		return
	}
	respondJSON(w, http.StatusOK, ProviderMessage{Message: "Specs updated", ProviderID: pid})
}

// SubmitRequest (POST /clients/{cid}/requests)
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	logger := zap.S().Named("handler:submit-request")

	cid, err := pathID(r, "cid")
	if err != nil {
		badRequest(w, "%v", err)
		return
	}
	var body CodeSubmission
	if err := decodeBody(r, &body); err != nil {
		badRequest(w, "%v", err)
		return
	}
	if body.Cores == nil || body.ClockSpeed == nil || body.Memory == nil || body.CodeText == nil {
		badRequest(w, "cores, clock_speed, memory and code_text are required")
		return
	}

	req, err := h.services.Ledger.CreateRequest(r.Context(), cid, service.Demand{
		Cores:      *body.Cores,
		ClockSpeed: *body.ClockSpeed,
		Memory:     *body.Memory,
	}, *body.CodeText)
	if err != nil {
		writeError(w, logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, RequestCreated{
		Message:   "Code request created",
		RequestID: req.ID,
		Status:    req.Status.String(),
	})
}

// ListClientRequests (GET /clients/{cid}/requests)
func (h *Handler) ListClientRequests(w http.ResponseWriter, r *http.Request) {
	logger := zap.S().Named("handler:list-client-requests")

	cid, err := pathID(r, "cid")
	if err != nil {
		badRequest(w, "%v", err)
		return
	}
	reqs, err := h.services.Ledger.ListRequestsForClient(r.Context(), cid)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	out := make([]ClientRequest, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, ClientRequest{
			ID:           req.ID,
			Cores:        req.Cores,
			ClockSpeed:   req.ClockSpeed,
			Memory:       req.Memory,
			Status:       req.Status.String(),
			ResultOutput: req.ResultOutput,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// ListEligibleRequests (GET /providers/{pid}/requests)
func (h *Handler) ListEligibleRequests(w http.ResponseWriter, r *http.Request) {
	logger := zap.S().Named("handler:list-eligible-requests")

	pid, err := pathID(r, "pid")
	if err != nil {
		badRequest(w, "%v", err)
		return
	}
	reqs, err := h.services.Matching.ListEligibleRequests(r.Context(), pid)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	out := make([]EligibleRequest, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, EligibleRequest{
			RequestID:  req.ID,
			ClientID:   req.ClientID,
			Cores:      req.Cores,
			ClockSpeed: req.ClockSpeed,
			Memory:     req.Memory,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// SubmitBid (POST /providers/{pid}/requests/{rid}/bids)
func (h *Handler) SubmitBid(w http.ResponseWriter, r *http.Request) {
	logger := zap.S().Named("handler:submit-bid")

	ids, err := pathIDs(r, "pid", "rid")
	if err != nil {
		badRequest(w, "%v", err)
		return
	}
	var body BidOffer
	if err := decodeBody(r, &body); err != nil {
		badRequest(w, "%v", err)
		return
	}
	if body.Price == nil {
		badRequest(w, "price is required")
		return
	}

	bid, err := h.services.Matching.SubmitBid(r.Context(), ids[0], ids[1], *body.Price)
	if err != nil {
		writeError(w, logger, err)
		return
	}
	respondJSON(w, http.StatusOK, BidSubmitted{Message: "Bid submitted", BidID: bid.ID})
}

// ListBids (GET /clients/{cid}/requests/{rid}/bids)
func (h *Handler) ListBids(w http.ResponseWriter, r *http.Request) {
	logger := zap.S().Named("handler:list-bids")

	ids, err := pathIDs(r, "cid", "rid")
	if err != nil {
		badRequest(w, "%v", err)
		return
	}
	bids, err := h.services.Ledger.ListBids(r.Context(), ids[0], ids[1])
	if err != nil {
		writeError(w, logger, err)
		return
	}

	out := make([]Bid, 0, len(bids))
	for _, bid := range bids {
		out = append(out, Bid{
			ID:         bid.ID,
			ProviderID: bid.ProviderID,
			Price:      bid.Price,
			Accepted:   bid.Accepted,
			RequestID:  bid.RequestID,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// AcceptBid (POST /clients/{cid}/requests/{rid}/bids/{bid_id}/accept)
func (h *Handler) AcceptBid(w http.ResponseWriter, r *http.Request) {
	logger := zap.S().Named("handler:accept-bid")

	ids, err := pathIDs(r, "cid", "rid", "bid_id")
	if err != nil {
		badRequest(w, "%v", err)
		return
	}
	bid, err := h.services.Matching.AcceptBid(r.Context(), ids[0], ids[1], ids[2])
	if err != nil {
		writeError(w, logger, err)
		return
	}
	respondJSON(w, http.StatusOK, ProviderMessage{
		Message:    "Bid accepted and job scheduled",
		ProviderID: bid.ProviderID,
	})
}

// PendingJobs (GET /execution/pending)
func (h *Handler) PendingJobs(w http.ResponseWriter, r *http.Request) {
	logger := zap.S().Named("handler:pending-jobs")

	jobs, err := h.services.Execution.PendingJobs(r.Context())
	if err != nil {
		writeError(w, logger, err)
		return
	}

	out := make([]PendingJob, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, PendingJob{
			RequestID:  job.RequestID,
			ProviderID: job.ProviderID,
			CodeText:   job.CodeText,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// PostResult (POST /execution/results)
func (h *Handler) PostResult(w http.ResponseWriter, r *http.Request) {
	logger := zap.S().Named("handler:post-result")

	var body JobResult
	if err := decodeBody(r, &body); err != nil {
		badRequest(w, "%v", err)
		return
	}
	if body.RequestID == nil || body.ProviderID == nil || body.Output == nil {
		badRequest(w, "request_id, provider_id and output are required")
		return
	}

	req, err := h.services.Matching.ReportResult(r.Context(), *body.RequestID, *body.ProviderID, *body.Output)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	completedAt := time.Now().UTC()
	if req.CompletedAt != nil {
		completedAt = req.CompletedAt.UTC()
	}
	respondJSON(w, http.StatusOK, ResultReceived{
		Message:     "Result received",
		RequestID:   req.ID,
		CompletedAt: completedAt.Format(completedAtLayout),
	})
}

// ProviderLogout (POST /providers/{pid}/logout)
func (h *Handler) ProviderLogout(w http.ResponseWriter, r *http.Request) {
	logger := zap.S().Named("handler:provider-logout")

	pid, err := pathID(r, "pid")
	if err != nil {
		badRequest(w, "%v", err)
		return
	}
	if err := h.services.Execution.Logout(r.Context(), pid); err != nil {
		writeError(w, logger, err)
		return
	}
	respondJSON(w, http.StatusOK, Message{Message: "Provider logged out and unavailable"})
}

// ProviderStatus (GET /providers/{pid}/status)
func (h *Handler) ProviderStatus(w http.ResponseWriter, r *http.Request) {
	logger := zap.S().Named("handler:provider-status")

	pid, err := pathID(r, "pid")
	if err != nil {
		badRequest(w, "%v", err)
		return
	}
	state, err := h.services.Execution.ProviderStatus(r.Context(), pid)
	if err != nil {
		writeError(w, logger, err)
		return
	}

	out := ProviderStatus{ProviderID: pid, Available: state.Provider.Available}
	if job := state.CurrentJob; job != nil {
		out.CurrentJob = &CurrentJob{
			RequestID:  job.ID,
			ClientID:   job.ClientID,
			Cores:      job.Cores,
			ClockSpeed: job.ClockSpeed,
			Memory:     job.Memory,
			CodeText:   job.CodeText,
		}
	}
	respondJSON(w, http.StatusOK, out)
}

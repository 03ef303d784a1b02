package v1

import (
	"github.com/go-chi/chi/v5"
)

// HandlerFromMux registers the marketplace API routes on r.
func HandlerFromMux(h *Handler, r chi.Router) chi.Router {
	r.Post("/login", h.Login)

	r.Post("/providers/{pid}/specs", h.PublishSpecs)
	r.Get("/providers/{pid}/requests", h.ListEligibleRequests)
	r.Post("/providers/{pid}/requests/{rid}/bids", h.SubmitBid)
	r.Post("/providers/{pid}/logout", h.ProviderLogout)
	r.Get("/providers/{pid}/status", h.ProviderStatus)

	r.Post("/clients/{cid}/requests", h.SubmitRequest)
	r.Get("/clients/{cid}/requests", h.ListClientRequests)
	r.Get("/clients/{cid}/requests/{rid}/bids", h.ListBids)
	r.Post("/clients/{cid}/requests/{rid}/bids/{bid_id}/accept", h.AcceptBid)

	r.Get("/execution/pending", h.PendingJobs)
	r.Post("/execution/results", h.PostResult)
	return r
}

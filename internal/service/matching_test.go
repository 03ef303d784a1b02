package service_test

import (
	"context"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dcm-project/hpc-marketplace/internal/events"
	"github.com/dcm-project/hpc-marketplace/internal/service"
	"github.com/dcm-project/hpc-marketplace/internal/store"
	"github.com/dcm-project/hpc-marketplace/internal/store/model"
)

func intPtr(v int) *int { return &v }
func floatPtr(v float64) *float64 { return &v }

var _ = Describe("Eligible", func() {
	provider := model.Provider{ID: 1, Cores: intPtr(4), ClockSpeed: floatPtr(2.0), Memory: intPtr(1024), Available: true}

	DescribeTable("capability filter",
		func(req model.Request, expected bool) {
			Expect(service.Eligible(provider, req)).To(Equal(expected))
		},
		Entry("fits on every dimension", model.Request{Cores: 2, ClockSpeed: 1.0, Memory: 512, Status: model.StatusOpen}, true),
		Entry("equal on every dimension", model.Request{Cores: 4, ClockSpeed: 2.0, Memory: 1024, Status: model.StatusBidding}, true),
		Entry("too many cores", model.Request{Cores: 5, ClockSpeed: 1.0, Memory: 512, Status: model.StatusOpen}, false),
		Entry("clock too fast", model.Request{Cores: 1, ClockSpeed: 2.5, Memory: 512, Status: model.StatusOpen}, false),
		Entry("too much memory", model.Request{Cores: 1, ClockSpeed: 1.0, Memory: 2048, Status: model.StatusOpen}, false),
		Entry("already scheduled", model.Request{Cores: 1, ClockSpeed: 1.0, Memory: 1, Status: model.StatusScheduled}, false),
		Entry("already done", model.Request{Cores: 1, ClockSpeed: 1.0, Memory: 1, Status: model.StatusDone}, false),
	)

	It("should match nothing for a provider without published specs", func() {
		bare := model.Provider{ID: 2, Available: true}
		Expect(service.Eligible(bare, model.Request{Status: model.StatusOpen})).To(BeFalse())
	})
})

var _ = Describe("MatchingEngine", func() {
	var (
		ctx       context.Context
		svcs      *service.Services
		st        store.Store
		publisher *recordingPublisher
		req       *model.Request
	)

	login := func(id uint, userType service.UserType) {
		Expect(svcs.Catalog.Login(ctx, id, userType)).To(Succeed())
	}
	provider := func(id uint) model.Provider {
		p, err := st.Providers().Get(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		return *p
	}
	request := func(id uint) model.Request {
		r, err := st.Requests().Get(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		return *r
	}

	BeforeEach(func() {
		ctx = context.Background()
		svcs, st, publisher = newServices()

		login(1, service.UserTypeClient)
		login(10, service.UserTypeProvider)
		login(11, service.UserTypeProvider)
		_, err := svcs.Catalog.PublishSpecs(ctx, 10, service.Specs{Cores: 4, ClockSpeed: 2.0, Memory: 1024})
		Expect(err).NotTo(HaveOccurred())
		_, err = svcs.Catalog.PublishSpecs(ctx, 11, service.Specs{Cores: 1, ClockSpeed: 1.0, Memory: 256})
		Expect(err).NotTo(HaveOccurred())

		req, err = svcs.Ledger.CreateRequest(ctx, 1, service.Demand{Cores: 2, ClockSpeed: 1.0, Memory: 512}, "int main(){}")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(st.Close()).To(Succeed())
	})

	Describe("ListEligibleRequests", func() {
		It("should show the request only to providers that can serve it", func() {
			reqs, err := svcs.Matching.ListEligibleRequests(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(reqs).To(HaveLen(1))
			Expect(reqs[0].ID).To(Equal(req.ID))

			reqs, err = svcs.Matching.ListEligibleRequests(ctx, 11)
			Expect(err).NotTo(HaveOccurred())
			Expect(reqs).To(BeEmpty())
		})

		It("should fail with Unavailable for a logged out provider", func() {
			Expect(svcs.Execution.Logout(ctx, 10)).To(Succeed())
			_, err := svcs.Matching.ListEligibleRequests(ctx, 10)
			Expect(err).To(MatchError(service.ErrUnavailable))
		})

		It("should fail with NotFound for an unknown provider", func() {
			_, err := svcs.Matching.ListEligibleRequests(ctx, 99)
			Expect(err).To(MatchError(service.ErrNotFound))
		})

		It("should return nothing to a provider that never published specs", func() {
			login(12, service.UserTypeProvider)
			reqs, err := svcs.Matching.ListEligibleRequests(ctx, 12)
			Expect(err).NotTo(HaveOccurred())
			Expect(reqs).To(BeEmpty())
		})

		It("should drop scheduled requests from discovery", func() {
			bid, err := svcs.Matching.SubmitBid(ctx, 10, req.ID, 5.0)
			Expect(err).NotTo(HaveOccurred())
			_, err = svcs.Matching.AcceptBid(ctx, 1, req.ID, bid.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = svcs.Catalog.PublishSpecs(ctx, 10, service.Specs{Cores: 4, ClockSpeed: 2.0, Memory: 1024})
			Expect(err).NotTo(HaveOccurred())
			reqs, err := svcs.Matching.ListEligibleRequests(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(reqs).To(BeEmpty())
		})
	})

	Describe("SubmitBid", func() {
		It("should move the request into BIDDING and keep it there", func() {
			_, err := svcs.Matching.SubmitBid(ctx, 10, req.ID, 5.0)
			Expect(err).NotTo(HaveOccurred())
			Expect(request(req.ID).Status).To(Equal(model.StatusBidding))

			_, err = svcs.Matching.SubmitBid(ctx, 11, req.ID, 4.0)
			Expect(err).NotTo(HaveOccurred())
			Expect(request(req.ID).Status).To(Equal(model.StatusBidding))

			Expect(publisher.transitions()).To(Equal([]events.Transition{
				events.TransitionCreated,
				events.TransitionBidding,
			}))
		})

		It("should record the bid unaccepted", func() {
			bid, err := svcs.Matching.SubmitBid(ctx, 10, req.ID, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(bid.Accepted).To(BeFalse())
			Expect(bid.RequestID).To(Equal(req.ID))
			Expect(bid.ProviderID).To(Equal(uint(10)))
		})

		It("should reject a negative price", func() {
			_, err := svcs.Matching.SubmitBid(ctx, 10, req.ID, -1)
			Expect(err).To(MatchError(service.ErrValidation))
			Expect(request(req.ID).Status).To(Equal(model.StatusOpen))
		})

		It("should fail for unknown providers and requests", func() {
			_, err := svcs.Matching.SubmitBid(ctx, 99, req.ID, 1)
			Expect(err).To(MatchError(service.ErrNotFound))
			_, err = svcs.Matching.SubmitBid(ctx, 10, req.ID+1, 1)
			Expect(err).To(MatchError(service.ErrNotFound))
		})

		It("should reject bids on scheduled requests", func() {
			bid, err := svcs.Matching.SubmitBid(ctx, 10, req.ID, 5.0)
			Expect(err).NotTo(HaveOccurred())
			_, err = svcs.Matching.AcceptBid(ctx, 1, req.ID, bid.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = svcs.Matching.SubmitBid(ctx, 11, req.ID, 1.0)
			Expect(err).To(MatchError(service.ErrInvalidState))

			bids, err := st.Bids().ListByRequest(ctx, req.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(bids).To(HaveLen(1))
		})
	})

	Describe("AcceptBid", func() {
		var bid *model.Bid

		BeforeEach(func() {
			var err error
			bid, err = svcs.Matching.SubmitBid(ctx, 10, req.ID, 5.0)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should schedule the request and reserve the provider", func() {
			other, err := svcs.Matching.SubmitBid(ctx, 11, req.ID, 3.0)
			Expect(err).NotTo(HaveOccurred())

			accepted, err := svcs.Matching.AcceptBid(ctx, 1, req.ID, bid.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(accepted.Accepted).To(BeTrue())
			Expect(accepted.ProviderID).To(Equal(uint(10)))

			Expect(request(req.ID).Status).To(Equal(model.StatusScheduled))
			Expect(provider(10).Available).To(BeFalse())
			Expect(provider(11).Available).To(BeTrue())

			bids, err := st.Bids().ListByRequest(ctx, req.ID)
			Expect(err).NotTo(HaveOccurred())
			for _, b := range bids {
				Expect(b.Accepted).To(Equal(b.ID == bid.ID), "bid %d", b.ID)
			}
			Expect(bids).To(ContainElement(HaveField("ID", other.ID)))

			Expect(publisher.transitions()).To(ContainElement(events.TransitionScheduled))
		})

		It("should reject accepting a second bid on the same request", func() {
			other, err := svcs.Matching.SubmitBid(ctx, 11, req.ID, 3.0)
			Expect(err).NotTo(HaveOccurred())
			_, err = svcs.Matching.AcceptBid(ctx, 1, req.ID, bid.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = svcs.Matching.AcceptBid(ctx, 1, req.ID, other.ID)
			Expect(err).To(MatchError(service.ErrInvalidState))
			Expect(provider(11).Available).To(BeTrue())
		})

		It("should reject a provider already running another job", func() {
			second, err := svcs.Ledger.CreateRequest(ctx, 1, service.Demand{Cores: 1, ClockSpeed: 1.0, Memory: 128}, "int main(){}")
			Expect(err).NotTo(HaveOccurred())
			secondBid, err := svcs.Matching.SubmitBid(ctx, 10, second.ID, 2.0)
			Expect(err).NotTo(HaveOccurred())

			_, err = svcs.Matching.AcceptBid(ctx, 1, req.ID, bid.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = svcs.Matching.AcceptBid(ctx, 1, second.ID, secondBid.ID)
			Expect(err).To(MatchError(service.ErrInvalidState))

			Expect(request(second.ID).Status).To(Equal(model.StatusBidding))
			b, err := st.Bids().Get(ctx, secondBid.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Accepted).To(BeFalse())
		})

		It("should hide requests of other clients", func() {
			login(2, service.UserTypeClient)
			_, err := svcs.Matching.AcceptBid(ctx, 2, req.ID, bid.ID)
			Expect(err).To(MatchError(service.ErrNotFound))
			Expect(request(req.ID).Status).To(Equal(model.StatusBidding))
		})

		It("should reject a bid placed on another request", func() {
			second, err := svcs.Ledger.CreateRequest(ctx, 1, service.Demand{Cores: 1, ClockSpeed: 1.0, Memory: 128}, "x")
			Expect(err).NotTo(HaveOccurred())

			_, err = svcs.Matching.AcceptBid(ctx, 1, second.ID, bid.ID)
			Expect(err).To(MatchError(service.ErrNotFound))
			Expect(request(second.ID).Status).To(Equal(model.StatusOpen))
		})

		It("should fail for unknown bids and clients", func() {
			_, err := svcs.Matching.AcceptBid(ctx, 1, req.ID, bid.ID+50)
			Expect(err).To(MatchError(service.ErrNotFound))
			_, err = svcs.Matching.AcceptBid(ctx, 77, req.ID, bid.ID)
			Expect(err).To(MatchError(service.ErrNotFound))
		})

		It("should let exactly one of two concurrent accepts win", func() {
			other, err := svcs.Matching.SubmitBid(ctx, 11, req.ID, 3.0)
			Expect(err).NotTo(HaveOccurred())

			var (
				wg   sync.WaitGroup
				errs = make([]error, 2)
			)
			for i, id := range []uint{bid.ID, other.ID} {
				wg.Add(1)
				go func(i int, id uint) {
					defer GinkgoRecover()
					defer wg.Done()
					_, errs[i] = svcs.Matching.AcceptBid(ctx, 1, req.ID, id)
				}(i, id)
			}
			wg.Wait()

			succeeded := 0
			for _, err := range errs {
				if err == nil {
					succeeded++
				} else {
					Expect(err).To(MatchError(service.ErrInvalidState))
				}
			}
			Expect(succeeded).To(Equal(1))

			bids, err := st.Bids().ListByRequest(ctx, req.ID)
			Expect(err).NotTo(HaveOccurred())
			accepted := 0
			for _, b := range bids {
				if b.Accepted {
					accepted++
				}
			}
			Expect(accepted).To(Equal(1))
		})
	})

	Describe("ReportResult", func() {
		var bid *model.Bid

		BeforeEach(func() {
			var err error
			bid, err = svcs.Matching.SubmitBid(ctx, 10, req.ID, 5.0)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should reject results for requests that were never scheduled", func() {
			_, err := svcs.Matching.ReportResult(ctx, req.ID, 10, "42\n")
			Expect(err).To(MatchError(service.ErrInvalidState))
		})

		Context("when the bid was accepted", func() {
			BeforeEach(func() {
				_, err := svcs.Matching.AcceptBid(ctx, 1, req.ID, bid.ID)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should complete the request and free the provider", func() {
				done, err := svcs.Matching.ReportResult(ctx, req.ID, 10, "42\n")
				Expect(err).NotTo(HaveOccurred())
				Expect(done.Status).To(Equal(model.StatusDone))
				Expect(*done.ResultOutput).To(Equal("42\n"))
				Expect(done.CompletedAt).NotTo(BeNil())
				Expect(provider(10).Available).To(BeTrue())

				Expect(publisher.transitions()).To(Equal([]events.Transition{
					events.TransitionCreated,
					events.TransitionBidding,
					events.TransitionScheduled,
					events.TransitionDone,
				}))
			})

			It("should accept an empty output", func() {
				done, err := svcs.Matching.ReportResult(ctx, req.ID, 10, "")
				Expect(err).NotTo(HaveOccurred())
				Expect(*done.ResultOutput).To(BeEmpty())
			})

			It("should reject a report from a provider that did not win the request", func() {
				_, err := svcs.Matching.ReportResult(ctx, req.ID, 11, "42\n")
				Expect(err).To(MatchError(service.ErrInvalidState))
				Expect(request(req.ID).Status).To(Equal(model.StatusScheduled))
			})

			It("should fail for unknown requests and providers", func() {
				_, err := svcs.Matching.ReportResult(ctx, req.ID+9, 10, "x")
				Expect(err).To(MatchError(service.ErrNotFound))
				_, err = svcs.Matching.ReportResult(ctx, req.ID, 99, "x")
				Expect(err).To(MatchError(service.ErrNotFound))
			})

			It("should treat a repeated identical report as a no-op", func() {
				first, err := svcs.Matching.ReportResult(ctx, req.ID, 10, "42\n")
				Expect(err).NotTo(HaveOccurred())

				_, err = svcs.Matching.SubmitBid(ctx, 10, req.ID, 1.0)
				Expect(err).To(MatchError(service.ErrInvalidState))

				again, err := svcs.Matching.ReportResult(ctx, req.ID, 10, "42\n")
				Expect(err).NotTo(HaveOccurred())
				Expect(again.CompletedAt.Equal(*first.CompletedAt)).To(BeTrue())
				Expect(publisher.transitions()).To(HaveLen(4))
			})

			It("should reject a repeated report with a different output", func() {
				_, err := svcs.Matching.ReportResult(ctx, req.ID, 10, "42\n")
				Expect(err).NotTo(HaveOccurred())

				_, err = svcs.Matching.ReportResult(ctx, req.ID, 10, "43\n")
				Expect(err).To(MatchError(service.ErrInvalidState))
				Expect(*request(req.ID).ResultOutput).To(Equal("42\n"))
			})
		})
	})
})

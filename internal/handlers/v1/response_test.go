package v1

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/dcm-project/hpc-marketplace/internal/service"
)

func withURLParams(params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

var _ = Describe("Responses", func() {
	DescribeTable("StatusFor",
		func(err error, status int, title string) {
			gotStatus, gotTitle := StatusFor(err)
			Expect(gotStatus).To(Equal(status))
			Expect(gotTitle).To(Equal(title))
		},
		Entry("not found", &service.Error{Kind: service.ErrNotFound, Detail: "x"}, http.StatusNotFound, "Not Found"),
		Entry("invalid state", &service.Error{Kind: service.ErrInvalidState}, http.StatusBadRequest, "Invalid State"),
		Entry("unavailable", service.ErrUnavailable, http.StatusBadRequest, "Unavailable"),
		Entry("validation", fmt.Errorf("wrapped: %w", service.ErrValidation), http.StatusBadRequest, "Validation Error"),
		Entry("anything else", errors.New("db down"), http.StatusInternalServerError, "Internal Server Error"),
	)

	Describe("WriteProblem", func() {
		It("should write an RFC 7807 document", func() {
			rec := httptest.NewRecorder()
			WriteProblem(rec, http.StatusNotFound, "Not Found", "request 3 not found")

			Expect(rec.Code).To(Equal(http.StatusNotFound))
			Expect(rec.Header().Get("Content-Type")).To(Equal("application/problem+json"))

			var problem Error
			Expect(json.Unmarshal(rec.Body.Bytes(), &problem)).To(Succeed())
			Expect(problem).To(Equal(Error{Type: "about:blank", Title: "Not Found", Status: 404, Detail: "request 3 not found"}))
		})
	})

	Describe("writeError", func() {
		It("should expose the detail of service errors", func() {
			rec := httptest.NewRecorder()
			writeError(rec, zap.S(), &service.Error{Kind: service.ErrInvalidState, Detail: "request 1 is DONE"})

			var problem Error
			Expect(json.Unmarshal(rec.Body.Bytes(), &problem)).To(Succeed())
			Expect(problem.Status).To(Equal(http.StatusBadRequest))
			Expect(problem.Detail).To(Equal("request 1 is DONE"))
		})

		It("should hide internal failures", func() {
			rec := httptest.NewRecorder()
			writeError(rec, zap.S(), errors.New("connection refused"))

			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
			Expect(rec.Body.String()).NotTo(ContainSubstring("connection refused"))
		})
	})

	Describe("decodeBody", func() {
		It("should reject malformed JSON", func() {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
			var body BidOffer
			Expect(decodeBody(req, &body)).To(MatchError(ContainSubstring("malformed request body")))
		})
	})
})

var _ = Describe("Path parameters", func() {
	It("should bind positive ids", func() {
		ids, err := pathIDs(withURLParams(map[string]string{"cid": "1", "rid": "25"}), "cid", "rid")
		Expect(err).NotTo(HaveOccurred())
		Expect(ids).To(Equal([]uint{1, 25}))
	})

	It("should reject zero", func() {
		_, err := pathID(withURLParams(map[string]string{"pid": "0"}), "pid")
		Expect(err).To(MatchError(ContainSubstring("must be positive")))
	})

	It("should reject non numeric ids", func() {
		_, err := pathID(withURLParams(map[string]string{"pid": "abc"}), "pid")
		Expect(err).To(MatchError(ContainSubstring("invalid format for parameter pid")))
	})
})

package apiserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	apiv1 "github.com/dcm-project/hpc-marketplace/api/v1"
	"github.com/dcm-project/hpc-marketplace/internal/config"
	handlers "github.com/dcm-project/hpc-marketplace/internal/handlers/v1"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	nethttpmiddleware "github.com/oapi-codegen/nethttp-middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

const gracefulShutdownTimeout = 5 * time.Second

type Server struct {
	cfg      *config.Config
	listener net.Listener
	handler  *handlers.Handler
}

func New(cfg *config.Config, listener net.Listener, handler *handlers.Handler) *Server {
	return &Server{
		cfg:      cfg,
		listener: listener,
		handler:  handler,
	}
}

// NewRouter builds the HTTP router: documentation and health endpoints plus
// the marketplace API behind OpenAPI request validation.
func NewRouter(handler *handlers.Handler) (http.Handler, error) {
	swagger, err := apiv1.GetSwagger()
	if err != nil {
		return nil, fmt.Errorf("failed to load swagger spec: %w", err)
	}
	// Match requests on path only, whatever host the document names.
	swagger.Servers = nil

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", handler.GetHealth)
	router.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(apiv1.RawSpec())
	})
	router.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	router.Group(func(r chi.Router) {
		r.Use(nethttpmiddleware.OapiRequestValidatorWithOptions(swagger, &nethttpmiddleware.Options{
			ErrorHandler: func(w http.ResponseWriter, message string, statusCode int) {
				title := "Validation Error"
				if statusCode == http.StatusNotFound {
					title = "Not Found"
				}
				handlers.WriteProblem(w, statusCode, title, message)
			},
		}))
		handlers.HandlerFromMux(handler, r)
	})

	return router, nil
}

func (s *Server) Run(ctx context.Context) error {
	router, err := NewRouter(s.handler)
	if err != nil {
		return err
	}

	srv := http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()
		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
	}()

	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

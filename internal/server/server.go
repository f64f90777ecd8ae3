package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"classmaster/internal/config"
	rtr "classmaster/internal/router"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang/glog"
	"github.com/rs/cors"
)

type Server struct {
	httpServer *http.Server
}

func Routes(h *rtr.Handlers) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.Logger,    // Log API Request Calls
		middleware.Recoverer, // A panic fails the request, not the process
	)

	router.Mount("/", rtr.HealthRoutes())

	router.Group(h.UserRoutes)
	router.Group(h.PromotionRoutes)
	router.Group(h.ClassRoutes)
	router.Group(h.PaymentRoutes)
	router.Group(h.AssignmentRoutes)
	router.Group(h.EvaluationRoutes)

	return router
}

func New(cfg *config.ServerConfig, h *rtr.Handlers) *Server {
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE"},
		AllowCredentials: true,
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%v", cfg.Port),
			Handler:           c.Handler(Routes(h)),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start blocks serving requests until Shutdown is called.
func (s *Server) Start() error {
	glog.Infof("Server is listening on %v\n", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/photon-storage/go-common/log"

	"github.com/photon-storage/photon-settlement/api/service"
)

// Server defines an instance of a server that handles the requests of
// wallets and the upload frontend.
type Server struct {
	port   int
	engine *gin.Engine
	http   *http.Server
}

// New returns a new instance of the server.
func New(port int, service *service.Service) *Server {
	server := &Server{
		port:   port,
		engine: gin.New(),
	}
	server.engine.Use(gin.Logger(), gin.Recovery())
	server.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           server.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	server.registerRouter(service)
	return server
}

func (s *Server) registerRouter(service *service.Service) {
	s.engine.GET("metrics", gin.WrapH(promhttp.Handler()))

	g := s.engine.Group("settlement/v1")
	g.Use(handleError())

	g.GET("ping", s.handle(service.Ping))
	g.GET("price", s.handle(service.Price))
	g.GET("quote", s.handle(service.Quote))

	g.POST("deposit/instruction", s.handle(service.DepositInstruction))
	g.POST("deposit/confirm", s.handle(service.ConfirmDeposit))
	g.POST("deposit/verify", s.handle(service.VerifyDeposit))

	g.GET("renewal/cost", s.handle(service.RenewalCost))
	g.POST("renewal/instruction", s.handle(service.RenewalInstruction))
	g.POST("renewal/confirm", s.handle(service.ConfirmRenewal))
	g.POST("renewal/verify", s.handle(service.VerifyRenewal))

	g.GET("uploads", s.handle(service.Uploads))
	g.GET("transactions", s.handle(service.Transactions))
	g.GET("escrow/balance", s.handle(service.EscrowBalance))
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run the server until Shutdown is called.
func (s *Server) Run() error {
	log.Info("api server listening", "port", s.port)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "run the server failed")
	}

	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

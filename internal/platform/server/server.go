package server

import (
	"fmt"
	"log"
	"net/http"

	"BitcaskDB/internal/platform/config"
	"BitcaskDB/internal/platform/server/handler/dbentry"
	"BitcaskDB/internal/platform/server/handler/health"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	httpAddr string
	engine   *chi.Mux
}

func NewServer(cfg config.Config, entryHandler *dbentry.DbEntryHandler) Server {
	srv := Server{
		engine:   chi.NewRouter(),
		httpAddr: fmt.Sprintf(":%d", cfg.ServerPort),
	}
	srv.engine.Use(middleware.Logger)
	srv.registerRoutes(entryHandler)
	return srv
}

func (s *Server) Run() error {
	log.Println("Server Running on:", s.httpAddr)
	return http.ListenAndServe(s.httpAddr, s.engine)
}

func (s *Server) registerRoutes(entryHandler *dbentry.DbEntryHandler) {
	s.engine.Get("/health", health.CheckHandler)
	s.engine.Get("/db/{key}", entryHandler.GetEntry)
	s.engine.Post("/db/{key}", entryHandler.SaveEntry)
	s.engine.Delete("/db/{key}", entryHandler.DeleteEntry)
}

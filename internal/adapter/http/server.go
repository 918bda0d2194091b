package http

import (
	"net/http"

	"github.com/bnema/reencoder/internal/adapter/http/middleware"
	"github.com/bnema/reencoder/internal/service"
)

type Server struct {
	mux        *http.ServeMux
	handler    http.Handler
	handlers   *Handlers
	sseHandler *SSEHandler
}

func NewServer(dispatch Dispatcher, eventBus *service.EventBus, maxUploadBytes int64, verifyUploads bool) *Server {
	mux := http.NewServeMux()

	s := &Server{
		mux:        mux,
		handler:    middleware.LogRequests(middleware.SecurityHeaders(mux)),
		handlers:   NewHandlers(dispatch, maxUploadBytes, verifyUploads),
		sseHandler: NewSSEHandler(eventBus, dispatch),
	}

	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handlers.Status())
	s.mux.HandleFunc("GET /dashboard", s.handlers.Dashboard())

	// Worker protocol
	s.mux.HandleFunc("POST /scan", s.handlers.Scan())
	s.mux.HandleFunc("GET /request", s.handlers.Request())
	s.mux.HandleFunc("POST /converted/{path...}", s.handlers.Converted())
	s.mux.HandleFunc("GET /files/{path...}", s.handlers.Files())

	s.mux.HandleFunc("GET /history", s.handlers.History())
	s.mux.HandleFunc("GET /events", s.sseHandler.Events())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Package api provides the HTTP REST API server for Stock Unlock.
//
// It exposes endpoints for chat turns, US quotes, NIFTY 500 lookups,
// market headlines, and WebSocket streaming.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/stockunlock/stockunlock/internal/chat"
	"github.com/stockunlock/stockunlock/internal/config"
	"github.com/stockunlock/stockunlock/internal/conversation"
	"github.com/stockunlock/stockunlock/internal/directory"
	"github.com/stockunlock/stockunlock/internal/llm"
	"github.com/stockunlock/stockunlock/internal/marketdata"
	"github.com/stockunlock/stockunlock/internal/news"
	"github.com/stockunlock/stockunlock/pkg/models"
)

// Chatter runs one assistant turn.
type Chatter interface {
	Respond(ctx context.Context, messages []models.ChatMessage) (*chat.TurnResult, error)
	RespondStream(ctx context.Context, messages []models.ChatMessage) (<-chan chat.TurnChunk, error)
}

// MarketAssembler fetches a complete US analysis record.
type MarketAssembler interface {
	Assemble(ctx context.Context, symbol string) (*models.USStockAnalysis, error)
}

// DirectoryLookup resolves NIFTY 500 queries.
type DirectoryLookup interface {
	Resolve(query string) *models.EquityRecord
	Len() int
}

// HeadlineSource serves market headlines.
type HeadlineSource interface {
	MarketHeadlines(ctx context.Context, market models.MarketMode, limit int) ([]models.NewsItem, error)
}

// Server is the HTTP API server.
type Server struct {
	router    chi.Router
	cfg       *config.Config
	chat      Chatter
	market    MarketAssembler
	directory DirectoryLookup
	headlines HeadlineSource // nil when news is disabled
	wsHub     *WSHub
}

// NewServer creates a configured API server with all routes and middleware.
// The LLM provider is optional: without an API key the chat endpoint returns
// deterministic canned replies.
func NewServer(cfg *config.Config) (*Server, error) {
	client := marketdata.NewTwelveData(cfg.MarketData.APIKey,
		marketdata.WithBaseURL(cfg.MarketData.BaseURL),
		marketdata.WithCacheTTL(time.Duration(cfg.MarketData.CacheTTLSec)*time.Second),
		marketdata.WithRateLimit(cfg.MarketData.RateLimitRPS),
	)
	assembler := marketdata.NewAssembler(client, cfg.MarketData.HistoryDays)
	dir := directory.Shared(cfg.Directory.CSVPath)

	resolver := conversation.NewResolver(conversation.Options{
		SymbolMinLen:     cfg.Conversation.SymbolMinLen,
		SymbolMaxLen:     cfg.Conversation.SymbolMaxLen,
		GreetingKeywords: cfg.Conversation.GreetingKeywords,
	})
	planner := conversation.NewPlanner(resolver, assembler, dir)

	var provider llm.Provider
	if cfg.LLM.OpenAIKey != "" {
		p, err := llm.NewOpenAIProvider(cfg.LLM.OpenAIKey, llm.WithOpenAIModel(cfg.LLM.Model))
		if err != nil {
			return nil, fmt.Errorf("LLM setup failed: %w", err)
		}
		provider = p
	}

	var feed *news.Feed
	var headlines HeadlineSource
	var companyNews chat.Headlines
	if cfg.News.Enabled {
		feed = news.NewFeed()
		headlines = feed
		companyNews = feed
	}

	svc := chat.NewService(planner, provider, companyNews, chat.Options{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Moderation:  cfg.LLM.Moderation,
		NewsMax:     cfg.News.MaxItems,
	})

	srv := &Server{
		cfg:       cfg,
		chat:      svc,
		market:    assembler,
		directory: dir,
		headlines: headlines,
		wsHub:     NewWSHub(),
	}
	srv.router = srv.buildRouter()
	return srv, nil
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go s.wsHub.Run()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/chat", s.handleChat)

		r.Get("/quote/{symbol}", s.handleQuote)

		r.Get("/lookup", s.handleLookup)

		r.Get("/news", s.handleNews)

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ChatRequest is the body for POST /api/v1/chat. Messages carry the full
// conversation so far, ending with the user message being answered.
type ChatRequest struct {
	Messages []models.ChatMessage `json:"messages"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":         "ok",
			"directory_size": s.directory.Len(),
			"news_enabled":   s.headlines != nil,
		},
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages are required")
		return
	}

	result, err := s.chat.Respond(r.Context(), req.Messages)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.wsHub.Broadcast(WSMessage{
		Type: "chat_reply",
		Data: map[string]interface{}{
			"market": result.Decision.Market,
			"action": result.Decision.Action,
		},
	})

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: result})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "symbol")))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	analysis, err := s.market.Assemble(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, marketdata.ErrSymbolNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("unknown symbol %s", symbol))
			return
		}
		writeError(w, http.StatusBadGateway, fmt.Sprintf("live data unavailable for %s", symbol))
		return
	}

	s.wsHub.Broadcast(WSMessage{
		Type: "quote_fetched",
		Data: map[string]interface{}{"symbol": symbol},
	})

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: analysis})
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	record := s.directory.Resolve(query)
	if record == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%q is not in the NIFTY 500 list", query))
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: record})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	if s.headlines == nil {
		writeError(w, http.StatusServiceUnavailable, "news feed is disabled")
		return
	}

	market := models.MarketMode(strings.ToUpper(r.URL.Query().Get("market")))
	if market != models.MarketUS && market != models.MarketIN {
		writeError(w, http.StatusBadRequest, "market must be US or IN")
		return
	}

	limit := s.cfg.News.MaxItems
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	items, err := s.headlines.MarketHeadlines(r.Context(), market, limit)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: items})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

// ============================================================
// WebSocket Hub
// ============================================================

// WSMessage is a message sent over WebSocket connections.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// WSHub manages WebSocket connections and message broadcasting.
type WSHub struct {
	mu         sync.RWMutex
	clients    map[*WSClient]bool
	broadcast  chan WSMessage
	register   chan *WSClient
	unregister chan *WSClient
}

// WSClient represents a single WebSocket connection.
type WSClient struct {
	hub  *WSHub
	send chan WSMessage
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WSMessage, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
	}
}

// Run starts the hub event loop.
func (h *WSHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// Slow client; disconnect
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends a message to all connected WebSocket clients. The message
// is dropped if the broadcast queue is full.
func (h *WSHub) Broadcast(msg WSMessage) {
	select {
	case h.broadcast <- msg:
	default:
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub.
func (h *WSHub) Register(client *WSClient) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *WSHub) Unregister(client *WSClient) {
	h.unregister <- client
}

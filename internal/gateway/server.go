package gateway

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/diogoviieira/register-track-bot/internal/conversation"
	"github.com/diogoviieira/register-track-bot/internal/log"
	"github.com/diogoviieira/register-track-bot/internal/middleware/ratelimit"
	"github.com/diogoviieira/register-track-bot/internal/middleware/security"
)

// Submitter queues an event for its owner. *conversation.Dispatcher
// satisfies it.
type Submitter interface {
	Submit(ctx context.Context, ev conversation.Event) (conversation.Reply, error)
}

// SessionCounter reports the number of live conversations.
type SessionCounter interface {
	Len() int
}

// Config tunes the chat server.
type Config struct {
	DateLayout     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	SubmitTimeout  time.Duration
	// TrustedProxies adds CIDRs, beyond private networks, whose X-Forwarded-For is believed.
	TrustedProxies []string
}

func DefaultConfig() Config {
	return Config{
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 4096,
		SubmitTimeout:  30 * time.Second,
	}
}

// Server exposes the engine over HTTP: a WebSocket chat endpoint, a plain
// JSON message endpoint and a health check.
type Server struct {
	cfg        Config
	echo       *echo.Echo
	dispatcher Submitter
	sessions   SessionCounter
	limiter    *ratelimit.Limiter
	renderer   Renderer
	upgrader   websocket.Upgrader
	log        *log.Logger
	detector   *security.Detector

	mu    sync.Mutex
	conns map[string]*connection
}

func NewServer(cfg Config, d Submitter, sessions SessionCounter, limiter *ratelimit.Limiter, logger *log.Logger) *Server {
	def := DefaultConfig()
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = def.SubmitTimeout
	}
	logger = logger.WithComponent(log.ComponentGateway)

	s := &Server{
		cfg:        cfg,
		dispatcher: d,
		sessions:   sessions,
		limiter:    limiter,
		renderer:   NewRenderer(cfg.DateLayout),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// owners are identified by the client, there is no cookie to protect
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log:   logger,
		conns: make(map[string]*connection),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	if extract, err := security.IPExtractor(cfg.TrustedProxies...); err != nil {
		logger.Warn("Ignoring trusted proxies", log.FieldError, err)
	} else {
		e.IPExtractor = extract
	}
	s.detector = security.NewDetector(logger)
	e.Pre(s.detector.Middleware)
	e.Use(middleware.Recover())
	e.Use(security.Headers(security.DefaultHeadersConfig()))
	e.Use(middleware.RequestID())
	e.Use(log.EchoMiddleware(logger))

	e.GET("/health", s.handleHealth)
	e.GET("/ws", s.handleWebSocket, limiter.Middleware(func(c echo.Context) string { return "ip:" + c.RealIP() }))
	e.POST("/api/messages", s.handleMessage)
	s.echo = e
	return s
}

// Handler returns the HTTP handler, for tests and custom listeners.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.log.Info("Chat gateway listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and closes open chat connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.echo.Shutdown(ctx)

	s.mu.Lock()
	conns := make([]*connection, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		c.close()
	}
	return err
}

// Connections returns the number of open WebSocket connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

type healthResponse struct {
	Status      string `json:"status"`
	Sessions    int    `json:"sessions"`
	Connections int    `json:"connections"`
	Blocked     int64  `json:"blocked_requests"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status:      "ok",
		Sessions:    s.sessions.Len(),
		Connections: s.Connections(),
		Blocked:     s.detector.Blocked(),
	})
}

// handleMessage is the request/response form of the chat protocol.
func (s *Server) handleMessage(c echo.Context) error {
	var msg ClientMessage
	if err := c.Bind(&msg); err != nil {
		return c.JSON(http.StatusBadRequest, errorMessage("", ErrorCodeInvalidMessage, "invalid JSON message"))
	}
	if msg.Type == "" {
		msg.Type = TypeMessage
	}

	out := s.process(c.Request().Context(), msg)
	status := http.StatusOK
	switch out.Code {
	case ErrorCodeInvalidMessage, ErrorCodeOwnerRequired:
		status = http.StatusBadRequest
	case ErrorCodeRateLimited:
		status = http.StatusTooManyRequests
	case ErrorCodeUnavailable:
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, out)
}

// process runs one client message through the engine.
func (s *Server) process(ctx context.Context, msg ClientMessage) ServerMessage {
	if msg.Type != TypeMessage {
		return errorMessage(msg.Owner, ErrorCodeInvalidMessage, "unknown message type: "+msg.Type)
	}
	if msg.Owner == "" {
		return errorMessage("", ErrorCodeOwnerRequired, "owner is required")
	}
	if !s.limiter.Allow(msg.Owner) {
		s.log.WarnContext(ctx, "Owner rate limited", log.FieldOwner, msg.Owner)
		return errorMessage(msg.Owner, ErrorCodeRateLimited, "Too many messages. Please slow down.")
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.SubmitTimeout)
	defer cancel()

	reply, err := s.dispatcher.Submit(ctx, Classify(msg.Owner, msg.Text))
	if err != nil {
		s.log.ErrorContext(ctx, "Event not handled", log.FieldOwner, msg.Owner, log.FieldError, err)
		return errorMessage(msg.Owner, ErrorCodeUnavailable, "The bot is not available right now. Please try again.")
	}

	rendered := s.renderer.Render(reply)
	return ServerMessage{Type: TypeReply, Owner: msg.Owner, Text: rendered.Text, Choices: rendered.Choices}
}

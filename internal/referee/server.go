// Package referee is a reference tic-tac-toe server. It pairs players in
// arrival order and enforces the rules the client relies on.
package referee

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/tictactoe/internal/config"
	"github.com/lawnchairsociety/tictactoe/internal/logger"
	"github.com/lawnchairsociety/tictactoe/internal/protocol"
	"github.com/lawnchairsociety/tictactoe/internal/transport"
)

// Server accepts players over TCP and WebSocket and referees their games.
type Server struct {
	config      *config.ServerConfig
	connLimiter *ConnLimiter
	onResult    func(Result)

	mu         sync.Mutex
	listener   net.Listener
	httpServer *http.Server
	seats      map[*seat]struct{}

	lobby        chan *seat
	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// NewServer creates a server; nothing listens until Listen or StartWebSocket.
func NewServer(cfg *config.ServerConfig) *Server {
	if cfg == nil {
		cfg = config.DefaultServerConfig()
	}
	s := &Server{
		config:      cfg,
		connLimiter: NewConnLimiter(cfg.Connections),
		seats:       make(map[*seat]struct{}),
		lobby:       make(chan *seat),
		shutdown:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.matchmake()
	return s
}

// OnResult registers a callback invoked after every finished match.
// Must be called before any connection is accepted.
func (s *Server) OnResult(fn func(Result)) {
	s.onResult = fn
}

// Listen binds the TCP listener and returns its address.
func (s *Server) Listen(address string) (net.Addr, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to start server: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	logger.Info("Server listening", "address", listener.Addr().String())
	return listener.Addr(), nil
}

// Serve accepts connections until Shutdown.
func (s *Server) Serve() error {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener == nil {
		return errors.New("server is not listening")
	}

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return nil
			default:
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				logger.Error("Error accepting connection", "error", err)
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}

		if !s.spawn(func() { s.handleConnection(conn) }) {
			conn.Close()
			return nil
		}
	}
}

// Start listens on address and serves until Shutdown.
func (s *Server) Start(address string) error {
	if _, err := s.Listen(address); err != nil {
		return err
	}
	return s.Serve()
}

func (s *Server) handleConnection(conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()
	ip := extractIP(remoteAddr)

	if !s.connLimiter.TryAcquire(ip) {
		logger.Warning("Connection rejected - limit exceeded",
			"remote_addr", remoteAddr,
			"ip", ip)
		conn.Close()
		return
	}
	defer s.connLimiter.Release(ip)

	s.play(transport.NewTCPConn(conn, transport.DefaultMaxLineLength))
}

// Handler returns the WebSocket upgrade handler, mounted at the configured
// path by StartWebSocket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.config.WebSocket.Path, s.handleWebSocketUpgrade)
	return mux
}

// StartWebSocket serves WebSocket players on address until Shutdown.
func (s *Server) StartWebSocket(address string) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	logger.Info("WebSocket server listening", "address", address, "path", s.config.WebSocket.Path)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleWebSocketUpgrade(w http.ResponseWriter, r *http.Request) {
	clientIP := realIP(r)

	if !s.connLimiter.TryAcquire(clientIP) {
		logger.Warning("WebSocket connection rejected - limit exceeded",
			"remote_addr", r.RemoteAddr,
			"client_ip", clientIP)
		http.Error(w, "Too many connections. Please try again later.", http.StatusTooManyRequests)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := s.config.WebSocket.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("WebSocket connection rejected - origin not allowed",
					"origin", origin,
					"host", r.Host,
					"remote_addr", r.RemoteAddr)
			}
			return allowed
		},
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", "error", err)
		s.connLimiter.Release(clientIP)
		return
	}

	ok := s.spawn(func() {
		defer s.connLimiter.Release(clientIP)
		s.play(transport.NewWebSocketConn(wsConn, s.config.WebSocket.MaxMessageSize))
	})
	if !ok {
		wsConn.Close()
		s.connLimiter.Release(clientIP)
	}
}

// play runs one player's connection: handshake, lobby, then wait until the
// match (or shutdown) closes the seat.
func (s *Server) play(conn transport.Conn) {
	p := newSeat(conn)
	if !s.track(p) {
		p.close()
		return
	}
	defer s.untrack(p)
	defer p.close()

	go p.readLoop()

	logger.Info("Client connected", "remote_addr", p.String())

	if err := s.handshake(p); err != nil {
		logger.Info("Handshake failed", "remote_addr", p.String(), "error", err)
		return
	}

	select {
	case s.lobby <- p:
	case <-s.shutdown:
		return
	}

	<-p.done
	logger.Info("Client disconnected", "remote_addr", p.String())
}

// handshake pings the client and waits for the echo.
func (s *Server) handshake(p *seat) error {
	if err := p.send(protocol.Handshake); err != nil {
		return err
	}

	timeout := s.config.Game.HandshakeTimeout
	if timeout <= 0 {
		timeout = config.DefaultServerConfig().Game.HandshakeTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case line, ok := <-p.lines:
		if !ok {
			return errors.New("disconnected during handshake")
		}
		if line != string(protocol.Handshake) {
			return fmt.Errorf("unexpected handshake reply %q", line)
		}
		return nil
	case <-timer.C:
		return errors.New("handshake timed out")
	case <-s.shutdown:
		return errStopped
	}
}

// matchmake pairs players in arrival order.
func (s *Server) matchmake() {
	defer s.wg.Done()

	var waiting *seat
	for {
		// Nil channel blocks when nobody is waiting.
		var waitingLines <-chan string
		if waiting != nil {
			waitingLines = waiting.lines
		}

		select {
		case <-s.shutdown:
			return

		case line, ok := <-waitingLines:
			if !ok {
				logger.Info("Waiting player left", "remote_addr", waiting.String())
				waiting = nil
				continue
			}
			logger.Debug("Ignoring line before match", "remote_addr", waiting.String(), "line", line)

		case p := <-s.lobby:
			if waiting == nil || isGone(waiting) {
				waiting = p
				continue
			}
			x, o := waiting, p
			waiting = nil
			if !s.spawn(func() { s.runMatch(x, o) }) {
				return
			}
		}
	}
}

// spawn runs fn in a goroutine that Shutdown waits for. It refuses once
// shutdown has begun.
func (s *Server) spawn(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.shutdown:
		return false
	default:
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
	return true
}

func (s *Server) track(p *seat) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.shutdown:
		return false
	default:
	}
	s.seats[p] = struct{}{}
	return true
}

func (s *Server) untrack(p *seat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seats, p)
}

// Shutdown stops accepting players, closes every connection and waits for
// running matches to unwind. Safe to call more than once.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		close(s.shutdown)
		if s.listener != nil {
			s.listener.Close()
		}
		httpServer := s.httpServer
		for p := range s.seats {
			p.close()
		}
		s.mu.Unlock()

		if httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			httpServer.Shutdown(ctx)
			cancel()
		}

		s.wg.Wait()
		logger.Info("Server shutdown complete")
	})
}

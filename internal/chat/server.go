package chat

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/Saumya-531/ChatApp/internal/config"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Server owns the registry, the TCP accept loop, and the HTTP endpoint that
// serves /ws, /metrics, and /healthz.
type Server struct {
	cfg      config.Config
	logger   *zap.Logger
	reg      *Registry
	listener net.Listener
	httpLn   net.Listener
	httpSrv  *http.Server
}

func NewServer(cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:    cfg,
		logger: logger,
		reg:    NewRegistry(cfg.EventBuffer, cfg.MaxMessageSize, logger),
	}
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.ListenAddress, err)
	}
	s.listener = ln

	go s.reg.Run()
	go s.acceptLoop(ln)

	if err := s.startHTTP(); err != nil {
		ln.Close()
		s.reg.Stop()
		s.reg.Wait()
		return err
	}

	s.logger.Info("server started", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr reports the chat listener address, useful when listening on :0.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// HTTPAddr reports the HTTP listener address, or nil when HTTP is disabled.
func (s *Server) HTTPAddr() net.Addr {
	if s.httpLn == nil {
		return nil
	}
	return s.httpLn.Addr()
}

func (s *Server) Stop() {
	s.logger.Info("shutting down")

	if s.listener != nil {
		s.listener.Close()
	}
	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGracePeriod)
		defer cancel()
		if err := s.httpSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("http shutdown", zap.Error(err))
		}
	}

	s.reg.Stop()
	s.reg.Wait()

	s.logger.Info("shutdown complete")
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			// Listener closed: normal shutdown path.
			return
		}

		s.logger.Info("client connected", zap.String("addr", conn.RemoteAddr().String()))
		go s.runSession(NewSession(NewTCPConn(conn), s.cfg.ClientBuffer))
	}
}

func (s *Server) runSession(sess *Session) {
	ConnectedSessions.Inc()
	defer ConnectedSessions.Dec()

	HandleSession(sess, s.reg.Events(), s.logger)
	s.logger.Info("connection closed",
		zap.String("session", sess.ID),
		zap.String("username", sess.Username))
}

func (s *Server) startHTTP() error {
	if s.cfg.HTTPAddress == "" {
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.HTTPAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.HTTPAddress, err)
	}
	s.httpLn = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.websocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.httpSrv = &http.Server{Handler: mux}
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("http server stopped", zap.Error(err))
		}
	}()

	s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// websocketHandler upgrades the request and runs the same protocol state
// machine TCP sessions use, one text frame per line.
func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	s.logger.Info("websocket client connected", zap.String("addr", r.RemoteAddr))
	go s.runSession(NewSession(NewWebsocketConn(conn), s.cfg.ClientBuffer))
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nkiryanov/smsorders/internal/db"
	"github.com/nkiryanov/smsorders/internal/handlers"
	"github.com/nkiryanov/smsorders/internal/logger"
	"github.com/nkiryanov/smsorders/internal/repository/postgres"
	"github.com/nkiryanov/smsorders/internal/service/auth"
	"github.com/nkiryanov/smsorders/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/smsorders/internal/service/order"
	"github.com/nkiryanov/smsorders/internal/service/provision"
	"github.com/nkiryanov/smsorders/internal/service/user"
)

const shutdownTimeout = 5 * time.Second

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	pool   *pgxpool.Pool
	logger logger.Logger
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	l, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	storage := postgres.NewStorage(pool)

	provider, err := provision.NewClient(provision.Config{
		URL:           c.OrderAPI,
		Timeout:       c.OrderAPITimeout,
		RatePerSecond: c.OrderAPIRate,
	}, l.WithGroup("provision"))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("error while creating provision client. Err: %w", err)
	}

	tokenManager, err := tokenmanager.New(tokenmanager.Config{SecretKey: c.SecretKey}, storage)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}
	userService := user.NewService(user.DefaultHasher, storage)
	orderService := order.NewService(storage, provider, l.WithGroup("order"))
	authService, err := auth.NewService(auth.Config{}, tokenManager, userService, storage)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	mux := handlers.NewRouter(authService, orderService, userService, c.SMSSenderKey, l)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		pool:       pool,
		logger:     l,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	defer s.pool.Close()

	httpServer := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

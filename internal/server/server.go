// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/oliverandrich/crypto-tracker/internal/config"
	"codeberg.org/oliverandrich/crypto-tracker/internal/database"
	"codeberg.org/oliverandrich/crypto-tracker/internal/handlers"
	"codeberg.org/oliverandrich/crypto-tracker/internal/i18n"
	"codeberg.org/oliverandrich/crypto-tracker/internal/middleware"
	"codeberg.org/oliverandrich/crypto-tracker/internal/repository"
	"codeberg.org/oliverandrich/crypto-tracker/internal/services/auth"
	"codeberg.org/oliverandrich/crypto-tracker/internal/services/email"
	"codeberg.org/oliverandrich/crypto-tracker/internal/services/market"
	"codeberg.org/oliverandrich/crypto-tracker/internal/services/token"
	"codeberg.org/oliverandrich/crypto-tracker/internal/services/watchlist"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

// Services bundles everything the routes depend on.
type Services struct {
	Repo    *repository.Repository
	Auth    *auth.Service
	Tokens  *token.Issuer
	Lists   *watchlist.Service
	Gateway *market.Gateway
}

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
		"env", cfg.Server.Env,
	)

	// Database (migrations run on open)
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// i18n
	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	svc, err := newServices(cfg, repository.New(db))
	if err != nil {
		return err
	}
	defer svc.Auth.Wait()

	if n, pruneErr := svc.Repo.DeleteExpiredVerificationTokens(ctx); pruneErr != nil {
		slog.Warn("failed to prune expired tokens", "error", pruneErr)
	} else if n > 0 {
		slog.Info("expired_tokens_pruned", "count", n)
	}

	e := newEcho(cfg, svc)

	// Start server
	return startWithGracefulShutdown(e, cfg)
}

// newServices builds the service graph on top of repo.
func newServices(cfg *config.Config, repo *repository.Repository) (*Services, error) {
	issuer, err := token.NewIssuer(&cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}

	mailer, err := email.NewFromConfig(&cfg.SMTP, cfg.Server.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create email service: %w", err)
	}

	return &Services{
		Repo:    repo,
		Auth:    auth.NewService(repo, mailer, issuer),
		Tokens:  issuer,
		Lists:   watchlist.NewService(repo),
		Gateway: market.NewGateway(market.NewCoinGecko(cfg.Market), repo),
	}, nil
}

// newEcho creates the echo instance with middleware and routes.
func newEcho(cfg *config.Config, svc *Services) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handlers.HTTPErrorHandler

	setupMiddleware(e, cfg)
	setupRoutes(e, cfg, svc)
	return e
}

func setupRoutes(e *echo.Echo, cfg *config.Config, svc *Services) {
	h := handlers.New(svc.Repo, cfg.Server.Env)
	users := handlers.NewUser(svc.Auth)
	crypto := handlers.NewCrypto(svc.Gateway, svc.Repo)
	lists := handlers.NewLists(svc.Lists)

	e.GET("/health", h.Health)

	// Accounts
	u := e.Group("/user")
	u.POST("/register", users.Register)
	u.POST("/login", users.Login)
	u.GET("/verify-email", users.VerifyEmail)
	u.POST("/forgot-password", users.ForgotPassword)
	u.POST("/reset-password", users.ResetPassword)

	// Catalog
	c := e.Group("/crypto")
	c.POST("/search", crypto.Search)
	c.GET("/top", crypto.Top)
	c.GET("/historical", crypto.Historical)
	c.POST("/save-crypto", crypto.SaveCrypto)
	c.POST("/save-top", crypto.SaveTop)
	c.GET("/saved-cryptos", crypto.SavedCryptos)

	// Watchlists
	l := c.Group("", middleware.RequireAuth(svc.Tokens))
	l.POST("/create-list", lists.Create)
	l.GET("/get-list", lists.GetAll)
	l.GET("/findListBy/:listId", lists.Get)
	l.POST("/add-to-list/:listId", lists.AddMembers)
	l.DELETE("/remove-from-list/:listId/:cryptoId", lists.RemoveMember)
	l.PUT("/list-note/:listId/:cryptoId", lists.UpdateNote)
	l.PUT("/rename-list/:listId", lists.Rename)
	l.DELETE("/delete-list/:listId", lists.Delete)
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	// Setup TLS
	tlsResult, err := SetupTLS(cfg)
	if err != nil {
		return fmt.Errorf("TLS setup failed: %w", err)
	}

	// Channel for server errors
	errChan := make(chan error, 2)

	// HTTP redirect server for ACME mode
	var httpServer *http.Server

	switch tlsResult.Mode {
	case TLSModeOff:
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeACME:
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, ":443", tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		// HTTP-01 challenges and redirects on :80
		httpServer = &http.Server{
			Addr:              ":80",
			Handler:           tlsResult.HTTPHandler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("HTTP→HTTPS redirect active", "addr", ":80")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeManual:
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, addr, tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}

	// Wait for interrupt signal or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown main server", "error", err)
	}

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown HTTP redirect server", "error", err)
		}
	}

	slog.Info("server stopped")
	return nil
}

// startTLSServer starts the Echo server with a custom TLS configuration.
func startTLSServer(e *echo.Echo, addr string, tlsConfig *tls.Config) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return err
	}
	e.TLSListener = tls.NewListener(ln, tlsConfig)
	e.TLSServer.TLSConfig = tlsConfig
	return e.Server.Serve(e.TLSListener)
}

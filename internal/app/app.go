// Package app provides application initialization and dependency
// wiring: the database pool, the Genkit model runtime, the stores, the
// chat relay, and the HTTP server, assembled from configuration.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sago-labs/sago/internal/agent"
	"github.com/sago-labs/sago/internal/api"
	"github.com/sago-labs/sago/internal/config"
	"github.com/sago-labs/sago/internal/relay"
	"github.com/sago-labs/sago/internal/session"
)

// App is the application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit   *genkit.Genkit
	DBPool   *pgxpool.Pool
	Sessions *session.Store
	Agents   *agent.Store
	Relay    *relay.Relay
	Server   *api.Server

	dbCleanup func()
}

// Close releases all resources. Safe to call on a partially
// initialized App.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}
	if a.dbCleanup != nil {
		a.dbCleanup()
		a.dbCleanup = nil
	}
	return nil
}

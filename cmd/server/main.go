/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Township economy server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load environment configuration
  2. Parse town definition (file or built-in preset)
  3. Initialize SQLite store
  4. Wire engine, establishment services, and access keeper
  5. Start decay scheduler and HTTP server with graceful shutdown

ENVIRONMENT:
  TOWNSHIP_PORT                    HTTP server port (default: 8080)
  TOWNSHIP_DB_PATH                 SQLite database path (default: township.db)
  TOWNSHIP_TOKEN_KEY               Capability token signing key (required)
  TOWNSHIP_TOKEN_TTL               Elevation grant lifetime (default: 12h)
  TOWNSHIP_TOWN_CONFIG             Town JSON path (default: built-in preset)
  TOWNSHIP_HUNGER_DECAY_INTERVAL   Hunger tick (default: 30m)
  TOWNSHIP_HEALTH_DECAY_INTERVAL   Starvation tick (default: 3m)
  TOWNSHIP_DECAY_ENABLED           Run the decay scheduler (default: true)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the decay scheduler
  4. Close database connection
  5. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Environment parsing
  - factory/town.go: Town definition parsing
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/yunhopapisaoko-dot/township/access"
	"github.com/yunhopapisaoko-dot/township/api"
	"github.com/yunhopapisaoko-dot/township/bank"
	"github.com/yunhopapisaoko-dot/township/config"
	"github.com/yunhopapisaoko-dot/township/engine"
	"github.com/yunhopapisaoko-dot/township/factory"
	"github.com/yunhopapisaoko-dot/township/hospital"
	"github.com/yunhopapisaoko-dot/township/roulette"
	"github.com/yunhopapisaoko-dot/township/store/sqlite"
	"github.com/yunhopapisaoko-dot/township/tavern"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration error")
	}

	// Town definition
	townJSON := []byte(factory.DefaultTownJSON())
	if cfg.TownConfigPath != "" {
		townJSON, err = os.ReadFile(cfg.TownConfigPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.TownConfigPath).Msg("failed to read town config")
		}
	}
	town, err := factory.ParseTown(townJSON)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid town config")
	}

	// Store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer store.Close()

	// Engine and establishment services
	ledger := engine.NewLedger(store)
	reqEngine := engine.NewRequestEngine(store, bank.AccountCoins)
	gate := engine.NewCooldownGate(store)

	table, err := town.OutcomeTable()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid roulette table")
	}

	handler := &api.Handler{
		Store:        store,
		Ledger:       ledger,
		Engine:       reqEngine,
		Bank:         bank.NewService(ledger, reqEngine, town.DocumentFee),
		Hospital:     hospital.NewService(ledger, reqEngine, gate),
		Tavern:       tavern.NewService(ledger, reqEngine, town.Menu),
		Roulette:     roulette.NewService(ledger, gate, table, &spinHistory{store: store}),
		Keeper:       access.NewKeeper(town.Scopes, []byte(cfg.TokenKey), cfg.TokenTTL),
		Log:          log,
		OpeningGrant: town.OpeningGrant,
	}

	// Decay scheduler
	scheduler := api.NewStatDecayScheduler(store, ledger, log)
	scheduler.HungerInterval = cfg.HungerDecayInterval
	scheduler.HealthInterval = cfg.HealthDecayInterval
	scheduler.Enabled = cfg.DecayEnabled
	scheduler.Start()
	defer scheduler.Stop()

	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// spinHistory adapts the sqlite store to the roulette history interface.
type spinHistory struct {
	store *sqlite.Store
}

func (h *spinHistory) SaveSpin(ctx context.Context, rec roulette.SpinRecord) error {
	return h.store.SaveSpinOutcome(ctx, sqlite.SpinOutcome{
		ID:         rec.ID,
		ActorID:    string(rec.ActorID),
		Category:   rec.Outcome.Category,
		PrizeID:    rec.Outcome.Prize.ID,
		PrizeKind:  rec.Outcome.Prize.Kind,
		PrizeLabel: rec.Outcome.Prize.Label,
		PrizeValue: rec.Outcome.Prize.Value,
		DrawnAt:    rec.DrawnAt,
	})
}

func (h *spinHistory) SpinsByActor(ctx context.Context, actorID engine.ActorID, limit int) ([]roulette.SpinRecord, error) {
	outcomes, err := h.store.SpinOutcomesByActor(ctx, string(actorID), limit)
	if err != nil {
		return nil, err
	}
	recs := make([]roulette.SpinRecord, len(outcomes))
	for i, o := range outcomes {
		recs[i] = roulette.SpinRecord{
			ID:      o.ID,
			ActorID: engine.ActorID(o.ActorID),
			Outcome: engine.Outcome{
				Category: o.Category,
				Prize: engine.Prize{
					ID:    o.PrizeID,
					Label: o.PrizeLabel,
					Kind:  o.PrizeKind,
					Value: o.PrizeValue,
				},
			},
			DrawnAt: o.DrawnAt,
		}
	}
	return recs, nil
}

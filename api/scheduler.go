/*
scheduler.go - Automated stat decay scheduler

PURPOSE:
  Periodically decays every actor's stats, replacing the client-side timers
  of the chat frontend with one server-authoritative loop:
  - Every hunger tick: hunger -1 for every actor (floored at 0)
  - Every health tick: health -1, but only for actors at 0 hunger

DESIGN:
  - Two tickers in one background goroutine with a stop channel
  - Decay entries go through the ledger like every other mutation, so
    the transaction history shows exactly when and why a stat dropped
  - DebitDownTo makes ticks at the floor a no-op rather than an error

CONFIGURATION:
  - HungerInterval: default 30m
  - HealthInterval: default 3m
  - Enabled: whether the scheduler runs at all

USAGE:
  scheduler := NewStatDecayScheduler(store, ledger, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - engine/ledger.go: DebitDownTo semantics
  - cmd/server/main.go: Lifecycle wiring
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yunhopapisaoko-dot/township/engine"
	"github.com/yunhopapisaoko-dot/township/hospital"
	"github.com/yunhopapisaoko-dot/township/store/sqlite"
	"github.com/yunhopapisaoko-dot/township/tavern"
)

// StatDecayScheduler handles periodic hunger and health decay.
type StatDecayScheduler struct {
	Store          *sqlite.Store
	Ledger         engine.Ledger
	HungerInterval time.Duration
	HealthInterval time.Duration
	Enabled        bool
	Log            zerolog.Logger

	hungerTicker *time.Ticker
	healthTicker *time.Ticker
	stop         chan bool
	wg           sync.WaitGroup
	mu           sync.Mutex
}

// NewStatDecayScheduler creates a new scheduler with default intervals.
func NewStatDecayScheduler(store *sqlite.Store, ledger engine.Ledger, log zerolog.Logger) *StatDecayScheduler {
	return &StatDecayScheduler{
		Store:          store,
		Ledger:         ledger,
		HungerInterval: 30 * time.Minute,
		HealthInterval: 3 * time.Minute,
		Enabled:        true,
		Log:            log,
		stop:           make(chan bool),
	}
}

// Start begins the scheduler.
func (s *StatDecayScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.Log.Info().Msg("decay scheduler disabled, not starting")
		return
	}

	s.hungerTicker = time.NewTicker(s.HungerInterval)
	s.healthTicker = time.NewTicker(s.HealthInterval)
	s.wg.Add(1)

	go s.run()

	s.Log.Info().
		Dur("hunger_interval", s.HungerInterval).
		Dur("health_interval", s.HealthInterval).
		Msg("decay scheduler started")
}

// Stop stops the scheduler and waits for the loop to exit.
func (s *StatDecayScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hungerTicker != nil {
		s.hungerTicker.Stop()
		s.healthTicker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.Log.Info().Msg("decay scheduler stopped")
	}
}

func (s *StatDecayScheduler) run() {
	defer s.wg.Done()

	for {
		select {
		case <-s.hungerTicker.C:
			s.tickHunger()
		case <-s.healthTicker.C:
			s.tickHealth()
		case <-s.stop:
			return
		}
	}
}

// tickHunger drops hunger by one point for every actor.
func (s *StatDecayScheduler) tickHunger() {
	ctx := context.Background()

	actors, err := s.Store.ListActors(ctx)
	if err != nil {
		s.Log.Error().Err(err).Msg("decay: failed to list actors")
		return
	}

	for _, a := range actors {
		err := s.Ledger.DebitDownTo(ctx, engine.ActorID(a.ID), tavern.AccountHunger,
			engine.Points(1), engine.Points(0), engine.TxDecay, "hunger decay")
		if err != nil {
			s.Log.Error().Err(err).Str("actor_id", a.ID).Msg("decay: hunger tick failed")
		}
	}
}

// tickHealth drops health by one point, but only for starving actors.
func (s *StatDecayScheduler) tickHealth() {
	ctx := context.Background()

	actors, err := s.Store.ListActors(ctx)
	if err != nil {
		s.Log.Error().Err(err).Msg("decay: failed to list actors")
		return
	}

	for _, a := range actors {
		actorID := engine.ActorID(a.ID)

		hunger, err := s.Ledger.BalanceOf(ctx, actorID, tavern.AccountHunger)
		if err != nil {
			s.Log.Error().Err(err).Str("actor_id", a.ID).Msg("decay: hunger read failed")
			continue
		}
		if hunger.IsPositive() {
			continue
		}

		err = s.Ledger.DebitDownTo(ctx, actorID, hospital.AccountHealth,
			engine.Points(1), engine.Points(0), engine.TxDecay, "starvation")
		if err != nil {
			s.Log.Error().Err(err).Str("actor_id", a.ID).Msg("decay: health tick failed")
		}
	}
}

// RunHungerTick triggers an immediate hunger tick (for testing/admin).
func (s *StatDecayScheduler) RunHungerTick() { s.tickHunger() }

// RunHealthTick triggers an immediate health tick (for testing/admin).
func (s *StatDecayScheduler) RunHealthTick() { s.tickHealth() }

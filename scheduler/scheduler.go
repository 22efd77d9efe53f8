package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"service-dashboard/metrics"
	"service-dashboard/models"
	"service-dashboard/notify"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Checker checks a batch of services and returns one status per service
type Checker interface {
	CheckAll(ctx context.Context, services []models.Service) []models.Status
}

// StatusStore persists the latest status of every service
type StatusStore interface {
	GetStatus(ctx context.Context, name string) (*models.Status, error)
	SaveStatus(ctx context.Context, st models.Status) error
}

// Scheduler periodically checks the catalog services and reports changes
type Scheduler struct {
	checker  Checker
	store    StatusStore
	notifier notify.Notifier
	metrics  *metrics.DashboardMetrics
	services []models.Service
	interval time.Duration

	mu     sync.RWMutex
	latest map[string]models.Status

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

// NewScheduler creates a new scheduler. store, notifier and m may be nil.
func NewScheduler(checker Checker, store StatusStore, notifier notify.Notifier, m *metrics.DashboardMetrics, services []models.Service, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}

	return &Scheduler{
		checker:  checker,
		store:    store,
		notifier: notifier,
		metrics:  m,
		services: services,
		interval: interval,
		latest:   make(map[string]models.Status),
		ctx:      ctx,
		cancel:   cancel,
		now:      time.Now,
	}
}

// Start starts the scheduler in a goroutine
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop stops the scheduler and waits for the running sweep to finish
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	log.Info().Msg("Scheduler stopped")
}

// run is the main scheduler loop
func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(s.ctx)
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(s.ctx)
		}
	}
}

// Sweep checks every service once, stores the results and notifies on
// up/down transitions. It returns the statuses in catalog order.
func (s *Scheduler) Sweep(ctx context.Context) []models.Status {
	sweepID := uuid.NewString()
	started := s.now()

	statuses := s.checker.CheckAll(ctx, s.services)
	if ctx.Err() != nil {
		// Interrupted results are incomplete; keep the previous state
		return nil
	}

	changed := 0
	for _, st := range statuses {
		prev := s.previous(ctx, st.Name)
		s.save(ctx, st)

		if prev != nil && prev.Up != st.Up {
			changed++
			log.Info().
				Str("sweep_id", sweepID).
				Str("service", st.Name).
				Bool("up", st.Up).
				Msg("Service status changed")
			if err := s.notifier.Notify(ctx, notify.FormatTransition(st)); err != nil {
				log.Error().Err(err).Str("service", st.Name).Msg("Failed to send notification")
			}
		}
	}

	s.metrics.RecordSweep(statuses, s.now().Sub(started), s.now())

	log.Debug().
		Str("sweep_id", sweepID).
		Int("services", len(statuses)).
		Int("changed", changed).
		Dur("took", s.now().Sub(started)).
		Msg("Status sweep finished")
	return statuses
}

// previous returns the last known status of a service. The in-memory view
// wins; the store covers the first sweep after a restart.
func (s *Scheduler) previous(ctx context.Context, name string) *models.Status {
	s.mu.RLock()
	st, ok := s.latest[name]
	s.mu.RUnlock()
	if ok {
		return &st
	}

	if s.store == nil {
		return nil
	}
	stored, err := s.store.GetStatus(ctx, name)
	if err != nil {
		log.Warn().Err(err).Str("service", name).Msg("Failed to read previous status")
		return nil
	}
	return stored
}

func (s *Scheduler) save(ctx context.Context, st models.Status) {
	s.mu.Lock()
	s.latest[st.Name] = st
	s.mu.Unlock()

	if s.store == nil {
		return
	}
	if err := s.store.SaveStatus(ctx, st); err != nil {
		log.Error().Err(err).Str("service", st.Name).Msg("Failed to save status")
	}
}

// ListStatuses returns the statuses seen so far ordered by name
func (s *Scheduler) ListStatuses(context.Context) ([]models.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]models.Status, 0, len(s.latest))
	for _, st := range s.latest {
		statuses = append(statuses, st)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses, nil
}

package campaign

import (
	"context"
	"errors"
	"sync"
	"time"

	"voice-campaign/internal/logger"
	"voice-campaign/pkg/models"

	"go.uber.org/zap"
)

var (
	ErrAlreadyRunning = errors.New("campaign: already running")
	ErrNotRunning     = errors.New("campaign: not running")
	ErrNoCall         = errors.New("campaign: no call in progress")
)

// Event types published through the Notifier
const (
	EventCampaignStarted  = "campaign_started"
	EventCampaignFinished = "campaign_finished"
)

const DefaultPacing = 5 * time.Second

// Call is one conducted conversation. *session.Session satisfies it.
type Call interface {
	Run(ctx context.Context) models.CallResult
	Snapshot() models.InFlight
}

// Dialer creates the call for a contact.
type Dialer func(contact *models.Contact) Call

type Notifier interface {
	BroadcastEvent(eventType string, data interface{})
}

// Scheduler works through a contact list one call at a time.
type Scheduler struct {
	dial     Dialer
	pacing   time.Duration
	clock    Clock
	notifier Notifier
	log      *zap.Logger

	mu         sync.Mutex
	running    bool
	cancel     context.CancelFunc
	callCancel context.CancelFunc
	inFlight   Call
	pending    []models.Contact
	total      int
	completed  []models.CallResult
	done       chan struct{}
}

type Option func(*Scheduler)

func WithPacing(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.pacing = d
		}
	}
}

func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

func WithNotifier(n Notifier) Option {
	return func(s *Scheduler) { s.notifier = n }
}

func New(dial Dialer, opts ...Option) *Scheduler {
	s := &Scheduler{
		dial:   dial,
		pacing: DefaultPacing,
		clock:  RealClock{},
		log:    logger.Named("campaign"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run calls every contact in order and blocks until the list is exhausted or
// ctx ends. An interrupted run returns the results gathered so far together
// with the context error.
func (s *Scheduler) Run(ctx context.Context, contacts []models.Contact) ([]models.CallResult, error) {
	ctx, err := s.begin(ctx, contacts)
	if err != nil {
		return nil, err
	}
	return s.loop(ctx, contacts)
}

// Start launches Run in the background.
func (s *Scheduler) Start(ctx context.Context, contacts []models.Contact) error {
	ctx, err := s.begin(ctx, contacts)
	if err != nil {
		return err
	}
	go func() {
		if _, err := s.loop(ctx, contacts); err != nil {
			s.log.Info("Campaign interrupted", zap.Error(err))
		}
	}()
	return nil
}

// Stop cancels the campaign, including the call in progress.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrNotRunning
	}
	s.cancel()
	return nil
}

// HangUp ends the call in progress. The campaign moves on to the next contact.
func (s *Scheduler) HangUp() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.callCancel == nil {
		return ErrNoCall
	}
	s.callCancel()
	return nil
}

// Wait blocks until the current run, if any, has finished.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status returns a consistent snapshot of the campaign.
func (s *Scheduler) Status() models.CampaignStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := models.CampaignStatus{
		Running:   s.running,
		Pending:   len(s.pending),
		Total:     s.total,
		Completed: make([]models.CallResult, len(s.completed)),
	}
	copy(st.Completed, s.completed)
	if s.inFlight != nil {
		snap := s.inFlight.Snapshot()
		st.InFlight = &snap
	}
	return st
}

func (s *Scheduler) begin(ctx context.Context, contacts []models.Contact) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil, ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.pending = append([]models.Contact(nil), contacts...)
	s.total = len(contacts)
	s.completed = nil
	s.done = make(chan struct{})
	return ctx, nil
}

func (s *Scheduler) loop(ctx context.Context, contacts []models.Contact) ([]models.CallResult, error) {
	defer s.finish()

	s.log.Info("Campaign started", zap.Int("contacts", len(contacts)), zap.Duration("pacing", s.pacing))
	s.notify(EventCampaignStarted, map[string]interface{}{"total": len(contacts)})

	results := make([]models.CallResult, 0, len(contacts))
	for i := range contacts {
		if i > 0 && !s.pace(ctx) {
			break
		}
		if ctx.Err() != nil {
			break
		}

		contact := &contacts[i]
		s.log.Info("Calling contact",
			zap.Int("progress", i+1), zap.Int("total", len(contacts)),
			zap.Int("contact_id", contact.ID), zap.String("name", contact.FullName))

		result := s.call(ctx, contact)
		results = append(results, result)
	}

	s.notify(EventCampaignFinished, map[string]interface{}{
		"total":     len(contacts),
		"completed": len(results),
		"summary":   Summarize(results),
	})
	if err := ctx.Err(); err != nil {
		return results, err
	}
	s.log.Info("Campaign finished", zap.Int("calls", len(results)))
	return results, nil
}

func (s *Scheduler) call(ctx context.Context, contact *models.Contact) models.CallResult {
	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := s.dial(contact)
	s.mu.Lock()
	if len(s.pending) > 0 {
		s.pending = s.pending[1:]
	}
	s.inFlight = c
	s.callCancel = cancel
	s.mu.Unlock()

	result := c.Run(callCtx)

	s.mu.Lock()
	s.inFlight = nil
	s.callCancel = nil
	s.completed = append(s.completed, result)
	s.mu.Unlock()
	return result
}

// pace waits between calls. It reports false when ctx ended first.
func (s *Scheduler) pace(ctx context.Context) bool {
	if s.pacing <= 0 {
		return ctx.Err() == nil
	}
	s.log.Debug("Waiting before next call", zap.Duration("pacing", s.pacing))
	select {
	case <-s.clock.After(s.pacing):
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Scheduler) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel()
	s.running = false
	s.inFlight = nil
	s.callCancel = nil
	close(s.done)
}

func (s *Scheduler) notify(eventType string, data interface{}) {
	if s.notifier != nil {
		s.notifier.BroadcastEvent(eventType, data)
	}
}

// Summarize counts results per outcome.
func Summarize(results []models.CallResult) map[models.Outcome]int {
	out := make(map[models.Outcome]int)
	for _, r := range results {
		out[r.Outcome]++
	}
	return out
}

package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"nanobanana/internal/domain"
)

// Store persists session states. Load returns a fresh state for unknown
// sessions. Lock serialises transitions of one session across callers.
type Store interface {
	Load(ctx context.Context, sessionID string) (*State, error)
	Save(ctx context.Context, sessionID string, st *State) error
	Lock(ctx context.Context, sessionID string) (unlock func(), err error)
}

// Notifier is told when a background transform has been recorded.
type Notifier interface {
	Notify(ctx context.Context, sessionID string, st *State)
}

type ServiceOptions struct {
	Store    Store
	Client   Transformer
	Notifier Notifier
	Logger   zerolog.Logger
	// Timeout bounds one background transform.
	Timeout time.Duration
}

// Service runs the workflow for many sessions. Transforms run in the
// background; the caller learns about completion through the Notifier.
type Service struct {
	store    Store
	client   Transformer
	notifier Notifier
	log      zerolog.Logger
	timeout  time.Duration
	wg       sync.WaitGroup

	// recordAttempts and recordBackoff govern saving a finished transform.
	recordAttempts int
	recordBackoff  time.Duration
}

func NewService(opts ServiceOptions) *Service {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		store:    opts.Store,
		client:   opts.Client,
		notifier: opts.Notifier,
		log:      opts.Logger,
		timeout:  timeout,

		recordAttempts: 3,
		recordBackoff:  250 * time.Millisecond,
	}
}

// View loads the current state of a session.
func (s *Service) View(ctx context.Context, sessionID string) (*State, error) {
	st, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("workflow: load session: %w", err)
	}
	return st, nil
}

// Update applies fn under the session lock and saves the result. The state
// is saved even when fn fails, because validation failures record the
// banner message on the state itself.
func (s *Service) Update(ctx context.Context, sessionID string, fn func(*State) error) (*State, error) {
	unlock, err := s.store.Lock(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("workflow: lock session: %w", err)
	}
	defer unlock()

	st, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("workflow: load session: %w", err)
	}
	fnErr := fn(st)
	if err := s.store.Save(ctx, sessionID, st); err != nil {
		return nil, fmt.Errorf("workflow: save session: %w", err)
	}
	return st, fnErr
}

// Submit validates the session and starts its transform in the background.
// The returned state is the one right after validation.
func (s *Service) Submit(ctx context.Context, sessionID string) (*State, error) {
	var sub Submission
	st, err := s.Update(ctx, sessionID, func(st *State) error {
		var err error
		sub, err = st.BeginSubmit()
		return err
	})
	if err != nil {
		return st, err
	}
	s.wg.Add(1)
	go s.run(sessionID, sub)
	return st, nil
}

// Wait blocks until every background transform has been recorded.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) run(sessionID string, sub Submission) {
	defer s.wg.Done()
	log := s.log.With().Str("session", sessionID).Logger()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	result, err := s.client.Transform(ctx, sub.Request)
	cancel()
	logOutcome(log, sub, err)

	saveCtx, saveCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer saveCancel()
	st, current, uerr := s.record(saveCtx, sessionID, sub, result, err)
	if uerr != nil {
		log.Error().Err(uerr).Msg("failed to record transform outcome")
		st, uerr = s.forceRecord(saveCtx, sessionID, sub, result, err)
		if uerr != nil {
			log.Error().Err(uerr).Msg("failed to release in-flight session")
			return
		}
		current = st.Epoch == sub.Epoch
	}
	if !current {
		log.Debug().Uint64("epoch", sub.Epoch).Msg("discarded stale transform outcome")
	}
	if s.notifier != nil {
		s.notifier.Notify(saveCtx, sessionID, st)
	}
}

// record applies the outcome under the session lock, retrying with a
// doubling backoff while the store fails.
func (s *Service) record(ctx context.Context, sessionID string, sub Submission, result *domain.TransformResult, terr error) (*State, bool, error) {
	backoff := s.recordBackoff
	var lastErr error
	for attempt := 0; attempt < s.recordAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, false, fmt.Errorf("workflow: record outcome: %w", ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		var current bool
		st, err := s.Update(ctx, sessionID, func(st *State) error {
			current = st.Complete(sub, result, terr)
			return nil
		})
		if err == nil {
			return st, current, nil
		}
		lastErr = err
		s.log.Warn().Err(err).Str("session", sessionID).Int("attempt", attempt+1).Msg("record transform outcome")
	}
	return nil, false, lastErr
}

// forceRecord is the last resort when the lock cannot be taken: the outcome
// is written without it so the session never stays in flight.
func (s *Service) forceRecord(ctx context.Context, sessionID string, sub Submission, result *domain.TransformResult, terr error) (*State, error) {
	st, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("workflow: load session: %w", err)
	}
	st.Complete(sub, result, terr)
	if err := s.store.Save(ctx, sessionID, st); err != nil {
		return nil, fmt.Errorf("workflow: save session: %w", err)
	}
	return st, nil
}

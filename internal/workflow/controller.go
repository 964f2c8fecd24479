package workflow

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"nanobanana/internal/domain"
)

// Transformer performs one transform attempt.
type Transformer interface {
	Transform(ctx context.Context, req domain.TransformRequest) (*domain.TransformResult, error)
}

// Controller owns a single workflow state and runs transforms
// synchronously. The lock is released while the transform is outstanding,
// so other transitions (and a rejected second submit) stay responsive.
type Controller struct {
	mu     sync.Mutex
	state  *State
	client Transformer
	log    zerolog.Logger
}

func NewController(client Transformer, log zerolog.Logger) *Controller {
	return &Controller{state: NewState(), client: client, log: log}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.state
}

// Do applies fn to the state under the controller lock.
func (c *Controller) Do(fn func(*State) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(c.state)
}

func (c *Controller) Upload(img *domain.SelectedImage) {
	_ = c.Do(func(s *State) error { s.Upload(img); return nil })
}

func (c *Controller) RejectUpload(err error) {
	_ = c.Do(func(s *State) error { s.RejectUpload(err); return nil })
}

func (c *Controller) Remove() {
	_ = c.Do(func(s *State) error { s.Remove(); return nil })
}

func (c *Controller) SelectStyle(name string) error {
	return c.Do(func(s *State) error { return s.SelectStyle(name) })
}

func (c *Controller) SetPrompt(text string) {
	_ = c.Do(func(s *State) error { s.SetPrompt(text); return nil })
}

func (c *Controller) SetMode(mode domain.Mode) error {
	return c.Do(func(s *State) error { return s.SetMode(mode) })
}

func (c *Controller) DismissError() {
	_ = c.Do(func(s *State) error { s.DismissError(); return nil })
}

// Submit validates, runs one transform and records its outcome. The
// returned error is the validation or transform failure, if any.
func (c *Controller) Submit(ctx context.Context) error {
	var sub Submission
	err := c.Do(func(s *State) error {
		var err error
		sub, err = s.BeginSubmit()
		return err
	})
	if err != nil {
		return err
	}

	result, err := c.client.Transform(ctx, sub.Request)
	logOutcome(c.log, sub, err)

	c.mu.Lock()
	current := c.state.Complete(sub, result, err)
	c.mu.Unlock()
	if !current {
		c.log.Debug().Uint64("epoch", sub.Epoch).Msg("discarded stale transform outcome")
	}
	return err
}

// Download returns the current result.
func (c *Controller) Download() (*domain.TransformResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Download()
}

func logOutcome(log zerolog.Logger, sub Submission, err error) {
	ev := log.Info()
	if err != nil {
		ev = log.Warn().Err(err)
	}
	ev.Str("style", sub.Request.Style).
		Bool("custom_prompt", sub.Request.CustomPrompt).
		Uint64("epoch", sub.Epoch).
		Msg("transform finished")
}

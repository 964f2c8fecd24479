package workflow

import (
	"strings"

	"nanobanana/internal/domain"
)

// Phase is the derived position of a session in the upload/transform flow.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseReady      Phase = "ready"
	PhaseSubmitting Phase = "submitting"
	PhaseResult     Phase = "result"
	PhaseError      Phase = "error"
)

// State is everything one session knows about its workflow. All mutation
// goes through the methods below so that result and error stay mutually
// exclusive and mode switches always clear what they must.
type State struct {
	Image    *domain.SelectedImage   `json:"image,omitempty"`
	Mode     domain.Mode             `json:"mode"`
	Style    string                  `json:"style"`
	Prompt   string                  `json:"prompt,omitempty"`
	InFlight bool                    `json:"in_flight"`
	Epoch    uint64                  `json:"epoch"`
	Result   *domain.TransformResult `json:"result,omitempty"`
	Error    string                  `json:"error,omitempty"`
}

// NewState returns the state of a fresh session.
func NewState() *State {
	return &State{Mode: domain.ModePredefined, Style: domain.DefaultStyle}
}

// Submission captures what a transform was started with.
type Submission struct {
	Epoch   uint64
	Request domain.TransformRequest
}

func (s *State) Phase() Phase {
	switch {
	case s.InFlight:
		return PhaseSubmitting
	case s.Error != "":
		return PhaseError
	case s.Result != nil:
		return PhaseResult
	case s.Image != nil:
		return PhaseReady
	default:
		return PhaseIdle
	}
}

// CanSubmit mirrors the enabled state of the transform button.
func (s *State) CanSubmit() bool {
	if s.InFlight || s.Image == nil {
		return false
	}
	return s.Mode != domain.ModeCustom || strings.TrimSpace(s.Prompt) != ""
}

// CanDownload reports whether a result is available to save.
func (s *State) CanDownload() bool { return s.Result != nil }

func (s *State) clearOutcome() {
	s.Result = nil
	s.Error = ""
}

// Upload replaces the selected image. An in-flight transform keeps running
// but its completion will be discarded.
func (s *State) Upload(img *domain.SelectedImage) {
	if img == nil {
		s.Remove()
		return
	}
	s.Image = img
	s.Epoch++
	s.clearOutcome()
}

// Remove drops the selected image.
func (s *State) Remove() {
	s.Image = nil
	s.Epoch++
	s.clearOutcome()
}

// RejectUpload reports a refused candidate file without touching the
// current selection. A displayed result gives way to the banner.
func (s *State) RejectUpload(err error) {
	s.Result = nil
	s.Error = domain.UserMessage(err)
}

func (s *State) SelectStyle(name string) error {
	style, ok := domain.LookupStyle(name)
	if !ok {
		return domain.ErrUnknownStyle
	}
	s.Style = style.Name
	return nil
}

func (s *State) SetPrompt(text string) {
	s.Prompt = text
}

// SetMode switches between catalog and custom prompt. Switching is refused
// while a transform is outstanding and otherwise always clears the
// displayed outcome and the prompt text.
func (s *State) SetMode(mode domain.Mode) error {
	if mode != domain.ModePredefined && mode != domain.ModeCustom {
		return domain.ErrUnknownMode
	}
	if s.InFlight {
		return domain.ErrInFlight
	}
	s.Mode = mode
	s.Prompt = ""
	s.Epoch++
	s.clearOutcome()
	return nil
}

func (s *State) DismissError() {
	s.Error = ""
}

// BeginSubmit validates the selection and marks the session in flight.
// Validation failures are recorded as the session error; a submit while
// already in flight is refused without any change.
func (s *State) BeginSubmit() (Submission, error) {
	if s.InFlight {
		return Submission{}, domain.ErrInFlight
	}
	if s.Image == nil {
		s.Result = nil
		s.Error = domain.ErrNoImage.Error()
		return Submission{}, domain.ErrNoImage
	}
	prompt := strings.TrimSpace(s.Prompt)
	custom := s.Mode == domain.ModeCustom
	if custom && prompt == "" {
		s.Result = nil
		s.Error = domain.ErrEmptyPrompt.Error()
		return Submission{}, domain.ErrEmptyPrompt
	}
	style := s.Style
	if style == "" {
		style = domain.DefaultStyle
	}
	s.InFlight = true
	s.Error = ""
	req := domain.TransformRequest{Image: s.Image, Style: style, CustomPrompt: custom}
	if custom {
		req.Prompt = prompt
	}
	return Submission{Epoch: s.Epoch, Request: req}, nil
}

// Complete records the outcome of sub. It reports false when the selection
// changed since sub began and the outcome was dropped.
func (s *State) Complete(sub Submission, result *domain.TransformResult, err error) bool {
	s.InFlight = false
	if sub.Epoch != s.Epoch {
		return false
	}
	if err != nil || result == nil {
		s.Result = nil
		s.Error = domain.UserMessage(err)
		if s.Error == "" {
			s.Error = domain.FallbackTransformMessage
		}
		return true
	}
	s.Result = result
	s.Error = ""
	return true
}

// Download returns the result to save. It has no effect on the state.
func (s *State) Download() (*domain.TransformResult, error) {
	if s.Result == nil {
		return nil, domain.ErrNoResult
	}
	return s.Result, nil
}

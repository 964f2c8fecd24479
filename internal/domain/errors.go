package domain

import "errors"

var (
	ErrNoImage       = errors.New("Please upload an image first")
	ErrEmptyPrompt   = errors.New("Please enter a custom prompt")
	ErrNotImage      = errors.New("Please choose an image file")
	ErrImageTooLarge = errors.New("The image is too large to upload")
	ErrUnknownStyle  = errors.New("Unknown transformation style")
	ErrUnknownMode   = errors.New("Unknown selection mode")
	ErrInFlight      = errors.New("A transformation is already in progress")
	ErrNoResult      = errors.New("There is no transformed image to download")
)

// FallbackTransformMessage is shown when a failed transform carries no
// message of its own.
const FallbackTransformMessage = "An error occurred during transformation"

// UserMessage returns the text that should be shown to the user for err.
// Errors that know their own user-facing text expose it through a
// UserMessage method; the sentinels above are already phrased for display.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	for _, known := range []error{ErrNoImage, ErrEmptyPrompt, ErrNotImage, ErrImageTooLarge, ErrUnknownStyle, ErrUnknownMode, ErrInFlight, ErrNoResult} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return FallbackTransformMessage
}

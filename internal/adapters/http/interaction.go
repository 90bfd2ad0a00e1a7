package httpadapter

import (
	"context"

	"github.com/aman3729/Credit-Score-sub000/internal/core/domain"
)

// interactionRequiredError carries a confirmation or input request back to
// the client when the call did not include the answer.
type interactionRequiredError struct {
	request any
	message string
}

func (e *interactionRequiredError) Error() string {
	return e.message
}

// staticConfirmer answers a confirmation with the value sent in the request body.
type staticConfirmer struct {
	answer *bool
}

func (c staticConfirmer) Confirm(_ context.Context, req domain.ConfirmationRequest) (bool, error) {
	if c.answer == nil {
		return false, &interactionRequiredError{request: req, message: req.Message}
	}
	return *c.answer, nil
}

// staticPrompter answers an input request with the value sent in the request body.
type staticPrompter struct {
	value     *string
	cancelled bool
}

func (p staticPrompter) Prompt(_ context.Context, req domain.InputRequest) (string, bool, error) {
	if p.cancelled {
		return "", false, nil
	}
	if p.value == nil {
		return "", false, &interactionRequiredError{request: req, message: req.Message}
	}
	return *p.value, true, nil
}

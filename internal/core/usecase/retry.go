package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aman3729/Credit-Score-sub000/internal/core/domain"
	"github.com/aman3729/Credit-Score-sub000/internal/core/ports"
)

const (
	RetryBlobName        = "retry-records.json"
	retryContentType     = "application/json"
	retryConfirmKind     = "retry_failed_records"
	retryDecisionConfirm = "confirmed"
	retryDecisionDecline = "declined"
	retryDecisionExhaust = "exhausted"
)

// RetryController resubmits the failed records of a session, bounded by the
// session's retry budget and gated by an explicit confirmation.
type RetryController struct {
	uploads  *UploadOrchestrator
	observer ports.UploadObserver
}

func NewRetryController(uploads *UploadOrchestrator, observer ports.UploadObserver) *RetryController {
	return &RetryController{
		uploads:  uploads,
		observer: observer,
	}
}

// Retry asks for confirmation and resubmits. An exhausted budget returns
// without contacting the server and a declined confirmation consumes no
// attempt; neither is an error.
func (rc *RetryController) Retry(ctx context.Context, s *domain.UploadSession, confirmer ports.Confirmer) (ports.RetryOutcome, error) {
	failed, state, err := s.RetryCandidates()
	if err != nil {
		return ports.RetryOutcome{}, err
	}
	if len(failed) == 0 {
		return ports.RetryOutcome{}, domain.WrapError(domain.ErrInvalidInput, "retry", errors.New("no failed records to retry"))
	}
	if state.Exhausted() {
		rc.observeDecision(retryDecisionExhaust)
		return ports.RetryOutcome{Session: s.View(), Exhausted: true, Failed: failed}, nil
	}
	if confirmer == nil {
		return ports.RetryOutcome{}, domain.WrapError(domain.ErrInvalidInput, "retry", errors.New("confirmation is required"))
	}

	ok, err := confirmer.Confirm(ctx, domain.ConfirmationRequest{
		Kind:    retryConfirmKind,
		Message: fmt.Sprintf("Retry %d failed record(s)? This is attempt %d of %d.", len(failed), state.Attempts+1, state.Max),
		Attempt: state.Attempts + 1,
		Max:     state.Max,
		Count:   len(failed),
	})
	if err != nil {
		return ports.RetryOutcome{}, fmt.Errorf("confirm retry: %w", err)
	}
	if !ok {
		rc.observeDecision(retryDecisionDecline)
		return ports.RetryOutcome{Session: s.View(), Declined: true, Failed: failed}, nil
	}
	rc.observeDecision(retryDecisionConfirm)

	ticket, err := s.BeginRetry(rc.uploads.newID())
	if errors.Is(err, domain.ErrRetryExhausted) {
		view := s.View()
		return ports.RetryOutcome{Session: view, Exhausted: true, Failed: view.FailedRecords}, nil
	}
	if err != nil {
		return ports.RetryOutcome{}, err
	}

	body, err := json.Marshal(ticket.Records)
	if err != nil {
		failErr := rc.uploads.fail(ctx, s, ticket, uploadKindRetry, fmt.Sprintf("Retry request could not be built: %v", err), err, 0)
		return rc.outcome(s), failErr
	}
	req := domain.ApplyRequest{
		MappingID:   ticket.MappingID,
		PartnerID:   ticket.PartnerID,
		Engine:      ticket.Engine,
		UploadID:    ticket.UploadID,
		Filename:    RetryBlobName,
		ContentType: retryContentType,
		Body:        body,
	}

	att := rc.uploads.send(ctx, req, nil)
	if att.err != nil {
		failErr := rc.uploads.fail(ctx, s, ticket, uploadKindRetry, att.message, att.err, att.elapsed)
		return rc.outcome(s), failErr
	}

	successCount, errorCount, ok := retryCounts(att.resp)
	if !ok {
		msg := att.resp.Message
		if msg == "" {
			msg = domain.MissingSummaryMessage
		}
		failErr := rc.uploads.fail(ctx, s, ticket, uploadKindRetry, msg, errors.New("retry response carried no counts"), att.elapsed)
		return rc.outcome(s), failErr
	}

	if err := s.CompleteRetry(successCount, errorCount, att.resp.FailedRecords); err != nil {
		return ports.RetryOutcome{}, fmt.Errorf("complete retry: %w", err)
	}
	view := s.View()
	rc.uploads.finish(ctx, ticket, uploadKindRetry, domain.StateCompleted, view.Result, len(view.FailedRecords), "", att.elapsed)
	return ports.RetryOutcome{Session: view, Failed: view.FailedRecords}, nil
}

// retryCounts reads the retry answer: explicit counts first, then the summary.
func retryCounts(resp *domain.ApplyResponse) (success, errs int, ok bool) {
	switch {
	case resp.SuccessCount != nil:
		success = *resp.SuccessCount
	case resp.Summary != nil:
		success = resp.Summary.MappedRecords
	default:
		return 0, 0, false
	}
	switch {
	case resp.ErrorCount != nil:
		errs = *resp.ErrorCount
	case resp.Summary != nil:
		errs = max(resp.Summary.TotalRecords-resp.Summary.MappedRecords, 0)
	default:
		errs = len(resp.FailedRecords)
	}
	return success, errs, true
}

func (rc *RetryController) outcome(s *domain.UploadSession) ports.RetryOutcome {
	view := s.View()
	return ports.RetryOutcome{Session: view, Failed: view.FailedRecords}
}

func (rc *RetryController) observeDecision(decision string) {
	if rc.observer != nil {
		rc.observer.ObserveRetryDecision(decision)
	}
}

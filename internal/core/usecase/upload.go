package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/aman3729/Credit-Score-sub000/internal/core/domain"
	"github.com/aman3729/Credit-Score-sub000/internal/core/ports"
)

const (
	DefaultUploadTimeout    = 5 * time.Minute
	DefaultProgressInterval = 200 * time.Millisecond

	uploadKindInitial = "upload"
	uploadKindRetry   = "retry"
)

// ProgressFunc receives throttled upload progress.
type ProgressFunc func(domain.UploadProgress)

type UploadOptions struct {
	Timeout          time.Duration
	ProgressInterval time.Duration
}

// UploadOrchestrator drives one session through Uploading into Completed or
// Failed. It never retries a POST on its own.
type UploadOrchestrator struct {
	gateway       ports.ScoringGateway
	publisher     ports.EventPublisher
	observer      ports.UploadObserver
	timeout       time.Duration
	progressEvery time.Duration
	newID         func() string
	now           func() time.Time
}

func NewUploadOrchestrator(
	gateway ports.ScoringGateway,
	publisher ports.EventPublisher,
	observer ports.UploadObserver,
	opts UploadOptions,
) *UploadOrchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultUploadTimeout
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	return &UploadOrchestrator{
		gateway:       gateway,
		publisher:     publisher,
		observer:      observer,
		timeout:       opts.Timeout,
		progressEvery: opts.ProgressInterval,
		newID:         uuid.NewString,
		now:           time.Now,
	}
}

// Submit sends the session's file to the apply endpoint. A failed attempt
// leaves the session in Failed and returns *domain.UploadFailedError.
func (o *UploadOrchestrator) Submit(ctx context.Context, s *domain.UploadSession, onProgress ProgressFunc) (*domain.UploadResult, error) {
	ticket, err := s.BeginUpload(o.newID())
	if err != nil {
		return nil, err
	}

	req := domain.ApplyRequest{
		MappingID:   ticket.MappingID,
		PartnerID:   ticket.PartnerID,
		Engine:      ticket.Engine,
		UploadID:    ticket.UploadID,
		Filename:    ticket.File.Name,
		ContentType: ticket.File.MimeType,
		Body:        ticket.File.Data,
	}
	att := o.send(ctx, req, onProgress)
	if att.err != nil {
		return nil, o.fail(ctx, s, ticket, uploadKindInitial, att.message, att.err, att.elapsed)
	}
	if att.resp.Summary == nil {
		msg := strings.TrimSpace(att.resp.Message)
		if msg == "" {
			msg = domain.MissingSummaryMessage
		}
		return nil, o.fail(ctx, s, ticket, uploadKindInitial, msg, errors.New("apply response carried no summary"), att.elapsed)
	}

	result := domain.ResultFromSummary(*att.resp.Summary, att.elapsed)
	if err := s.CompleteUpload(result, att.resp.FailedRecords); err != nil {
		return nil, fmt.Errorf("complete upload: %w", err)
	}
	o.finish(ctx, ticket, uploadKindInitial, domain.StateCompleted, &result, len(att.resp.FailedRecords), "", att.elapsed)
	return &result, nil
}

type attempt struct {
	resp    *domain.ApplyResponse
	elapsed time.Duration
	message string
	err     error
}

func (o *UploadOrchestrator) send(ctx context.Context, req domain.ApplyRequest, onProgress ProgressFunc) attempt {
	// Only the upload timeout bounds the attempt; a dropped caller does not.
	uploadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
	defer cancel()

	throttle := newProgressThrottle(o.progressEvery, onProgress)
	start := o.now()
	resp, err := o.gateway.Apply(uploadCtx, req, throttle.observe)
	elapsed := o.now().Sub(start)
	if err != nil {
		return attempt{elapsed: elapsed, err: err, message: o.failureMessage(uploadCtx, err)}
	}

	total := int64(len(req.Body))
	throttle.observe(total, total)
	if resp == nil {
		resp = &domain.ApplyResponse{}
	}
	return attempt{resp: resp, elapsed: elapsed}
}

// failureMessage maps a transport outcome to the text shown to the user.
// The deadline is checked first so a timeout is never reported as a
// generic network failure.
func (o *UploadOrchestrator) failureMessage(uploadCtx context.Context, err error) string {
	if errors.Is(uploadCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return timeoutMessage(o.timeout)
	}
	var serverErr *domain.ServerError
	if errors.As(err, &serverErr) {
		return serverErr.UserMessage()
	}
	var malformed *domain.MalformedResponseError
	if errors.As(err, &malformed) {
		return domain.GenericUploadFailureMessage
	}
	var netErr *domain.NetworkError
	if errors.As(err, &netErr) {
		return domain.NoResponseMessage
	}
	return fmt.Sprintf("Upload request could not be sent: %v", err)
}

func timeoutMessage(d time.Duration) string {
	limit := d.String()
	if d >= time.Minute && d%time.Minute == 0 {
		minutes := int(d / time.Minute)
		limit = fmt.Sprintf("%d minutes", minutes)
		if minutes == 1 {
			limit = "1 minute"
		}
	}
	return fmt.Sprintf("Upload timed out after %s. Please try again with a smaller file or check your connection.", limit)
}

func (o *UploadOrchestrator) fail(
	ctx context.Context,
	s *domain.UploadSession,
	ticket domain.UploadTicket,
	kind, message string,
	cause error,
	elapsed time.Duration,
) error {
	if err := s.FailUpload(message); err != nil {
		return fmt.Errorf("mark upload failed: %w", err)
	}
	view := s.View()
	o.finish(ctx, ticket, kind, domain.StateFailed, view.Result, len(view.FailedRecords), message, elapsed)
	return &domain.UploadFailedError{Message: message, Err: cause}
}

// finish reports a terminal attempt. Event delivery outlives the request
// context and its failure does not change the upload outcome.
func (o *UploadOrchestrator) finish(
	ctx context.Context,
	ticket domain.UploadTicket,
	kind string,
	state domain.SessionState,
	result *domain.UploadResult,
	failed int,
	message string,
	elapsed time.Duration,
) {
	if o.observer != nil {
		o.observer.ObserveUpload(kind, state, result, failed, elapsed.Seconds())
	}
	if o.publisher == nil {
		return
	}

	filename := ticket.File.Name
	if kind == uploadKindRetry {
		filename = RetryBlobName
	}
	event := domain.UploadEvent{
		SessionID:   ticket.SessionID,
		UploadID:    ticket.UploadID,
		PartnerID:   ticket.PartnerID,
		MappingID:   ticket.MappingID,
		Engine:      ticket.Engine,
		Filename:    filename,
		Attempt:     ticket.Attempt,
		State:       state,
		Result:      result,
		FailedCount: failed,
		Message:     message,
		OccurredAt:  o.now().UTC(),
	}
	if err := o.publisher.PublishUploadFinished(context.WithoutCancel(ctx), event); err != nil {
		slog.Warn("upload_event_publish_failed",
			"session_id", ticket.SessionID,
			"upload_id", ticket.UploadID,
			"error", err.Error(),
		)
	}
}

// progressThrottle forwards at most one update per interval. The completion
// update is always delivered, exactly once.
type progressThrottle struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	report  ProgressFunc
	done    bool
}

func newProgressThrottle(every time.Duration, report ProgressFunc) *progressThrottle {
	return &progressThrottle{
		limiter: rate.NewLimiter(rate.Every(every), 1),
		report:  report,
	}
}

func (p *progressThrottle) observe(sent, total int64) {
	if p.report == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	complete := sent >= total
	if !complete && !p.limiter.Allow() {
		return
	}
	if complete {
		p.done = true
	}
	p.report(progressOf(sent, total))
}

func progressOf(sent, total int64) domain.UploadProgress {
	percent := 100
	if total > 0 && sent < total {
		percent = int(sent * 100 / total)
	}
	return domain.UploadProgress{Sent: sent, Total: total, Percent: percent}
}

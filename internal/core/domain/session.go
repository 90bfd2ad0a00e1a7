package domain

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

type SessionState string

const (
	StateIdle              SessionState = "idle"
	StateFileSelected      SessionState = "file_selected"
	StatePreviewing        SessionState = "previewing"
	StateMappingInProgress SessionState = "mapping_in_progress"
	StateReadyToSubmit     SessionState = "ready_to_submit"
	StateUploading         SessionState = "uploading"
	StateCompleted         SessionState = "completed"
	StateFailed            SessionState = "failed"
)

type SessionEvent string

const (
	EventSelectFile      SessionEvent = "select_file"
	EventPreviewStarted  SessionEvent = "preview_started"
	EventPreviewReady    SessionEvent = "preview_ready"
	EventPreviewFailed   SessionEvent = "preview_failed"
	EventMappingValid    SessionEvent = "mapping_valid"
	EventMappingInvalid  SessionEvent = "mapping_invalid"
	EventUploadStarted   SessionEvent = "upload_started"
	EventRetryStarted    SessionEvent = "retry_started"
	EventUploadSucceeded SessionEvent = "upload_succeeded"
	EventUploadFailed    SessionEvent = "upload_failed"
	EventReset           SessionEvent = "reset"
)

var transitions = map[SessionState]map[SessionEvent]SessionState{
	StateIdle: {
		EventSelectFile: StateFileSelected,
		EventReset:      StateIdle,
	},
	StateFileSelected: {
		EventSelectFile:     StateFileSelected,
		EventPreviewStarted: StatePreviewing,
		EventReset:          StateIdle,
	},
	StatePreviewing: {
		EventPreviewReady:  StateMappingInProgress,
		EventPreviewFailed: StateFileSelected,
	},
	StateMappingInProgress: {
		EventSelectFile:     StateFileSelected,
		EventMappingValid:   StateReadyToSubmit,
		EventMappingInvalid: StateMappingInProgress,
		EventReset:          StateIdle,
	},
	StateReadyToSubmit: {
		EventSelectFile:     StateFileSelected,
		EventMappingValid:   StateReadyToSubmit,
		EventMappingInvalid: StateMappingInProgress,
		EventUploadStarted:  StateUploading,
		EventReset:          StateIdle,
	},
	StateUploading: {
		EventUploadSucceeded: StateCompleted,
		EventUploadFailed:    StateFailed,
	},
	StateCompleted: {
		EventSelectFile:   StateFileSelected,
		EventRetryStarted: StateUploading,
		EventReset:        StateIdle,
	},
	StateFailed: {
		EventSelectFile:     StateFileSelected,
		EventMappingValid:   StateReadyToSubmit,
		EventMappingInvalid: StateMappingInProgress,
		EventUploadStarted:  StateUploading,
		EventRetryStarted:   StateUploading,
		EventReset:          StateIdle,
	},
}

// Transition is the single state-transition function of an upload session.
func Transition(from SessionState, ev SessionEvent) (SessionState, error) {
	next, ok := transitions[from][ev]
	if !ok {
		return from, WrapError(ErrInvalidTransition, "transition", fmt.Errorf("%s on %s", ev, from))
	}
	return next, nil
}

// UploadSession is the aggregate for one ingestion attempt. Every field is
// guarded by mu and only changes through the methods below.
type UploadSession struct {
	mu sync.Mutex

	id         string
	state      SessionState
	file       *FileHandle
	preview    *Preview
	fields     []DetectedField
	mappings   *MappingTable
	validation []ValidationError

	partnerID   string
	partnerName string
	mappingID   string
	engine      ScoringEngine

	uploadID string
	result   *UploadResult
	failed   []FailedRecord
	retry    RetryState
	busy     bool
	message  string

	createdAt time.Time
	updatedAt time.Time
}

func NewUploadSession(id string, now time.Time) *UploadSession {
	return &UploadSession{
		id:        id,
		state:     StateIdle,
		mappings:  NewMappingTable(),
		engine:    EngineDefault,
		retry:     RetryState{Max: DefaultRetryMax},
		createdAt: now,
		updatedAt: now,
	}
}

func (s *UploadSession) ID() string { return s.id }

func (s *UploadSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *UploadSession) fire(ev SessionEvent) error {
	next, err := Transition(s.state, ev)
	if err != nil {
		return err
	}
	s.state = next
	s.updatedAt = time.Now().UTC()
	return nil
}

// SetRetryMax overrides the retry bound. It is ignored once attempts were made.
func (s *UploadSession) SetRetryMax(max int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if max > 0 && s.retry.Attempts == 0 {
		s.retry.Max = max
	}
}

func (s *UploadSession) SelectFile(file FileHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrSessionBusy
	}
	if err := s.fire(EventSelectFile); err != nil {
		return err
	}
	s.file = &file
	s.preview = nil
	s.fields = nil
	s.validation = nil
	s.uploadID = ""
	s.result = nil
	s.failed = nil
	s.retry.Attempts = 0
	s.message = ""
	return nil
}

func (s *UploadSession) BeginPreview() (FileHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return FileHandle{}, &GuardError{Reason: GuardMissingFile}
	}
	if err := s.fire(EventPreviewStarted); err != nil {
		return FileHandle{}, err
	}
	return *s.file, nil
}

// CompletePreview unlocks mapping. validate recomputes the validation errors
// for the current mapping table against the new preview records.
func (s *UploadSession) CompletePreview(p *Preview, fields []DetectedField, validate ValidateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fire(EventPreviewReady); err != nil {
		return err
	}
	s.preview = p
	s.fields = append([]DetectedField(nil), fields...)
	s.message = ""
	return s.revalidate(validate)
}

func (s *UploadSession) FailPreview(cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fire(EventPreviewFailed); err != nil {
		return err
	}
	s.preview = nil
	s.fields = nil
	if cause != nil {
		s.message = cause.Error()
	}
	return nil
}

// ValidateFunc transforms records with the given mappings and validates the output.
type ValidateFunc func(records []RawRecord, mappings map[string]FieldMapping) []ValidationError

// EditMappings applies edit to the mapping table and recomputes validation
// from scratch. The table is left untouched when edit fails.
func (s *UploadSession) EditMappings(edit func(*MappingTable) error, validate ValidateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrSessionBusy
	}
	switch s.state {
	case StateMappingInProgress, StateReadyToSubmit, StateFailed:
	default:
		return WrapError(ErrInvalidTransition, "edit mappings", fmt.Errorf("mapping is locked in state %s", s.state))
	}

	work := &MappingTable{entries: s.mappings.Entries()}
	if err := edit(work); err != nil {
		return err
	}
	s.mappings = work
	return s.revalidate(validate)
}

func (s *UploadSession) revalidate(validate ValidateFunc) error {
	var records []RawRecord
	if s.preview != nil {
		records = s.preview.Records
	}
	s.validation = nil
	if validate != nil {
		s.validation = validate(records, s.mappings.Entries())
	}
	if len(s.validation) == 0 {
		return s.fire(EventMappingValid)
	}
	return s.fire(EventMappingInvalid)
}

// SelectMapping records the remote mapping id used by the apply endpoint.
func (s *UploadSession) SelectMapping(mappingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrSessionBusy
	}
	s.mappingID = mappingID
	s.updatedAt = time.Now().UTC()
	return nil
}

func (s *UploadSession) SetPartner(partnerID, partnerName string, engine ScoringEngine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrSessionBusy
	}
	if engine == "" {
		engine = EngineDefault
	}
	if !engine.Valid() {
		return WrapError(ErrInvalidInput, "set partner", fmt.Errorf("unknown scoring engine %q", engine))
	}
	if s.partnerID != partnerID {
		s.mappingID = ""
	}
	s.partnerID = partnerID
	s.partnerName = partnerName
	s.engine = engine
	s.updatedAt = time.Now().UTC()
	return nil
}

// UploadTicket is the immutable input of one upload or retry attempt.
type UploadTicket struct {
	SessionID string
	UploadID  string
	File      FileHandle
	PartnerID string
	MappingID string
	Engine    ScoringEngine
	Records   []RawRecord
	Attempt   int
}

// BeginUpload checks the submission guards in order (file, partner, mapping,
// validation) and marks the session busy.
func (s *UploadSession) BeginUpload(uploadID string) (UploadTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return UploadTicket{}, ErrSessionBusy
	}
	switch {
	case s.file == nil:
		return UploadTicket{}, &GuardError{Reason: GuardMissingFile}
	case s.partnerID == "":
		return UploadTicket{}, &GuardError{Reason: GuardMissingPartner}
	case s.mappingID == "":
		return UploadTicket{}, &GuardError{Reason: GuardMissingMapping}
	case len(s.validation) > 0:
		return UploadTicket{}, &GuardError{Reason: GuardValidationErrors, Errors: append([]ValidationError(nil), s.validation...)}
	}
	if err := s.fire(EventUploadStarted); err != nil {
		return UploadTicket{}, err
	}
	s.busy = true
	s.uploadID = uploadID
	s.message = ""
	return UploadTicket{
		SessionID: s.id,
		UploadID:  uploadID,
		File:      *s.file,
		PartnerID: s.partnerID,
		MappingID: s.mappingID,
		Engine:    s.engine,
	}, nil
}

func (s *UploadSession) CompleteUpload(result UploadResult, failed []FailedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fire(EventUploadSucceeded); err != nil {
		return err
	}
	s.busy = false
	s.result = &result
	s.failed = append([]FailedRecord(nil), failed...)
	s.message = ""
	return nil
}

// FailUpload records the user-facing message; the cumulative result is kept as is.
func (s *UploadSession) FailUpload(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fire(EventUploadFailed); err != nil {
		return err
	}
	s.busy = false
	s.message = message
	return nil
}

// RetryCandidates returns the failed records and retry state without side effects.
func (s *UploadSession) RetryCandidates() ([]FailedRecord, RetryState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return nil, s.retry, ErrSessionBusy
	}
	return append([]FailedRecord(nil), s.failed...), s.retry, nil
}

// BeginRetry consumes one retry attempt and marks the session busy.
func (s *UploadSession) BeginRetry(uploadID string) (UploadTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return UploadTicket{}, ErrSessionBusy
	}
	if len(s.failed) == 0 {
		return UploadTicket{}, WrapError(ErrInvalidInput, "begin retry", errors.New("no failed records"))
	}
	if s.retry.Exhausted() {
		return UploadTicket{}, ErrRetryExhausted
	}
	if err := s.fire(EventRetryStarted); err != nil {
		return UploadTicket{}, err
	}
	s.retry.Attempts++
	s.busy = true
	s.uploadID = uploadID
	s.message = ""

	records := make([]RawRecord, 0, len(s.failed))
	for _, f := range s.failed {
		records = append(records, f.Record)
	}
	return UploadTicket{
		SessionID: s.id,
		UploadID:  uploadID,
		PartnerID: s.partnerID,
		MappingID: s.mappingID,
		Engine:    s.engine,
		Records:   records,
		Attempt:   s.retry.Attempts,
	}, nil
}

// CompleteRetry merges a retry answer: successes accumulate, the error count
// is replaced and the failed set shrinks to what the server still rejects.
func (s *UploadSession) CompleteRetry(successCount, errorCount int, stillFailed []FailedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fire(EventUploadSucceeded); err != nil {
		return err
	}
	s.busy = false
	if s.result == nil {
		s.result = &UploadResult{}
	}
	s.result.Success += successCount
	s.result.Errors = errorCount
	if len(stillFailed) > len(s.failed) {
		stillFailed = stillFailed[:len(s.failed)]
	}
	s.failed = append([]FailedRecord(nil), stillFailed...)
	s.message = ""
	return nil
}

func (s *UploadSession) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrSessionBusy
	}
	if err := s.fire(EventReset); err != nil {
		return err
	}
	s.file = nil
	s.preview = nil
	s.fields = nil
	s.mappings = NewMappingTable()
	s.validation = nil
	s.mappingID = ""
	s.uploadID = ""
	s.result = nil
	s.failed = nil
	s.retry.Attempts = 0
	s.message = ""
	return nil
}

// SessionView is a detached copy of the session for callers and encoders.
type SessionView struct {
	ID               string            `json:"id"`
	State            SessionState      `json:"state"`
	File             *FileHandle       `json:"file,omitempty"`
	Preview          *Preview          `json:"preview,omitempty"`
	DetectedFields   []DetectedField   `json:"detectedFields"`
	Mappings         []FieldMapping    `json:"mappings"`
	ValidationErrors []ValidationError `json:"validationErrors"`
	PartnerID        string            `json:"partnerId,omitempty"`
	PartnerName      string            `json:"partnerName,omitempty"`
	MappingID        string            `json:"mappingId,omitempty"`
	Engine           ScoringEngine     `json:"engine"`
	UploadID         string            `json:"uploadId,omitempty"`
	Result           *UploadResult     `json:"result,omitempty"`
	FailedRecords    []FailedRecord    `json:"failedRecords"`
	PartialFailure   *PartialFailure   `json:"partialFailure,omitempty"`
	Retry            RetryState        `json:"retry"`
	Busy             bool              `json:"busy"`
	Message          string            `json:"message,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

func (s *UploadSession) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	view := SessionView{
		ID:               s.id,
		State:            s.state,
		Preview:          s.preview,
		DetectedFields:   append([]DetectedField{}, s.fields...),
		Mappings:         s.mappings.Snapshot(),
		ValidationErrors: append([]ValidationError{}, s.validation...),
		PartnerID:        s.partnerID,
		PartnerName:      s.partnerName,
		MappingID:        s.mappingID,
		Engine:           s.engine,
		UploadID:         s.uploadID,
		FailedRecords:    append([]FailedRecord{}, s.failed...),
		Retry:            s.retry,
		Busy:             s.busy,
		Message:          s.message,
		CreatedAt:        s.createdAt,
		UpdatedAt:        s.updatedAt,
	}
	if s.file != nil {
		f := *s.file
		view.File = &f
	}
	if s.result != nil {
		r := *s.result
		view.Result = &r
		if s.state == StateCompleted && len(s.failed) > 0 {
			view.PartialFailure = &PartialFailure{Total: r.Total, Failed: len(s.failed)}
		}
	}
	return view
}

package domain

import "time"

type UploadResult struct {
	Total             int     `json:"total"`
	Success           int     `json:"success"`
	Errors            int     `json:"errors"`
	ScoredRecords     int     `json:"scoredRecords"`
	AverageScore      float64 `json:"averageScore"`
	UploadTimeSeconds float64 `json:"uploadTimeSeconds"`
}

// SuccessRate is the share of successful records in percent.
func (r UploadResult) SuccessRate() float64 {
	if r.Total <= 0 {
		return 0
	}
	return float64(r.Success) / float64(r.Total) * 100
}

// ApplySummary is the summary block of the apply endpoint response.
type ApplySummary struct {
	TotalRecords  int     `json:"totalRecords"`
	MappedRecords int     `json:"mappedRecords"`
	ScoredRecords int     `json:"scoredRecords"`
	AverageScore  float64 `json:"averageScore"`
}

// ResultFromSummary derives the user-facing counts; success+errors always equals total.
func ResultFromSummary(s ApplySummary, elapsed time.Duration) UploadResult {
	errCount := s.TotalRecords - s.MappedRecords
	if errCount < 0 {
		errCount = 0
	}
	return UploadResult{
		Total:             s.MappedRecords + errCount,
		Success:           s.MappedRecords,
		Errors:            errCount,
		ScoredRecords:     s.ScoredRecords,
		AverageScore:      s.AverageScore,
		UploadTimeSeconds: elapsed.Seconds(),
	}
}

type FailedRecord struct {
	Record  RawRecord `json:"record"`
	Message string    `json:"message"`
	Row     *int      `json:"row,omitempty"`
}

// ApplyResponse is what the scoring gateway understood from a 2xx answer.
type ApplyResponse struct {
	Summary       *ApplySummary  `json:"summary,omitempty"`
	SuccessCount  *int           `json:"successCount,omitempty"`
	ErrorCount    *int           `json:"errorCount,omitempty"`
	FailedRecords []FailedRecord `json:"failedRecords,omitempty"`
	Message       string         `json:"message,omitempty"`
}

type ScoringEngine string

const (
	EngineDefault ScoringEngine = "default"
	EngineAI      ScoringEngine = "ai"
	EngineCustom  ScoringEngine = "custom"
)

func (e ScoringEngine) Valid() bool {
	switch e {
	case EngineDefault, EngineAI, EngineCustom:
		return true
	default:
		return false
	}
}

// ApplyRequest is one POST to the scoring apply endpoint.
type ApplyRequest struct {
	MappingID   string
	PartnerID   string
	Engine      ScoringEngine
	UploadID    string
	Filename    string
	ContentType string
	Body        []byte
}

type UploadProgress struct {
	Sent    int64 `json:"sent"`
	Total   int64 `json:"total"`
	Percent int   `json:"percent"`
}

type RetryState struct {
	Attempts int `json:"attempts"`
	Max      int `json:"max"`
}

const DefaultRetryMax = 3

func (r RetryState) Exhausted() bool {
	return r.Attempts >= r.Max
}

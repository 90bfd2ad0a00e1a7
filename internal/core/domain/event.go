package domain

import "time"

// UploadEvent is published when an upload or retry attempt reaches a terminal state.
type UploadEvent struct {
	SessionID   string        `json:"sessionId"`
	UploadID    string        `json:"uploadId"`
	PartnerID   string        `json:"partnerId"`
	MappingID   string        `json:"mappingId"`
	Engine      ScoringEngine `json:"engine"`
	Filename    string        `json:"filename"`
	Attempt     int           `json:"attempt"`
	State       SessionState  `json:"state"`
	Result      *UploadResult `json:"result,omitempty"`
	FailedCount int           `json:"failedCount"`
	Message     string        `json:"message,omitempty"`
	OccurredAt  time.Time     `json:"occurredAt"`
}

// UploadRecord is a persisted upload outcome.
type UploadRecord struct {
	UploadID      string        `json:"uploadId"`
	SessionID     string        `json:"sessionId"`
	PartnerID     string        `json:"partnerId"`
	MappingID     string        `json:"mappingId"`
	Engine        ScoringEngine `json:"engine"`
	Filename      string        `json:"filename"`
	Attempt       int           `json:"attempt"`
	State         SessionState  `json:"state"`
	Total         int           `json:"total"`
	Success       int           `json:"success"`
	Errors        int           `json:"errors"`
	ScoredRecords int           `json:"scoredRecords"`
	AverageScore  float64       `json:"averageScore"`
	FailedCount   int           `json:"failedCount"`
	Message       string        `json:"message,omitempty"`
	OccurredAt    time.Time     `json:"occurredAt"`
}

func (e UploadEvent) Record() UploadRecord {
	rec := UploadRecord{
		UploadID:    e.UploadID,
		SessionID:   e.SessionID,
		PartnerID:   e.PartnerID,
		MappingID:   e.MappingID,
		Engine:      e.Engine,
		Filename:    e.Filename,
		Attempt:     e.Attempt,
		State:       e.State,
		FailedCount: e.FailedCount,
		Message:     e.Message,
		OccurredAt:  e.OccurredAt,
	}
	if e.Result != nil {
		rec.Total = e.Result.Total
		rec.Success = e.Result.Success
		rec.Errors = e.Result.Errors
		rec.ScoredRecords = e.Result.ScoredRecords
		rec.AverageScore = e.Result.AverageScore
	}
	return rec
}

package domain

// ConfirmationRequest is emitted before an action that needs explicit approval.
type ConfirmationRequest struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Attempt int    `json:"attempt,omitempty"`
	Max     int    `json:"max,omitempty"`
	Count   int    `json:"count,omitempty"`
}

// InputRequest is emitted when a value must be supplied before continuing.
type InputRequest struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Default string `json:"default,omitempty"`
}

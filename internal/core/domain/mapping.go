package domain

import "time"

type Transformation string

const (
	TransformNone         Transformation = "none"
	TransformUppercase    Transformation = "uppercase"
	TransformLowercase    Transformation = "lowercase"
	TransformTrim         Transformation = "trim"
	TransformPhoneFormat  Transformation = "phone_format"
	TransformDateFormat   Transformation = "date_format"
	TransformNumberFormat Transformation = "number_format"
)

// FieldMapping is keyed by TargetField: a target can be fed from one source only.
type FieldMapping struct {
	SourceField    string         `json:"sourceField"`
	TargetField    string         `json:"targetField"`
	Transformation Transformation `json:"transformation"`
	IsRequired     bool           `json:"isRequired"`
	DefaultValue   any            `json:"defaultValue,omitempty"`
}

// FieldMappingPatch carries a partial update; nil members are left untouched.
type FieldMappingPatch struct {
	SourceField    *string         `json:"sourceField,omitempty"`
	Transformation *Transformation `json:"transformation,omitempty"`
	IsRequired     *bool           `json:"isRequired,omitempty"`
	DefaultValue   *any            `json:"defaultValue,omitempty"`
}

type MappingProfile struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	PartnerID     string         `json:"partnerId"`
	PartnerName   string         `json:"partnerName,omitempty"`
	FileType      string         `json:"fileType"`
	FieldMappings []FieldMapping `json:"fieldMappings"`
	CreatedAt     time.Time      `json:"createdAt,omitempty"`
}

// NewProfileRequest is the body accepted by the profile store's create call.
type NewProfileRequest struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	PartnerID     string         `json:"partnerId"`
	PartnerName   string         `json:"partnerName"`
	FileType      string         `json:"fileType"`
	FieldMappings []FieldMapping `json:"fieldMappings"`
}

// DetectedField confidence is always PlaceholderConfidence: detection reads
// keys and headers, it never infers a score from the data.
type DetectedField struct {
	SourceField string  `json:"sourceField"`
	Confidence  float64 `json:"confidence"`
}

const PlaceholderConfidence = 1.0

type RawRecord = map[string]any

type TransformedRecord = map[string]any

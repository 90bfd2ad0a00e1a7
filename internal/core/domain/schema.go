package domain

import "sort"

type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeObject  FieldType = "object"
)

// UncheckedTypes are schema types the validator only checks for presence.
var UncheckedTypes = map[FieldType]bool{
	FieldTypeBoolean: true,
	FieldTypeObject:  true,
}

// TypeChecked reports whether values of t are checked beyond presence.
func (t FieldType) TypeChecked() bool {
	return !UncheckedTypes[t]
}

type FieldSpec struct {
	Required bool      `json:"required"`
	Type     FieldType `json:"type"`
}

type CanonicalFieldSchema map[string]FieldSpec

// Fields returns the schema's field names in a stable order.
func (s CanonicalFieldSchema) Fields() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultCreditSchema is the canonical record consumed by the scoring engines.
func DefaultCreditSchema() CanonicalFieldSchema {
	return CanonicalFieldSchema{
		"phoneNumber":       {Required: true, Type: FieldTypeString},
		"firstName":         {Type: FieldTypeString},
		"lastName":          {Type: FieldTypeString},
		"email":             {Type: FieldTypeString},
		"dateOfBirth":       {Type: FieldTypeString},
		"monthlyIncome":     {Required: true, Type: FieldTypeNumber},
		"monthlyDebt":       {Type: FieldTypeNumber},
		"totalDebt":         {Type: FieldTypeNumber},
		"creditUtilization": {Type: FieldTypeNumber},
		"paymentHistory":    {Type: FieldTypeNumber},
		"creditAgeMonths":   {Type: FieldTypeNumber},
		"employmentStatus":  {Type: FieldTypeString},
		"hasBankruptcy":     {Type: FieldTypeBoolean},
		"collateral":        {Type: FieldTypeObject},
	}
}

type ValidationError struct {
	RowIndex int    `json:"rowIndex"`
	Field    string `json:"field"`
	Message  string `json:"message"`
}

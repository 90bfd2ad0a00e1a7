package usecase

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aman3729/Credit-Score-sub000/internal/core/domain"
)

// Validate checks transformed records against the schema. Rows are 1-based,
// fields are visited in schema order and a missing required field is not
// type-checked. Types in domain.UncheckedTypes are accepted as is.
func Validate(records []domain.TransformedRecord, schema domain.CanonicalFieldSchema) []domain.ValidationError {
	fields := schema.Fields()
	var out []domain.ValidationError
	for i, rec := range records {
		row := i + 1
		for _, field := range fields {
			spec := schema[field]
			value, present := rec[field]
			if !present || value == nil {
				if spec.Required {
					out = append(out, missingField(row, field))
				}
				continue
			}
			if s, ok := value.(string); ok && s == "" && spec.Required {
				out = append(out, missingField(row, field))
				continue
			}
			if !spec.Type.TypeChecked() {
				continue
			}

			switch spec.Type {
			case domain.FieldTypeNumber:
				if !isFiniteNumber(value) {
					out = append(out, domain.ValidationError{
						RowIndex: row,
						Field:    field,
						Message:  fmt.Sprintf("Row %d: Field '%s' should be a number", row, field),
					})
				}
			case domain.FieldTypeString:
				if _, ok := value.(string); !ok {
					out = append(out, domain.ValidationError{
						RowIndex: row,
						Field:    field,
						Message:  fmt.Sprintf("Row %d: Field '%s' should be a string", row, field),
					})
				}
			}
		}
	}
	return out
}

func missingField(row int, field string) domain.ValidationError {
	return domain.ValidationError{
		RowIndex: row,
		Field:    field,
		Message:  fmt.Sprintf("Row %d: Missing required field '%s'", row, field),
	}
}

func isFiniteNumber(value any) bool {
	switch v := value.(type) {
	case float64:
		return !math.IsNaN(v) && !math.IsInf(v, 0)
	case float32:
		f := float64(v)
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case bool:
		return true
	case json.Number:
		f, err := v.Float64()
		return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return false
		}
		f, err := strconv.ParseFloat(s, 64)
		return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	default:
		return false
	}
}

package usecase

import (
	"math"
	"strings"
	"testing"

	"github.com/aman3729/Credit-Score-sub000/internal/core/domain"
)

func TestTransformIsPure(t *testing.T) {
	records := []domain.RawRecord{{"name": "  ada  ", "phone": "+251 (911) 22-33"}}
	mappings := map[string]domain.FieldMapping{
		"firstName":   {SourceField: "name", TargetField: "firstName", Transformation: domain.TransformTrim},
		"phoneNumber": {SourceField: "phone", TargetField: "phoneNumber", Transformation: domain.TransformPhoneFormat},
	}

	first := Transform(records, mappings)
	second := Transform(records, mappings)
	if first[0]["firstName"] != "ada" || first[0]["phoneNumber"] != "+2519112233" {
		t.Fatalf("unexpected output %+v", first[0])
	}
	if first[0]["firstName"] != second[0]["firstName"] || first[0]["phoneNumber"] != second[0]["phoneNumber"] {
		t.Fatalf("expected identical output for identical input")
	}
	if records[0]["name"] != "  ada  " {
		t.Fatalf("input record was modified")
	}
}

func TestTransformDefaultAndAbsentTargets(t *testing.T) {
	records := []domain.RawRecord{{"income": nil}}
	mappings := map[string]domain.FieldMapping{
		"monthlyIncome": {SourceField: "income", TargetField: "monthlyIncome", DefaultValue: 0.0},
		"email":         {SourceField: "mail", TargetField: "email"},
	}

	out := Transform(records, mappings)
	if out[0]["monthlyIncome"] != 0.0 {
		t.Fatalf("expected default value, got %v", out[0]["monthlyIncome"])
	}
	if _, ok := out[0]["email"]; ok {
		t.Fatalf("expected email to be absent")
	}
}

func TestTransformationFunctions(t *testing.T) {
	reg := NewTransformRegistry()
	cases := []struct {
		kind domain.Transformation
		in   any
		want any
	}{
		{domain.TransformUppercase, "abc", "ABC"},
		{domain.TransformLowercase, "ABC", "abc"},
		{domain.TransformUppercase, 12.0, 12.0},
		{domain.TransformDateFormat, "03/15/2024", "2024-03-15"},
		{domain.TransformDateFormat, "not a date", "not a date"},
		{domain.TransformNumberFormat, "$1,250.50", 1250.5},
		{domain.TransformNumberFormat, "(200)", -200.0},
		{domain.TransformNumberFormat, "n/a", "n/a"},
		{domain.TransformPhoneFormat, "call me", "call me"},
		{domain.TransformNone, "  keep  ", "  keep  "},
	}
	for _, tc := range cases {
		fn, ok := reg.Lookup(tc.kind)
		if !ok {
			t.Fatalf("missing transformation %s", tc.kind)
		}
		if got := fn(tc.in); got != tc.want {
			t.Fatalf("%s(%v) = %v, want %v", tc.kind, tc.in, got, tc.want)
		}
	}
}

func TestRegistryAcceptsCustomTransformation(t *testing.T) {
	reg := NewTransformRegistry()
	reg.Register("reverse", func(v any) any {
		s, _ := v.(string)
		r := []rune(s)
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
		return string(r)
	})

	out := reg.Transform([]domain.RawRecord{{"a": "abc"}}, map[string]domain.FieldMapping{
		"b": {SourceField: "a", TargetField: "b", Transformation: "reverse"},
	})
	if out[0]["b"] != "cba" {
		t.Fatalf("expected custom transformation, got %v", out[0]["b"])
	}
}

func TestValidateReportsMissingAndTypeErrors(t *testing.T) {
	schema := domain.CanonicalFieldSchema{
		"monthlyIncome": {Required: true, Type: domain.FieldTypeNumber},
		"phoneNumber":   {Required: true, Type: domain.FieldTypeString},
		"monthlyDebt":   {Type: domain.FieldTypeNumber},
		"firstName":     {Type: domain.FieldTypeString},
	}
	records := []domain.TransformedRecord{
		{"monthlyIncome": "5000", "phoneNumber": "0911"},
		{"monthlyIncome": "", "phoneNumber": 911.0, "monthlyDebt": "abc", "firstName": 3},
	}

	errs := Validate(records, schema)
	want := []string{
		"Row 2: Field 'firstName' should be a string",
		"Row 2: Field 'monthlyDebt' should be a number",
		"Row 2: Missing required field 'monthlyIncome'",
		"Row 2: Field 'phoneNumber' should be a string",
	}
	if len(errs) != len(want) {
		t.Fatalf("expected %d errors, got %+v", len(want), errs)
	}
	for i, msg := range want {
		if errs[i].Message != msg || errs[i].RowIndex != 2 {
			t.Fatalf("error %d = %+v, want %q", i, errs[i], msg)
		}
	}
}

func TestValidateNumberCoercion(t *testing.T) {
	schema := domain.CanonicalFieldSchema{"monthlyDebt": {Type: domain.FieldTypeNumber}}
	accepted := []any{1.5, 7, " 42 ", "1e3", true}
	for _, v := range accepted {
		if errs := Validate([]domain.TransformedRecord{{"monthlyDebt": v}}, schema); len(errs) != 0 {
			t.Fatalf("expected %v to be accepted, got %+v", v, errs)
		}
	}
	rejected := []any{"   ", "", "12abc", math.Inf(1), "NaN", map[string]any{}}
	for _, v := range rejected {
		if errs := Validate([]domain.TransformedRecord{{"monthlyDebt": v}}, schema); len(errs) != 1 {
			t.Fatalf("expected %v to be rejected, got %+v", v, errs)
		}
	}
}

func TestValidateLeavesBooleanAndObjectUnchecked(t *testing.T) {
	schema := domain.CanonicalFieldSchema{
		"hasBankruptcy": {Type: domain.FieldTypeBoolean},
		"collateral":    {Type: domain.FieldTypeObject},
	}
	errs := Validate([]domain.TransformedRecord{{"hasBankruptcy": "maybe", "collateral": 12}}, schema)
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %+v", errs)
	}
	if domain.FieldTypeBoolean.TypeChecked() || domain.FieldTypeObject.TypeChecked() || !domain.FieldTypeNumber.TypeChecked() {
		t.Fatalf("unexpected unchecked type set %v", domain.UncheckedTypes)
	}
}

func TestValidateEmptyInput(t *testing.T) {
	if errs := Validate(nil, domain.DefaultCreditSchema()); len(errs) != 0 {
		t.Fatalf("expected no errors for no records")
	}
	errs := Validate([]domain.TransformedRecord{{}}, domain.DefaultCreditSchema())
	for _, e := range errs {
		if !strings.Contains(e.Message, "Missing required field") {
			t.Fatalf("unexpected error %q", e.Message)
		}
	}
	if len(errs) != 2 {
		t.Fatalf("expected two required fields missing, got %+v", errs)
	}
}

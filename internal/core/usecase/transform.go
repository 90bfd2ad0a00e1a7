package usecase

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aman3729/Credit-Score-sub000/internal/core/domain"
)

// TransformFunc converts one source value. Values it does not understand
// are returned unchanged.
type TransformFunc func(value any) any

// TransformRegistry maps transformation kinds to their implementation.
type TransformRegistry struct {
	mu    sync.RWMutex
	funcs map[domain.Transformation]TransformFunc
}

func NewTransformRegistry() *TransformRegistry {
	return &TransformRegistry{
		funcs: map[domain.Transformation]TransformFunc{
			domain.TransformNone:         identity,
			domain.TransformUppercase:    mapString(strings.ToUpper),
			domain.TransformLowercase:    mapString(strings.ToLower),
			domain.TransformTrim:         mapString(strings.TrimSpace),
			domain.TransformPhoneFormat:  formatPhone,
			domain.TransformDateFormat:   formatDate,
			domain.TransformNumberFormat: formatNumber,
		},
	}
}

var defaultTransforms = NewTransformRegistry()

// RegisterTransformation adds or replaces a transformation in the package registry.
func RegisterTransformation(kind domain.Transformation, fn TransformFunc) {
	defaultTransforms.Register(kind, fn)
}

// Transform applies mappings to records with the package registry.
func Transform(records []domain.RawRecord, mappings map[string]domain.FieldMapping) []domain.TransformedRecord {
	return defaultTransforms.Transform(records, mappings)
}

func (r *TransformRegistry) Register(kind domain.Transformation, fn TransformFunc) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[kind] = fn
}

func (r *TransformRegistry) Lookup(kind domain.Transformation) (TransformFunc, bool) {
	if kind == "" {
		kind = domain.TransformNone
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[kind]
	return fn, ok
}

// Transform builds one output record per input record. For each target the
// source value is used when present, else the mapping default. A target with
// neither is left out of the output record.
func (r *TransformRegistry) Transform(records []domain.RawRecord, mappings map[string]domain.FieldMapping) []domain.TransformedRecord {
	targets := make([]string, 0, len(mappings))
	for target := range mappings {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	out := make([]domain.TransformedRecord, 0, len(records))
	for _, rec := range records {
		row := make(domain.TransformedRecord, len(targets))
		for _, target := range targets {
			m := mappings[target]
			value, ok := rec[m.SourceField]
			if !ok || value == nil {
				if m.DefaultValue == nil {
					continue
				}
				value = m.DefaultValue
			}
			fn, found := r.Lookup(m.Transformation)
			if !found {
				fn = identity
			}
			row[target] = fn(value)
		}
		out = append(out, row)
	}
	return out
}

func identity(v any) any { return v }

func mapString(fn func(string) string) TransformFunc {
	return func(v any) any {
		s, ok := v.(string)
		if !ok {
			return v
		}
		return fn(s)
	}
}

// formatPhone keeps digits and a leading plus sign.
func formatPhone(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	s = strings.TrimSpace(s)
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return v
	}
	return b.String()
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"02.01.2006",
	"2006-01-02 15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"20060102",
}

// formatDate normalizes recognised dates to YYYY-MM-DD.
func formatDate(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	trimmed := strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return v
}

var numberNoise = strings.NewReplacer(
	",", "",
	" ", "",
	"\u00a0", "",
	"$", "",
	"\u20ac", "",
	"\u00a3", "",
	"\u20a6", "",
)

// formatNumber strips currency symbols and grouping and yields a float64
// when the rest parses. Parentheses mark a negative amount.
func formatNumber(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	cleaned := numberNoise.Replace(strings.TrimSpace(s))
	negative := strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")")
	if negative {
		cleaned = strings.TrimSuffix(strings.TrimPrefix(cleaned, "("), ")")
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return v
	}
	if negative {
		n = -n
	}
	return n
}

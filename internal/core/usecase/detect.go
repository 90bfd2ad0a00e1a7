package usecase

import "github.com/aman3729/Credit-Score-sub000/internal/core/domain"

// PDFTextField is the single synthetic source field emitted for PDF files,
// whose text is extracted server-side.
const PDFTextField = "pdfText"

// DetectFields derives candidate source fields from a preview. Confidence is
// the fixed domain.PlaceholderConfidence for every field.
func DetectFields(p *domain.Preview) []domain.DetectedField {
	if p == nil {
		return nil
	}
	if p.Kind == domain.FileKindPDF {
		return []domain.DetectedField{{SourceField: PDFTextField, Confidence: domain.PlaceholderConfidence}}
	}

	out := make([]domain.DetectedField, 0, len(p.Header))
	for _, name := range p.Header {
		if name == "" {
			continue
		}
		out = append(out, domain.DetectedField{
			SourceField: name,
			Confidence:  domain.PlaceholderConfidence,
		})
	}
	return out
}

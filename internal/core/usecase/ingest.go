package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/aman3729/Credit-Score-sub000/internal/core/domain"
	"github.com/aman3729/Credit-Score-sub000/internal/core/ports"
)

const (
	DefaultMaxFileSize int64 = 50 << 20

	jsonPreviewItems = 5
	textPreviewLines = 6
	sheetPreviewRows = 5
)

var acceptedExtensions = map[string]domain.FileKind{
	".json": domain.FileKindJSON,
	".csv":  domain.FileKindCSV,
	".xlsx": domain.FileKindXLSX,
	".xls":  domain.FileKindXLS,
	".xml":  domain.FileKindXML,
	".txt":  domain.FileKindText,
	".pdf":  domain.FileKindPDF,
}

var acceptedMimeTypes = map[string]domain.FileKind{
	"application/json":         domain.FileKindJSON,
	"text/csv":                 domain.FileKindCSV,
	"application/csv":          domain.FileKindCSV,
	"application/vnd.ms-excel": domain.FileKindXLS,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": domain.FileKindXLSX,
	"application/xml": domain.FileKindXML,
	"text/xml":        domain.FileKindXML,
	"text/plain":      domain.FileKindText,
	"application/pdf": domain.FileKindPDF,
}

const acceptedFormatsText = ".json, .csv, .xlsx, .xls, .xml, .txt, .pdf"

type IngestUseCase struct {
	sheets  ports.SpreadsheetReader
	maxSize int64
}

func NewIngestUseCase(sheets ports.SpreadsheetReader, maxSize int64) *IngestUseCase {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	return &IngestUseCase{
		sheets:  sheets,
		maxSize: maxSize,
	}
}

// Ingest validates the file and builds its preview. An invalid file is
// rejected with every violated constraint and is never parsed.
func (uc *IngestUseCase) Ingest(ctx context.Context, file domain.FileHandle) (*domain.Preview, error) {
	kind, problems := uc.check(file)
	if len(problems) > 0 {
		return nil, &domain.FileValidationError{Problems: problems}
	}

	preview := &domain.Preview{
		Kind: kind,
		Name: file.Name,
		Size: declaredSize(file),
	}

	switch kind {
	case domain.FileKindJSON:
		if err := previewJSON(preview, file.Data); err != nil {
			return nil, &domain.PreviewParseError{Format: string(kind), Err: err}
		}
	case domain.FileKindCSV, domain.FileKindText:
		if err := previewText(preview, file.Data, kind == domain.FileKindCSV); err != nil {
			return nil, &domain.PreviewParseError{Format: string(kind), Err: err}
		}
	case domain.FileKindXLSX:
		if uc.sheets == nil {
			return preview, nil
		}
		rows, err := uc.sheets.ReadRows(ctx, file.Data, sheetPreviewRows+1)
		if err != nil {
			return nil, &domain.PreviewParseError{Format: string(kind), Err: err}
		}
		if err := previewRows(preview, rows); err != nil {
			return nil, &domain.PreviewParseError{Format: string(kind), Err: err}
		}
	}
	return preview, nil
}

func (uc *IngestUseCase) check(file domain.FileHandle) (domain.FileKind, []string) {
	var problems []string

	kind, ok := detectKind(file.Name, file.MimeType)
	if !ok {
		label := strings.ToLower(filepath.Ext(file.Name))
		if label == "" {
			label = file.MimeType
		}
		if label == "" {
			label = "unknown"
		}
		problems = append(problems, fmt.Sprintf("Unsupported file type %q. Accepted formats: %s", label, acceptedFormatsText))
	}

	size := declaredSize(file)
	switch {
	case size <= 0:
		problems = append(problems, "File is empty")
	case size > uc.maxSize:
		problems = append(problems, fmt.Sprintf("File size %.1f MB exceeds the %d MB limit", float64(size)/(1<<20), uc.maxSize>>20))
	}
	return kind, problems
}

func declaredSize(file domain.FileHandle) int64 {
	if file.Size > 0 {
		return file.Size
	}
	return int64(len(file.Data))
}

// detectKind prefers the extension; the MIME type is consulted only when the
// name carries none.
func detectKind(name, mimeType string) (domain.FileKind, bool) {
	if ext := strings.ToLower(filepath.Ext(name)); ext != "" {
		kind, ok := acceptedExtensions[ext]
		return kind, ok
	}
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return "", false
	}
	kind, ok := acceptedMimeTypes[strings.ToLower(mediaType)]
	return kind, ok
}

func previewJSON(p *domain.Preview, data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	var first json.RawMessage
	switch v := doc.(type) {
	case []any:
		n := min(len(v), jsonPreviewItems)
		p.Items = v[:n]
		if n > 0 {
			var raws []json.RawMessage
			if err := json.Unmarshal(data, &raws); err != nil {
				return err
			}
			first = raws[0]
		}
	default:
		p.Items = []any{v}
		first = data
	}

	if first != nil {
		keys, err := objectKeys(first)
		if err != nil {
			return err
		}
		p.Header = keys
	}
	for _, item := range p.Items {
		if obj, ok := item.(map[string]any); ok {
			p.Records = append(p.Records, obj)
		}
	}
	return nil
}

// objectKeys lists the keys of a JSON object in document order. Non-objects yield nil.
func objectKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil
	}

	var keys []string
	seen := make(map[string]struct{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys, nil
}

func previewText(p *domain.Preview, data []byte, strict bool) error {
	lines := leadingLines(string(data), textPreviewLines)
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return errors.New("no header row")
	}
	p.Lines = lines

	header := strings.Split(strings.TrimPrefix(lines[0], "\ufeff"), ",")
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	p.Header = header

	reader := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	if !strict {
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true
	}
	rows, err := reader.ReadAll()
	if err != nil {
		return err
	}
	// Records are keyed by the comma-split header, so the parsed header row
	// must have the same columns or every key would shift.
	if len(rows) > 0 && len(rows[0]) != len(header) {
		return fmt.Errorf("header has %d comma-separated tokens but %d CSV columns; quoted header names containing commas are not supported", len(header), len(rows[0]))
	}
	if len(rows) > 1 {
		p.Records = rowsToRecords(header, rows[1:])
	}
	return nil
}

// leadingLines returns up to n lines verbatim, without the trailing empty
// line a terminating newline produces.
func leadingLines(text string, n int) []string {
	lines := strings.SplitN(text, "\n", n+1)
	if len(lines) > n {
		lines = lines[:n]
	} else if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}
	return lines
}

func previewRows(p *domain.Preview, rows [][]string) error {
	if len(rows) == 0 {
		return errors.New("workbook has no rows")
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	p.Header = header

	data := rows[1:]
	if len(data) > sheetPreviewRows {
		data = data[:sheetPreviewRows]
	}
	p.Records = rowsToRecords(header, data)
	for _, rec := range p.Records {
		p.Items = append(p.Items, rec)
	}
	return nil
}

func rowsToRecords(header []string, rows [][]string) []domain.RawRecord {
	out := make([]domain.RawRecord, 0, len(rows))
	for _, row := range rows {
		rec := make(domain.RawRecord, len(header))
		for i, name := range header {
			if name == "" || i >= len(row) {
				continue
			}
			rec[name] = row[i]
		}
		out = append(out, rec)
	}
	return out
}

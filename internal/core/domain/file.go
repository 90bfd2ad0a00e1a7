package domain

// FileHandle is the selected blob together with its declared metadata.
type FileHandle struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
	Data     []byte `json:"-"`
}

type FileKind string

const (
	FileKindJSON FileKind = "json"
	FileKindCSV  FileKind = "csv"
	FileKindXLSX FileKind = "xlsx"
	FileKindXLS  FileKind = "xls"
	FileKindXML  FileKind = "xml"
	FileKindText FileKind = "txt"
	FileKindPDF  FileKind = "pdf"
)

// Preview is the bounded view of a file used to detect fields and to
// validate the mapping before anything is sent.
type Preview struct {
	Kind FileKind `json:"type"`
	Name string   `json:"name"`
	Size int64    `json:"size"`

	// Items holds the first JSON elements verbatim.
	Items []any `json:"items,omitempty"`
	// Lines holds the first CSV/text lines verbatim.
	Lines []string `json:"lines,omitempty"`
	// Header is the column list for CSV, text and spreadsheet files and the
	// key list, in document order, of the first JSON object.
	Header []string `json:"header,omitempty"`
	// Records are the preview rows as objects; they feed the validator.
	Records []RawRecord `json:"-"`
}

// MetadataOnly reports whether the preview carries no parsed content.
func (p *Preview) MetadataOnly() bool {
	switch p.Kind {
	case FileKindPDF, FileKindXLS, FileKindXML:
		return true
	default:
		return false
	}
}

package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/aman3729/Credit-Score-sub000/internal/core/domain"
)

const opApply = "apply"

type applyData struct {
	Summary       *domain.ApplySummary `json:"summary"`
	SuccessCount  *int                 `json:"successCount"`
	ErrorCount    *int                 `json:"errorCount"`
	FailedRecords []failedRecordWire   `json:"failedRecords"`
}

type failedRecordWire struct {
	Record  domain.RawRecord `json:"record"`
	Error   string           `json:"error"`
	Message string           `json:"message"`
	Row     *int             `json:"row"`
}

// Apply posts one file to the apply endpoint. It is never retried here:
// a repeated POST could score the same batch twice.
func (c *Client) Apply(ctx context.Context, req domain.ApplyRequest, progress func(sent, total int64)) (*domain.ApplyResponse, error) {
	body, contentType, err := encodeMultipart(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", opApply, err)
	}

	query := url.Values{}
	query.Set("autoScore", "true")
	query.Set("partnerId", req.PartnerID)
	query.Set("engine", string(req.Engine))
	target := c.endpoint("/schema-mapping/apply/%s", url.PathEscape(req.MappingID)) + "?" + query.Encode()

	total := int64(body.Len())
	reader := &progressReader{r: body, total: total, report: progress}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, reader)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", opApply, err)
	}
	httpReq.ContentLength = total
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Upload-Id", req.UploadID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.NetworkError{Operation: opApply, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, formatHTTPError(opApply, resp)
	}
	return decodeApplyResponse(resp.Body)
}

func encodeMultipart(req domain.ApplyRequest) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, req.Filename))
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.Body); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("partnerId", req.PartnerID); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

// decodeApplyResponse reads a 2xx answer. A body without a summary is not an
// error here; the caller decides what a missing summary means.
func decodeApplyResponse(r io.Reader) (*domain.ApplyResponse, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &domain.NetworkError{Operation: opApply, Err: err}
	}
	out := &domain.ApplyResponse{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		out.Message = strings.TrimSpace(string(raw))
		return out, nil
	}
	out.Message = env.backendMessage()

	data := applyData{}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, &domain.MalformedResponseError{Operation: opApply, Err: err}
		}
	} else if err := json.Unmarshal(raw, &data); err != nil {
		return nil, &domain.MalformedResponseError{Operation: opApply, Err: err}
	}

	out.Summary = data.Summary
	out.SuccessCount = data.SuccessCount
	out.ErrorCount = data.ErrorCount
	for _, f := range data.FailedRecords {
		msg := f.Message
		if msg == "" {
			msg = f.Error
		}
		out.FailedRecords = append(out.FailedRecords, domain.FailedRecord{Record: f.Record, Message: msg, Row: f.Row})
	}
	return out, nil
}

// progressReader reports bytes handed to the transport.
type progressReader struct {
	r      io.Reader
	sent   int64
	total  int64
	report func(sent, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.report != nil {
			p.report(p.sent, p.total)
		}
	}
	return n, err
}

package scoring

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aman3729/Credit-Score-sub000/internal/core/domain"
	"github.com/aman3729/Credit-Score-sub000/internal/infrastructure/resilience"
)

const maxErrorBody = 64 << 10

// Client talks to the remote scoring service: the apply endpoint and the
// mapping-profile store.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	executor       *resilience.Executor
	requestTimeout time.Duration
}

// New builds a client. The HTTP client has no timeout of its own: uploads are
// bounded by the caller's context and profile calls by requestTimeout.
func New(baseURL string, requestTimeout time.Duration, executor *resilience.Executor) *Client {
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{},
		executor:       executor,
		requestTimeout: requestTimeout,
	}
}

// envelope is the common response wrapper of the scoring service.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func (e envelope) backendMessage() string {
	if msg := strings.TrimSpace(e.Message); msg != "" {
		return msg
	}
	return strings.TrimSpace(e.Error)
}

func formatHTTPError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	serverErr := &domain.ServerError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil {
		serverErr.BackendMessage = env.backendMessage()
	} else if text := strings.TrimSpace(string(body)); text != "" && !strings.HasPrefix(text, "<") {
		serverErr.BackendMessage = text
	}
	return serverErr
}

func (c *Client) endpoint(format string, args ...any) string {
	return c.baseURL + fmt.Sprintf(format, args...)
}

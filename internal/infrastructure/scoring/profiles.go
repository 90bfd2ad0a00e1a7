package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/aman3729/Credit-Score-sub000/internal/core/domain"
	"github.com/aman3729/Credit-Score-sub000/internal/infrastructure/resilience"
)

const (
	opListProfiles  = "list_profiles"
	opCreateProfile = "create_profile"
)

type profileWire struct {
	ID            string                `json:"id"`
	MongoID       string                `json:"_id"`
	Name          string                `json:"name"`
	Description   string                `json:"description"`
	PartnerID     string                `json:"partnerId"`
	PartnerName   string                `json:"partnerName"`
	FileType      string                `json:"fileType"`
	FieldMappings []domain.FieldMapping `json:"fieldMappings"`
	CreatedAt     time.Time             `json:"createdAt"`
}

func (p profileWire) toDomain() domain.MappingProfile {
	id := p.ID
	if id == "" {
		id = p.MongoID
	}
	return domain.MappingProfile{
		ID:            id,
		Name:          p.Name,
		Description:   p.Description,
		PartnerID:     p.PartnerID,
		PartnerName:   p.PartnerName,
		FileType:      p.FileType,
		FieldMappings: p.FieldMappings,
		CreatedAt:     p.CreatedAt,
	}
}

// ListByPartner is a read and goes through the resilience executor.
func (c *Client) ListByPartner(ctx context.Context, partnerID string) ([]domain.MappingProfile, error) {
	profiles, err := resilience.Do(ctx, c.executor, "scoring."+opListProfiles, func(callCtx context.Context) ([]domain.MappingProfile, error) {
		return c.listByPartner(callCtx, partnerID)
	}, classifyScoringError)
	if err != nil {
		return nil, wrapTemporaryIfNeeded(opListProfiles, err)
	}
	return profiles, nil
}

func (c *Client) listByPartner(ctx context.Context, partnerID string) ([]domain.MappingProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/schema-mapping/partner/%s", url.PathEscape(partnerID)), nil)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", opListProfiles, err)
	}
	req.Header.Set("Accept", "application/json")

	var env envelope
	if err := c.do(req, opListProfiles, &env); err != nil {
		return nil, err
	}
	var wire []profileWire
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &wire); err != nil {
			return nil, fmt.Errorf("decode %s response: %w", opListProfiles, err)
		}
	}
	out := make([]domain.MappingProfile, 0, len(wire))
	for _, p := range wire {
		out = append(out, p.toDomain())
	}
	return out, nil
}

// Create is not retried: the store has no idempotency key.
func (c *Client) Create(ctx context.Context, in domain.NewProfileRequest) (*domain.MappingProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", opCreateProfile, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/schema-mapping/create"), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", opCreateProfile, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	var raw json.RawMessage
	if err := c.do(req, opCreateProfile, &raw); err != nil {
		return nil, err
	}

	var env envelope
	payload := []byte(raw)
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 && string(env.Data) != "null" {
		payload = env.Data
	}
	var wire profileWire
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", opCreateProfile, err)
	}
	profile := wire.toDomain()
	return &profile, nil
}

func (c *Client) do(req *http.Request, operation string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.NetworkError{Operation: operation, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return formatHTTPError(operation, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

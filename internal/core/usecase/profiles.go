package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aman3729/Credit-Score-sub000/internal/core/domain"
	"github.com/aman3729/Credit-Score-sub000/internal/core/ports"
)

const profileNameKind = "profile_name"

// ProfileService lists, applies and saves partner mapping profiles.
type ProfileService struct {
	store    ports.ProfileStore
	partners ports.PartnerDirectory
	engine   *MappingEngine
}

func NewProfileService(store ports.ProfileStore, partners ports.PartnerDirectory, engine *MappingEngine) *ProfileService {
	return &ProfileService{
		store:    store,
		partners: partners,
		engine:   engine,
	}
}

func (p *ProfileService) List(ctx context.Context, partnerID string) ([]domain.MappingProfile, error) {
	partnerID = strings.TrimSpace(partnerID)
	if partnerID == "" {
		return nil, &domain.GuardError{Reason: domain.GuardMissingPartner}
	}
	profiles, err := p.store.ListByPartner(ctx, partnerID)
	if err != nil {
		return nil, fmt.Errorf("list mapping profiles: %w", err)
	}
	return profiles, nil
}

// Apply loads the profile's mappings into the session, replacing the table.
func (p *ProfileService) Apply(ctx context.Context, s *domain.UploadSession, profileID string) error {
	view := s.View()
	profiles, err := p.List(ctx, view.PartnerID)
	if err != nil {
		return err
	}
	for _, profile := range profiles {
		if profile.ID == profileID {
			return p.engine.ApplyProfile(s, profile)
		}
	}
	return domain.WrapError(domain.ErrNotFound, "apply mapping profile", fmt.Errorf("profile=%s partner=%s", profileID, view.PartnerID))
}

// Save stores the session's mapping table as a new profile. The name comes
// from prompter; an empty or cancelled answer aborts before any remote call.
func (p *ProfileService) Save(ctx context.Context, s *domain.UploadSession, description string, prompter ports.Prompter) (*domain.MappingProfile, error) {
	view := s.View()
	if view.PartnerID == "" {
		return nil, &domain.GuardError{Reason: domain.GuardMissingPartner}
	}
	if len(view.Mappings) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "save mapping profile", errors.New("mapping table is empty"))
	}
	if prompter == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "save mapping profile", errors.New("profile name is required"))
	}

	name, ok, err := prompter.Prompt(ctx, domain.InputRequest{
		Kind:    profileNameKind,
		Message: "Enter a name for this mapping profile",
	})
	if err != nil {
		return nil, fmt.Errorf("prompt profile name: %w", err)
	}
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "save mapping profile", errors.New("profile name is required"))
	}

	partnerName := view.PartnerName
	if partnerName == "" && p.partners != nil {
		if partner, err := p.partners.Get(ctx, view.PartnerID); err == nil {
			partnerName = partner.Name
		}
	}

	req := domain.NewProfileRequest{
		Name:          name,
		Description:   strings.TrimSpace(description),
		PartnerID:     view.PartnerID,
		PartnerName:   partnerName,
		FileType:      profileFileType(view),
		FieldMappings: view.Mappings,
	}
	created, err := p.store.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create mapping profile: %w", err)
	}
	if len(created.FieldMappings) == 0 {
		created.FieldMappings = req.FieldMappings
	}
	if err := s.SelectMapping(created.ID); err != nil {
		return nil, err
	}
	return created, nil
}

func profileFileType(view domain.SessionView) string {
	if view.Preview != nil {
		return string(view.Preview.Kind)
	}
	if view.File != nil {
		if kind, ok := detectKind(view.File.Name, view.File.MimeType); ok {
			return string(kind)
		}
	}
	return ""
}

package partners

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aman3729/Credit-Score-sub000/internal/core/domain"
)

//go:embed partners.yaml
var defaultPartners []byte

type file struct {
	Partners []domain.Partner `yaml:"partners"`
}

// Directory is a fixed list of partners loaded once at startup.
type Directory struct {
	partners []domain.Partner
	byID     map[string]domain.Partner
}

// Load reads path, or the built-in list when path is empty.
func Load(path string) (*Directory, error) {
	raw := defaultPartners
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read partners file: %w", err)
		}
		raw = data
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Directory, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode partners file: %w", err)
	}

	d := &Directory{byID: make(map[string]domain.Partner, len(f.Partners))}
	for i, p := range f.Partners {
		p.ID = strings.TrimSpace(p.ID)
		p.Name = strings.TrimSpace(p.Name)
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("partner %d: id and name are required", i+1)
		}
		if _, dup := d.byID[p.ID]; dup {
			return nil, fmt.Errorf("partner %d: duplicate id %q", i+1, p.ID)
		}
		d.byID[p.ID] = p
		d.partners = append(d.partners, p)
	}
	if len(d.partners) == 0 {
		return nil, errors.New("partners file lists no partners")
	}
	return d, nil
}

func (d *Directory) List(context.Context) ([]domain.Partner, error) {
	return append([]domain.Partner(nil), d.partners...), nil
}

func (d *Directory) Get(_ context.Context, id string) (domain.Partner, error) {
	p, ok := d.byID[strings.TrimSpace(id)]
	if !ok {
		return domain.Partner{}, domain.WrapError(domain.ErrNotFound, "get partner", fmt.Errorf("partner %q", id))
	}
	return p, nil
}

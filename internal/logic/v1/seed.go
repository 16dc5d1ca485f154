package v1

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/duynhne/rango/internal/core/domain"
	"github.com/duynhne/rango/internal/logger"
)

//go:embed seed.yaml
var defaultSeed []byte

// SeedData is the category and page tree loaded by the populate command.
type SeedData struct {
	Categories []SeedCategory `yaml:"categories"`
}

// SeedCategory is one category with its pages.
type SeedCategory struct {
	Name  string     `yaml:"name"`
	Likes int        `yaml:"likes"`
	Pages []SeedPage `yaml:"pages"`
}

// SeedPage is one page of a SeedCategory.
type SeedPage struct {
	Title string `yaml:"title"`
	URL   string `yaml:"url"`
	Views int    `yaml:"views"`
}

// DefaultSeed returns the built-in seed data.
func DefaultSeed() (*SeedData, error) {
	return ParseSeed(defaultSeed)
}

// ParseSeed decodes YAML seed data and checks that every category and page is named.
func ParseSeed(raw []byte) (*SeedData, error) {
	var data SeedData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode seed data: %w", err)
	}
	for i, c := range data.Categories {
		if strings.TrimSpace(c.Name) == "" || Slugify(c.Name) == "" {
			return nil, fmt.Errorf("seed category #%d: name %q: %w", i+1, c.Name, ErrValidationFailed)
		}
		for j, p := range c.Pages {
			if strings.TrimSpace(p.Title) == "" || strings.TrimSpace(p.URL) == "" {
				return nil, fmt.Errorf("seed page #%d of %q: title and url required: %w", j+1, c.Name, ErrValidationFailed)
			}
		}
	}
	return &data, nil
}

// SeedResult counts what Populate touched.
type SeedResult struct {
	Categories int
	Pages      int
}

// Populate get-or-creates every category and page in data, so running it
// twice leaves the catalog unchanged.
func (s *CatalogService) Populate(ctx context.Context, data *SeedData) (SeedResult, error) {
	log := logger.FromContext(ctx)
	var res SeedResult

	for _, sc := range data.Categories {
		name := strings.TrimSpace(sc.Name)
		c, err := s.categories.GetOrCreate(ctx, domain.Category{Name: name, Slug: Slugify(name), Likes: sc.Likes})
		if err != nil {
			return res, persistence("seed category "+name, err)
		}
		res.Categories++

		for _, sp := range sc.Pages {
			p, err := s.pages.GetOrCreate(ctx, domain.Page{
				CategoryID: c.ID,
				Title:      strings.TrimSpace(sp.Title),
				URL:        NormalizeURL(sp.URL),
				Views:      sp.Views,
			})
			if err != nil {
				return res, persistence("seed page "+sp.Title, err)
			}
			res.Pages++
			log.Debug().Str("category", c.Name).Str("page", p.Title).Msg("Seeded page")
		}
		log.Info().Str("category", c.Name).Int("pages", len(sc.Pages)).Msg("Seeded category")
	}
	return res, nil
}

package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/assignhub/marketplace/internal/core/domain"
	"github.com/assignhub/marketplace/internal/core/ports"
)

type categoryFile struct {
	Categories []*domain.Category `yaml:"categories"`
}

// DefaultCategories is the catalogue seeded when no file is given.
func DefaultCategories() []*domain.Category {
	return []*domain.Category{
		{Name: "python-help", Description: "Help with Python programming assignments", HandlerType: domain.HandlerCompSci},
		{Name: "java-help", Description: "Help with Java programming assignments", HandlerType: domain.HandlerCompSci},
		{Name: "rstudio-help", Description: "Help with R and RStudio assignments", HandlerType: domain.HandlerCompSci},
		{Name: "matlab-help", Description: "Help with MATLAB assignments", HandlerType: domain.HandlerCompSci},
		{Name: "mathematics-help", Description: "Help with mathematics assignments", HandlerType: domain.HandlerExternalSTEM},
		{Name: "physics-help", Description: "Help with physics assignments", HandlerType: domain.HandlerExternalSTEM},
		{Name: "general", Description: "General assignments and AI-assisted tasks", HandlerType: domain.HandlerAIMisc, ChannelID: "1395552389054070849"},
	}
}

// LoadCategories decodes a YAML catalogue of the form
//
//	categories:
//	  - name: python-help
//	    description: ...
//	    handler_type: comp_sci_helpers
//	    channel_id: "123"
func LoadCategories(r io.Reader) ([]*domain.Category, error) {
	var f categoryFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	seen := make(map[string]bool, len(f.Categories))
	for i, c := range f.Categories {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			return nil, domain.NewValidationError("name", fmt.Sprintf("category #%d has no name", i+1))
		}
		if seen[c.Name] {
			return nil, domain.NewValidationError("name", fmt.Sprintf("duplicate category %q", c.Name))
		}
		seen[c.Name] = true
		if !domain.ValidHandlerType(c.HandlerType) {
			return nil, domain.NewValidationError("handler_type", fmt.Sprintf("category %q has unknown handler type %q", c.Name, c.HandlerType))
		}
	}
	return f.Categories, nil
}

// SeedCategories upserts every category by name.
func SeedCategories(ctx context.Context, repo ports.CategoryRepository, categories []*domain.Category, log zerolog.Logger) error {
	for _, c := range categories {
		if err := repo.Upsert(ctx, c); err != nil {
			return domain.WrapStorage("upsert category "+c.Name, err)
		}
		log.Debug().Str("category", c.Name).Msg("category seeded")
	}
	log.Info().Int("count", len(categories)).Msg("categories seeded")
	return nil
}

package seed

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"greenzone/internal/model"

	"gopkg.in/yaml.v3"
)

// Catalogue is a seed document: products to register and steps to record.
type Catalogue struct {
	Products []ProductEntry    `yaml:"products"`
	Steps    []model.StepInput `yaml:"steps"`
}

// ProductEntry describes one product to register.
type ProductEntry struct {
	ID            string         `yaml:"productId"`
	Name          string         `yaml:"name"`
	Description   string         `yaml:"description"`
	Location      string         `yaml:"location"`
	HarvestDate   time.Time      `yaml:"harvestDate"`
	Farmer        string         `yaml:"farmer"`
	Certification string         `yaml:"certification"`
	Price         int64          `yaml:"price"`
	RegisteredBy  model.Identity `yaml:"registeredBy"`

	// VerifiedBy, when set, verifies the product after registration.
	VerifiedBy model.Identity `yaml:"verifiedBy"`
}

// RegisterRequest converts the entry into a registry request.
func (e ProductEntry) RegisterRequest() *model.RegisterRequest {
	return &model.RegisterRequest{
		ID:            e.ID,
		Name:          e.Name,
		Description:   e.Description,
		Location:      e.Location,
		HarvestDate:   e.HarvestDate,
		Farmer:        e.Farmer,
		Certification: e.Certification,
		Price:         e.Price,
		RegisteredBy:  e.RegisteredBy,
	}
}

// Loader defines the interface for loading seed catalogues.
type Loader interface {
	// Load reads the catalogue stored under name. Names ending in ".gz" are
	// gzip-compressed YAML, anything else is plain YAML.
	Load(ctx context.Context, name string) (*Catalogue, error)
}

// Decode parses a catalogue from r, decompressing it first when gzipped is true.
func Decode(r io.Reader, gzipped bool) (*Catalogue, error) {
	if gzipped {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var c Catalogue
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return &c, nil
		}
		return nil, fmt.Errorf("failed to decode catalogue: %w", err)
	}

	return &c, nil
}

func isGzip(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".gz")
}

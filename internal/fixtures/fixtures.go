// Package fixtures loads the read-only test data scenarios run against
package fixtures

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/themizzi/retailcheck/internal/cart"
	"github.com/themizzi/retailcheck/internal/pages"
)

//go:embed testdata.yaml
var defaultData []byte

var ErrInvalidFixtures = errors.New("invalid fixtures")

// SearchProduct is found through the header search
type SearchProduct struct {
	Name           string `yaml:"name"`
	ResultSelector string `yaml:"resultSelector"`
}

// VariantProduct is opened by URL and needs a variant chosen
type VariantProduct struct {
	URL           string `yaml:"url"`
	ColorSelector string `yaml:"colorSelector"`
	ColorText     string `yaml:"colorText"`
}

type Products struct {
	PencilSharpener SearchProduct  `yaml:"pencilSharpener"`
	Scissors        VariantProduct `yaml:"scissors"`
}

type Shipping struct {
	CountryCode string `yaml:"countryCode"`
	Location    string `yaml:"location"`
}

type Help struct {
	Query        string `yaml:"query"`
	ArticleTitle string `yaml:"articleTitle"`
}

// Data is the fixture file
type Data struct {
	Products Products `yaml:"products"`
	Shipping Shipping `yaml:"shipping"`
	Help     Help     `yaml:"help"`
}

// Default returns the embedded fixtures
func Default() (*Data, error) {
	return Parse(defaultData)
}

// Load reads fixtures from path, or the embedded defaults when path is empty
func Load(path string) (*Data, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates YAML fixtures. Unknown keys are rejected.
func Parse(raw []byte) (*Data, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var d Data
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFixtures, err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate reports every missing field at once
func (d *Data) Validate() error {
	required := []struct {
		field, value string
	}{
		{"products.pencilSharpener.name", d.Products.PencilSharpener.Name},
		{"products.pencilSharpener.resultSelector", d.Products.PencilSharpener.ResultSelector},
		{"products.scissors.url", d.Products.Scissors.URL},
		{"products.scissors.colorSelector", d.Products.Scissors.ColorSelector},
		{"products.scissors.colorText", d.Products.Scissors.ColorText},
		{"shipping.countryCode", d.Shipping.CountryCode},
		{"shipping.location", d.Shipping.Location},
		{"help.query", d.Help.Query},
		{"help.articleTitle", d.Help.ArticleTitle},
	}

	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidFixtures, strings.Join(missing, ", "))
	}
	if err := d.Locale().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFixtures, err)
	}
	return nil
}

// Locale is the shipping destination
func (d *Data) Locale() pages.Locale {
	return pages.Locale{Code: d.Shipping.CountryCode, Name: d.Shipping.Location}
}

// ShoppingPlan is the two-product cart the shipping scenarios start from
func (d *Data) ShoppingPlan() cart.Plan {
	locale := d.Locale()
	return cart.Plan{
		Locale: &locale,
		Items: []cart.Item{
			{
				Name:           d.Products.PencilSharpener.Name,
				SearchTerm:     d.Products.PencilSharpener.Name,
				ResultSelector: d.Products.PencilSharpener.ResultSelector,
			},
			{
				Name:            "scissors",
				URL:             d.Products.Scissors.URL,
				VariantSelector: d.Products.Scissors.ColorSelector,
				VariantText:     d.Products.Scissors.ColorText,
				DismissUpsell:   true,
			},
		},
	}
}

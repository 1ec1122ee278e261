// Package scenarios holds the named end-to-end checks and the registry the
// CLI and the e2e tests pick them from.
package scenarios

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/themizzi/retailcheck/internal/cart"
	"github.com/themizzi/retailcheck/internal/fixtures"
	"github.com/themizzi/retailcheck/internal/pages"
)

var (
	ErrUnknownScenario   = errors.New("unknown scenario")
	ErrDuplicateScenario = errors.New("scenario already registered")
)

// QualifyingExtraUnits is how many more pencil sharpeners push the cart over
// the free-shipping threshold
const QualifyingExtraUnits = 3

// Env is what a scenario runs against: one browser page and the fixture data
type Env struct {
	Driver   pages.Driver
	Timeouts pages.Timeouts
	Fixtures *fixtures.Data
	Cart     *cart.Manager
	Logger   *zap.Logger
}

// NewEnv wires the cart lifecycle manager to d
func NewEnv(d pages.Driver, timeouts pages.Timeouts, data *fixtures.Data, logger *zap.Logger, opts ...cart.Option) *Env {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Env{
		Driver:   d,
		Timeouts: timeouts,
		Fixtures: data,
		Cart:     cart.NewManager(d, timeouts, logger, opts...),
		Logger:   logger,
	}
}

// Home returns a fresh home page object
func (e *Env) Home() *pages.HomePage {
	return pages.NewHomePage(e.Driver, e.Timeouts, e.Logger)
}

// Scenario is one named check
type Scenario struct {
	Name        string
	Description string
	Run         func(ctx context.Context, env *Env) error
}

// Registry is an ordered set of scenarios
type Registry struct {
	byName map[string]Scenario
	order  []string
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Scenario)}
}

// Register adds s. Names must be unique and non-empty.
func (r *Registry) Register(s Scenario) error {
	if strings.TrimSpace(s.Name) == "" || s.Run == nil {
		return fmt.Errorf("scenario needs a name and a run function")
	}
	if _, ok := r.byName[s.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateScenario, s.Name)
	}
	r.byName[s.Name] = s
	r.order = append(r.order, s.Name)
	return nil
}

// Get looks a scenario up by name
func (r *Registry) Get(name string) (Scenario, error) {
	s, ok := r.byName[name]
	if !ok {
		return Scenario{}, fmt.Errorf("%w: %s (known: %s)", ErrUnknownScenario, name, strings.Join(r.Names(), ", "))
	}
	return s, nil
}

// Names lists registered scenarios in registration order
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// All returns every scenario in registration order
func (r *Registry) All() []Scenario {
	out := make([]Scenario, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Select returns the named scenarios, or all of them when names is empty.
// Every unknown name is reported.
func (r *Registry) Select(names []string) ([]Scenario, error) {
	if len(names) == 0 {
		return r.All(), nil
	}

	var out []Scenario
	var unknown []string
	seen := make(map[string]bool)
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		s, ok := r.byName[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		out = append(out, s)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: %s", ErrUnknownScenario, strings.Join(unknown, ", "))
	}
	return out, nil
}

// Default returns the registry of built-in scenarios
func Default() *Registry {
	r := NewRegistry()
	for _, s := range []Scenario{
		{
			Name:        "homepage-layout",
			Description: "home page shows the logo, a usable search box and the main menu",
			Run:         HomepageLayout,
		},
		{
			Name:        "customer-service-help",
			Description: `help search finds the "Where's My Stuff?" article`,
			Run:         CustomerServiceHelp,
		},
		{
			Name:        "shipping-below-threshold",
			Description: "a two-item cart does not qualify for free shipping",
			Run:         ShippingBelowThreshold,
		},
		{
			Name:        "shipping-qualifies",
			Description: "more pencil sharpeners push the cart over the free-shipping threshold",
			Run:         ShippingQualifies,
		},
		{
			Name:        "locale-round-trip",
			Description: "the delivery country can be switched through the location dialog",
			Run:         LocaleRoundTrip,
		},
	} {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
	return r
}

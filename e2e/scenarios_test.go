//go:build e2e

package e2e

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/themizzi/retailcheck/internal/pages"
	"github.com/themizzi/retailcheck/internal/scenarios"
	"github.com/themizzi/retailcheck/internal/session"
)

const scenarioTimeout = 5 * time.Minute

// runScenario runs one built-in scenario in a fresh browser context, retrying
// as the suite configuration allows
func runScenario(t *testing.T, name string) {
	t.Helper()

	sc, err := scenarios.Default().Get(name)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), scenarioTimeout)
	defer cancel()

	var lastErr error
	for attempt := 1; attempt <= 1+suite.Retries(); attempt++ {
		artifacts, err := browser.WithSession(ctx, name, func(ctx context.Context, s *session.Session) error {
			env := scenarios.NewEnv(s.Driver, suite.PageTimeouts(), data, zaptest.NewLogger(t))
			return sc.Run(ctx, env)
		})
		if err == nil {
			return
		}
		lastErr = err
		t.Logf("attempt %d failed: %v (screenshot %q, video %q)", attempt, err, artifacts.ScreenshotPath, artifacts.VideoPath)
	}
	t.Fatalf("%s failed: %v", name, lastErr)
}

// Feature: Customer Service
//
//	As a customer
//	I want to search the help center
//	So that I can find out where my order is
func TestCustomerServiceHelp(t *testing.T) {
	runScenario(t, "customer-service-help")
}

// Feature: Free shipping threshold
//
//	Given a cart with one pencil sharpener and one pair of scissors shipped to Hong Kong
//	Then the cart does not qualify for free shipping
//	When three more pencil sharpeners are added
//	Then the cart qualifies for free shipping
func TestShippingBelowThreshold(t *testing.T) {
	runScenario(t, "shipping-below-threshold")
}

func TestShippingQualifies(t *testing.T) {
	runScenario(t, "shipping-qualifies")
}

func TestLocaleRoundTrip(t *testing.T) {
	runScenario(t, "locale-round-trip")
}

func TestHomepageLayout(t *testing.T) {
	runScenario(t, "homepage-layout")
}

// An empty cart is cleared without error
func TestTeardownOnEmptyCart(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), scenarioTimeout)
	defer cancel()

	_, err := browser.WithSession(ctx, "empty-cart-teardown", func(ctx context.Context, s *session.Session) error {
		env := scenarios.NewEnv(s.Driver, suite.PageTimeouts(), data, zaptest.NewLogger(t))
		if err := env.Cart.Teardown(ctx); err != nil {
			return err
		}
		cart := pages.NewCartPage(s.Driver, suite.PageTimeouts(), zaptest.NewLogger(t))
		items, err := cart.LineItems(ctx)
		if err != nil {
			return err
		}
		if len(items) != 0 {
			t.Errorf("expected an empty cart, got %v", items)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

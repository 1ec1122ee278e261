package scenarios_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/themizzi/retailcheck/internal/cart"
	"github.com/themizzi/retailcheck/internal/fixtures"
	"github.com/themizzi/retailcheck/internal/pages"
	"github.com/themizzi/retailcheck/internal/pages/pagetest"
	"github.com/themizzi/retailcheck/internal/scenarios"
	"github.com/themizzi/retailcheck/internal/services"
)

func fastTimeouts() pages.Timeouts {
	return pages.Timeouts{
		Default:  20 * time.Millisecond,
		PageLoad: 20 * time.Millisecond,
		Assert:   20 * time.Millisecond,
		Probe:    10 * time.Millisecond,
		Settle:   20 * time.Millisecond,
		Poll:     time.Millisecond,
	}
}

func newEnv(t *testing.T, shop *pagetest.Shop) *scenarios.Env {
	t.Helper()
	data, err := fixtures.Default()
	require.NoError(t, err)
	return scenarios.NewEnv(shop, fastTimeouts(), data, zaptest.NewLogger(t), cart.WithTeardownTimeout(time.Second))
}

func TestDefaultRegistry(t *testing.T) {
	r := scenarios.Default()

	assert.Equal(t, []string{
		"homepage-layout",
		"customer-service-help",
		"shipping-below-threshold",
		"shipping-qualifies",
		"locale-round-trip",
	}, r.Names())

	s, err := r.Get("shipping-qualifies")
	require.NoError(t, err)
	assert.NotEmpty(t, s.Description)

	_, err = r.Get("checkout")
	assert.ErrorIs(t, err, scenarios.ErrUnknownScenario)
}

func TestRegistry(t *testing.T) {
	noop := func(context.Context, *scenarios.Env) error { return nil }

	t.Run("duplicate", func(t *testing.T) {
		r := scenarios.NewRegistry()
		require.NoError(t, r.Register(scenarios.Scenario{Name: "a", Run: noop}))
		assert.ErrorIs(t, r.Register(scenarios.Scenario{Name: "a", Run: noop}), scenarios.ErrDuplicateScenario)
	})

	t.Run("invalid", func(t *testing.T) {
		r := scenarios.NewRegistry()
		assert.Error(t, r.Register(scenarios.Scenario{Name: " ", Run: noop}))
		assert.Error(t, r.Register(scenarios.Scenario{Name: "b"}))
	})

	t.Run("select", func(t *testing.T) {
		r := scenarios.NewRegistry()
		for _, name := range []string{"a", "b", "c"} {
			require.NoError(t, r.Register(scenarios.Scenario{Name: name, Run: noop}))
		}

		all, err := r.Select(nil)
		require.NoError(t, err)
		assert.Len(t, all, 3)

		some, err := r.Select([]string{"c", "a", "c"})
		require.NoError(t, err)
		require.Len(t, some, 2)
		assert.Equal(t, "c", some[0].Name)
		assert.Equal(t, "a", some[1].Name)

		_, err = r.Select([]string{"a", "z", "y"})
		assert.ErrorIs(t, err, scenarios.ErrUnknownScenario)
		assert.ErrorContains(t, err, "y, z")
	})
}

func TestHomepageLayout(t *testing.T) {
	assert.NoError(t, scenarios.HomepageLayout(context.Background(), newEnv(t, pagetest.NewShop())))
}

func TestCustomerServiceHelp(t *testing.T) {
	ctx := context.Background()

	t.Run("article found", func(t *testing.T) {
		shop := pagetest.NewShop()
		require.NoError(t, scenarios.CustomerServiceHelp(ctx, newEnv(t, shop)))
		assert.Contains(t, shop.Actions(), `submit `+pagetest.SelHelpSearch+` "where is my stuff"`)
	})

	t.Run("article missing", func(t *testing.T) {
		shop := pagetest.NewShop()
		shop.HelpArticles = map[string]string{}
		err := scenarios.CustomerServiceHelp(ctx, newEnv(t, shop))
		assert.ErrorIs(t, err, pages.ErrAssertion)
	})
}

func TestShippingBelowThreshold(t *testing.T) {
	ctx := context.Background()

	t.Run("passes and empties the cart", func(t *testing.T) {
		shop := pagetest.NewShop()
		require.NoError(t, scenarios.ShippingBelowThreshold(ctx, newEnv(t, shop)))
		assert.Zero(t, shop.CartLines())
		assert.Equal(t, "Hong Kong", shop.DeliveryCountry())
	})

	t.Run("cart already qualifies", func(t *testing.T) {
		shop := pagetest.NewShop()
		shop.ThresholdCents = 1000
		err := scenarios.ShippingBelowThreshold(ctx, newEnv(t, shop))
		assert.ErrorIs(t, err, pages.ErrAssertion)
		assert.Zero(t, shop.CartLines(), "teardown runs after a failed assertion")
	})
}

func TestShippingQualifies(t *testing.T) {
	ctx := context.Background()

	t.Run("passes", func(t *testing.T) {
		shop := pagetest.NewShop()
		require.NoError(t, scenarios.ShippingQualifies(ctx, newEnv(t, shop)))
		assert.Zero(t, shop.CartLines())
	})

	t.Run("quantity capped", func(t *testing.T) {
		shop := pagetest.NewShop()
		shop.MaxQuantity = 1
		err := scenarios.ShippingQualifies(ctx, newEnv(t, shop))
		assert.ErrorIs(t, err, pages.ErrAssertion)
		assert.Zero(t, shop.CartLines())
	})

	t.Run("stuck cart", func(t *testing.T) {
		shop := pagetest.NewShop()
		shop.StuckDelete = true
		env := scenarios.NewEnv(shop, fastTimeouts(), mustFixtures(t), nil,
			cart.WithTeardownTimeout(time.Second), cart.WithMaxClearIterations(3))

		err := scenarios.ShippingQualifies(ctx, env)
		assert.ErrorIs(t, err, cart.ErrTeardown)
		assert.ErrorIs(t, err, pages.ErrCartNotEmptied)

		// both the in-body and the final teardown failures are reported as teardown
		primary, down := services.SplitTeardown(err)
		assert.NoError(t, primary)
		require.Error(t, down)
		assert.Contains(t, down.Error(), pages.ErrCartNotEmptied.Error())
	})

	t.Run("prime only sharpener", func(t *testing.T) {
		shop := pagetest.NewShop()
		shop.Catalog[0].PrimeOnly = true
		err := scenarios.ShippingQualifies(ctx, newEnv(t, shop))
		assert.ErrorIs(t, err, cart.ErrSetup)
		assert.ErrorIs(t, err, pages.ErrPrimeOnlyBlocked)
	})
}

func TestLocaleRoundTrip(t *testing.T) {
	ctx := context.Background()

	t.Run("switches country", func(t *testing.T) {
		shop := pagetest.NewShop()
		require.NoError(t, scenarios.LocaleRoundTrip(ctx, newEnv(t, shop)))
		assert.Equal(t, "Hong Kong", shop.DeliveryCountry())
	})

	t.Run("country not offered", func(t *testing.T) {
		shop := pagetest.NewShop()
		shop.Countries = shop.Countries[:1]
		err := scenarios.LocaleRoundTrip(ctx, newEnv(t, shop))
		assert.True(t, errors.Is(err, pages.ErrLocaleNotFound), "got %v", err)
	})
}

func mustFixtures(t *testing.T) *fixtures.Data {
	t.Helper()
	data, err := fixtures.Default()
	require.NoError(t, err)
	return data
}

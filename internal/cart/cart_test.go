package cart_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/themizzi/retailcheck/internal/cart"
	"github.com/themizzi/retailcheck/internal/pages"
	"github.com/themizzi/retailcheck/internal/pages/pagetest"
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

func sharpener() cart.Item {
	return cart.Item{
		Name:           "pencil sharpener",
		SearchTerm:     "pencil sharpener",
		ResultSelector: `img[alt*="Bostitch Office Personal Electric Pencil Sharpener"]`,
	}
}

func scissors() cart.Item {
	return cart.Item{
		Name:            "scissors",
		URL:             pagetest.ScissorsPath,
		VariantSelector: pagetest.ScissorsColor,
		VariantText:     "Black",
		DismissUpsell:   true,
	}
}

func primeOnly(shop *pagetest.Shop, name, path string) cart.Item {
	shop.Catalog = append(shop.Catalog, pagetest.Product{Name: name, Path: path, PriceCents: 2500, PrimeOnly: true})
	return cart.Item{Name: name, URL: path}
}

func TestSetup(t *testing.T) {
	ctx := context.Background()

	t.Run("two products with locale", func(t *testing.T) {
		shop := pagetest.NewShop()
		m := cart.NewManager(shop, fastTimeouts(), zaptest.NewLogger(t))

		page, err := m.Setup(ctx, cart.Plan{
			Locale: &pages.Locale{Code: "HK", Name: "Hong Kong"},
			Items:  []cart.Item{sharpener(), scissors()},
		})
		require.NoError(t, err)
		require.NotNil(t, page)

		assert.Equal(t, 2, shop.CartLines())
		assert.Equal(t, "Hong Kong", shop.DeliveryCountry())
		require.NoError(t, page.AssertShippingThreshold(ctx, pages.ShippingBelowThreshold))
	})

	t.Run("prime-only items are aggregated", func(t *testing.T) {
		shop := pagetest.NewShop()
		first := primeOnly(shop, "Prime Deal One", "/dp/PRIME1")
		second := primeOnly(shop, "Prime Deal Two", "/dp/PRIME2")
		m := cart.NewManager(shop, fastTimeouts(), zaptest.NewLogger(t))

		_, err := m.Setup(ctx, cart.Plan{Items: []cart.Item{first, scissors(), second}})
		require.Error(t, err)
		assert.ErrorIs(t, err, cart.ErrSetup)
		assert.ErrorIs(t, err, pages.ErrPrimeOnlyBlocked)
		assert.Contains(t, err.Error(), "Prime Deal One")
		assert.Contains(t, err.Error(), "Prime Deal Two")
		// the unblocked item was still added
		assert.Equal(t, 1, shop.CartLines())
	})

	t.Run("other failures abort", func(t *testing.T) {
		shop := pagetest.NewShop()
		m := cart.NewManager(shop, fastTimeouts(), zaptest.NewLogger(t))

		missing := cart.Item{Name: "gone", URL: "/dp/GONE"}
		_, err := m.Setup(ctx, cart.Plan{Items: []cart.Item{missing, sharpener()}})
		assert.ErrorIs(t, err, cart.ErrSetup)
		assert.False(t, errors.Is(err, pages.ErrPrimeOnlyBlocked))
		assert.Zero(t, shop.CartLines())
	})

	t.Run("item without a route", func(t *testing.T) {
		m := cart.NewManager(pagetest.NewShop(), fastTimeouts(), nil)
		_, err := m.Setup(ctx, cart.Plan{Items: []cart.Item{{Name: "nothing"}}})
		assert.ErrorIs(t, err, cart.ErrSetup)
	})

	t.Run("unknown locale", func(t *testing.T) {
		m := cart.NewManager(pagetest.NewShop(), fastTimeouts(), nil)
		_, err := m.Setup(ctx, cart.Plan{Locale: &pages.Locale{Code: "ZZ", Name: "Nowhere"}})
		assert.ErrorIs(t, err, cart.ErrSetup)
		assert.ErrorIs(t, err, pages.ErrLocaleNotFound)
	})
}

func TestTeardown(t *testing.T) {
	ctx := context.Background()

	t.Run("empties the cart", func(t *testing.T) {
		shop := pagetest.NewShop()
		shop.AddToCart(pagetest.SharpenerName, 4)
		shop.AddToCart(pagetest.ScissorsName, 1)
		m := cart.NewManager(shop, fastTimeouts(), zaptest.NewLogger(t))

		require.NoError(t, m.Teardown(ctx))
		assert.Zero(t, shop.CartLines())
	})

	t.Run("stuck delete", func(t *testing.T) {
		shop := pagetest.NewShop()
		shop.AddToCart(pagetest.SharpenerName, 1)
		shop.StuckDelete = true
		m := cart.NewManager(shop, fastTimeouts(), nil, cart.WithMaxClearIterations(2))

		err := m.Teardown(ctx)
		assert.ErrorIs(t, err, cart.ErrTeardown)
		assert.ErrorIs(t, err, pages.ErrCartNotEmptied)

		var terr *cart.TeardownError
		require.ErrorAs(t, err, &terr)
		assert.ErrorIs(t, terr.Err, pages.ErrCartNotEmptied)
	})
}

func TestRun(t *testing.T) {
	plan := cart.Plan{Items: []cart.Item{sharpener(), scissors()}}

	t.Run("threshold flips after increasing quantity", func(t *testing.T) {
		shop := pagetest.NewShop()
		m := cart.NewManager(shop, fastTimeouts(), zaptest.NewLogger(t))

		err := m.Run(context.Background(), plan, func(ctx context.Context, page *pages.CartPage) error {
			if err := page.AssertShippingThreshold(ctx, pages.ShippingBelowThreshold); err != nil {
				return err
			}
			if err := page.IncreaseQuantity(ctx, "Bostitch", 3); err != nil {
				return err
			}
			return page.AssertShippingThreshold(ctx, pages.ShippingQualified)
		})
		require.NoError(t, err)
		assert.Zero(t, shop.CartLines())
	})

	t.Run("body error still tears down", func(t *testing.T) {
		shop := pagetest.NewShop()
		m := cart.NewManager(shop, fastTimeouts(), nil)
		boom := errors.New("boom")

		err := m.Run(context.Background(), plan, func(context.Context, *pages.CartPage) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.Zero(t, shop.CartLines())
	})

	t.Run("setup error still tears down", func(t *testing.T) {
		shop := pagetest.NewShop()
		blocked := primeOnly(shop, "Prime Deal", "/dp/PRIME")
		m := cart.NewManager(shop, fastTimeouts(), nil)

		called := false
		err := m.Run(context.Background(), cart.Plan{Items: []cart.Item{sharpener(), blocked}},
			func(context.Context, *pages.CartPage) error {
				called = true
				return nil
			})
		assert.ErrorIs(t, err, cart.ErrSetup)
		assert.False(t, called)
		assert.Zero(t, shop.CartLines())
	})

	t.Run("cancelled body still tears down", func(t *testing.T) {
		shop := pagetest.NewShop()
		m := cart.NewManager(shop, fastTimeouts(), nil)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		err := m.Run(ctx, plan, func(ctx context.Context, _ *pages.CartPage) error {
			cancel()
			return ctx.Err()
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, errors.Is(err, cart.ErrTeardown))
		assert.Zero(t, shop.CartLines())
	})

	t.Run("body and teardown errors are both kept", func(t *testing.T) {
		shop := pagetest.NewShop()
		m := cart.NewManager(shop, fastTimeouts(), nil, cart.WithMaxClearIterations(1))
		boom := errors.New("boom")

		err := m.Run(context.Background(), plan, func(context.Context, *pages.CartPage) error {
			shop.StuckDelete = true
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.ErrorIs(t, err, cart.ErrTeardown)
	})

	t.Run("panicking body still tears down", func(t *testing.T) {
		shop := pagetest.NewShop()
		m := cart.NewManager(shop, fastTimeouts(), nil)

		assert.PanicsWithValue(t, "boom", func() {
			_ = m.Run(context.Background(), plan, func(context.Context, *pages.CartPage) error {
				assert.Equal(t, 2, shop.CartLines())
				panic("boom")
			})
		})
		assert.Zero(t, shop.CartLines())
	})
}

// Tearing down any number of times, from any cart, ends with an empty cart and no error.
func TestTeardownIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		shop := pagetest.NewShop()
		for _, name := range []string{pagetest.SharpenerName, pagetest.ScissorsName} {
			if qty := rapid.IntRange(0, 4).Draw(t, name); qty > 0 {
				shop.AddToCart(name, qty)
			}
		}
		m := cart.NewManager(shop, fastTimeouts(), nil)

		runs := rapid.IntRange(1, 3).Draw(t, "runs")
		for i := 0; i < runs; i++ {
			if err := m.Teardown(context.Background()); err != nil {
				t.Fatalf("teardown %d: %v", i, err)
			}
		}
		if n := shop.CartLines(); n != 0 {
			t.Fatalf("%d lines left", n)
		}
	})
}

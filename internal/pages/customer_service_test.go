package pages_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/themizzi/retailcheck/internal/driver"
	"github.com/themizzi/retailcheck/internal/pages"
	"github.com/themizzi/retailcheck/internal/pages/pagetest"
)

func TestCustomerService(t *testing.T) {
	ctx := context.Background()

	t.Run("article found", func(t *testing.T) {
		cs := pages.NewCustomerServicePage(pagetest.NewShop(), fastTimeouts(), zaptest.NewLogger(t))
		require.NoError(t, cs.Visit(ctx))
		require.NoError(t, cs.ValidateHelpCenter(ctx))

		require.NoError(t, cs.SearchHelp(ctx, "where is my stuff"))
		assert.NoError(t, cs.AssertArticleVisible(ctx, "Where's My Stuff?"))
	})

	t.Run("article missing", func(t *testing.T) {
		cs := pages.NewCustomerServicePage(pagetest.NewShop(), fastTimeouts(), nil)
		require.NoError(t, cs.Visit(ctx))
		require.NoError(t, cs.SearchHelp(ctx, "returns"))

		err := cs.AssertArticleVisible(ctx, "Where's My Stuff?")
		assert.True(t, errors.Is(err, pages.ErrAssertion), "got %v", err)
	})

	t.Run("alternative search input", func(t *testing.T) {
		shop := pagetest.NewShop()
		shop.NoHubSearch = true
		cs := pages.NewCustomerServicePage(shop, fastTimeouts(), nil)

		assert.ErrorIs(t, cs.Visit(ctx), driver.ErrElementNotFound)
		assert.ErrorIs(t, cs.SearchHelp(ctx, "where is my stuff"), driver.ErrElementNotFound)

		require.NoError(t, cs.SearchHelpAlternative(ctx, "where is my stuff"))
		assert.NoError(t, cs.AssertArticleVisible(ctx, "Where's My Stuff?"))
	})
}

package scenarios

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/themizzi/retailcheck/internal/pages"
)

// HomepageLayout checks the home page landmarks
func HomepageLayout(ctx context.Context, env *Env) error {
	home := env.Home()
	if err := home.Visit(ctx); err != nil {
		return err
	}
	return errors.Join(
		home.ValidateHomepage(ctx),
		home.ValidateSearchBox(ctx),
		home.ValidateMainMenu(ctx),
	)
}

// CustomerServiceHelp searches the help center for the fixture query and
// expects the fixture article
func CustomerServiceHelp(ctx context.Context, env *Env) error {
	help := env.Fixtures.Help

	home := env.Home()
	if err := home.Visit(ctx); err != nil {
		return err
	}
	cs, err := home.GoToCustomerService(ctx)
	if err != nil {
		return err
	}
	if err := cs.SearchHelp(ctx, help.Query); err != nil {
		return err
	}
	return cs.AssertArticleVisible(ctx, help.ArticleTitle)
}

// ShippingBelowThreshold fills the cart with one of each fixture product and
// expects the "add more for free shipping" banner
func ShippingBelowThreshold(ctx context.Context, env *Env) error {
	return env.Cart.Run(ctx, env.Fixtures.ShoppingPlan(), func(ctx context.Context, cart *pages.CartPage) error {
		return cart.AssertShippingThreshold(ctx, pages.ShippingBelowThreshold)
	})
}

// ShippingQualifies raises the pencil sharpener quantity until the cart
// qualifies for free shipping, then empties the cart and checks it is empty
func ShippingQualifies(ctx context.Context, env *Env) error {
	fragment := firstWord(env.Fixtures.Products.PencilSharpener.ResultSelector, env.Fixtures.Products.PencilSharpener.Name)

	return env.Cart.Run(ctx, env.Fixtures.ShoppingPlan(), func(ctx context.Context, cart *pages.CartPage) error {
		if err := cart.IncreaseQuantity(ctx, fragment, QualifyingExtraUnits); err != nil {
			return err
		}
		if err := cart.AssertShippingThreshold(ctx, pages.ShippingQualified); err != nil {
			return err
		}

		if err := env.Cart.Teardown(ctx); err != nil {
			return err
		}
		items, err := cart.LineItems(ctx)
		if err != nil {
			return err
		}
		if len(items) != 0 {
			return fmt.Errorf("%w: %d rows left after teardown", pages.ErrAssertion, len(items))
		}
		return nil
	})
}

// LocaleRoundTrip switches the delivery country to the fixture location and
// checks the header shows it
func LocaleRoundTrip(ctx context.Context, env *Env) error {
	locale := env.Fixtures.Locale()

	home := env.Home()
	if err := home.Visit(ctx); err != nil {
		return err
	}
	if err := home.SetLocale(ctx, locale); err != nil {
		return err
	}

	shown, err := home.DeliveryLocation(ctx)
	if err != nil {
		return err
	}
	env.Logger.Info("delivery location", zap.String("shown", shown))
	if !strings.Contains(shown, locale.Name) {
		return fmt.Errorf("%w: delivery location %q does not mention %q", pages.ErrAssertion, shown, locale.Name)
	}
	return nil
}

// firstWord picks the brand word cart rows are matched on: the first word of
// the alt text in the result selector, else of the product name.
func firstWord(resultSelector, name string) string {
	source := name
	if _, after, ok := strings.Cut(resultSelector, `alt*="`); ok {
		source = after
	}
	if fields := strings.Fields(source); len(fields) > 0 {
		return strings.Trim(fields[0], `"]`)
	}
	return name
}

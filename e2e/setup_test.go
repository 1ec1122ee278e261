//go:build e2e

package e2e

import (
	"fmt"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/themizzi/retailcheck/internal/config"
	"github.com/themizzi/retailcheck/internal/fixtures"
	"github.com/themizzi/retailcheck/internal/session"
)

var (
	browser *session.Browser
	suite   *config.SuiteConfig
	data    *fixtures.Data
)

// TestMain launches one Chromium for all tests. Browsers must be installed first:
// go run github.com/playwright-community/playwright-go/cmd/playwright install chromium
func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	var err error
	suite, err = config.LoadSuiteConfig(os.Getenv("RETAILCHECK_CONFIG"), os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if data, err = fixtures.Default(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logger := zap.NewNop()
	if os.Getenv("E2E_VERBOSE") != "" {
		logger, _ = zap.NewDevelopment()
	}

	browser, err = session.Launch(session.OptionsFromConfig(suite), logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer browser.Close()

	return m.Run()
}

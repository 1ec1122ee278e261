package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	internalcli "github.com/themizzi/retailcheck/internal/cli"
	"github.com/themizzi/retailcheck/internal/config"
	"github.com/themizzi/retailcheck/internal/database"
	"github.com/themizzi/retailcheck/internal/fixtures"
	"github.com/themizzi/retailcheck/internal/handlers"
	"github.com/themizzi/retailcheck/internal/report"
	"github.com/themizzi/retailcheck/internal/repository"
	"github.com/themizzi/retailcheck/internal/scenarios"
	"github.com/themizzi/retailcheck/internal/services"
	"github.com/themizzi/retailcheck/internal/session"
)

func loggerFrom(c *cli.Context) *zap.Logger {
	if logger, ok := c.App.Metadata["logger"].(*zap.Logger); ok {
		return logger
	}
	return nil
}

func loadConfig(c *cli.Context) (*config.SuiteConfig, error) {
	return config.LoadSuiteConfig(c.String("config"), os.Getenv)
}

func loadFixtures(cfg *config.SuiteConfig) (*fixtures.Data, error) {
	if cfg.FixturesPath == "" {
		return fixtures.Default()
	}
	return fixtures.Load(cfg.FixturesPath)
}

// openResults connects to the results database and brings its schema up to date
func openResults(cfg *config.SuiteConfig, logger *zap.Logger) error {
	if err := database.Connect(os.Getenv, cfg.ResultsSQLitePath); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("connected to results database", zap.String("dialect", string(database.Current)))

	if err := database.RunMigrations(); err != nil {
		database.Close()
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	return nil
}

// RunCommand returns the run command
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run scenarios in a real browser and record the results",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "scenario",
				Aliases: []string{"s"},
				Usage:   "scenario to run (repeatable); all when omitted",
			},
			&cli.IntFlag{
				Name:  "workers",
				Value: 1,
				Usage: "scenarios run concurrently, each in its own browser context",
			},
			&cli.BoolFlag{
				Name:  "headed",
				Usage: "show the browser window",
			},
		},
		Action: func(c *cli.Context) error {
			logger := loggerFrom(c)

			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if c.Bool("headed") {
				cfg.Headless = false
			}
			data, err := loadFixtures(cfg)
			if err != nil {
				return err
			}
			selected, err := scenarios.Default().Select(c.StringSlice("scenario"))
			if err != nil {
				return err
			}

			if err := openResults(cfg, logger); err != nil {
				return err
			}
			defer database.Close()

			browser, err := session.Launch(session.OptionsFromConfig(cfg), logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := browser.Close(); err != nil {
					logger.Warn("browser close failed", zap.Error(err))
				}
			}()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			suite, err := internalcli.RunSuite(ctx, internalcli.RunDependencies{
				Scenarios:  selected,
				RunService: services.NewRunService(repository.NewRunRepository(), cfg.Retries(), logger),
				Sessions:   internalcli.BrowserSessions(browser),
				Fixtures:   data,
				Timeouts:   cfg.PageTimeouts(),
				Workers:    c.Int("workers"),
				ReportDir:  cfg.ReportDir,
				BaseURL:    cfg.BaseURL,
				Logger:     logger,
			})
			if suite != nil {
				printResults(c, suite.Results)
				if suite.HTMLReport != "" {
					fmt.Fprintf(c.App.Writer, "report: %s\n", suite.HTMLReport)
				}
			}
			return err
		},
	}
}

func printResults(c *cli.Context, results []*services.Result) {
	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCENARIO\tRESULT\tATTEMPTS\tERROR")
	for _, res := range results {
		if res == nil {
			continue
		}
		outcome, kind := "passed", ""
		if !res.Passed() {
			outcome = "failed"
			if n := len(res.Runs); n > 0 {
				kind = string(res.Runs[n-1].ErrorKind)
			} else if res.Err != nil {
				kind = res.Err.Error()
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", res.Scenario, outcome, len(res.Runs), kind)
	}
	w.Flush()
}

// ListCommand returns the list command
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List recorded runs, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "scenario", Usage: "only runs of this scenario"},
			&cli.IntFlag{Name: "limit", Value: repository.DefaultListLimit},
			&cli.BoolFlag{Name: "json", Usage: "print JSON instead of a table"},
		},
		Action: func(c *cli.Context) error {
			logger := loggerFrom(c)
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if err := openResults(cfg, logger); err != nil {
				return err
			}
			defer database.Close()

			runService := services.NewRunService(repository.NewRunRepository(), 0, logger)
			runs, err := runService.ListRuns(c.Context, c.String("scenario"), c.Int("limit"))
			if err != nil {
				return err
			}

			if c.Bool("json") {
				data, err := report.NewSummary(runs, cfg.BaseURL, time.Now()).MarshalJSON()
				if err != nil {
					return err
				}
				fmt.Fprintln(c.App.Writer, string(data))
				return nil
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSCENARIO\tATTEMPT\tSTATUS\tKIND\tDURATION\tSTARTED")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
					run.ID, run.Scenario, run.Attempt, run.Status, run.ErrorKind,
					run.GetFormattedDuration(), run.StartedAt.Local().Format(time.DateTime))
			}
			return w.Flush()
		},
	}
}

// ScenariosCommand returns the scenarios command
func ScenariosCommand() *cli.Command {
	return &cli.Command{
		Name:  "scenarios",
		Usage: "List the available scenarios",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print JSON instead of a table"},
		},
		Action: func(c *cli.Context) error {
			all := scenarios.Default().All()
			if c.Bool("json") {
				type entry struct {
					Name        string `json:"name"`
					Description string `json:"description"`
				}
				out := make([]entry, 0, len(all))
				for _, s := range all {
					out = append(out, entry{Name: s.Name, Description: s.Description})
				}
				return json.NewEncoder(c.App.Writer).Encode(out)
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			for _, s := range all {
				fmt.Fprintf(w, "%s\t%s\n", s.Name, s.Description)
			}
			return w.Flush()
		},
	}
}

// ServeCommand returns the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve recorded runs as HTML and JSON",
		Action: func(c *cli.Context) error {
			logger := loggerFrom(c)
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if err := openResults(cfg, logger); err != nil {
				return err
			}
			defer database.Close()

			runService := services.NewRunService(repository.NewRunRepository(), 0, logger)
			return internalcli.RunServe(internalcli.ServerDependencies{
				ServerConfig: config.LoadServerConfig(os.Getenv),
				RunsHandler:  handlers.NewRunsHandler(runService, cfg.BaseURL, logger),
				RunHandler:   handlers.NewRunHandler(runService, logger),
				Logger:       logger,
			})
		},
	}
}

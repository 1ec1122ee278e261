// Package report renders recorded runs as JSON and HTML, both for files written
// after a suite run and for the report server.
package report

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/themizzi/retailcheck/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Summary is a set of runs with their tallies
type Summary struct {
	GeneratedAt time.Time
	BaseURL     string
	Runs        []*models.Run
	Passed      int
	Failed      int
	Pending     int
	// RunLinkPrefix is prepended to run IDs in the HTML listing.
	RunLinkPrefix string
}

// NewSummary tallies runs
func NewSummary(runs []*models.Run, baseURL string, now time.Time) Summary {
	s := Summary{GeneratedAt: now, BaseURL: baseURL, Runs: runs, RunLinkPrefix: "#"}
	for _, r := range runs {
		switch r.Status {
		case models.RunStatusPassed:
			s.Passed++
		case models.RunStatusFailed:
			s.Failed++
		default:
			s.Pending++
		}
	}
	return s
}

// RunRecord is the JSON form of a run
type RunRecord struct {
	ID             string     `json:"id"`
	Scenario       string     `json:"scenario"`
	Attempt        int        `json:"attempt"`
	Status         string     `json:"status"`
	ErrorKind      string     `json:"errorKind,omitempty"`
	Message        string     `json:"message,omitempty"`
	TeardownError  string     `json:"teardownError,omitempty"`
	ScreenshotPath string     `json:"screenshot,omitempty"`
	VideoPath      string     `json:"video,omitempty"`
	StartedAt      time.Time  `json:"startedAt"`
	FinishedAt     *time.Time `json:"finishedAt,omitempty"`
	DurationMs     int64      `json:"durationMs"`
}

type summaryJSON struct {
	GeneratedAt time.Time   `json:"generatedAt"`
	BaseURL     string      `json:"baseUrl,omitempty"`
	Passed      int         `json:"passed"`
	Failed      int         `json:"failed"`
	Pending     int         `json:"pending"`
	Runs        []RunRecord `json:"runs"`
}

// NewRunRecord converts a run to its JSON form
func NewRunRecord(r *models.Run) RunRecord {
	out := RunRecord{
		ID:             r.ID,
		Scenario:       r.Scenario,
		Attempt:        r.Attempt,
		Status:         string(r.Status),
		ErrorKind:      string(r.ErrorKind),
		Message:        r.Message,
		TeardownError:  r.TeardownError,
		ScreenshotPath: r.ScreenshotPath,
		VideoPath:      r.VideoPath,
		StartedAt:      r.StartedAt,
		DurationMs:     r.Duration().Milliseconds(),
	}
	if !r.FinishedAt.IsZero() {
		finished := r.FinishedAt
		out.FinishedAt = &finished
	}
	return out
}

// MarshalJSON renders the summary as indented JSON
func (s Summary) MarshalJSON() ([]byte, error) {
	out := summaryJSON{
		GeneratedAt: s.GeneratedAt,
		BaseURL:     s.BaseURL,
		Passed:      s.Passed,
		Failed:      s.Failed,
		Pending:     s.Pending,
		Runs:        make([]RunRecord, 0, len(s.Runs)),
	}
	for _, r := range s.Runs {
		out.Runs = append(out.Runs, NewRunRecord(r))
	}
	return json.MarshalIndent(out, "", "  ")
}

// RenderHTML writes the run listing page
func RenderHTML(w io.Writer, s Summary) error {
	return templates.ExecuteTemplate(w, "runs.html", s)
}

// RunPage is the data of the single-run page
type RunPage struct {
	Run         *models.Run
	Explanation string
}

// RenderRunHTML writes the detail page of one run
func RenderRunHTML(w io.Writer, run *models.Run) error {
	return templates.ExecuteTemplate(w, "run.html", RunPage{Run: run, Explanation: Explain(run.ErrorKind)})
}

// Explain describes an error kind for people reading a report
func Explain(kind models.ErrorKind) string {
	switch kind {
	case models.ErrorKindSetup:
		return "The cart could not be prepared before the scenario ran."
	case models.ErrorKindTeardown, models.ErrorKindCartNotEmptied:
		return "The cart could not be emptied afterwards; later scenarios may start from a dirty cart."
	case models.ErrorKindElementNotFound:
		return "An element the scenario needed never became visible. The page layout may have changed."
	case models.ErrorKindInteraction:
		return "An element was found but clicking or typing into it failed."
	case models.ErrorKindAssertion:
		return "The page did not show what the scenario expected."
	case models.ErrorKindLocaleNotFound:
		return "The requested delivery country is not offered in the location dialog."
	case models.ErrorKindPrimeOnly:
		return "A product could only be bought with a Prime membership."
	case models.ErrorKindThresholdUnknown:
		return "Neither free-shipping banner was shown in the cart. The site copy may have changed."
	case models.ErrorKindTimeout:
		return "The scenario ran out of time."
	case models.ErrorKindPageError:
		return "The page raised a script error that is not known site noise."
	case models.ErrorKindCancelled:
		return "The run was cancelled."
	default:
		return "The scenario failed for an unclassified reason."
	}
}

// Write stores the summary as report-<timestamp>.json and .html under dir and
// returns both paths. Existing reports are never overwritten.
func Write(dir string, s Summary) (jsonPath, htmlPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create report directory: %w", err)
	}

	data, err := s.MarshalJSON()
	if err != nil {
		return "", "", fmt.Errorf("failed to encode report: %w", err)
	}

	base := "report-" + s.GeneratedAt.UTC().Format("20060102-150405")
	for i := 0; ; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s-%d", base, i)
		}
		jsonPath = filepath.Join(dir, name+".json")
		htmlPath = filepath.Join(dir, name+".html")

		jf, err := os.OpenFile(jsonPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", "", fmt.Errorf("failed to create report: %w", err)
		}
		_, werr := jf.Write(data)
		if cerr := jf.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return "", "", fmt.Errorf("failed to write report: %w", werr)
		}
		break
	}

	hf, err := os.OpenFile(htmlPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", "", fmt.Errorf("failed to create report: %w", err)
	}
	defer hf.Close()
	if err := RenderHTML(hf, s); err != nil {
		return "", "", fmt.Errorf("failed to render report: %w", err)
	}
	return jsonPath, htmlPath, nil
}

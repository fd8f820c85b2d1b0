// Package report renders ranked recommendations into markdown and JSON
// documents for batch runs.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nazjaz/shortlist/pkg/logger"
)

// Tier section order and headings for the markdown document.
var tierSections = []struct {
	tier    string
	heading string
}{
	{"high", "High confidence"},
	{"medium", "Medium confidence"},
	{"low", "Low confidence"},
}

// Item is a single ranked row in the report.
type Item struct {
	Rank    int      `json:"rank"`
	ID      string   `json:"id"`
	Name    string   `json:"name,omitempty"`
	Score   float64  `json:"score"`
	Tier    string   `json:"tier"`
	Reasons []string `json:"reasons,omitempty"`
}

// Forecast is the projected-engagement block appended to a report.
type Forecast struct {
	Window        int       `json:"window"`
	MovingAverage float64   `json:"moving_average"`
	Slope         float64   `json:"slope"`
	Projected     []float64 `json:"projected"`
}

// Report is a complete batch run result.
type Report struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	UserID      string    `json:"user_id,omitempty"`
	Items       []Item    `json:"items"`
	Forecast    *Forecast `json:"forecast,omitempty"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Renderer writes reports to the configured output paths.
type Renderer struct {
	markdownPath string
	jsonPath     string
	log          logger.Logger
}

// NewRenderer constructs a Renderer with configuration options.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		log: logger.Named("report"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render writes the report to every configured output. Paths left empty
// are skipped.
func (r *Renderer) Render(ctx context.Context, rep *Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if r.markdownPath != "" {
		if err := writeFile(r.markdownPath, Markdown(rep)); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteReport, err)
		}
		r.log.Info(ctx, "markdown report written",
			logger.String("path", r.markdownPath),
			logger.String("run_id", rep.RunID),
		)
	}

	if r.jsonPath != "" {
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return fmt.Errorf("%w: %w", ErrWriteReport, err)
		}
		if err := writeFile(r.jsonPath, append(data, '\n')); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteReport, err)
		}
		r.log.Info(ctx, "json report written",
			logger.String("path", r.jsonPath),
			logger.String("run_id", rep.RunID),
		)
	}

	return nil
}

// Markdown renders the report as a markdown document.
func Markdown(rep *Report) []byte {
	var b strings.Builder

	b.WriteString("# Recommendations\n\n")
	fmt.Fprintf(&b, "Run `%s` generated %s\n", rep.RunID, rep.GeneratedAt.UTC().Format(time.RFC3339))
	if rep.UserID != "" {
		fmt.Fprintf(&b, "\nUser: %s\n", rep.UserID)
	}

	if len(rep.Items) == 0 {
		b.WriteString("\nNo candidates met the score threshold.\n")
	}

	for _, section := range tierSections {
		items := itemsInTier(rep.Items, section.tier)
		if len(items) == 0 {
			continue
		}

		fmt.Fprintf(&b, "\n## %s\n\n", section.heading)
		b.WriteString("| Rank | Item | Score | Reasons |\n")
		b.WriteString("| ---- | ---- | ----- | ------- |\n")
		for _, item := range items {
			name := item.Name
			if name == "" {
				name = item.ID
			}
			fmt.Fprintf(&b, "| %d | %s | %.4f | %s |\n",
				item.Rank, name, item.Score, strings.Join(item.Reasons, "; "))
		}
	}

	if f := rep.Forecast; f != nil {
		b.WriteString("\n## Engagement forecast\n\n")
		fmt.Fprintf(&b, "- moving average (last %d): %.2f\n", f.Window, f.MovingAverage)
		fmt.Fprintf(&b, "- trend slope: %.4f\n", f.Slope)
		projected := make([]string, len(f.Projected))
		for i, p := range f.Projected {
			projected[i] = fmt.Sprintf("%.2f", p)
		}
		fmt.Fprintf(&b, "- projected next %d periods: %s\n", len(f.Projected), strings.Join(projected, ", "))
	}

	return []byte(b.String())
}

func itemsInTier(items []Item, tier string) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if item.Tier == tier {
			out = append(out, item)
		}
	}
	return out
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

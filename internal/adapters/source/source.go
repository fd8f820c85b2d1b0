// Package source loads batch snapshot files: candidate catalogs and
// interaction histories from CSV, user profiles from JSON.
package source

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nazjaz/shortlist/internal/domain/model"
	"github.com/nazjaz/shortlist/pkg/logger"
)

// Logical candidate column names. A column mapping may rebind any of
// these to a different CSV header.
const (
	colID       = "id"
	colName     = "name"
	colCategory = "category"
	colTags     = "tags"
	colLat      = "lat"
	colLon      = "lon"
	colInStock  = "in_stock"
	colQuantity = "quantity"
	colAddedAt  = "added_at"
)

// tagSeparator splits multi-valued tag cells.
const tagSeparator = ";"

// Snapshot bundles everything a batch run reads from disk.
type Snapshot struct {
	Candidates   []model.Candidate
	Interactions []model.Interaction
	Profiles     []model.Profile
}

// Loader reads snapshot files. Paths left empty are skipped, which lets
// serving mode start without a batch snapshot on disk.
type Loader struct {
	candidatesPath   string
	interactionsPath string
	profilesPath     string
	columns          map[string]string
	log              logger.Logger
}

// NewLoader constructs a Loader with configuration options.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		columns: make(map[string]string),
		log:     logger.Named("source"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads all configured snapshot files concurrently.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	g, ctx := errgroup.WithContext(ctx)

	if l.candidatesPath != "" {
		g.Go(func() error {
			candidates, err := l.loadCandidates(ctx, l.candidatesPath)
			if err != nil {
				return fmt.Errorf("loading candidates: %w", err)
			}
			snap.Candidates = candidates
			return nil
		})
	}

	if l.interactionsPath != "" {
		g.Go(func() error {
			interactions, err := l.loadInteractions(ctx, l.interactionsPath)
			if err != nil {
				return fmt.Errorf("loading interactions: %w", err)
			}
			snap.Interactions = interactions
			return nil
		})
	}

	if l.profilesPath != "" {
		g.Go(func() error {
			profiles, err := l.loadProfiles(ctx, l.profilesPath)
			if err != nil {
				return fmt.Errorf("loading profiles: %w", err)
			}
			snap.Profiles = profiles
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	l.log.Info(ctx, "snapshot loaded",
		logger.Int("candidates", len(snap.Candidates)),
		logger.Int("interactions", len(snap.Interactions)),
		logger.Int("profiles", len(snap.Profiles)),
	)
	return snap, nil
}

// column resolves a logical column name through the configured mapping.
func (l *Loader) column(logical string) string {
	if mapped, ok := l.columns[logical]; ok {
		return mapped
	}
	return logical
}

// headerIndex builds a logical-name -> column-position map for a CSV header.
func (l *Loader) headerIndex(header []string, required ...string) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(h)] = i
	}

	idx := make(map[string]int, len(required))
	for _, logical := range required {
		p, ok := pos[l.column(logical)]
		if !ok {
			return nil, fmt.Errorf("column %q: %w", l.column(logical), ErrMissingColumn)
		}
		idx[logical] = p
	}
	return idx, nil
}

func (l *Loader) loadCandidates(ctx context.Context, path string) ([]model.Candidate, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	idx, err := l.headerIndex(rows[0], colID, colName)
	if err != nil {
		return nil, err
	}
	// Optional columns resolve to -1 when absent.
	opt, _ := l.headerIndex(rows[0])
	for _, logical := range []string{colCategory, colTags, colLat, colLon, colInStock, colQuantity, colAddedAt} {
		if m, err := l.headerIndex(rows[0], logical); err == nil {
			opt[logical] = m[logical]
		} else {
			opt[logical] = -1
		}
	}

	candidates := make([]model.Candidate, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		c := model.Candidate{
			ID:   cell(row, idx[colID]),
			Name: cell(row, idx[colName]),
		}
		if c.ID == "" {
			return nil, fmt.Errorf("row %d: empty id: %w", n+2, ErrMalformedRow)
		}

		c.Category = cell(row, opt[colCategory])
		if tags := cell(row, opt[colTags]); tags != "" {
			c.Tags = splitTags(tags)
		}
		if c.Lat, err = cellFloat(row, opt[colLat]); err != nil {
			return nil, fmt.Errorf("row %d: lat: %w", n+2, ErrMalformedRow)
		}
		if c.Lon, err = cellFloat(row, opt[colLon]); err != nil {
			return nil, fmt.Errorf("row %d: lon: %w", n+2, ErrMalformedRow)
		}
		// Catalogs without stock columns do not track inventory; their
		// items stay available instead of defaulting to out of stock.
		if opt[colInStock] == -1 {
			c.InStock = true
		} else {
			c.InStock = cellBool(row, opt[colInStock])
		}
		if opt[colQuantity] == -1 {
			c.Quantity = 1
		} else if q, err := cellFloat(row, opt[colQuantity]); err != nil {
			return nil, fmt.Errorf("row %d: quantity: %w", n+2, ErrMalformedRow)
		} else {
			c.Quantity = int(q)
		}
		if ts := cell(row, opt[colAddedAt]); ts != "" {
			c.AddedAt, err = parseTime(ts)
			if err != nil {
				return nil, fmt.Errorf("row %d: added_at: %w", n+2, ErrMalformedRow)
			}
		}

		candidates = append(candidates, c)
	}
	return candidates, nil
}

func (l *Loader) loadInteractions(ctx context.Context, path string) ([]model.Interaction, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	idx, err := l.headerIndex(rows[0], "interaction_id", "user_id", "item_id", "kind")
	if err != nil {
		return nil, err
	}
	opt := map[string]int{"value": -1, "ts": -1}
	for logical := range opt {
		if m, err := l.headerIndex(rows[0], logical); err == nil {
			opt[logical] = m[logical]
		}
	}

	interactions := make([]model.Interaction, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		in := model.Interaction{
			InteractionID: cell(row, idx["interaction_id"]),
			UserID:        cell(row, idx["user_id"]),
			ItemID:        cell(row, idx["item_id"]),
			Kind:          cell(row, idx["kind"]),
			Value:         1,
		}
		if in.InteractionID == "" || in.ItemID == "" {
			return nil, fmt.Errorf("row %d: missing identifiers: %w", n+2, ErrMalformedRow)
		}

		if v := cell(row, opt["value"]); v != "" {
			in.Value, err = strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: value: %w", n+2, ErrMalformedRow)
			}
		}
		if ts := cell(row, opt["ts"]); ts != "" {
			in.TS, err = parseTime(ts)
			if err != nil {
				return nil, fmt.Errorf("row %d: ts: %w", n+2, ErrMalformedRow)
			}
		}

		interactions = append(interactions, in)
	}
	return interactions, nil
}

func (l *Loader) loadProfiles(ctx context.Context, path string) ([]model.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrMissingFile)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var raw []struct {
		UserID    string   `json:"user_id"`
		Interests []string `json:"interests"`
		Lat       float64  `json:"lat"`
		Lon       float64  `json:"lon"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	profiles := make([]model.Profile, 0, len(raw))
	for _, r := range raw {
		if r.UserID == "" {
			return nil, fmt.Errorf("profile without user_id: %w", ErrMalformedRow)
		}
		profiles = append(profiles, model.Profile{
			UserID:    r.UserID,
			Interests: r.Interests,
			Lat:       r.Lat,
			Lon:       r.Lon,
		})
	}
	return profiles, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrMissingFile)
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w: %w", path, ErrMalformedRow, err)
	}
	return rows, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func cellFloat(row []string, i int) (float64, error) {
	s := cell(row, i)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func cellBool(row []string, i int) bool {
	switch strings.ToLower(cell(row, i)) {
	case "true", "yes", "1":
		return true
	default:
		return false
	}
}

func splitTags(s string) []string {
	parts := strings.Split(s, tagSeparator)
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// parseTime accepts RFC 3339 timestamps and bare dates.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

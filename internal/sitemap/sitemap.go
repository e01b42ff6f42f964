package sitemap

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sathyapriyan07/metamovies-sub001/internal/domain"
)

const xmlns = "http://www.sitemaps.org/schemas/sitemap/0.9"

// maxURLs is the sitemaps.org limit for a single file.
const maxURLs = 50000

// SlugSource lists the published slugs of one category.
type SlugSource interface {
	ListSlugs(ctx context.Context, category domain.Category) ([]string, error)
}

type route struct {
	path       string
	changeFreq string
	priority   string
}

var staticRoutes = []route{
	{"/", "daily", "1.0"},
	{"/search", "weekly", "0.6"},
	{"/movies", "daily", "0.8"},
	{"/series", "daily", "0.8"},
	{"/people", "weekly", "0.6"},
	{"/music", "weekly", "0.6"},
}

var categoryPaths = []struct {
	category domain.Category
	prefix   string
}{
	{domain.CategoryMovie, "/movie/"},
	{domain.CategorySeries, "/series/"},
	{domain.CategoryPerson, "/person/"},
	{domain.CategoryMusic, "/music/"},
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []entry  `xml:"url"`
}

type entry struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

type Generator struct {
	baseURL string
	source  SlugSource
	logger  *slog.Logger
	now     func() time.Time
}

func NewGenerator(baseURL string, source SlugSource, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		source:  source,
		logger:  logger,
		now:     time.Now,
	}
}

// Generate writes the sitemap and returns the number of URLs written.
func (g *Generator) Generate(ctx context.Context, w io.Writer) (int, error) {
	if g.baseURL == "" {
		return 0, fmt.Errorf("sitemap: base url is required")
	}
	lastMod := g.now().UTC().Format("2006-01-02")
	set := urlSet{Xmlns: xmlns}
	for _, r := range staticRoutes {
		set.URLs = append(set.URLs, entry{
			Loc:        g.baseURL + r.path,
			LastMod:    lastMod,
			ChangeFreq: r.changeFreq,
			Priority:   r.priority,
		})
	}

	if g.source != nil {
		for _, cp := range categoryPaths {
			slugs, err := g.source.ListSlugs(ctx, cp.category)
			if err != nil {
				return 0, fmt.Errorf("sitemap: list %s slugs: %w", cp.category, err)
			}
			seen := make(map[string]struct{}, len(slugs))
			for _, slug := range slugs {
				slug = strings.TrimSpace(slug)
				if slug == "" {
					continue
				}
				if _, dup := seen[slug]; dup {
					continue
				}
				seen[slug] = struct{}{}
				set.URLs = append(set.URLs, entry{
					Loc:        g.baseURL + cp.prefix + url.PathEscape(slug),
					ChangeFreq: "weekly",
					Priority:   "0.7",
				})
			}
		}
	}

	if len(set.URLs) > maxURLs {
		g.logger.Warn("sitemap truncated",
			slog.Int("urls", len(set.URLs)),
			slog.Int("limit", maxURLs),
		)
		set.URLs = set.URLs[:maxURLs]
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return 0, err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return 0, fmt.Errorf("sitemap: encode: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return 0, err
	}
	return len(set.URLs), nil
}

// WriteFile generates into a temporary file next to path and renames it into
// place, so readers never see a partial sitemap.
func (g *Generator) WriteFile(ctx context.Context, path string) (int, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(dir, ".sitemap-*.xml")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	count, err := g.Generate(ctx, tmp)
	if err != nil {
		_ = tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, err
	}
	return count, nil
}

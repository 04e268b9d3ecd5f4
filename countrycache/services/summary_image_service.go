package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/countrycache/countrycache/countrycache/config"
	"github.com/countrycache/countrycache/internal/domain/countries"
)

// ErrSummaryNotFound is returned by Load before any summary has been written.
var ErrSummaryNotFound = errors.New("summary image not found")

type SummarySource interface {
	Count(ctx context.Context) (int, error)
	TopByEstimate(ctx context.Context, limit int) ([]countries.Country, error)
}

type SummaryRenderer interface {
	Render(ctx context.Context, data SummaryData) ([]byte, error)
}

type SummaryPublisher interface {
	Publish(ctx context.Context, name string, body []byte, contentType string) (string, error)
}

type SummaryEntry struct {
	Name     string
	Estimate float64
}

// Label is the text shown for one ranked country.
func (e SummaryEntry) Label() string {
	return fmt.Sprintf("%s: %.2f", e.Name, e.Estimate)
}

type SummaryData struct {
	Total       int
	Limit       int
	Top         []SummaryEntry
	GeneratedAt time.Time
}

func (d SummaryData) Timestamp() string {
	return d.GeneratedAt.UTC().Format(config.SummaryTimeLayout)
}

type SummaryImageService struct {
	source    SummarySource
	renderer  SummaryRenderer
	publisher SummaryPublisher
	path      string
	topN      int
	now       func() time.Time
	logger    *slog.Logger
}

func NewSummaryImageService(source SummarySource, renderer SummaryRenderer, path string, topN int) *SummaryImageService {
	if topN <= 0 {
		topN = config.DefaultSummaryTopN
	}
	return &SummaryImageService{
		source:   source,
		renderer: renderer,
		path:     path,
		topN:     topN,
		now:      time.Now,
		logger:   slog.With(slog.String("service", "summary_image")),
	}
}

// WithPublisher uploads every generated image after it is written locally.
func (s *SummaryImageService) WithPublisher(p SummaryPublisher) *SummaryImageService {
	s.publisher = p
	return s
}

func (s *SummaryImageService) Path() string {
	return s.path
}

// Collect reads the figures shown on the summary from the store.
func (s *SummaryImageService) Collect(ctx context.Context) (SummaryData, error) {
	total, err := s.source.Count(ctx)
	if err != nil {
		return SummaryData{}, fmt.Errorf("failed to count countries: %w", err)
	}
	top, err := s.source.TopByEstimate(ctx, s.topN)
	if err != nil {
		return SummaryData{}, fmt.Errorf("failed to rank countries: %w", err)
	}

	data := SummaryData{Total: total, Limit: s.topN, GeneratedAt: s.now().UTC()}
	for _, c := range top {
		if c.EstimatedGDP == nil {
			continue
		}
		data.Top = append(data.Top, SummaryEntry{Name: c.Name, Estimate: *c.EstimatedGDP})
	}
	return data, nil
}

// Generate renders the current dataset and replaces the artifact at the configured path.
func (s *SummaryImageService) Generate(ctx context.Context) error {
	start := time.Now()

	data, err := s.Collect(ctx)
	if err != nil {
		return err
	}

	renderCtx, cancel := context.WithTimeout(ctx, config.SummaryRenderTimeout)
	defer cancel()
	img, err := s.renderer.Render(renderCtx, data)
	if err != nil {
		return fmt.Errorf("failed to render summary: %w", err)
	}

	if err := writeFileAtomic(s.path, img); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	s.logger.Info("Summary image generated",
		slog.String("type", "sys"),
		slog.String("path", s.path),
		slog.Int("total", data.Total),
		slog.Int("ranked", len(data.Top)),
		slog.Int("image_size", len(img)),
		slog.Duration("took", time.Since(start)))

	if s.publisher != nil {
		pubCtx, cancel := context.WithTimeout(ctx, config.PublishTimeout)
		defer cancel()
		url, err := s.publisher.Publish(pubCtx, filepath.Base(s.path), img, config.SummaryContentType)
		if err != nil {
			return fmt.Errorf("failed to publish summary: %w", err)
		}
		s.logger.Info("Summary image published", slog.String("type", "sys"), slog.String("url", url))
	}
	return nil
}

// Load returns the last generated image.
func (s *SummaryImageService) Load() ([]byte, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrSummaryNotFound
	}
	return b, err
}

// writeFileAtomic writes through a temp file in the target directory and renames it into place,
// so readers never see a partially written image.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

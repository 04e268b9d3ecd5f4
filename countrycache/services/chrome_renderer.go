package services

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/countrycache/countrycache/countrycache/config"
)

//go:embed templates/summary.html
var summaryTemplate string

// ChromeRenderer lays the summary out as HTML and screenshots it with headless Chrome.
type ChromeRenderer struct {
	tmpl   *template.Template
	logger *slog.Logger
}

func NewChromeRenderer() (*ChromeRenderer, error) {
	tmpl, err := template.New("summary").Parse(summaryTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse summary template: %w", err)
	}
	return &ChromeRenderer{
		tmpl:   tmpl,
		logger: slog.With(slog.String("service", "chrome_renderer")),
	}, nil
}

type summaryPage struct {
	Width  int
	Height int
	Data   SummaryData
}

// HTML returns the page that gets screenshotted.
func (r *ChromeRenderer) HTML(data SummaryData) (string, error) {
	var buf bytes.Buffer
	err := r.tmpl.Execute(&buf, summaryPage{
		Width:  config.SummaryImageWidth,
		Height: config.SummaryImageHeight,
		Data:   data,
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute summary template: %w", err)
	}
	return buf.String(), nil
}

func (r *ChromeRenderer) Render(ctx context.Context, data SummaryData) ([]byte, error) {
	start := time.Now()

	page, err := r.HTML(data)
	if err != nil {
		return nil, err
	}

	chromeCtx, cancel := chromedp.NewContext(ctx, chromedp.WithLogf(func(string, ...any) {}))
	defer cancel()

	var png []byte
	err = chromedp.Run(chromeCtx,
		chromedp.EmulateViewport(config.SummaryImageWidth, config.SummaryImageHeight),
		chromedp.Navigate("data:text/html,"+url.PathEscape(page)),
		chromedp.WaitVisible("#summary", chromedp.ByID),
		chromedp.Screenshot("#summary", &png, chromedp.ByID),
	)
	if err != nil {
		r.logger.Error("Failed to render summary with chromedp",
			slog.String("type", "error"),
			slog.Any("error", err),
			slog.Duration("elapsed", time.Since(start)))
		return nil, fmt.Errorf("failed to capture summary: %w", err)
	}

	r.logger.Debug("Summary captured",
		slog.Int("image_size", len(png)),
		slog.Duration("elapsed", time.Since(start)))
	return png, nil
}

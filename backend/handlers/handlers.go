package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/countrycache/countrycache/backend/models"
	"github.com/countrycache/countrycache/backend/utils"
	"github.com/countrycache/countrycache/countrycache/config"
	"github.com/countrycache/countrycache/countrycache/services"
	"github.com/countrycache/countrycache/internal/domain/countries"
	"github.com/countrycache/countrycache/internal/domain/refresh"
)

const suggestionLimit = 3

type Refresher interface {
	Refresh(ctx context.Context) (*refresh.Result, error)
	State() refresh.State
}

type SummaryLoader interface {
	Load() ([]byte, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// WebApp represents the web application with all dependencies
type WebApp struct {
	Countries countries.Service
	Refresher Refresher
	Summary   SummaryLoader
	Store     Pinger
	Version   string
}

func RefreshCountries(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		result, err := webApp.Refresher.Refresh(c.UserContext())
		if err != nil {
			return refreshError(c, err)
		}

		return utils.SendJSON(c, fiber.StatusOK, models.RefreshResponse{
			Message:         "Countries refreshed successfully",
			RunID:           result.RunID,
			TotalCountries:  result.Records,
			Skipped:         result.Skipped,
			Inserted:        result.Stats.Inserted,
			Updated:         result.Stats.Updated,
			Deleted:         result.Stats.Deleted,
			LastRefreshedAt: result.RefreshedAt.UTC(),
			Warnings:        result.Warnings,
		})
	}
}

func refreshError(c *fiber.Ctx, err error) error {
	var sourceErr *refresh.SourceUnavailableError
	switch {
	case errors.Is(err, refresh.ErrRefreshInProgress):
		return utils.SendConflict(c, "Refresh already in progress")
	case errors.As(err, &sourceErr):
		return utils.SendServiceUnavailable(c, "External data source unavailable",
			fmt.Sprintf("Could not fetch data from %s: %v", sourceErr.Source, sourceErr.Err))
	case errors.Is(err, refresh.ErrExternalSourceUnavailable):
		return utils.SendServiceUnavailable(c, "External data source unavailable", nil)
	case errors.Is(err, refresh.ErrPersistence):
		slog.Error("Refresh commit failed", slog.String("type", "error"), slog.Any("error", err))
		return utils.SendInternalServerError(c, "Failed to persist refreshed data")
	}
	return err
}

func ListCountries(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sort, err := countries.ParseSortOrder(c.Query("sort"))
		if err != nil {
			return utils.SendBadRequest(c, "Invalid sort value", err.Error())
		}

		list, err := webApp.Countries.List(c.UserContext(), countries.Filter{
			Region:   c.Query("region"),
			Currency: c.Query("currency"),
			Sort:     sort,
		})
		if err != nil {
			return err
		}
		return utils.SendJSON(c, fiber.StatusOK, models.NewCountryList(list))
	}
}

func GetCountry(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name := c.Params("name")

		country, err := webApp.Countries.Get(c.UserContext(), name)
		if errors.Is(err, countries.ErrNotFound) {
			return countryNotFound(c, webApp, name)
		}
		if err != nil {
			return err
		}
		return utils.SendJSON(c, fiber.StatusOK, models.NewCountryResponse(*country))
	}
}

func DeleteCountry(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := webApp.Countries.Delete(c.UserContext(), c.Params("name"))
		if errors.Is(err, countries.ErrNotFound) {
			return utils.SendNotFound(c, "Country not found", nil)
		}
		if err != nil {
			return err
		}
		return utils.SendNoContent(c)
	}
}

func countryNotFound(c *fiber.Ctx, webApp *WebApp, name string) error {
	suggestions := webApp.Countries.Suggest(c.UserContext(), name, suggestionLimit)
	if len(suggestions) == 0 {
		return utils.SendNotFound(c, "Country not found", nil)
	}
	return utils.SendNotFound(c, "Country not found", fiber.Map{"did_you_mean": suggestions})
}

func Status(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status, err := webApp.Countries.Status(c.UserContext())
		if err != nil {
			return err
		}
		return utils.SendJSON(c, fiber.StatusOK, models.NewStatusResponse(status))
	}
}

func SummaryImage(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		img, err := webApp.Summary.Load()
		if errors.Is(err, services.ErrSummaryNotFound) {
			return utils.SendNotFound(c, "Summary image not found", nil)
		}
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, config.SummaryContentType)
		c.Set(fiber.HeaderCacheControl, "no-cache")
		return c.Status(fiber.StatusOK).Send(img)
	}
}

func HealthCheck(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		health := models.NewHealthCheck(webApp.Version)

		ctx, cancel := context.WithTimeout(c.UserContext(), config.HealthCheckTimeout)
		defer cancel()

		start := time.Now()
		if err := webApp.Store.Ping(ctx); err != nil {
			health.AddComponent("store", "unhealthy", err.Error(), nil)
		} else {
			health.AddComponent("store", "healthy", "", map[string]any{
				"latency_ms": time.Since(start).Milliseconds(),
			})
		}

		health.AddComponent("refresh", "healthy", "", map[string]any{
			"state": string(webApp.Refresher.State()),
		})

		code := fiber.StatusOK
		if health.Status != "healthy" {
			code = fiber.StatusServiceUnavailable
		}
		return utils.SendJSON(c, code, health)
	}
}

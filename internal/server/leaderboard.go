package server

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/vk-2002/telegram-bot/internal/identity"
)

const maxLeaderboardLimit = 100

// LeaderboardHandler exposes the appreciation counters read-only.
type LeaderboardHandler struct {
	store  identity.Store
	logger *slog.Logger
}

func NewLeaderboardHandler(log *slog.Logger, store identity.Store) *LeaderboardHandler {
	if log == nil {
		log = slog.Default()
	}
	return &LeaderboardHandler{
		store:  store,
		logger: log.With(slog.String("handler", "leaderboard")),
	}
}

// Register implements Handler.
func (h *LeaderboardHandler) Register(e *echo.Echo) {
	e.GET("/leaderboard", h.top)
}

type leaderboardEntry struct {
	Username      string `json:"username,omitempty"`
	FirstName     string `json:"first_name,omitempty"`
	GivenCount    int64  `json:"given_count"`
	ReceivedCount int64  `json:"received_count"`
}

func (h *LeaderboardHandler) top(c echo.Context) error {
	limit := 10
	if raw := c.QueryParam("limit"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 1 || value > maxLeaderboardLimit {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be 1..100")
		}
		limit = value
	}
	items, err := h.store.TopReceived(c.Request().Context(), limit)
	if err != nil {
		h.logger.Error("leaderboard query failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "store unavailable")
	}
	entries := make([]leaderboardEntry, 0, len(items))
	for _, rec := range items {
		entries = append(entries, leaderboardEntry{
			Username:      rec.Username,
			FirstName:     rec.FirstName,
			GivenCount:    rec.GivenCount,
			ReceivedCount: rec.ReceivedCount,
		})
	}
	return c.JSON(http.StatusOK, entries)
}

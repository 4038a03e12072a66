package api

import (
	"net/http"

	"SignalRelay/internal/usecase"
	xhttp "SignalRelay/pkg/http"
	xlogger "SignalRelay/pkg/logger"

	"github.com/labstack/echo/v4"
)

// StatusHandler exposes the relay's ops surface: health, outcome counters
// and the recent-results journal.
type StatusHandler struct {
	logger    *xlogger.Logger
	journal   *usecase.Journal
	collector *usecase.SignalCollector
}

func NewStatusHandler(logger *xlogger.Logger, journal *usecase.Journal, collector *usecase.SignalCollector) *StatusHandler {
	return &StatusHandler{logger: logger, journal: journal, collector: collector}
}

func (h *StatusHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.GET("/status", h.Status)
	g.GET("/recent", h.Recent)
}

// Health answers probes with a real status code: load balancers read the
// HTTP status, not the response envelope.
func (h *StatusHandler) Health(c echo.Context) error {
	if !h.collector.IsConnected() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"bus": "disconnected"})
	}
	return c.JSON(http.StatusOK, map[string]string{"bus": "connected"})
}

func (h *StatusHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"connected": h.collector.IsConnected(),
		"outcomes":  h.journal.Counts(),
	})
}

type recentRequest struct {
	Limit int `query:"limit" default:"20" validate:"gte=1,lte=200"`
}

func (h *StatusHandler) Recent(c echo.Context) error {
	req := &recentRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.journal.Recent(req.Limit))
}

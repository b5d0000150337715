package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/openmonitor/alertd/pkg/models"
	"github.com/openmonitor/alertd/pkg/services"
)

// APIHandler handles HTTP API requests
type APIHandler struct {
	alertService     *services.AlertService
	heartbeatService *services.HeartbeatService
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(alertService *services.AlertService, heartbeatService *services.HeartbeatService) *APIHandler {
	return &APIHandler{
		alertService:     alertService,
		heartbeatService: heartbeatService,
	}
}

// SetupRoutes registers all API routes
func (h *APIHandler) SetupRoutes(e *echo.Echo) {
	api := e.Group("/api")

	api.POST("/alerts", h.ReceiveAlert)
	api.GET("/alerts", h.ListAlerts)
	api.GET("/alerts/counts", h.GetAlertCounts)
	api.GET("/alerts/:id", h.GetAlert)
	api.GET("/alerts/:id/history", h.GetAlertHistory)
	api.PUT("/alerts/:id/status", h.ChangeAlertStatus)
	api.PUT("/alerts/:id/tag", h.TagAlert)
	api.PUT("/alerts/:id/untag", h.UntagAlert)
	api.DELETE("/alerts/:id", h.DeleteAlert)

	api.POST("/heartbeats", h.ReceiveHeartbeat)
	api.GET("/heartbeats", h.ListHeartbeats)
	api.DELETE("/heartbeats/:origin", h.DeleteHeartbeat)
}

// ReceiveAlert ingests a raw alert event
// @Summary Submit a raw alert event
// @Accept json
// @Produce json
// @Success 201 {object} models.Alert
// @Router /alerts [post]
func (h *APIHandler) ReceiveAlert(c echo.Context) error {
	var raw models.RawEvent
	if err := c.Bind(&raw); err != nil {
		logrus.Errorf("Error binding raw event: %v", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}

	if raw.Environment == "" || raw.Resource == "" || raw.Event == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "environment, resource and event are required"})
	}

	alert, err := h.alertService.ProcessEvent(c.Request().Context(), &raw)
	if err != nil {
		logrus.Errorf("Error processing event %s: %v", raw.ID, err)
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, alert)
}

// ListAlerts returns alerts matching the query filters
// @Summary List alerts
// @Produce json
// @Success 200 {array} models.Alert
// @Router /alerts [get]
func (h *APIHandler) ListAlerts(c echo.Context) error {
	filter, err := parseAlertFilter(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	alerts, err := h.alertService.ListAlerts(c.Request().Context(), filter)
	if err != nil {
		logrus.Errorf("Error listing alerts: %v", err)
		return h.errorResponse(c, err)
	}
	if alerts == nil {
		alerts = []*models.Alert{}
	}
	return c.JSON(http.StatusOK, alerts)
}

// GetAlertCounts returns aggregate counts by status and severity
// @Summary Alert counts by status and severity
// @Produce json
// @Success 200 {object} models.AlertCounts
// @Router /alerts/counts [get]
func (h *APIHandler) GetAlertCounts(c echo.Context) error {
	filter, err := parseAlertFilter(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	counts, err := h.alertService.GetCounts(c.Request().Context(), filter)
	if err != nil {
		logrus.Errorf("Error counting alerts: %v", err)
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, counts)
}

// GetAlert returns an alert by ID
func (h *APIHandler) GetAlert(c echo.Context) error {
	id := c.Param("id")
	alert, err := h.alertService.GetAlert(c.Request().Context(), id)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, alert)
}

// GetAlertHistory returns the alert's history ledger in storage order
func (h *APIHandler) GetAlertHistory(c echo.Context) error {
	id := c.Param("id")
	history, err := h.alertService.GetHistory(c.Request().Context(), id)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, history)
}

// ChangeAlertStatus applies an operator status change (ack, close, ...)
func (h *APIHandler) ChangeAlertStatus(c echo.Context) error {
	id := c.Param("id")
	var req models.StatusChangeRequest
	if err := c.Bind(&req); err != nil {
		logrus.Errorf("Error binding status change request: %v", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}
	if req.Status == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "status is required"})
	}

	alert, err := h.alertService.ChangeStatus(c.Request().Context(), id, &req)
	if err != nil {
		logrus.Errorf("Error changing status of alert %s: %v", id, err)
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, alert)
}

// TagAlert adds a tag to an alert
func (h *APIHandler) TagAlert(c echo.Context) error {
	return h.tagChange(c, h.alertService.TagAlert)
}

// UntagAlert removes a tag from an alert
func (h *APIHandler) UntagAlert(c echo.Context) error {
	return h.tagChange(c, h.alertService.UntagAlert)
}

func (h *APIHandler) tagChange(c echo.Context, apply func(ctx context.Context, id, tag string) (*models.Alert, error)) error {
	id := c.Param("id")
	var req models.TagRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}
	if req.Tag == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "tag is required"})
	}

	alert, err := apply(c.Request().Context(), id, req.Tag)
	if err != nil {
		logrus.Errorf("Error tagging alert %s: %v", id, err)
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, alert)
}

// DeleteAlert soft-deletes an alert; the sweeper removes it permanently
func (h *APIHandler) DeleteAlert(c echo.Context) error {
	id := c.Param("id")
	actor := c.QueryParam("actor")

	if err := h.alertService.DeleteAlert(c.Request().Context(), id, actor); err != nil {
		logrus.Errorf("Error deleting alert %s: %v", id, err)
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Alert deleted"})
}

// ReceiveHeartbeat upserts a heartbeat for an origin
func (h *APIHandler) ReceiveHeartbeat(c echo.Context) error {
	var req models.HeartbeatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request format"})
	}
	if req.Origin == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "origin is required"})
	}

	hb, err := h.heartbeatService.Receive(c.Request().Context(), &req)
	if err != nil {
		logrus.Errorf("Error receiving heartbeat from %s: %v", req.Origin, err)
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, hb)
}

// ListHeartbeats returns all heartbeats with derived staleness
func (h *APIHandler) ListHeartbeats(c echo.Context) error {
	heartbeats, err := h.heartbeatService.List(c.Request().Context())
	if err != nil {
		logrus.Errorf("Error listing heartbeats: %v", err)
		return h.errorResponse(c, err)
	}
	if heartbeats == nil {
		heartbeats = []*models.HeartbeatStatus{}
	}
	return c.JSON(http.StatusOK, heartbeats)
}

// DeleteHeartbeat removes the heartbeat for an origin
func (h *APIHandler) DeleteHeartbeat(c echo.Context) error {
	origin := c.Param("origin")
	if err := h.heartbeatService.Delete(c.Request().Context(), origin); err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Heartbeat deleted"})
}

// errorResponse maps engine errors onto HTTP status codes.
func (h *APIHandler) errorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrInvalidSeverity), errors.Is(err, models.ErrInvalidStatus):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, models.ErrIllegalTransition), errors.Is(err, models.ErrWriteConflict),
		errors.Is(err, models.ErrDuplicateIdentity):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, models.ErrStoreUnavailable):
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

// parseAlertFilter builds an AlertFilter from query parameters.
func parseAlertFilter(c echo.Context) (models.AlertFilter, error) {
	filter := models.AlertFilter{
		Environment: c.QueryParam("environment"),
		Resource:    c.QueryParam("resource"),
		Event:       c.QueryParam("event"),
		Service:     c.QueryParam("service"),
		Group:       c.QueryParam("group"),
		Origin:      c.QueryParam("origin"),
	}

	if s := c.QueryParam("status"); s != "" {
		status, err := models.ParseStatus(s)
		if err != nil {
			return filter, err
		}
		filter.Status = status
	}
	if s := c.QueryParam("severity"); s != "" {
		severity, err := models.ParseSeverity(s)
		if err != nil {
			return filter, err
		}
		filter.Severity = severity
	}
	if tags, ok := c.QueryParams()["tag"]; ok {
		filter.Tags = tags
	}
	if s := c.QueryParam("from"); s != "" {
		from, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return filter, err
		}
		filter.From = &from
	}
	if s := c.QueryParam("to"); s != "" {
		to, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return filter, err
		}
		filter.To = &to
	}
	if s := c.QueryParam("limit"); s != "" {
		limit, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return filter, err
		}
		filter.Limit = limit
	}
	return filter, nil
}

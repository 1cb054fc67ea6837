package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"evohome_gateway/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK        = "ok"
	statusRefreshed = "refreshed"
	statusApplied   = "applied"

	errSystemNotFound  = "control system not found"
	errZoneNotFound    = "zone not found"
	errZoneNoStatus    = "zone status not available yet"
	errNotReady        = "gateway has not loaded its topology yet"
	errUpstream        = "evohome request failed"
	errInvalidID       = "invalid id"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// writeServiceError maps gateway errors onto HTTP status codes.
func (h *Handler) writeServiceError(c *gin.Context, logKey string, err error, kv ...interface{}) {
	switch {
	case errors.Is(err, service.ErrInvalidSetpoint):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrZoneNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": errZoneNotFound})
	case errors.Is(err, service.ErrNotReady):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errNotReady})
	case errors.Is(err, service.ErrConfiguration):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAuthentication), errors.Is(err, service.ErrCommunication):
		h.logAndJSONError(c, http.StatusBadGateway, errUpstream, logKey, err, kv...)
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, "internal error", logKey, err, kv...)
	}
}

// pathID parses a numeric path parameter, writing a 400 on failure.
func pathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidID + ": " + name})
		return 0, false
	}
	return id, true
}

// SetpointRequest is the payload of a zone set point change.
type SetpointRequest struct {
	// Target temperature in Celsius (ignored when cancel is true)
	Temperature *float64 `json:"temperature,omitempty" example:"21.5"`
	// End of a temporary override (RFC3339); omit for a permanent override
	Until *time.Time `json:"until,omitempty" example:"2025-01-01T18:00:00Z"`
	// Return the zone to its schedule
	Cancel bool `json:"cancel,omitempty"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	resp := gin.H{"status": statusOK}
	if h.services.Gateway != nil {
		resp["gateway"] = h.services.Gateway.Status()
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary      Gateway status
// @Tags         gateway
// @Produce      json
// @Success      200  {object}  models.GatewayStatus
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/gateway/status [get]
// @Security     BearerAuth
func (h *Handler) getGatewayStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Gateway.Status())
}

// @Summary      Run a poll cycle now
// @Tags         gateway
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, gateway"
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/gateway/refresh [post]
// @Security     BearerAuth
func (h *Handler) refreshGateway(c *gin.Context) {
	if err := h.services.Gateway.RunCycle(c.Request.Context()); err != nil {
		h.writeServiceError(c, "gateway_refresh_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusRefreshed, "gateway": h.services.Gateway.Status()})
}

// @Summary      List control systems
// @Tags         systems
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, systems"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/systems [get]
// @Security     BearerAuth
func (h *Handler) listSystems(c *gin.Context) {
	entries := h.services.Monitoring.ControlSystems()
	c.JSON(http.StatusOK, gin.H{
		"count":   len(entries),
		"systems": entries,
	})
}

// @Summary      Get control system
// @Tags         systems
// @Produce      json
// @Param        systemId  path  int  true  "Control system id"
// @Success      200  {object}  models.CacheEntry
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/systems/{systemId} [get]
// @Security     BearerAuth
func (h *Handler) getSystem(c *gin.Context) {
	id, ok := pathID(c, "systemId")
	if !ok {
		return
	}
	entry, found := h.services.Monitoring.ControlSystem(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": errSystemNotFound})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// @Summary      Get zone status
// @Description  404 until the first successful poll, or for unknown ids
// @Tags         systems
// @Produce      json
// @Param        systemId  path  int  true  "Control system id"
// @Param        zoneId    path  int  true  "Zone id"
// @Success      200  {object}  models.ZoneStatus
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/systems/{systemId}/zones/{zoneId} [get]
// @Security     BearerAuth
func (h *Handler) getZoneStatus(c *gin.Context) {
	systemID, ok := pathID(c, "systemId")
	if !ok {
		return
	}
	zoneID, ok := pathID(c, "zoneId")
	if !ok {
		return
	}
	zs, found := h.services.Monitoring.ZoneStatus(systemID, zoneID)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": errZoneNoStatus})
		return
	}
	c.JSON(http.StatusOK, zs)
}

// @Summary      Get zone schedule
// @Description  Weekly program with the temperature in effect now and the next switch time
// @Tags         zones
// @Produce      json
// @Param        zoneId  path  int  true  "Zone id"
// @Success      200  {object}  service.ZoneScheduleView
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/zones/{zoneId}/schedule [get]
// @Security     BearerAuth
func (h *Handler) getZoneSchedule(c *gin.Context) {
	zoneID, ok := pathID(c, "zoneId")
	if !ok {
		return
	}
	view, err := h.services.Schedules.ZoneSchedule(c.Request.Context(), zoneID)
	if err != nil {
		h.writeServiceError(c, "zone_schedule_failed", err, "zone_id", zoneID)
		return
	}
	c.JSON(http.StatusOK, view)
}

// @Summary      Set zone set point
// @Description  Permanent override, temporary override (until), or cancel back to schedule
// @Tags         zones
// @Accept       json
// @Produce      json
// @Param        zoneId  path  int              true  "Zone id"
// @Param        body    body  SetpointRequest  true  "Set point payload"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/zones/{zoneId}/setpoint [put]
// @Security     BearerAuth
func (h *Handler) setZoneSetpoint(c *gin.Context) {
	zoneID, ok := pathID(c, "zoneId")
	if !ok {
		return
	}
	var req SetpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	if !req.Cancel && req.Temperature == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + "temperature or cancel is required"})
		return
	}

	params := service.SetpointParams{Until: req.Until, Cancel: req.Cancel}
	if id, ok := operatorID(c); ok {
		params.OperatorID = id
	}
	if req.Temperature != nil {
		params.Temperature = *req.Temperature
	}
	if err := h.services.Control.SetZoneSetpoint(c.Request.Context(), zoneID, params); err != nil {
		h.writeServiceError(c, "zone_setpoint_failed", err, "zone_id", zoneID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusApplied, "zone_id": zoneID})
}


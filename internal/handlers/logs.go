package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"evohome_gateway/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"

	maxLogLimit = 1000
)

// @Summary      Gateway event log
// @Description  Logins, topology loads, set point changes and status transitions, oldest first.
// @Description  state/detail select STATUS_CHANGE rows by the status the gateway moved to, e.g. state=OFFLINE&detail=COMMUNICATION_ERROR lists outages.
// @Description  A date-only 'to' covers that whole day.
// @Tags         logs
// @Produce      json
// @Param        from    query  string  false  "Start (RFC3339, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD')"  example(2025-08-01)
// @Param        to      query  string  false  "End (RFC3339, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD')"  example(2025-08-31)
// @Param        type    query  string  false  "Event type"  Enums(LOGIN,LOGIN_FAILED,STATUS_CHANGE,TOPOLOGY,SETPOINT,LOGOUT)
// @Param        state   query  string  false  "Gateway state entered"  Enums(UNINITIALIZED,AUTHENTICATING,ONLINE,OFFLINE)
// @Param        detail  query  string  false  "Status detail"  Enums(NONE,COMMUNICATION_ERROR,CONFIGURATION_ERROR)
// @Param        limit   query  int     false  "Newest N events only (max 1000)"
// @Success      200  {object}  map[string]interface{}  "count, events"
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/logs [get]
// @Security     BearerAuth
func (h *Handler) getLogs(c *gin.Context) {
	f, err := logFilterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events, err := h.services.EventLog.List(c.Request.Context(), f)
	switch {
	case errors.Is(err, service.ErrInvalidFilter):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load logs", "logs_list_failed", err,
			"filter", fmt.Sprintf("%+v", f))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(events),
		"events": events,
	})
}

// logFilterFromQuery parses the syntax of the query. Names are validated by the event log service.
func logFilterFromQuery(c *gin.Context) (service.LogFilter, error) {
	f := service.LogFilter{
		Type:   c.Query("type"),
		State:  c.Query("state"),
		Detail: c.Query("detail"),
	}

	if qs := c.Query("from"); qs != "" {
		from, err := parseQueryTime(qs)
		if err != nil {
			return f, fmt.Errorf("invalid 'from': %w", err)
		}
		f.From = from
	}
	if qs := c.Query("to"); qs != "" {
		to, err := parseQueryTime(qs)
		if err != nil {
			return f, fmt.Errorf("invalid 'to': %w", err)
		}
		if !strings.ContainsAny(qs, "T ") {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
		f.To = to
	}
	if qs := c.Query("limit"); qs != "" {
		n, err := strconv.Atoi(qs)
		if err != nil || n <= 0 || n > maxLogLimit {
			return f, fmt.Errorf("invalid 'limit' %q: expected 1..%d", qs, maxLogLimit)
		}
		f.Limit = n
	}
	return f, nil
}

// parseQueryTime accepts RFC3339, "YYYY-MM-DD HH:MM:SS" or "YYYY-MM-DD", normalized to UTC.
func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not RFC3339, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD'", s)
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/agromarket/internal/service/matching"
	"github.com/mamadbah2/agromarket/internal/service/transport"
)

// CallerHeader carries the authenticated user id set by the upstream gateway.
const CallerHeader = "X-User-ID"

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{matching.ErrInvalidFarmID, http.StatusBadRequest, "INVALID_INPUT"},
	{transport.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
	{matching.ErrFarmNotFound, http.StatusNotFound, "FARM_NOT_FOUND"},
	{transport.ErrRouteNotFound, http.StatusNotFound, "ROUTE_NOT_FOUND"},
	{transport.ErrRequestNotFound, http.StatusNotFound, "REQUEST_NOT_FOUND"},
	{transport.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{transport.ErrRouteClosed, http.StatusConflict, "ROUTE_CLOSED"},
	{transport.ErrRequestNotAvailable, http.StatusConflict, "REQUEST_NOT_AVAILABLE"},
	{transport.ErrCapacityExceeded, http.StatusConflict, "CAPACITY_EXCEEDED"},
	{transport.ErrAlreadyJoined, http.StatusConflict, "ALREADY_JOINED"},
	{transport.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
}

// writeError renders a domain error. Anything unrecognised is reported as an
// opaque internal error; the service has already logged the details.
func writeError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		body := gin.H{"error": err.Error(), "code": m.code}
		var capErr *transport.CapacityExceededError
		if errors.As(err, &capErr) {
			body["remaining"] = capErr.Remaining.String()
		}
		c.JSON(m.status, body)
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL"})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message, "code": "INVALID_INPUT"})
}

// callerID returns the caller id or writes a 401 and returns false.
func callerID(c *gin.Context) (string, bool) {
	id := c.GetHeader(CallerHeader)
	if id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing " + CallerHeader + " header", "code": "UNAUTHENTICATED"})
		return "", false
	}
	return id, true
}

package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"eco-route/planner"

	"github.com/gin-gonic/gin"
)

// errorStatus maps domain errors to HTTP statuses. Order matters: a
// geocoding failure matches both ErrLocationNotFound and
// ErrInvalidEndpoints and must report 404.
var errorStatus = []struct {
	err    error
	status int
}{
	{planner.ErrLocationNotFound, http.StatusNotFound},
	{planner.ErrNoRouteFound, http.StatusNotFound},
	{planner.ErrInvalidEndpoints, http.StatusBadRequest},
	{planner.ErrPlannerTimeout, http.StatusGatewayTimeout},
	{ErrAuth, http.StatusUnauthorized},
	{context.Canceled, http.StatusServiceUnavailable},
}

func statusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// respondError writes {"message": ...}. Internal errors are logged and
// replaced by a generic message.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("[%s] %s %s: %v", requestID(c), c.Request.Method, c.FullPath(), err)
		respondMessage(c, status, "Internal server error")
		return
	}
	respondMessage(c, status, err.Error())
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}

func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}

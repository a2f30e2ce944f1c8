package planner

import (
	"errors"

	"eco-route/algo"
	"eco-route/geocode"
)

// Route computation errors. A geocoding failure is returned wrapping both
// ErrInvalidEndpoints and ErrLocationNotFound.
var (
	ErrLocationNotFound = geocode.ErrLocationNotFound
	ErrInvalidEndpoints = errors.New("invalid endpoints")
	ErrNoRouteFound     = algo.ErrNoRoute
	ErrPlannerTimeout   = errors.New("route computation timed out")
)

// Package handler is the HTTP API: authentication, route computation and the
// read-only map endpoints the client uses to draw and search the network.
package handler

import (
	"context"

	"eco-route/algo"
	"eco-route/db"
	"eco-route/geocode"
	"eco-route/model"
	"eco-route/planner"
	"eco-route/pollution"
)

// RoutePlanner computes both routes for a request.
type RoutePlanner interface {
	Plan(ctx context.Context, from, to string) (*planner.RouteResult, error)
}

// LocationSearcher lists geocoding candidates.
type LocationSearcher interface {
	Search(query string, limit int) []geocode.Match
}

// PollutionStatus reports the snapshot in effect.
type PollutionStatus interface {
	Status() pollution.Status
}

// Deps are the collaborators a Handler serves from.
type Deps struct {
	Graph     *algo.Graph
	Areas     []model.Area
	Planner   RoutePlanner
	Locations LocationSearcher
	Pollution PollutionStatus
	Users     db.UserStore
	Auth      *Auth
}

type Handler struct {
	graph     *algo.Graph
	areas     []model.Area
	planner   RoutePlanner
	locations LocationSearcher
	pollution PollutionStatus
	users     db.UserStore
	auth      *Auth
}

func New(d Deps) *Handler {
	return &Handler{
		graph:     d.Graph,
		areas:     d.Areas,
		planner:   d.Planner,
		locations: d.Locations,
		pollution: d.Pollution,
		users:     d.Users,
		auth:      d.Auth,
	}
}

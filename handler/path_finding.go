package handler

import (
	"log"
	"net/http"

	"eco-route/planner"
	"eco-route/pollution"

	"github.com/gin-gonic/gin"
)

// RouteRequest names the two endpoints. Either may be a place name or a
// "lat,lon" literal.
type RouteRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// routeSummary is shared by both routes in the response.
type routeSummary struct {
	Coordinates [][2]float64 `json:"coordinates"`
	Path        []string     `json:"path"`
	Distance    float64      `json:"distance"` // km
	AvgAQI      float64      `json:"avg_aqi"`
	AvgCO2      float64      `json:"avg_co2"`
	EcoScore    float64      `json:"eco_score"`
}

type ShortestRoute struct {
	routeSummary
	HighAQIPoints []planner.Waypoint `json:"high_aqi_points"`
}

type EcoRoute struct {
	routeSummary
	LowAQIPoints []planner.Waypoint `json:"low_aqi_points"`
}

type AirQuality struct {
	Version uint64           `json:"version"`
	Source  pollution.Source `json:"source"`
}

type RouteResponse struct {
	ShortestRoute ShortestRoute    `json:"shortest_route"`
	EcoRoute      EcoRoute         `json:"eco_route"`
	From          planner.Endpoint `json:"from"`
	To            planner.Endpoint `json:"to"`
	AirQuality    AirQuality       `json:"air_quality"`
	Message       string           `json:"message"`
}

func summarize(r planner.Route) routeSummary {
	return routeSummary{
		Coordinates: r.Coordinates,
		Path:        r.Nodes,
		Distance:    r.Distance,
		AvgAQI:      r.AvgAQI,
		AvgCO2:      r.AvgCO2,
		EcoScore:    r.EcoScore,
	}
}

// nonNil keeps empty point lists as [] in JSON.
func nonNil(points []planner.Waypoint) []planner.Waypoint {
	if points == nil {
		return []planner.Waypoint{}
	}
	return points
}

// Route computes the shortest and the eco route.
func (h *Handler) Route(c *gin.Context) {
	var req RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, "Request body must be JSON with from and to")
		return
	}

	res, err := h.planner.Plan(c.Request.Context(), req.From, req.To)
	if err != nil {
		log.Printf("[%s] route %q -> %q: %v", requestID(c), req.From, req.To, err)
		respondError(c, err)
		return
	}

	log.Printf("[%s] route %q -> %q: shortest %.2f km aqi %.1f, eco %.2f km aqi %.1f (snapshot v%d)",
		requestID(c), req.From, req.To,
		res.Shortest.Distance, res.Shortest.AvgAQI, res.Eco.Distance, res.Eco.AvgAQI, res.SnapshotVersion)

	c.JSON(http.StatusOK, RouteResponse{
		ShortestRoute: ShortestRoute{
			routeSummary:  summarize(res.Shortest),
			HighAQIPoints: nonNil(res.Shortest.Flagged),
		},
		EcoRoute: EcoRoute{
			routeSummary: summarize(res.Eco),
			LowAQIPoints: nonNil(res.Eco.Flagged),
		},
		From:       res.From,
		To:         res.To,
		AirQuality: AirQuality{Version: res.SnapshotVersion, Source: res.SnapshotSource},
		Message:    "Routes calculated successfully",
	})
}

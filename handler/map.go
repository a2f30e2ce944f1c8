package handler

import (
	"net/http"
	"strconv"
	"strings"

	"eco-route/model"

	"github.com/gin-gonic/gin"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

// Nodes lists every road node.
func (h *Handler) Nodes(c *gin.Context) {
	nodes := h.graph.NodeList
	if nodes == nil {
		nodes = []model.Node{}
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(nodes),
		"nodes": nodes,
	})
}

func (h *Handler) NodeByID(c *gin.Context) {
	idx, ok := h.graph.NodeIndex(c.Param("id"))
	if !ok {
		respondMessage(c, http.StatusNotFound, "Node not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"node":      h.graph.Node(idx),
		"neighbors": h.neighborIDs(idx),
	})
}

func (h *Handler) neighborIDs(idx int) []string {
	ids := make([]string, 0, len(h.graph.Neighbors(idx)))
	for _, e := range h.graph.Neighbors(idx) {
		ids = append(ids, h.graph.Node(h.graph.Arcs[e].To).ID)
	}
	return ids
}

// Areas lists the gazetteer with its baseline air quality.
func (h *Handler) Areas(c *gin.Context) {
	areas := h.areas
	if areas == nil {
		areas = []model.Area{}
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(areas),
		"areas": areas,
	})
}

// SearchLocations returns geocoding candidates for q in resolution order.
func (h *Handler) SearchLocations(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		respondMessage(c, http.StatusBadRequest, "Query parameter q is required")
		return
	}
	limit := defaultSearchLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondMessage(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxSearchLimit)
	}

	results := h.locations.Search(query, limit)
	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"count":   len(results),
		"results": results,
	})
}

func (h *Handler) PollutionStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.pollution.Status())
}

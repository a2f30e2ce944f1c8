// Package geocode resolves free-text locations against the area gazetteer.
//
// Resolution order, first hit wins:
//  1. a "lat,lon" coordinate literal
//  2. an exact (case- and punctuation-insensitive) area name or alias
//  3. an area name or alias contained in the query, longest first
//  4. an area name or alias containing the query, shortest first
//
// Ties inside a rank go to the alphabetically first area name. Any result
// outside the road network's coverage is skipped.
package geocode

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"eco-route/model"
	"eco-route/utils"
)

// ErrLocationNotFound is returned when no match lies inside the covered region.
var ErrLocationNotFound = errors.New("location not found")

// minContainsQuery is the shortest query used for rank 4 matching.
const minContainsQuery = 3

// Coverage reports whether a point is inside the service region.
type Coverage interface {
	Covers(p model.Point) bool
}

// MatchKind says which rule produced a match.
type MatchKind string

const (
	MatchCoordinates MatchKind = "coordinates"
	MatchExact       MatchKind = "exact"
	MatchInQuery     MatchKind = "in_query"
	MatchPartial     MatchKind = "partial"
)

// Match is a resolved location.
type Match struct {
	Name string    `json:"name"`
	Lat  float64   `json:"lat"`
	Lng  float64   `json:"lng"`
	Kind MatchKind `json:"match"`
}

// Point returns the match coordinates.
func (m Match) Point() model.Point {
	return model.Point{Lat: m.Lat, Lng: m.Lng}
}

type entry struct {
	key  string // normalized name or alias
	area model.Area
}

// Geocoder is immutable after New and safe for concurrent use.
type Geocoder struct {
	entries  []entry
	coverage Coverage
}

// New indexes the areas. coverage may be nil to accept any point.
func New(areas []model.Area, coverage Coverage) *Geocoder {
	g := &Geocoder{coverage: coverage}
	for _, a := range areas {
		g.entries = append(g.entries, entry{key: normalize(a.Name), area: a})
		for _, alias := range a.Aliases {
			if k := normalize(alias); k != "" {
				g.entries = append(g.entries, entry{key: k, area: a})
			}
		}
	}
	return g
}

// Geocode resolves query to a single location.
func (g *Geocoder) Geocode(query string) (Match, error) {
	matches := g.resolve(query, 1)
	if len(matches) == 0 {
		return Match{}, fmt.Errorf("%w: %q", ErrLocationNotFound, strings.TrimSpace(query))
	}
	return matches[0], nil
}

// Search returns up to limit candidates in resolution order.
func (g *Geocoder) Search(query string, limit int) []Match {
	if limit <= 0 {
		limit = 10
	}
	return g.resolve(query, limit)
}

func (g *Geocoder) resolve(query string, limit int) []Match {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	if p, ok := parseCoordinates(query); ok {
		if !g.covers(p) {
			return nil
		}
		return []Match{{Name: query, Lat: p.Lat, Lng: p.Lng, Kind: MatchCoordinates}}
	}

	q := normalize(query)
	if q == "" {
		return nil
	}

	type candidate struct {
		rank  int
		order int // key length, sign depends on rank
		e     entry
	}
	var cands []candidate
	for _, e := range g.entries {
		switch {
		case e.key == q:
			cands = append(cands, candidate{rank: 0, e: e})
		case strings.Contains(q, e.key):
			cands = append(cands, candidate{rank: 1, order: -len(e.key), e: e})
		case len(q) >= minContainsQuery && strings.Contains(e.key, q):
			cands = append(cands, candidate{rank: 2, order: len(e.key), e: e})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		if a.order != b.order {
			return a.order < b.order
		}
		return a.e.area.Name < b.e.area.Name
	})

	kinds := [...]MatchKind{MatchExact, MatchInQuery, MatchPartial}
	seen := make(map[string]bool)
	var out []Match
	for _, c := range cands {
		if seen[c.e.area.Name] {
			continue
		}
		seen[c.e.area.Name] = true
		if !g.covers(c.e.area.Point()) {
			continue
		}
		out = append(out, Match{Name: c.e.area.Name, Lat: c.e.area.Lat, Lng: c.e.area.Lng, Kind: kinds[c.rank]})
		if len(out) == limit {
			break
		}
	}
	return out
}

func (g *Geocoder) covers(p model.Point) bool {
	return g.coverage == nil || g.coverage.Covers(p)
}

// parseCoordinates accepts "lat,lon" with optional spaces.
func parseCoordinates(s string) (model.Point, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return model.Point{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return model.Point{}, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return model.Point{}, false
	}
	p := model.Point{Lat: lat, Lng: lng}
	if !utils.ValidCoordinate(p) {
		return model.Point{}, false
	}
	return p, true
}

// normalize lowercases, turns punctuation into spaces and collapses runs of
// whitespace, so "T. Narasipura Rd" and "t narasipura rd" compare equal.
func normalize(s string) string {
	var b strings.Builder
	space := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

package query

import (
	"github.com/tripdesk/internal/dashboard/viewstate"
	"github.com/tripdesk/internal/planning/catalog"
	"github.com/tripdesk/pkg/planning/models"
)

// ResolveRoutes picks the routes sent as trajetos. The result is never nil.
//
// A line selects its routes, narrowed to one direction when Route is set.
// A consortium selects the union of the routes of its lines, deduplicated
// by route id. With both, the line's routes are intersected with the union.
func ResolveRoutes(f viewstate.Filters, cat catalog.Catalog) []models.Route {
	var lineRoutes []models.Route
	if f.Line != "" {
		lineRoutes = routesOfLine(f, cat)
	}

	if f.Consortium == "" {
		return nonNil(lineRoutes)
	}

	union := consortiumRoutes(f.Consortium, cat)
	if f.Line == "" {
		return nonNil(union)
	}

	inUnion := make(map[string]bool, len(union))
	for _, r := range union {
		inUnion[r.ID] = true
	}
	out := make([]models.Route, 0, len(lineRoutes))
	for _, r := range lineRoutes {
		if inUnion[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

func routesOfLine(f viewstate.Filters, cat catalog.Catalog) []models.Route {
	line, ok := cat.FindLine(f.Line)
	if !ok {
		return nil
	}
	if f.Route == "" {
		out := make([]models.Route, len(line.Trajetos))
		copy(out, line.Trajetos)
		return out
	}
	var out []models.Route
	for _, r := range line.Trajetos {
		if r.Sentido == f.Route {
			out = append(out, r)
		}
	}
	return out
}

func consortiumRoutes(name string, cat catalog.Catalog) []models.Route {
	cs, ok := cat.FindConsortium(name)
	if !ok {
		return nil
	}

	seen := make(map[string]bool)
	var out []models.Route
	for _, l := range cat.Lines {
		if !l.BelongsTo(cs.ConsorcioID) {
			continue
		}
		for _, r := range l.Trajetos {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			out = append(out, r)
		}
	}
	return out
}

func nonNil(routes []models.Route) []models.Route {
	if routes == nil {
		return []models.Route{}
	}
	return routes
}

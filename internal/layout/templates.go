package layout

import (
	"fmt"
	"sort"
)

// Template returns a ready-made layout for a standard warehouse footprint.
// Templates mirror the floor plans the designer tool ships with: H holds
// high-velocity pick faces, L low-velocity, M multi-level reserve racking,
// B bulk floor storage split into subsections, and A the dock and staging
// apron.
func Template(name string) (*Layout, error) {
	builder, ok := templates[name]
	if !ok {
		return nil, fmt.Errorf("%w: no template %q, have %v", ErrInvalidLayout, name, TemplateNames())
	}
	return builder(), nil
}

// TemplateNames lists the available templates in sorted order.
func TemplateNames() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var templates = map[string]func() *Layout{
	"small":  smallTemplate,
	"medium": mediumTemplate,
	"large":  largeTemplate,
}

func smallTemplate() *Layout {
	return &Layout{
		Name: "small",
		Sections: []Section{
			{
				Code: "H", Name: "high velocity",
				Aisles: []Aisle{
					{Code: "A", BayStart: 1, BayEnd: 30},
					{Code: "B", BayStart: 1, BayEnd: 30},
				},
			},
			{
				Code: "L", Name: "low velocity",
				Aisles: []Aisle{
					{Code: "A", BayStart: 1, BayEnd: 20},
				},
			},
			{
				Code: "A", Name: "dock",
				Aisles: []Aisle{
					{Code: "D", BayStart: 1, BayEnd: 4, LocationType: TypeDock, Capacity: 500},
				},
			},
		},
	}
}

func mediumTemplate() *Layout {
	return &Layout{
		Name: "medium",
		Sections: []Section{
			{
				Code: "H", Name: "high velocity",
				Aisles: []Aisle{
					{Code: "A", BayStart: 1, BayEnd: 60},
					{Code: "B", BayStart: 1, BayEnd: 60},
					{Code: "C", BayStart: 1, BayEnd: 60},
				},
			},
			{
				Code: "L", Name: "low velocity",
				Aisles: []Aisle{
					{Code: "A", BayStart: 1, BayEnd: 40},
					{Code: "B", BayStart: 1, BayEnd: 40},
				},
			},
			{
				Code: "M", Name: "reserve racking",
				Aisles: []Aisle{
					{Code: "A", BayStart: 1, BayEnd: 30, Levels: []string{"B", "C"}, LocationType: TypeReserve, Capacity: 200},
				},
			},
			{
				Code: "A", Name: "dock and staging",
				Aisles: []Aisle{
					{Code: "D", BayStart: 1, BayEnd: 6, LocationType: TypeDock, Capacity: 500},
					{Code: "S", BayStart: 1, BayEnd: 10, LocationType: TypeStage, Capacity: 300},
				},
			},
		},
	}
}

func largeTemplate() *Layout {
	return &Layout{
		Name: "large",
		Sections: []Section{
			{
				Code: "H", Name: "high velocity",
				Aisles: []Aisle{
					{Code: "A", BayStart: 1, BayEnd: 99},
					{Code: "B", BayStart: 1, BayEnd: 99},
					{Code: "C", BayStart: 1, BayEnd: 99},
					{Code: "D", BayStart: 1, BayEnd: 99},
				},
			},
			{
				Code: "L", Name: "low velocity",
				Aisles: []Aisle{
					{Code: "A", BayStart: 1, BayEnd: 60},
					{Code: "B", BayStart: 1, BayEnd: 60},
					{Code: "C", BayStart: 1, BayEnd: 60},
				},
			},
			{
				Code: "M", Name: "reserve racking",
				Aisles: []Aisle{
					{Code: "A", BayStart: 1, BayEnd: 50, Levels: []string{"B", "C", "D", "E"}, LocationType: TypeReserve, Capacity: 200},
					{Code: "B", BayStart: 1, BayEnd: 50, Levels: []string{"B", "C", "D", "E"}, LocationType: TypeReserve, Capacity: 200},
				},
			},
			{
				Code: "B", Name: "bulk floor",
				Aisles: []Aisle{
					{Code: "A", Complex: true, BayStart: 1, BayEnd: 40, Subsections: []string{"1", "3", "7"}, LocationType: TypeReserve, Capacity: 1000},
					{Code: "B", Complex: true, BayStart: 1, BayEnd: 40, Subsections: []string{"1", "3", "7"}, LocationType: TypeReserve, Capacity: 1000},
				},
			},
			{
				Code: "A", Name: "dock and staging",
				Aisles: []Aisle{
					{Code: "D", BayStart: 1, BayEnd: 12, LocationType: TypeDock, Capacity: 500},
					{Code: "S", BayStart: 1, BayEnd: 20, LocationType: TypeStage, Capacity: 300},
				},
			},
		},
	}
}

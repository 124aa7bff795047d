package model

import (
	"fmt"
	"sort"
)

// ActionType names one cleanup or validation action.
type ActionType string

const (
	BreakCrossing           ActionType = "BreakCrossing"
	DeleteDuplicates        ActionType = "DeleteDuplicates"
	ExtendUndershoots       ActionType = "ExtendUndershoots"
	SnapClustered           ActionType = "SnapClustered"
	EraseDangling           ActionType = "EraseDangling"
	UnclosedPolygon         ActionType = "UnclosedPolygon"
	ZeroAreaLoop            ActionType = "ZeroAreaLoop"
	ZeroLength              ActionType = "ZeroLength"
	EraseShort              ActionType = "EraseShort"
	SmallPolygon            ActionType = "SmallPolygon"
	IntersectPolygon        ActionType = "IntersectPolygon"
	SmallPolygonGap         ActionType = "SmallPolygonGap"
	SelfIntersect           ActionType = "SelfIntersect"
	DuplicateVertexPolyline ActionType = "DuplicateVertexPolyline"
	RectifyPointDeviation   ActionType = "RectifyPointDeviation"
	ArcSegment              ActionType = "ArcSegment"
	NonZeroElevation        ActionType = "NonZeroElevation"
	AntiClockwisePolygon    ActionType = "AntiClockwisePolygon"
	PolygonHole             ActionType = "PolygonHole"
	DuplicatePolygon        ActionType = "DuplicatePolygon"
	MissingVertexInPolygon  ActionType = "MissingVertexInPolygon"
	OverlapPolygon          ActionType = "OverlapPolygon"
	FindIslandPolygon       ActionType = "FindIslandPolygon"
	FindDangling            ActionType = "FindDangling"
	SharpCornerPolygon      ActionType = "SharpCornerPolygon"
	AnnotationOverlap       ActionType = "AnnotationOverlap"
)

// Category groups actions for presentation.
type Category string

const (
	CategoryTopology   Category = "topology"
	CategoryPolygon    Category = "polygon"
	CategoryVertex     Category = "vertex"
	CategoryAnnotation Category = "annotation"
)

// Descriptor is the static metadata of an ActionType. When HasParameters
// is false the action ignores its tolerance and compares with the point
// tolerance only.
type Descriptor struct {
	Type             ActionType `json:"type"`
	DefaultTolerance float64    `json:"default_tolerance"`
	HasParameters    bool       `json:"has_parameters"`
	Fixable          bool       `json:"fixable"`
	Category         Category   `json:"category"`
	Description      string     `json:"description"`
}

var descriptors = map[ActionType]Descriptor{
	BreakCrossing:           {BreakCrossing, 0, false, true, CategoryTopology, "split curves where they cross or overlap"},
	DeleteDuplicates:        {DeleteDuplicates, 0.001, true, true, CategoryTopology, "erase curves lying entirely on another curve"},
	ExtendUndershoots:       {ExtendUndershoots, 1, true, true, CategoryTopology, "extend free ends that stop short of another curve"},
	SnapClustered:           {SnapClustered, 0.5, true, true, CategoryTopology, "snap nearby free ends to one point"},
	EraseDangling:           {EraseDangling, 1, true, true, CategoryTopology, "erase short chains ending in a free end"},
	UnclosedPolygon:         {UnclosedPolygon, 0.01, true, true, CategoryPolygon, "close polylines whose ends nearly meet"},
	ZeroAreaLoop:            {ZeroAreaLoop, 0, false, true, CategoryPolygon, "erase closed curves without area"},
	ZeroLength:              {ZeroLength, 0, false, true, CategoryTopology, "erase curves without length"},
	EraseShort:              {EraseShort, 0.01, true, true, CategoryTopology, "erase curves shorter than tolerance"},
	SmallPolygon:            {SmallPolygon, 0.05, true, true, CategoryPolygon, "erase polygons smaller than tolerance"},
	IntersectPolygon:        {IntersectPolygon, 0, false, false, CategoryPolygon, "report polygons whose boundaries cross"},
	SmallPolygonGap:         {SmallPolygonGap, 0.01, true, true, CategoryPolygon, "close sliver gaps between neighbouring polygons"},
	SelfIntersect:           {SelfIntersect, 0, false, true, CategoryTopology, "split curves that cross themselves"},
	DuplicateVertexPolyline: {DuplicateVertexPolyline, 0.001, true, true, CategoryVertex, "remove consecutive vertices closer than tolerance"},
	RectifyPointDeviation:   {RectifyPointDeviation, 0.01, true, true, CategoryVertex, "straighten vertices that deviate slightly from a line"},
	ArcSegment:              {ArcSegment, 0, false, true, CategoryTopology, "straighten or erase arc segments"},
	NonZeroElevation:        {NonZeroElevation, 0, false, true, CategoryTopology, "flatten curves to zero elevation"},
	AntiClockwisePolygon:    {AntiClockwisePolygon, 0, false, true, CategoryPolygon, "reverse counter-clockwise polygons"},
	PolygonHole:             {PolygonHole, 0, false, false, CategoryPolygon, "report polygons lying inside another polygon"},
	DuplicatePolygon:        {DuplicatePolygon, 0.001, true, true, CategoryPolygon, "erase polygons with the same vertex ring"},
	MissingVertexInPolygon:  {MissingVertexInPolygon, 0, false, true, CategoryVertex, "insert vertices at junctions a curve passes through"},
	OverlapPolygon:          {OverlapPolygon, 0.0001, true, false, CategoryPolygon, "report polygons whose areas overlap"},
	FindIslandPolygon:       {FindIslandPolygon, 0, false, false, CategoryPolygon, "report polygons touching no other polygon"},
	FindDangling:            {FindDangling, 0, false, false, CategoryTopology, "report free ends"},
	SharpCornerPolygon:      {SharpCornerPolygon, 10, true, false, CategoryPolygon, "report polygon corners sharper than tolerance degrees"},
	AnnotationOverlap:       {AnnotationOverlap, 0, false, false, CategoryAnnotation, "report overlapping annotations"},
}

// Describe returns the descriptor of t.
func Describe(t ActionType) (Descriptor, error) {
	d, ok := descriptors[t]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownAction, t)
	}
	return d, nil
}

// ParseActionType validates a user-supplied action name.
func ParseActionType(s string) (ActionType, error) {
	t := ActionType(s)
	if _, err := Describe(t); err != nil {
		return "", err
	}
	return t, nil
}

// Catalogue lists every descriptor ordered by name.
func Catalogue() []Descriptor {
	out := make([]Descriptor, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

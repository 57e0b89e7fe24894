// Package geometry checks boundary vertices for range errors and quality
// problems and derives measurements from them.
package geometry

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"

	"parcelscope/internal/config"
	"parcelscope/internal/domain"
)

const sqMetersPerAcre = 4046.8564224

// Report is the outcome of validating a result. Flags never fail a result.
type Report struct {
	Flags   []domain.QualityFlag
	Metrics *domain.GeometryMetrics
}

// CheckResult is the outcome of a standalone coordinate check.
type CheckResult struct {
	IsValid bool                    `json:"is_valid"`
	Flags   []domain.QualityFlag    `json:"flags"`
	Issues  []string                `json:"issues"`
	Metrics *domain.GeometryMetrics `json:"metrics,omitempty"`
}

// Validator applies range checks and quality heuristics to vertex sequences.
type Validator struct {
	maxSpan       float64
	areaEpsilon   float64
	lowConfidence float64
}

// NewValidator creates a Validator from geometry thresholds. Zero values
// take the defaults.
func NewValidator(cfg config.GeometryConfig) *Validator {
	v := &Validator{
		maxSpan:       cfg.MaxSpanDegrees,
		areaEpsilon:   cfg.AreaEpsilon,
		lowConfidence: cfg.LowConfidenceCutoff,
	}
	if v.maxSpan <= 0 {
		v.maxSpan = 1.0
	}
	if v.areaEpsilon <= 0 {
		v.areaEpsilon = 1e-12
	}
	return v
}

// Validate fails with domain.ErrInvalidCoordinate when any vertex is out of
// range or not finite. Otherwise it returns the quality flags and metrics
// for the result.
func (v *Validator) Validate(result *domain.AnalysisResult) (*Report, error) {
	if issues := rangeIssues(result.Vertices); len(issues) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidCoordinate, issues[0])
	}

	flags, metrics := v.assess(result.Vertices)
	if v.lowConfidence > 0 && result.ConfidenceScore < v.lowConfidence {
		flags = append(flags, domain.FlagLowConfidence)
	}
	return &Report{Flags: flags, Metrics: metrics}, nil
}

// Check reports every problem with vertices without failing. Out-of-range
// coordinates make the result invalid and suppress metrics.
func (v *Validator) Check(vertices []domain.Vertex) CheckResult {
	res := CheckResult{
		Flags:  []domain.QualityFlag{},
		Issues: rangeIssues(vertices),
	}
	if len(res.Issues) > 0 {
		return res
	}
	res.IsValid = true
	flags, metrics := v.assess(vertices)
	res.Flags = append(res.Flags, flags...)
	res.Metrics = metrics
	for _, f := range flags {
		res.Issues = append(res.Issues, describeFlag(f, len(vertices)))
	}
	return res
}

func rangeIssues(vertices []domain.Vertex) []string {
	issues := []string{}
	for i, vx := range vertices {
		if !validLatitude(vx.Latitude) {
			issues = append(issues, fmt.Sprintf("vertex %d: latitude %v outside [-90, 90]", i, vx.Latitude))
		}
		if !validLongitude(vx.Longitude) {
			issues = append(issues, fmt.Sprintf("vertex %d: longitude %v outside [-180, 180]", i, vx.Longitude))
		}
	}
	return issues
}

func validLatitude(f float64) bool {
	return !math.IsNaN(f) && f >= -90 && f <= 90
}

func validLongitude(f float64) bool {
	return !math.IsNaN(f) && f >= -180 && f <= 180
}

// assess expects in-range vertices.
func (v *Validator) assess(vertices []domain.Vertex) ([]domain.QualityFlag, *domain.GeometryMetrics) {
	points, closed := openRing(vertices)
	points = unwrap(points)
	var flags []domain.QualityFlag

	switch n := len(points); {
	case n == 1:
		flags = append(flags, domain.FlagInsufficientVertices)
	case n == 2:
		if points[0].Equal(points[1]) {
			flags = append(flags, domain.FlagDegenerateGeometry)
		}
	case n >= 3:
		if allEqual(points) || math.Abs(signedArea(points)) < v.areaEpsilon {
			flags = append(flags, domain.FlagDegenerateGeometry)
		}
	}

	if len(points) > 1 {
		latSpan, lonSpan := spans(points)
		if latSpan > v.maxSpan || lonSpan > v.maxSpan {
			flags = append(flags, domain.FlagImplausibleScale)
		}
	}

	return flags, measure(points, closed)
}

// openRing converts vertices to orb points, dropping a trailing vertex that
// repeats the first one.
func openRing(vertices []domain.Vertex) ([]orb.Point, bool) {
	points := make([]orb.Point, len(vertices))
	for i, vx := range vertices {
		points[i] = orb.Point{vx.Longitude, vx.Latitude}
	}
	if n := len(points); n >= 4 && points[0].Equal(points[n-1]) {
		return points[:n-1], true
	}
	return points, false
}

func closeRing(points []orb.Point) orb.Ring {
	ring := make(orb.Ring, 0, len(points)+1)
	ring = append(ring, points...)
	return append(ring, points[0])
}

// signedArea is the shoelace area in square degrees, taken relative to the
// first point to keep rounding error below the degeneracy epsilon.
func signedArea(points []orb.Point) float64 {
	origin := points[0]
	var sum float64
	for i := 1; i < len(points)-1; i++ {
		ax, ay := points[i][0]-origin[0], points[i][1]-origin[1]
		bx, by := points[i+1][0]-origin[0], points[i+1][1]-origin[1]
		sum += ax*by - bx*ay
	}
	return sum / 2
}

func allEqual(points []orb.Point) bool {
	for _, p := range points[1:] {
		if !p.Equal(points[0]) {
			return false
		}
	}
	return true
}

// unwrap shifts longitudes so the points occupy one continuous range. When
// the widest gap between neighbouring longitudes lies inside [-180, 180]
// rather than across the antimeridian, everything west of it moves past 180.
func unwrap(points []orb.Point) []orb.Point {
	if len(points) < 2 {
		return points
	}
	lons := make([]float64, len(points))
	for i, p := range points {
		lons[i] = p.Lon()
	}
	sort.Float64s(lons)

	largestGap := 360 - (lons[len(lons)-1] - lons[0])
	cut := math.Inf(-1)
	for i := 1; i < len(lons); i++ {
		if gap := lons[i] - lons[i-1]; gap > largestGap {
			largestGap = gap
			cut = lons[i-1]
		}
	}
	if math.IsInf(cut, -1) {
		return points
	}

	out := make([]orb.Point, len(points))
	for i, p := range points {
		out[i] = p
		if p.Lon() <= cut {
			out[i][0] += 360
		}
	}
	return out
}

// spans returns the latitude and longitude spread of unwrapped points.
func spans(points []orb.Point) (float64, float64) {
	bound := orb.MultiPoint(points).Bound()
	return bound.Max.Lat() - bound.Min.Lat(), bound.Max.Lon() - bound.Min.Lon()
}

// wrapLongitude maps an unwrapped longitude back into [-180, 180].
func wrapLongitude(lon float64) float64 {
	if lon > 180 {
		return lon - 360
	}
	return lon
}

func measure(points []orb.Point, closed bool) *domain.GeometryMetrics {
	m := &domain.GeometryMetrics{
		VertexCount:     len(points),
		Kind:            domain.GeometryKindFor(len(points)),
		ExplicitClosure: closed,
	}
	if len(points) == 0 {
		return m
	}

	bound := orb.MultiPoint(points).Bound()
	m.Bounds = &domain.BoundingBox{
		MinLatitude:  bound.Min.Lat(),
		MinLongitude: wrapLongitude(bound.Min.Lon()),
		MaxLatitude:  bound.Max.Lat(),
		MaxLongitude: wrapLongitude(bound.Max.Lon()),
	}

	center := bound.Center()
	switch m.Kind {
	case domain.GeometryLine:
		m.PerimeterMeters = geo.Length(orb.LineString(points))
	case domain.GeometryPolygon:
		ring := closeRing(points)
		m.PerimeterMeters = geo.Length(orb.LineString(ring))
		m.AreaSqMeters = geo.Area(orb.Polygon{ring})
		m.AreaAcres = m.AreaSqMeters / sqMetersPerAcre
		if c, area := planar.CentroidArea(orb.Polygon{ring}); area != 0 {
			center = c
		}
	}
	m.Centroid = &domain.Vertex{Latitude: center.Lat(), Longitude: wrapLongitude(center.Lon())}
	return m
}

func describeFlag(f domain.QualityFlag, n int) string {
	switch f {
	case domain.FlagInsufficientVertices:
		return "a single vertex cannot describe a boundary"
	case domain.FlagDegenerateGeometry:
		return fmt.Sprintf("the %d vertices enclose no area", n)
	case domain.FlagImplausibleScale:
		return "coordinates spread too far apart for a single parcel"
	default:
		return string(f)
	}
}

package export

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"parcelscope/internal/domain"
)

const kmlNamespace = "http://www.opengis.net/kml/2.2"

type kmlRoot struct {
	XMLName  xml.Name    `xml:"kml"`
	Xmlns    string      `xml:"xmlns,attr"`
	Document kmlDocument `xml:"Document"`
}

type kmlDocument struct {
	Name      string       `xml:"name"`
	Placemark kmlPlacemark `xml:"Placemark"`
}

type kmlPlacemark struct {
	Name        string         `xml:"name"`
	Description string         `xml:"description,omitempty"`
	Point       *kmlPoint      `xml:"Point,omitempty"`
	LineString  *kmlLineString `xml:"LineString,omitempty"`
	Polygon     *kmlPolygon    `xml:"Polygon,omitempty"`
}

type kmlPoint struct {
	Coordinates string `xml:"coordinates"`
}

type kmlLineString struct {
	Tessellate  int    `xml:"tessellate"`
	Coordinates string `xml:"coordinates"`
}

type kmlPolygon struct {
	OuterBoundary kmlBoundary `xml:"outerBoundaryIs"`
}

type kmlBoundary struct {
	LinearRing kmlLinearRing `xml:"LinearRing"`
}

type kmlLinearRing struct {
	Coordinates string `xml:"coordinates"`
}

func marshalKML(result *domain.AnalysisResult) ([]byte, error) {
	vertices := result.Vertices
	if len(vertices) == 0 {
		return nil, fmt.Errorf("%w: kml needs at least one vertex", domain.ErrEmptyResultExport)
	}

	pm := kmlPlacemark{
		Name:        "Property Boundary",
		Description: fmt.Sprintf("Document type: %s; confidence: %.2f", result.DocumentType, result.ConfidenceScore),
	}
	open := openVertices(vertices)
	switch len(open) {
	case 1:
		pm.Point = &kmlPoint{Coordinates: coordinates(open)}
	case 2:
		pm.LineString = &kmlLineString{Tessellate: 1, Coordinates: coordinates(open)}
	default:
		ring := append(append(make([]domain.Vertex, 0, len(open)+1), open...), open[0])
		pm.Polygon = &kmlPolygon{OuterBoundary: kmlBoundary{LinearRing: kmlLinearRing{Coordinates: coordinates(ring)}}}
	}

	doc := kmlRoot{
		Xmlns:    kmlNamespace,
		Document: kmlDocument{Name: "Parcel Boundary", Placemark: pm},
	}
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding kml: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// openVertices drops a trailing vertex that repeats the first one. Like the
// coordinate validator, it only counts as closure with at least 4 vertices.
func openVertices(vertices []domain.Vertex) []domain.Vertex {
	n := len(vertices)
	if n < 4 {
		return vertices
	}
	first, last := vertices[0], vertices[n-1]
	if first.Latitude == last.Latitude && first.Longitude == last.Longitude {
		return vertices[:n-1]
	}
	return vertices
}

// coordinates renders vertices as space separated lon,lat,0 tuples.
func coordinates(vertices []domain.Vertex) string {
	tuples := make([]string, len(vertices))
	for i, v := range vertices {
		tuples[i] = strconv.FormatFloat(v.Longitude, 'f', -1, 64) + "," +
			strconv.FormatFloat(v.Latitude, 'f', -1, 64) + ",0"
	}
	return strings.Join(tuples, " ")
}

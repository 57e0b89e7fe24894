package export

import (
	"encoding/json"
	"fmt"

	"parcelscope/internal/domain"
)

func marshalJSON(result *domain.AnalysisResult) ([]byte, error) {
	out := *result
	if out.Vertices == nil {
		out.Vertices = []domain.Vertex{}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding json export: %w", err)
	}
	return data, nil
}

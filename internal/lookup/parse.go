package lookup

import (
	"fmt"

	"github.com/Jeffail/gabs"
	"github.com/mitchellh/mapstructure"
)

// parseHits extracts the hits for name from a lookup response body and keeps
// only those whose name equals the query exactly.
func parseHits(body []byte, name string) ([]Hit, error) {
	parsed, err := gabs.ParseJSON(body)
	if err != nil {
		return nil, fmt.Errorf("decode lookup response: %w", err)
	}

	hitsNode := parsed.Search("hits")
	if hitsNode == nil || hitsNode.Data() == nil {
		return nil, ErrNoHits
	}
	hitsByName, ok := hitsNode.Data().(map[string]interface{})
	if !ok {
		return nil, ErrNoHits
	}

	raw, ok := hitsByName[name].([]interface{})
	if !ok {
		return nil, ErrNoMatch
	}

	var candidates []Hit
	if err := mapstructure.Decode(raw, &candidates); err != nil {
		return nil, fmt.Errorf("decode hits for %s: %w", name, err)
	}

	matched := make([]Hit, 0, len(candidates))
	for _, h := range candidates {
		if h.Name == name {
			matched = append(matched, h)
		}
	}
	if len(matched) == 0 {
		return nil, ErrNoMatch
	}
	return matched, nil
}

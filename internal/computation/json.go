package computation

import (
	"context"
	"encoding/json"
	"fmt"
)

// NewJSONLoader returns a Loader for compspec-style JSON manifests. Keys the
// model does not know are ignored.
func NewJSONLoader() Loader {
	return &fileLoader{format: "json", decode: decodeJSON}
}

func decodeJSON(_ context.Context, src []byte, path string) (*Computation, error) {
	var c Computation
	if err := json.Unmarshal(src, &c); err != nil {
		return nil, fmt.Errorf("%w: failed to decode JSON file %s: %v", ErrInvalidManifest, path, err)
	}
	return &c, nil
}

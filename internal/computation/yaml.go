package computation

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"
)

// NewYAMLLoader returns a Loader for YAML manifests.
func NewYAMLLoader() Loader {
	return &fileLoader{format: "yaml", decode: decodeYAML}
}

func decodeYAML(_ context.Context, src []byte, path string) (*Computation, error) {
	var c Computation
	if err := yaml.Unmarshal(src, &c); err != nil {
		return nil, fmt.Errorf("%w: failed to decode YAML file %s: %v", ErrInvalidManifest, path, err)
	}
	return &c, nil
}

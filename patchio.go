package virta

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParsePatch reads a patch from its YAML or JSON representation. JSON is tried
// first so that .json files give JSON errors; YAML accepts a superset anyway.
func ParsePatch(data []byte) (Patch, error) {
	var patch Patch
	if errJSON := json.Unmarshal(data, &patch); errJSON != nil {
		if errYaml := yaml.Unmarshal(data, &patch); errYaml != nil {
			return Patch{}, fmt.Errorf("the patch could not be parsed as .json (%v) or .yml (%v)", errJSON, errYaml)
		}
	}
	if err := patch.Validate(); err != nil {
		return Patch{}, fmt.Errorf("invalid patch: %w", err)
	}
	return patch, nil
}

// MarshalPatch serializes a patch into YAML, the canonical on-disk format.
func MarshalPatch(patch Patch) ([]byte, error) {
	data, err := yaml.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("marshaling patch failed: %w", err)
	}
	return data, nil
}

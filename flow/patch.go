package flow

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// ApplyPatch applies an RFC 6902 JSON patch document to a raw workflow
// document before it is unmarshaled into a Document and handed to a
// Builder. This lets callers apply targeted overrides (e.g. swapping a
// queue name, disabling a branch) without re-serializing the whole
// workflow by hand.
func ApplyPatch(workflowJSON, patchJSON []byte) ([]byte, error) {
	patch, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return nil, fmt.Errorf("decode json patch: %w", err)
	}

	patched, err := patch.Apply(workflowJSON)
	if err != nil {
		return nil, fmt.Errorf("apply json patch: %w", err)
	}

	// Round-trip through json.Valid to fail fast on a structurally broken
	// result rather than letting it surface as an opaque unmarshal error
	// deeper in the builder.
	if !json.Valid(patched) {
		return nil, fmt.Errorf("patched workflow document is not valid JSON")
	}
	return patched, nil
}

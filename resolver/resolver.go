// Package resolver expands "$nodes.<id>.<path>" references and
// "${...}" string interpolation in a node's form fields against the
// shared map of every other node's most recent output.
package resolver

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/lyzr/flowengine/node"
	"github.com/tidwall/gjson"
)

var interpolationPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Outputs is the shared map a Resolver reads from: node id -> that node's
// most recent Output. runner.Engine keeps this map updated from every
// node_completed event.
type Outputs map[string]*node.Output

// Resolver expands references against a fixed Outputs snapshot.
type Resolver struct {
	outputs Outputs
}

// New returns a Resolver reading from outputs.
func New(outputs Outputs) *Resolver {
	return &Resolver{outputs: outputs}
}

// ResolveConfig expands every value in config, returning a new map; config
// itself is left untouched.
func (r *Resolver) ResolveConfig(config map[string]interface{}) (map[string]interface{}, error) {
	resolved := make(map[string]interface{}, len(config))
	for key, value := range config {
		v, err := r.resolveValue(value)
		if err != nil {
			return nil, fmt.Errorf("resolve config key %q: %w", key, err)
		}
		resolved[key] = v
	}
	return resolved, nil
}

func (r *Resolver) resolveValue(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return r.resolveString(v)
	case map[string]interface{}:
		return r.ResolveConfig(v)
	case []interface{}:
		resolved := make([]interface{}, len(v))
		for i, item := range v {
			rv, err := r.resolveValue(item)
			if err != nil {
				return nil, err
			}
			resolved[i] = rv
		}
		return resolved, nil
	default:
		return value, nil
	}
}

func (r *Resolver) resolveString(s string) (interface{}, error) {
	if strings.HasPrefix(s, "$nodes.") {
		return r.resolveNodeReference(s)
	}
	if strings.Contains(s, "${") {
		return r.resolveInterpolation(s)
	}
	return s, nil
}

// resolveNodeReference handles a bare "$nodes.node_id" or
// "$nodes.node_id.field.path" expression, returning the whole output or a
// gjson-extracted field.
func (r *Resolver) resolveNodeReference(expr string) (interface{}, error) {
	expr = strings.TrimPrefix(expr, "$nodes.")
	parts := strings.SplitN(expr, ".", 2)
	nodeID := parts[0]

	output, ok := r.outputs[nodeID]
	if !ok {
		return nil, fmt.Errorf("node output not found: %s", nodeID)
	}

	if len(parts) == 1 {
		return output.Data, nil
	}

	fieldPath := parts[1]
	raw, err := json.Marshal(output.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal output of node %s: %w", nodeID, err)
	}

	result := gjson.GetBytes(raw, fieldPath)
	if !result.Exists() {
		return nil, fmt.Errorf("field not found: %s in node %s", fieldPath, nodeID)
	}
	return result.Value(), nil
}

// resolveInterpolation expands every "${...}" placeholder embedded in a
// larger string, stringifying non-string resolved values.
func (r *Resolver) resolveInterpolation(s string) (string, error) {
	var resolveErr error
	result := interpolationPattern.ReplaceAllStringFunc(s, func(placeholder string) string {
		if resolveErr != nil {
			return placeholder
		}
		expr := placeholder[2 : len(placeholder)-1]
		value, err := r.resolveString(expr)
		if err != nil {
			resolveErr = fmt.Errorf("resolve interpolation %s: %w", placeholder, err)
			return placeholder
		}
		return stringify(value)
	})
	if resolveErr != nil {
		return "", resolveErr
	}
	return result, nil
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

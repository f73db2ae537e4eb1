// Package condition evaluates the boolean expressions a conditional node
// uses to pick its "yes"/"no" route, using the Common Expression Language.
package condition

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/lyzr/flowengine/node"
)

// Evaluator compiles and caches CEL programs so a conditional node that
// runs every production iteration only pays compilation cost once.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]cel.Program
}

// NewEvaluator returns an Evaluator with an empty compilation cache.
func NewEvaluator() *Evaluator {
	return &Evaluator{cache: make(map[string]cel.Program)}
}

// Evaluate compiles (or reuses a cached compilation of) expr and runs it
// against output's data and the shared runtime map, returning the boolean
// result. expr sees two variables: "data" (output.Data) and "runtime"
// (the shared cross-node map).
func (e *Evaluator) Evaluate(expr string, output *node.Output, runtime map[string]interface{}) (bool, error) {
	program, err := e.compiled(expr)
	if err != nil {
		return false, err
	}

	var data map[string]interface{}
	if output != nil {
		data = output.Data
	}

	out, _, err := program.Eval(map[string]interface{}{
		"data":    data,
		"runtime": runtime,
	})
	if err != nil {
		return false, fmt.Errorf("condition evaluation error: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition %q did not evaluate to a boolean, got %T", expr, out.Value())
	}
	return result, nil
}

func (e *Evaluator) compiled(expr string) (cel.Program, error) {
	e.mu.RLock()
	program, ok := e.cache[expr]
	e.mu.RUnlock()
	if ok {
		return program, nil
	}

	program, err := compile(expr)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[expr] = program
	e.mu.Unlock()
	return program, nil
}

func compile(expr string) (cel.Program, error) {
	env, err := cel.NewEnv(
		cel.Variable("data", cel.DynType),
		cel.Variable("runtime", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile condition %q: %w", expr, issues.Err())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build CEL program for %q: %w", expr, err)
	}
	return program, nil
}

// ClearCache discards every compiled program, forcing recompilation on
// next use. Exposed mainly for tests that reuse an Evaluator across
// differently-shaped expressions.
func (e *Evaluator) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string]cel.Program)
}

// CacheSize reports how many distinct expressions are currently compiled.
func (e *Evaluator) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}

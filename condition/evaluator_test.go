package condition_test

import (
	"testing"

	"github.com/lyzr/flowengine/condition"
	"github.com/lyzr/flowengine/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateSimpleComparison(t *testing.T) {
	e := condition.NewEvaluator()
	out := node.NewOutput()
	out.Data["counter"] = 3

	result, err := e.Evaluate("data.counter > 2", out, nil)

	require.NoError(t, err)
	assert.True(t, result)
}

func TestEvaluateUsesRuntimeVariable(t *testing.T) {
	e := condition.NewEvaluator()
	out := node.NewOutput()
	runtime := map[string]interface{}{"flag": true}

	result, err := e.Evaluate("runtime.flag", out, runtime)

	require.NoError(t, err)
	assert.True(t, result)
}

func TestEvaluateCachesCompiledExpression(t *testing.T) {
	e := condition.NewEvaluator()
	out := node.NewOutput()
	out.Data["x"] = 1

	_, err := e.Evaluate("data.x == 1", out, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, e.CacheSize())

	_, err = e.Evaluate("data.x == 1", out, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, e.CacheSize())
}

func TestEvaluateRejectsNonBooleanResult(t *testing.T) {
	e := condition.NewEvaluator()
	out := node.NewOutput()
	out.Data["x"] = 1

	_, err := e.Evaluate("data.x", out, nil)
	require.Error(t, err)
}

func TestEvaluateRejectsInvalidExpression(t *testing.T) {
	e := condition.NewEvaluator()
	_, err := e.Evaluate("data.x ===", node.NewOutput(), nil)
	require.Error(t, err)
}

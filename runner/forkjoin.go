package runner

import "github.com/lyzr/flowengine/node"

// mergeBranchOutputs builds a join node's input from the pre-fork payload
// plus every key from every branch's output, resolving collisions with the
// same base/base_2/base_3 scheme node.Output.UniqueKey uses everywhere
// else. The merged id and metadata are inherited from the pre-fork
// payload, not from any one branch.
func mergeBranchOutputs(initial *node.Output, branchOutputs []*node.Output) *node.Output {
	merged := initial.Clone()
	for _, branch := range branchOutputs {
		if branch == nil {
			continue
		}
		for key, value := range branch.Data {
			merged.Data[merged.UniqueKey(key)] = value
		}
	}
	return merged
}

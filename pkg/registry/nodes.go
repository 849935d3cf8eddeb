package registry

import (
	"github.com/dukex/storyflow/pkg/nodes/autosave"
	"github.com/dukex/storyflow/pkg/nodes/compare"
	"github.com/dukex/storyflow/pkg/nodes/conditional"
	"github.com/dukex/storyflow/pkg/nodes/dialogue"
	"github.com/dukex/storyflow/pkg/nodes/flow"
	"github.com/dukex/storyflow/pkg/nodes/group"
	"github.com/dukex/storyflow/pkg/nodes/log"
	"github.com/dukex/storyflow/pkg/nodes/loop"
	switchnode "github.com/dukex/storyflow/pkg/nodes/switch"
	"github.com/dukex/storyflow/pkg/nodes/transform"
	"github.com/dukex/storyflow/pkg/nodes/variable"
	"github.com/dukex/storyflow/pkg/nodes/wait"
)

// RegisterDefaultNodes registers all built-in node factories with the registry.
func (r *Registry) RegisterDefaultNodes() {
	// Anchors
	r.RegisterNode(flow.NewStartNodeFactory())
	r.RegisterNode(flow.NewExitNodeFactory())

	// Presentation
	r.RegisterNode(dialogue.NewDialogueNodeFactory())
	r.RegisterNode(dialogue.NewChoiceNodeFactory())
	r.RegisterNode(wait.NewWaitNodeFactory())
	r.RegisterNode(log.NewLogNodeFactory())

	// Variables and data
	r.RegisterNode(variable.NewSetVariableNodeFactory())
	r.RegisterNode(variable.NewVariableNodeFactory())
	r.RegisterNode(compare.NewCompareNodeFactory())
	r.RegisterNode(transform.NewTransformNodeFactory())

	// Control flow
	r.RegisterNode(conditional.NewIfNodeFactory())
	r.RegisterNode(switchnode.NewSwitchNodeFactory())
	r.RegisterNode(loop.NewLoopNodeFactory())
	r.RegisterNode(group.NewGroupNodeFactory())

	r.RegisterNode(autosave.NewAutosaveNodeFactory())
}

package tracing

import (
	"github.com/SecOpsGit/EXEgesis/sim"
)

// A list of hook positions for the trace hooks to apply to.
var (
	HookPosTaskStart = &sim.HookPos{Name: "HookPosTaskStart"}
	HookPosTaskStep  = &sim.HookPos{Name: "HookPosTaskStep"}
	HookPosTaskEnd   = &sim.HookPos{Name: "HookPosTaskEnd"}
)

// StartTask notifies the hooks that hook to the domain about the start of a
// task.
func StartTask(
	id string,
	parentID string,
	domain sim.NamedHookable,
	kind string,
	what string,
	detail interface{},
) {
	StartTaskWithSpecificLocation(
		id, parentID, domain, kind, what, domain.Name(), detail)
}

// StartTaskWithSpecificLocation notifies the hooks that hook to the domain
// about the start of a task, customizing the Where field of the task.
func StartTaskWithSpecificLocation(
	id string,
	parentID string,
	domain sim.NamedHookable,
	kind string,
	what string,
	location string,
	detail interface{},
) {
	if domain.NumHooks() == 0 {
		return
	}

	allRequiredFieldsMustBeNotEmpty(id, domain, kind, what)
	domainMustHaveName(domain)

	task := Task{
		ID:       id,
		ParentID: parentID,
		Kind:     kind,
		What:     what,
		Where:    location,
		Detail:   detail,
	}
	domain.InvokeHook(sim.HookCtx{
		Domain: domain,
		Item:   task,
		Pos:    HookPosTaskStart,
	})
}

func allRequiredFieldsMustBeNotEmpty(
	id string,
	domain sim.NamedHookable,
	kind string,
	what string,
) {
	if id == "" {
		panic("id must not be empty")
	}

	if domain == nil {
		panic("domain must not be nil")
	}

	if kind == "" {
		panic("kind must not be empty")
	}

	if what == "" {
		panic("what must not be empty")
	}
}

func domainMustHaveName(domain sim.NamedHookable) {
	if domain.Name() == "" {
		panic("domain must have a name")
	}
}

// AddTaskStep marks that a milestone has been reached when processing a
// task.
func AddTaskStep(
	id string,
	domain sim.NamedHookable,
	what string,
) {
	if domain.NumHooks() == 0 {
		return
	}

	task := Task{
		ID:    id,
		Steps: []TaskStep{{What: what}},
	}
	domain.InvokeHook(sim.HookCtx{
		Domain: domain,
		Item:   task,
		Pos:    HookPosTaskStep,
	})
}

// EndTask notifies the hooks about the end of a task.
func EndTask(
	id string,
	domain sim.NamedHookable,
) {
	if domain.NumHooks() == 0 {
		return
	}

	task := Task{
		ID: id,
	}
	domain.InvokeHook(sim.HookCtx{
		Domain: domain,
		Item:   task,
		Pos:    HookPosTaskEnd,
	})
}

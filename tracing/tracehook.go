package tracing

import (
	"github.com/SecOpsGit/EXEgesis/sim"
)

// CollectTrace lets the tracer collect traces from a domain.
func CollectTrace(domain sim.NamedHookable, tracer Tracer) {
	domain.AcceptHook(&traceHook{t: tracer})
}

// A traceHook is a hook that forwards task events to a tracer.
type traceHook struct {
	t Tracer
}

// Func calls the tracer interfaces when the hook is triggered.
func (h *traceHook) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case HookPosTaskStart:
		h.t.StartTask(ctx.Item.(Task))
	case HookPosTaskStep:
		h.t.StepTask(ctx.Item.(Task))
	case HookPosTaskEnd:
		h.t.EndTask(ctx.Item.(Task))
	}
}

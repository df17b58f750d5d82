package sim

// A Component is a pipeline stage that is being simulated. Each component
// consumes from its input buffers and produces into its output buffers,
// advancing exactly one simulated cycle per Tick. A component is never
// ticked twice for the same cycle.
type Component interface {
	Named
	Hookable

	// Tick advances the component by one cycle. It returns true if the
	// component did any useful work. A cycle in which no component makes
	// progress terminates the simulation.
	Tick(cycle VCycle) (madeProgress bool)
}

// ComponentBase provides some functions that other components can use.
type ComponentBase struct {
	HookableBase
	name string
}

// NewComponentBase creates a new ComponentBase
func NewComponentBase(name string) *ComponentBase {
	NameMustBeValid(name)

	c := new(ComponentBase)
	c.name = name
	return c
}

// Name returns the name of the component.
func (c *ComponentBase) Name() string {
	return c.name
}

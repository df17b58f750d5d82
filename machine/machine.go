// Package machine describes target micro-architectures: the execution
// ports, the resource classes that uops dispatch to, and the per-instruction
// uop decomposition and latency. A validated description is wrapped in a
// GlobalContext that is shared, read-only, by every pipeline component.
package machine

import "fmt"

// A Register names an architectural register. Dependencies between
// instructions are derived from register uses and defs; the simulator never
// computes register values.
type Register string

// A PortDesc describes one execution port. NumUnits is the number of
// parallel units of the port, so a port can begin executing up to NumUnits
// uops per cycle.
type PortDesc struct {
	Name     string
	NumUnits int
}

// A ResourceClass names the set of ports that can serve a uop. A class with
// a single port models a dedicated resource; a class with several ports
// models a resource group where the issue policy picks the port.
type ResourceClass struct {
	Name  string
	Ports []int
}

// A UopDesc describes one micro-op of an instruction: the resource class it
// dispatches to and its execution latency in cycles.
type UopDesc struct {
	Class   int
	Latency int
}

// An InstDesc carries the timing data of one instruction: its uop
// decomposition. Register operands belong to the instruction stream, not to
// the model, since the same opcode appears with different operands.
type InstDesc struct {
	Opcode string
	Uops   []UopDesc
}

// A Model is a complete micro-architecture description.
type Model struct {
	Name    string
	Ports   []PortDesc
	Classes []ResourceClass
	Insts   []InstDesc
}

// Validate checks the internal consistency of the model. Zero or negative
// unit counts, empty classes, dangling port or class references, and
// non-positive latencies are configuration errors.
func (m *Model) Validate() error {
	if len(m.Ports) == 0 {
		return fmt.Errorf("model %s: no execution port defined", m.Name)
	}

	if err := m.validatePorts(); err != nil {
		return err
	}

	if err := m.validateClasses(); err != nil {
		return err
	}

	return m.validateInsts()
}

func (m *Model) validatePorts() error {
	seen := make(map[string]bool)
	for i, p := range m.Ports {
		if p.Name == "" {
			return fmt.Errorf("port %d: name must not be empty", i)
		}

		if seen[p.Name] {
			return fmt.Errorf("port %s: duplicated name", p.Name)
		}
		seen[p.Name] = true

		if p.NumUnits <= 0 {
			return fmt.Errorf("port %s: unit count must be positive, got %d",
				p.Name, p.NumUnits)
		}
	}

	return nil
}

func (m *Model) validateClasses() error {
	seen := make(map[string]bool)
	for i, c := range m.Classes {
		if c.Name == "" {
			return fmt.Errorf("class %d: name must not be empty", i)
		}

		if seen[c.Name] {
			return fmt.Errorf("class %s: duplicated name", c.Name)
		}
		seen[c.Name] = true

		if len(c.Ports) == 0 {
			return fmt.Errorf("class %s: no eligible port", c.Name)
		}

		for _, p := range c.Ports {
			if p < 0 || p >= len(m.Ports) {
				return fmt.Errorf("class %s: port %d out of range",
					c.Name, p)
			}
		}
	}

	return nil
}

func (m *Model) validateInsts() error {
	seen := make(map[string]bool)
	for _, inst := range m.Insts {
		if inst.Opcode == "" {
			return fmt.Errorf("instruction with empty opcode")
		}

		if seen[inst.Opcode] {
			return fmt.Errorf("instruction %s: duplicated opcode", inst.Opcode)
		}
		seen[inst.Opcode] = true

		if len(inst.Uops) == 0 {
			return fmt.Errorf("instruction %s: no uop", inst.Opcode)
		}

		for i, uop := range inst.Uops {
			if uop.Class < 0 || uop.Class >= len(m.Classes) {
				return fmt.Errorf("instruction %s: uop %d class out of range",
					inst.Opcode, i)
			}

			if uop.Latency <= 0 {
				return fmt.Errorf(
					"instruction %s: uop %d latency must be positive, got %d",
					inst.Opcode, i, uop.Latency)
			}
		}
	}

	return nil
}

// A GlobalContext is a read-only view over a validated Model with constant
// time instruction lookup. It is shared by all pipeline components and is
// never mutated during simulation.
type GlobalContext struct {
	model       *Model
	instsByName map[string]*InstDesc
}

// NewGlobalContext validates the model and builds the lookup context.
func NewGlobalContext(model *Model) (*GlobalContext, error) {
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid machine model: %w", err)
	}

	ctx := &GlobalContext{
		model:       model,
		instsByName: make(map[string]*InstDesc, len(model.Insts)),
	}

	for i := range model.Insts {
		inst := &model.Insts[i]
		ctx.instsByName[inst.Opcode] = inst
	}

	return ctx, nil
}

// ModelName returns the name of the modeled micro-architecture.
func (c *GlobalContext) ModelName() string {
	return c.model.Name
}

// Ports returns the execution port descriptions.
func (c *GlobalContext) Ports() []PortDesc {
	return c.model.Ports
}

// NumClasses returns the number of resource classes.
func (c *GlobalContext) NumClasses() int {
	return len(c.model.Classes)
}

// Class returns the resource class with the given index.
func (c *GlobalContext) Class(index int) ResourceClass {
	return c.model.Classes[index]
}

// DescOf returns the description of an instruction, or an error if the
// model carries no data for the opcode.
func (c *GlobalContext) DescOf(opcode string) (*InstDesc, error) {
	desc, ok := c.instsByName[opcode]
	if !ok {
		return nil, fmt.Errorf("machine model %s has no data for opcode %s",
			c.model.Name, opcode)
	}

	return desc, nil
}

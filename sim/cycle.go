package sim

// VCycle is the virtual cycle count of the simulated processor.
type VCycle int64

// CycleTeller can be used to get the current simulated cycle.
type CycleTeller interface {
	CurrentCycle() VCycle
}

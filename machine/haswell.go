package machine

// Haswell port indices.
const (
	hwPort0 = iota
	hwPort1
	hwPort2
	hwPort3
	hwPort4
	hwPort5
	hwPort6
	hwPort7
)

// Haswell resource class indices.
const (
	ClassHWPort0 = iota
	ClassHWPort1
	ClassHWPort5
	ClassHWPort6
	ClassHWPort01
	ClassHWPort06
	ClassHWPort15
	ClassHWPort015
	ClassHWPort0156
	ClassHWPort23
	ClassHWPort237
	ClassHWPort4
)

// HaswellModel returns a model of the Intel Haswell execution engine: eight
// single-unit ports and the port groups of the LLVM scheduling model. A
// port group (e.g. HWPort0156) is a class whose uops the reorder buffer may
// dispatch to any member port.
func HaswellModel() *Model {
	return &Model{
		Name: "Haswell",
		Ports: []PortDesc{
			{Name: "HWPort0", NumUnits: 1},
			{Name: "HWPort1", NumUnits: 1},
			{Name: "HWPort2", NumUnits: 1},
			{Name: "HWPort3", NumUnits: 1},
			{Name: "HWPort4", NumUnits: 1},
			{Name: "HWPort5", NumUnits: 1},
			{Name: "HWPort6", NumUnits: 1},
			{Name: "HWPort7", NumUnits: 1},
		},
		Classes: []ResourceClass{
			{Name: "HWPort0", Ports: []int{hwPort0}},
			{Name: "HWPort1", Ports: []int{hwPort1}},
			{Name: "HWPort5", Ports: []int{hwPort5}},
			{Name: "HWPort6", Ports: []int{hwPort6}},
			{Name: "HWPort01", Ports: []int{hwPort0, hwPort1}},
			{Name: "HWPort06", Ports: []int{hwPort0, hwPort6}},
			{Name: "HWPort15", Ports: []int{hwPort1, hwPort5}},
			{Name: "HWPort015", Ports: []int{hwPort0, hwPort1, hwPort5}},
			{Name: "HWPort0156", Ports: []int{
				hwPort0, hwPort1, hwPort5, hwPort6}},
			{Name: "HWPort23", Ports: []int{hwPort2, hwPort3}},
			{Name: "HWPort237", Ports: []int{hwPort2, hwPort3, hwPort7}},
			{Name: "HWPort4", Ports: []int{hwPort4}},
		},
		Insts: haswellInsts(),
	}
}

// haswellInsts lists a representative subset of the instruction table. The
// latencies follow the LLVM Haswell scheduling model.
func haswellInsts() []InstDesc {
	return []InstDesc{
		{Opcode: "ADD32rr", Uops: []UopDesc{
			{Class: ClassHWPort0156, Latency: 1}}},
		{Opcode: "SUB32rr", Uops: []UopDesc{
			{Class: ClassHWPort0156, Latency: 1}}},
		{Opcode: "XOR32rr", Uops: []UopDesc{
			{Class: ClassHWPort0156, Latency: 1}}},
		{Opcode: "MOV32rr", Uops: []UopDesc{
			{Class: ClassHWPort0156, Latency: 1}}},
		{Opcode: "LEA32r", Uops: []UopDesc{
			{Class: ClassHWPort15, Latency: 1}}},
		{Opcode: "IMUL32rr", Uops: []UopDesc{
			{Class: ClassHWPort1, Latency: 3}}},
		{Opcode: "POPCNT32rr", Uops: []UopDesc{
			{Class: ClassHWPort1, Latency: 3}}},
		{Opcode: "SHL32rCL", Uops: []UopDesc{
			{Class: ClassHWPort06, Latency: 2},
			{Class: ClassHWPort0156, Latency: 1}}},
		{Opcode: "DIV32r", Uops: []UopDesc{
			{Class: ClassHWPort0, Latency: 22},
			{Class: ClassHWPort1, Latency: 1},
			{Class: ClassHWPort5, Latency: 1},
			{Class: ClassHWPort6, Latency: 1}}},
		{Opcode: "MOV32rm", Uops: []UopDesc{
			{Class: ClassHWPort23, Latency: 5}}},
		{Opcode: "MOV32mr", Uops: []UopDesc{
			{Class: ClassHWPort237, Latency: 1},
			{Class: ClassHWPort4, Latency: 1}}},
		{Opcode: "ADDSSrr", Uops: []UopDesc{
			{Class: ClassHWPort1, Latency: 3}}},
		{Opcode: "MULSSrr", Uops: []UopDesc{
			{Class: ClassHWPort01, Latency: 5}}},
		{Opcode: "VFMADD213SSr", Uops: []UopDesc{
			{Class: ClassHWPort01, Latency: 5}}},
	}
}

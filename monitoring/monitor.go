// Package monitoring provides a web server that monitors a running
// simulation. It allows pausing and resuming the simulation, inspecting
// component state, and watching buffer occupancy from a browser.
package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/SecOpsGit/EXEgesis/monitoring/web"
	"github.com/SecOpsGit/EXEgesis/sim"
)

// Monitor can turn a simulation into a server and allows external monitoring
// and controlling of the simulation.
type Monitor struct {
	simulator  *sim.Simulator
	components []sim.Component
	buffers    []sim.Buffer
	portNumber int

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterSimulator registers the simulator to be monitored. All the
// components and buffers that are already registered with the simulator
// become visible to the monitor.
func (m *Monitor) RegisterSimulator(s *sim.Simulator) {
	m.simulator = s
	m.components = append(m.components, s.Components()...)
	m.buffers = append(m.buffers, s.Buffers()...)
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        sim.GetIDGenerator().Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars)-1)
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// StartServer starts the monitor as a web server with a custom port if wanted.
func (m *Monitor) StartServer() {
	r := mux.NewRouter()

	fs := web.GetAssets()
	fServer := http.FileServer(fs)
	r.HandleFunc("/api/pause", m.pauseSimulator)
	r.HandleFunc("/api/continue", m.continueSimulator)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/run", m.run)
	r.HandleFunc("/api/tick", m.tick)
	r.HandleFunc("/api/list_components", m.listComponents)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/buffers", m.listBuffers)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(fServer)
	http.Handle("/", r)

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	fmt.Fprintf(
		os.Stderr,
		"Monitoring simulation with http://localhost:%d\n",
		listener.Addr().(*net.TCPAddr).Port)

	go func() {
		err = http.Serve(listener, nil)
		dieOnErr(err)
	}()
}

func (m *Monitor) pauseSimulator(w http.ResponseWriter, _ *http.Request) {
	m.simulator.Pause()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) continueSimulator(w http.ResponseWriter, _ *http.Request) {
	m.simulator.Continue()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	cycle := m.simulator.CurrentCycle()
	fmt.Fprintf(w, "{\"cycle\":%d}", cycle)
}

func (m *Monitor) run(_ http.ResponseWriter, _ *http.Request) {
	go func() {
		err := m.simulator.Run()
		if err != nil {
			log.Printf("simulation stopped: %s", err)
		}
	}()
}

func (m *Monitor) tick(w http.ResponseWriter, _ *http.Request) {
	cycle := m.simulator.StepOneCycle()
	fmt.Fprintf(w, "{\"cycle\":%d}", cycle)
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprint(w, "[")
	for i, c := range m.components {
		if i > 0 {
			fmt.Fprint(w, ",")
		}

		fmt.Fprintf(w, "\"%s\"", c.Name())
	}
	fmt.Fprint(w, "]")
}

func (m *Monitor) listComponentDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	component := m.findComponentOr404(w, name)
	if component == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type fieldReq struct {
	CompName  string `json:"comp_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	jsonString := mux.Vars(r)["json"]
	req := fieldReq{}

	err := json.Unmarshal([]byte(jsonString), &req)
	if err != nil {
		dieOnErr(err)
	}

	name := req.CompName
	fields := strings.Split(req.FieldName, ".")

	component := m.findComponentOr404(w, name)
	if component == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(1)

	err = serializer.SetEntryPoint(fields)
	dieOnErr(err)

	err = serializer.Serialize(w)
	dieOnErr(err)
}

func (m *Monitor) listBuffers(w http.ResponseWriter, r *http.Request) {
	sortMethod, limit, offset, err := buffersParseParams(r)
	if err != nil {
		w.WriteHeader(400)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	sortedBuffers := m.sortAndSelectBuffers(sortMethod, limit, offset)

	fmt.Fprintf(w, "[")
	for i, b := range sortedBuffers {
		if i > 0 {
			fmt.Fprint(w, ",")
		}

		fmt.Fprintf(w, "{\"buffer\":\"%s\",\"level\":%d,\"cap\":%d}",
			b.Name(), b.Size(), b.Capacity())
	}

	fmt.Fprint(w, "]")
}

func buffersParseParams(
	r *http.Request,
) (sort string, limit, offset int, err error) {
	sortMethod := r.URL.Query().Get("sort")
	if sortMethod == "" {
		sortMethod = "percent"
	}
	if sortMethod != "level" && sortMethod != "percent" {
		errStr := fmt.Sprintf(
			"Invalid sort method: %s. Allowed values are `level` and `percent`",
			sortMethod)
		return "", 0, 0, errors.New(errStr)
	}

	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		limitStr = "0"
	}
	limitNumber, err := strconv.Atoi(limitStr)
	if err != nil {
		return sortMethod, 0, 0, err
	}

	offsetStr := r.URL.Query().Get("offset")
	if offsetStr == "" {
		offsetStr = "0"
	}
	offsetNumber, err := strconv.Atoi(offsetStr)
	if err != nil {
		return sortMethod, limitNumber, 0, err
	}

	return sortMethod, limitNumber, offsetNumber, nil
}

func bufferPercent(b sim.Buffer) float64 {
	return float64(b.Size()) / float64(b.Capacity())
}

func (m *Monitor) sortAndSelectBuffers(
	sortMethod string,
	limit, offset int,
) []sim.Buffer {
	sortedBuffers := make([]sim.Buffer, len(m.buffers))
	copy(sortedBuffers, m.buffers)

	switch sortMethod {
	case "level":
		sort.SliceStable(sortedBuffers, func(i, j int) bool {
			sizeI := sortedBuffers[i].Size()
			sizeJ := sortedBuffers[j].Size()

			if sizeI != sizeJ {
				return sizeI > sizeJ
			}

			return bufferPercent(sortedBuffers[i]) >
				bufferPercent(sortedBuffers[j])
		})
	case "percent":
		sort.SliceStable(sortedBuffers, func(i, j int) bool {
			percentI := bufferPercent(sortedBuffers[i])
			percentJ := bufferPercent(sortedBuffers[j])

			if percentI != percentJ {
				return percentI > percentJ
			}

			return sortedBuffers[i].Size() > sortedBuffers[j].Size()
		})
	default:
		panic("Invalid sort method " + sortMethod)
	}

	if offset > len(sortedBuffers) {
		offset = len(sortedBuffers)
	}

	end := len(sortedBuffers)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return sortedBuffers[offset:end]
}

func (m *Monitor) findComponentOr404(
	w http.ResponseWriter,
	name string,
) sim.Component {
	var component sim.Component
	for _, c := range m.components {
		if c.Name() == name {
			component = c
		}
	}

	if component == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Component not found"))
		dieOnErr(err)
	}

	return component
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bytes, err := json.Marshal(m.progressBars)
	m.progressBarsLock.Unlock()
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	bytes, err := json.Marshal(prof)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}

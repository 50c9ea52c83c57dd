// Package monitoring turns a running simulation into a small web server so
// that the page table, the frame pool, and the process itself can be
// inspected from outside.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/vmsim/vm/addressspace"
)

// Monitor can turn a simulation into a server and allows external
// inspection of the address spaces registered with it.
type Monitor struct {
	portNumber  int
	openBrowser bool
	spaces      []*addressspace.Comp
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
				"which is not allowed. Using a random port instead.\n",
			portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser makes StartServer open the monitor URL in the default
// browser.
func (m *Monitor) WithBrowser() *Monitor {
	m.openBrowser = true
	return m
}

// RegisterAddressSpace registers an address space to be monitored.
func (m *Monitor) RegisterAddressSpace(s *addressspace.Comp) {
	m.spaces = append(m.spaces, s)
}

// StartServer starts the monitor as a web server.
func (m *Monitor) StartServer() {
	r := mux.NewRouter()

	r.HandleFunc("/api/list_spaces", m.listSpaces)
	r.HandleFunc("/api/status/{name}", m.spaceStatus)
	r.HandleFunc("/api/pagetable/{name}", m.listPageTable)
	r.HandleFunc("/api/frames/{name}", m.listFrames)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	http.Handle("/", r)

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	go func() {
		err = http.Serve(listener, nil)
		dieOnErr(err)
	}()

	if m.openBrowser {
		err = browser.OpenURL(url)
		dieOnErr(err)
	}
}

func (m *Monitor) listSpaces(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(m.spaces))
	for _, s := range m.spaces {
		names = append(names, s.Name())
	}

	writeJSON(w, names)
}

func (m *Monitor) spaceStatus(w http.ResponseWriter, r *http.Request) {
	space := m.findSpaceOr404(w, mux.Vars(r)["name"])
	if space == nil {
		return
	}

	writeJSON(w, space.Status())
}

func (m *Monitor) listPageTable(w http.ResponseWriter, r *http.Request) {
	space := m.findSpaceOr404(w, mux.Vars(r)["name"])
	if space == nil {
		return
	}

	writeJSON(w, space.Manager().PageTable().All())
}

type frameRsp struct {
	Frame uint64 `json:"frame"`
	Owner uint64 `json:"owner,omitempty"`
	Free  bool   `json:"free"`
}

func (m *Monitor) listFrames(w http.ResponseWriter, r *http.Request) {
	space := m.findSpaceOr404(w, mux.Vars(r)["name"])
	if space == nil {
		return
	}

	frames := space.Manager().Frames()
	rsp := make([]frameRsp, 0, frames.FrameCount())

	for i := 0; i < frames.FrameCount(); i++ {
		owner, ok := frames.OwnerOf(uint64(i))
		entry := frameRsp{Frame: uint64(i), Free: !ok}
		if ok {
			entry.Owner = owner
		}

		rsp = append(rsp, entry)
	}

	writeJSON(w, rsp)
}

func (m *Monitor) listComponentDetails(
	w http.ResponseWriter,
	r *http.Request,
) {
	space := m.findSpaceOr404(w, mux.Vars(r)["name"])
	if space == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(space)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	proc, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := proc.CPUPercent()
	dieOnErr(err)

	memorySize, err := proc.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func (m *Monitor) findSpaceOr404(
	w http.ResponseWriter,
	name string,
) *addressspace.Comp {
	for _, s := range m.spaces {
		if s.Name() == name {
			return s
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Address space not found"))
	dieOnErr(err)

	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}

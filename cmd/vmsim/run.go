package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/vmsim/datarecording"
	"github.com/sarchlab/vmsim/mem"
	"github.com/sarchlab/vmsim/monitoring"
	"github.com/sarchlab/vmsim/trace"
	"github.com/sarchlab/vmsim/vm/addressspace"
	"github.com/sarchlab/vmsim/vm/mmu"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the memory-pressure demo scenario.",
	Long: `run maps more anonymous memory than the physical frame pool ` +
		`can hold, forcing LRU evictions into swap, then reads the evicted ` +
		`pages back and releases everything.`,
	Run: func(cmd *cobra.Command, _ []string) {
		runScenario(cmd)
	},
}

func init() {
	runCmd.Flags().Uint64("page-size", envUint("VMSIM_PAGE_SIZE", 4096),
		"bytes per page")
	runCmd.Flags().Int("frames", envInt("VMSIM_FRAMES", 8),
		"physical frame count")
	runCmd.Flags().Int("swap-slots", envInt("VMSIM_SWAP_SLOTS", 32),
		"swap slot count")
	runCmd.Flags().Int("disk-pages", envInt("VMSIM_DISK_PAGES", 64),
		"disk page count")
	runCmd.Flags().Bool("trace", false,
		"print paging events to stderr")
	runCmd.Flags().String("record", "",
		"record paging events into a SQLite file at this path")
	runCmd.Flags().Int("monitor", envInt("VMSIM_MONITOR_PORT", 0),
		"serve the monitoring API on this port")
	runCmd.Flags().Bool("browser", false,
		"open the monitoring URL in a browser")

	rootCmd.AddCommand(runCmd)
}

func envInt(name string, fallback int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}

	return fallback
}

func envUint(name string, fallback uint64) uint64 {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}

	return fallback
}

func runScenario(cmd *cobra.Command) {
	pageSize, _ := cmd.Flags().GetUint64("page-size")
	frames, _ := cmd.Flags().GetInt("frames")
	swapSlots, _ := cmd.Flags().GetInt("swap-slots")
	diskPages, _ := cmd.Flags().GetInt("disk-pages")

	disk := mem.NewDisk(diskPages, pageSize)

	builder := mmu.MakeBuilder().
		WithPageSize(pageSize).
		WithFrameCount(frames).
		WithSwapSlotCount(swapSlots).
		WithBackingStore(disk)

	if on, _ := cmd.Flags().GetBool("trace"); on {
		builder = builder.WithTracers(
			trace.NewTracer(log.New(os.Stderr, "vmsim: ", 0)))
	}

	if path, _ := cmd.Flags().GetString("record"); path != "" {
		recorder := datarecording.New(path)
		builder = builder.WithTracers(trace.NewDBTracer(recorder))
	}

	manager := builder.Build("MMU")

	space := addressspace.MakeBuilder().
		WithMemoryManager(manager).
		Build("Space")

	if port, _ := cmd.Flags().GetInt("monitor"); port != 0 {
		monitor := monitoring.NewMonitor().WithPortNumber(port)
		if open, _ := cmd.Flags().GetBool("browser"); open {
			monitor = monitor.WithBrowser()
		}

		monitor.RegisterAddressSpace(space)
		monitor.StartServer()
	}

	if err := pressureDemo(space, disk, pageSize); err != nil {
		fmt.Fprintf(os.Stderr, "scenario failed: %v\n", err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// pressureDemo exceeds the frame pool with anonymous mappings, revisits the
// evicted pages, mixes in a file-backed mapping, and tears everything down.
func pressureDemo(
	space *addressspace.Comp,
	disk *mem.Disk,
	pageSize uint64,
) error {
	entry, err := disk.CreateFile("demo.txt",
		[]byte("Hello from file! This content will be memory mapped."))
	if err != nil {
		return err
	}

	var mappings []uint64
	for i := 0; i < 6; i++ {
		addr, err := space.Mmap(2*pageSize, nil)
		if err != nil {
			return err
		}
		mappings = append(mappings, addr)

		data := fmt.Sprintf("Data block %d - some test content here!", i)
		if err := space.Write(addr, []byte(data)); err != nil {
			return err
		}
	}

	// Touch older mappings so the LRU order differs from the map order.
	for _, i := range []int{0, 2} {
		if _, err := space.Read(mappings[i], 32); err != nil {
			return err
		}
	}

	fileAddr, err := space.Mmap(entry.Size,
		&addressspace.FileMapping{Offset: entry.StartPage * pageSize})
	if err != nil {
		return err
	}

	content, err := space.Read(fileAddr, entry.Size)
	if err != nil {
		return err
	}
	fmt.Printf("file content through mapping: %q\n", content)

	printStatus(space)

	for _, addr := range mappings {
		if err := space.Munmap(addr, 2*pageSize); err != nil {
			return err
		}
	}
	if err := space.Munmap(fileAddr, entry.Size); err != nil {
		return err
	}

	printStatus(space)

	return nil
}

func printStatus(space *addressspace.Comp) {
	status := space.Status()

	out, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		panic(err)
	}

	fmt.Println(string(out))
}

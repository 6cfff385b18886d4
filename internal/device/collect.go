package device

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Runner executes one external command and returns its stdout. Injectable
// for tests.
type Runner func(ctx context.Context, name string, args ...string) (string, error)

func defaultRunner(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	return string(out), err
}

// Collector gathers device profiles from the host via lsblk, or from a
// prepared inventory file.
type Collector struct {
	run Runner
}

func NewCollector() *Collector {
	return &Collector{run: defaultRunner}
}

// NewCollectorWithRunner is the test seam.
func NewCollectorWithRunner(run Runner) *Collector {
	return &Collector{run: run}
}

// Collect lists the host's disks.
func (c *Collector) Collect(ctx context.Context) ([]Profile, error) {
	out, err := c.run(ctx, "lsblk", "--json", "-o", "NAME,PATH,SIZE,TYPE,MODEL,SERIAL,TRAN")
	if err != nil {
		return nil, fmt.Errorf("list block devices: %w", err)
	}
	return ParseInventory(strings.NewReader(out))
}

// CollectFile reads profiles from an inventory JSON file.
func CollectFile(path string) ([]Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open inventory %s: %w", path, err)
	}
	defer f.Close()
	return ParseInventory(f)
}

// Find returns the profile whose path matches target.
func Find(profiles []Profile, target string) (Profile, bool) {
	for _, p := range profiles {
		if p.Path == target {
			return p, true
		}
	}
	return Profile{}, false
}

// FileProfile synthesizes a profile for a file-backed virtual extent so
// image files can be sanitized without appearing in any inventory.
func FileProfile(path string) (Profile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Profile{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Profile{}, fmt.Errorf("%s is a directory", path)
	}
	p := Profile{
		Name:          info.Name(),
		Path:          path,
		Model:         "Virtual extent",
		Size:          fmt.Sprintf("%d", info.Size()),
		Transport:     TransportFile,
		Media:         MediaVirtual,
		CapacityBytes: info.Size(),
	}
	return p.Normalize(), nil
}

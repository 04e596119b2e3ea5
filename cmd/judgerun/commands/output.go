package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/judgelight/judgelight/runner"
)

// Output formats of run results.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var formats = []string{FormatText, FormatJSON, FormatYAML}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Report is the printed form of a run result
type Report struct {
	Name       string `json:"name,omitempty" yaml:"name,omitempty"`
	Status     string `json:"status" yaml:"status"`
	ExitStatus int    `json:"exit_status" yaml:"exit_status"`
	Signal     int    `json:"signal,omitempty" yaml:"signal,omitempty"`

	TimeMS   int64 `json:"time_ms" yaml:"time_ms"`
	UserMS   int64 `json:"user_ms" yaml:"user_ms"`
	SystemMS int64 `json:"system_ms" yaml:"system_ms"`
	WallMS   int64 `json:"wall_ms" yaml:"wall_ms"`
	SetUpMS  int64 `json:"setup_ms" yaml:"setup_ms"`

	MemoryKiB   uint64 `json:"memory_kib" yaml:"memory_kib"`
	OutputBytes uint64 `json:"output_bytes" yaml:"output_bytes"`

	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewReport converts the result
func NewReport(name string, r runner.Result) Report {
	return Report{
		Name:        name,
		Status:      r.Status.Verdict(),
		ExitStatus:  r.ExitStatus,
		Signal:      int(r.Signal),
		TimeMS:      milliseconds(r.Time()),
		UserMS:      milliseconds(r.UserTime),
		SystemMS:    milliseconds(r.SystemTime),
		WallMS:      milliseconds(r.RunningTime),
		SetUpMS:     milliseconds(r.SetUpTime),
		MemoryKiB:   uint64(r.Memory) >> 10,
		OutputBytes: uint64(r.Output),
		Error:       r.Error,
	}
}

func milliseconds(d time.Duration) int64 {
	return int64(d / time.Millisecond)
}

// String renders the report as "<status> <time ms> <memory KiB> <exit status>"
func (r Report) String() string {
	s := fmt.Sprintf("%s %d %d %d", r.Status, r.TimeMS, r.MemoryKiB, r.ExitStatus)
	if r.Name != "" {
		s = r.Name + " " + s
	}
	return s
}

// WriteReport writes a single report in the format
func WriteReport(w io.Writer, format string, r Report) error {
	return writeReports(w, format, r, []Report{r})
}

// WriteReports writes the reports in the format, as a list in json and yaml
func WriteReports(w io.Writer, format string, reports []Report) error {
	return writeReports(w, format, reports, reports)
}

func writeReports(w io.Writer, format string, v any, reports []Report) error {
	switch format {
	case FormatText:
		for _, r := range reports {
			if _, err := fmt.Fprintln(w, r.String()); err != nil {
				return err
			}
		}
		return nil

	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)

	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown output format %q", format)
}

// openResult opens the result destination, stdout for "" or "stdout"
func openResult(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == "stdout" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("could not create result file: %w", err)
	}
	return f, f.Close, nil
}

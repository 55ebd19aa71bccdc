package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	newton "github.com/marben/newton_attractors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want newton.Params
	}{
		{name: "threads first", args: []string{"-t4", "-l1000", "7"}, want: newton.Params{Degree: 7, Resolution: 1000, Threads: 4}},
		{name: "resolution first", args: []string{"-l50", "-t2", "5"}, want: newton.Params{Degree: 5, Resolution: 50, Threads: 2}},
		{name: "degree first", args: []string{"1", "-l4", "-t2"}, want: newton.Params{Degree: 1, Resolution: 4, Threads: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Parse(tt.args)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if c.Params() != tt.want {
				t.Errorf("got %+v, want %+v", c.Params(), tt.want)
			}
			if c.OutputDir != "." {
				t.Errorf("OutputDir = %q, want default \".\"", c.OutputDir)
			}
		})
	}
}

func TestParseSeparatedValues(t *testing.T) {
	c, err := Parse([]string{"-t", "3", "5", "-l", "64"})
	if err != nil {
		t.Fatal(err)
	}
	if c.Params() != (newton.Params{Degree: 5, Resolution: 64, Threads: 3}) {
		t.Fatalf("got %+v", c.Params())
	}
}

func TestParseOptions(t *testing.T) {
	c, err := Parse([]string{"-t1", "-l8", "2", "-o/tmp/out", "-p:9090", "-d90s"})
	if err != nil {
		t.Fatal(err)
	}
	if c.OutputDir != "/tmp/out" || c.Progress.Listen != ":9090" || c.Deadline != 90*time.Second {
		t.Fatalf("got %+v", c)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{name: "no args", args: nil, want: ErrUsage},
		{name: "missing degree", args: []string{"-t2", "-l10"}, want: ErrUsage},
		{name: "missing threads", args: []string{"-l10", "2"}, want: ErrUsage},
		{name: "bad threads", args: []string{"-tx", "-l10", "2"}, want: ErrUsage},
		{name: "zero resolution", args: []string{"-t1", "-l0", "2"}, want: ErrUsage},
		{name: "two degrees", args: []string{"-t1", "-l10", "2", "5"}, want: ErrUsage},
		{name: "unknown option", args: []string{"-t1", "-l10", "-x", "2"}, want: ErrUsage},
		{name: "bad deadline", args: []string{"-t1", "-l10", "-dsoon", "2"}, want: ErrUsage},
		{name: "config path without value", args: []string{"-t1", "-l10", "2", "-c"}, want: ErrUsage},
		{name: "empty config path", args: []string{"-t1", "-l10", "--config=", "2"}, want: ErrUsage},
		{name: "help", args: []string{"-h"}, want: ErrUsage},
		{name: "unsupported degree", args: []string{"-t1", "-l10", "3"}, want: newton.ErrInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.args); !errors.Is(err, tt.want) {
				t.Fatalf("Parse(%q) = %v, want %v", tt.args, err, tt.want)
			}
		})
	}
}

func TestParseConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newton.yaml")
	yaml := `Degree: 5
Resolution: 200
Threads: 3
OutputDir: renders
Deadline: 2m
Progress:
  Listen: ":8080"
  Kafka:
    Brokers: ["localhost:9092"]
History:
  URI: mongodb://localhost:27017
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Parse([]string{"-c" + path})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Params() != (newton.Params{Degree: 5, Resolution: 200, Threads: 3}) {
		t.Errorf("params %+v", c.Params())
	}
	if c.OutputDir != "renders" || c.Deadline != 2*time.Minute || c.Progress.Listen != ":8080" {
		t.Errorf("got %+v", c)
	}
	if len(c.Progress.Kafka.Brokers) != 1 || c.Progress.Kafka.Topic != "newton-progress" {
		t.Errorf("kafka %+v", c.Progress.Kafka)
	}
	if c.History.Database != "newton" || c.History.Collection != "runs" || c.History.Timeout != 5*time.Second {
		t.Errorf("history %+v", c.History)
	}

	// command line wins over the file
	c, err = Parse([]string{"-c" + path, "-t8", "7"})
	if err != nil {
		t.Fatal(err)
	}
	if c.Params() != (newton.Params{Degree: 7, Resolution: 200, Threads: 8}) {
		t.Errorf("override params %+v", c.Params())
	}
}

func TestParseMissingConfigFile(t *testing.T) {
	if _, err := Parse([]string{"-c" + filepath.Join(t.TempDir(), "nope.yaml"), "-t1", "-l2", "1"}); err == nil {
		t.Fatal("Parse accepted a missing config file")
	}
}

// A file that leaves the render values to the command line must load; they are
// only required after both sources are merged.
func TestParseConfigFileWithoutRenderValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newton.yaml")
	yaml := `Log:
  Mode: console
  Level: error
Progress:
  Listen: ":8181"
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Parse([]string{"-c" + path, "-t2", "-l16", "5"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Params() != (newton.Params{Degree: 5, Resolution: 16, Threads: 2}) {
		t.Errorf("params %+v", c.Params())
	}
	if c.Log.Level != "error" || c.Progress.Listen != ":8181" || c.OutputDir != "." {
		t.Errorf("got %+v", c)
	}

	if _, err := Parse([]string{"-c" + path, "-t2", "5"}); !errors.Is(err, ErrUsage) {
		t.Errorf("Parse without resolution = %v, want %v", err, ErrUsage)
	}
}

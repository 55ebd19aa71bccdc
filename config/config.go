// Package config builds the immutable render configuration from an optional YAML
// file and the compact command line (-t<threads> -l<resolution> <degree>).
// Command-line values override the file.
package config

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	newton "github.com/marben/newton_attractors"
	"github.com/marben/newton_attractors/history"
	"github.com/marben/newton_attractors/progress"
	"github.com/spf13/pflag"
	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
)

const Usage = "usage: newton [-c<config.yaml>] -t<threads> -l<resolution> [-o<outdir>] [-p<listen addr>] [-d<deadline>] <degree>"

var ErrUsage = errors.New("usage error")

type ProgressConf struct {
	// Listen serves the websocket progress feed when set, e.g. ":8080".
	Listen string             `json:",optional"`
	Kafka  progress.KafkaConf `json:",optional"`
}

type Config struct {
	Degree      int           `json:",optional"`
	Resolution  int           `json:",optional"`
	Threads     int           `json:",optional"`
	OutputDir   string        `json:",default=."`
	Deadline    time.Duration `json:",optional"`
	Diagnostics bool          `json:",optional"`

	Log      logx.LogConf `json:",optional"`
	Progress ProgressConf `json:",optional"`
	History  history.Conf `json:",optional"`
}

func (c Config) Params() newton.Params {
	return newton.Params{
		Degree:     c.Degree,
		Resolution: c.Resolution,
		Threads:    c.Threads,
	}
}

// check reports missing or unusable values. It runs only once the file and the
// command line are merged; conf.Load calls any Validate method on its target, so
// this must not be one.
func (c Config) check() error {
	var missing []string
	if c.Degree == 0 {
		missing = append(missing, "<degree>")
	}
	if c.Threads == 0 {
		missing = append(missing, "-t<threads>")
	}
	if c.Resolution == 0 {
		missing = append(missing, "-l<resolution>")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrUsage, strings.Join(missing, ", "))
	}
	if c.Deadline < 0 {
		return fmt.Errorf("%w: negative deadline %s", ErrUsage, c.Deadline)
	}
	return c.Params().Validate()
}

// Parse builds a Config from command-line args, excluding the program name.
// Shorthand flags take their value glued on (-t8) or as the next arg (-t 8), and
// the degree may appear anywhere.
func Parse(args []string) (Config, error) {
	var c Config

	fs := pflag.NewFlagSet("newton", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	path := fs.StringP("config", "c", "", "YAML config file")
	threads := fs.IntP("threads", "t", 0, "worker goroutines")
	resolution := fs.IntP("resolution", "l", 0, "image width and height in pixels")
	outDir := fs.StringP("output", "o", "", "output directory")
	listen := fs.StringP("listen", "p", "", "progress websocket listen address")
	deadline := fs.DurationP("deadline", "d", 0, "abort the render after this long")
	if err := fs.Parse(args); err != nil {
		return c, fmt.Errorf("%w: %w", ErrUsage, err)
	}

	if fs.Changed("config") {
		if *path == "" {
			return c, fmt.Errorf("%w: empty config path", ErrUsage)
		}
		if err := conf.Load(*path, &c, conf.UseEnv()); err != nil {
			return c, fmt.Errorf("load %s: %w", *path, err)
		}
	} else if err := conf.LoadFromYamlBytes([]byte("{}"), &c); err != nil {
		return c, err
	}

	if fs.Changed("threads") {
		if *threads <= 0 {
			return c, fmt.Errorf("%w: invalid thread count %d", ErrUsage, *threads)
		}
		c.Threads = *threads
	}
	if fs.Changed("resolution") {
		if *resolution <= 0 {
			return c, fmt.Errorf("%w: invalid resolution %d", ErrUsage, *resolution)
		}
		c.Resolution = *resolution
	}
	if fs.Changed("output") {
		if *outDir == "" {
			return c, fmt.Errorf("%w: empty output directory", ErrUsage)
		}
		c.OutputDir = *outDir
	}
	if fs.Changed("listen") {
		if *listen == "" {
			return c, fmt.Errorf("%w: empty listen address", ErrUsage)
		}
		c.Progress.Listen = *listen
	}
	if fs.Changed("deadline") {
		c.Deadline = *deadline
	}

	switch rest := fs.Args(); len(rest) {
	case 0:
	case 1:
		d, err := strconv.Atoi(rest[0])
		if err != nil || d <= 0 {
			return c, fmt.Errorf("%w: invalid degree %q", ErrUsage, rest[0])
		}
		c.Degree = d
	default:
		return c, fmt.Errorf("%w: unexpected arguments %q", ErrUsage, rest[1:])
	}

	return c, c.check()
}

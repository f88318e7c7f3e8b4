package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/kwv/beaconmesh/mesh"
)

// Version is set at build time via -ldflags
var Version = "dev"

// AppOptions holds the parsed command line
type AppOptions struct {
	ConfigFile      string
	InputFile       string
	PoseCache       string
	NoCache         bool
	AllOrientations bool
	ParseOnly       bool
	RenderOnly      bool
	OutputFile      string
	RenderFormat    string
	GridSpacing     float64
	ServiceMode     bool
	HttpPort        int
}

// Runner is implemented by App; tests substitute a mock
type Runner interface {
	ApplyOptions(opts AppOptions)
	RunSolve() error
	RunParseOnly() error
	RunRender() error
	RunService() error
}

func main() {
	if err := run(os.Args[1:], os.Stdout, NewApp(os.Stdout)); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatal(err)
	}
}

// run parses args and dispatches to the selected mode
func run(args []string, out io.Writer, app Runner) error {
	fs := flag.NewFlagSet("beaconmesh", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts AppOptions
	fs.StringVar(&opts.ConfigFile, "config", "config.yaml", "Path to configuration file (defaults are used if missing)")
	fs.StringVar(&opts.InputFile, "input", "scanners.txt", "Scanner report to solve: a file path or an http(s) URL")
	fs.StringVar(&opts.PoseCache, "cache", mesh.DefaultPoseCachePath, "Path to pose cache file")
	fs.BoolVar(&opts.NoCache, "no-cache", false, "Neither read nor write the pose cache")
	fs.BoolVar(&opts.AllOrientations, "all-orientations", false, "Search all 48 signed axis permutations instead of the 24 rotations")
	fs.BoolVar(&opts.ParseOnly, "parse-only", false, "Parse the report, print a summary and exit")
	fs.BoolVar(&opts.RenderOnly, "render", false, "Solve the report and render a top-down map")
	fs.StringVar(&opts.OutputFile, "output", "beacon-map.svg", "Output file for -render (.svg or .png)")
	fs.StringVar(&opts.RenderFormat, "format", "vector", "Render format for -render: vector or raster")
	fs.Float64Var(&opts.GridSpacing, "grid-spacing", 500, "Grid spacing in world units for vector output (0 disables)")
	fs.BoolVar(&opts.ServiceMode, "service", false, "Run as a service: solve reports from MQTT and serve results over HTTP")
	fs.IntVar(&opts.HttpPort, "http-port", 8080, "HTTP server port for -service")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintf(out, "beaconmesh version: %s\n", Version)
	app.ApplyOptions(opts)

	switch {
	case opts.ParseOnly:
		return app.RunParseOnly()
	case opts.RenderOnly:
		return app.RunRender()
	case opts.ServiceMode:
		fmt.Fprintln(out, "beaconmesh service starting...")
		return app.RunService()
	default:
		return app.RunSolve()
	}
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ironsheep/rmsat-cfar/internal/cfar"
	"github.com/ironsheep/rmsat-cfar/internal/config"
	"github.com/ironsheep/rmsat-cfar/internal/imaging"
	"github.com/ironsheep/rmsat-cfar/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	log := newLogger(os.Stderr, os.Getenv("RMSAT_CFAR_LOG_LEVEL"))

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("cfar-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printUsage(os.Stdout)
			return
		case "detect":
			if err := runDetect(os.Args[2:], os.Stdout, log); err != nil {
				log.Error().Err(err).Msg("detection failed")
				os.Exit(1)
			}
			return
		case "synth":
			if err := runSynth(os.Args[2:], os.Stdout); err != nil {
				log.Error().Err(err).Msg("synthesis failed")
				os.Exit(1)
			}
			return
		case "serve":
			os.Args = append(os.Args[:1], os.Args[2:]...)
		}
	}

	if err := runServer(os.Args[1:], log); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "cfar-mcp - RmSAT-CFAR target detection for radar intensity images")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  cfar-mcp [serve] [-config file.json]")
	fmt.Fprintln(w, "  cfar-mcp detect [-config file.json] [-overlay file.png] [-report file.json] <input> <output> <pfa> [key value]...")
	fmt.Fprintln(w, "  cfar-mcp synth [-sigma 30] [-seed 1] [-targets 9] [-spacing 14] [-value N] <output> <width> <height>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --version, -v    Print version information")
	fmt.Fprintln(w, "  --help, -h       Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Detector parameters (detect key value pairs):")
	fmt.Fprintln(w, "  guardRadius (5), clutterRadius (5), minimumMixtureCount (1), maximumMixtureCount (5)")
	fmt.Fprintln(w, "  Keys may carry the RmSAT-CFAR. prefix.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables:")
	fmt.Fprintln(w, "  RMSAT_CFAR_LOG_LEVEL=debug    Log level: debug, info, warn, error (default info)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Without a subcommand the MCP server runs over stdin/stdout.")
}

// newLogger writes console-formatted logs to w. Unknown or empty levels mean info.
func newLogger(w io.Writer, level string) zerolog.Logger {
	zerolog.DurationFieldInteger = true

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

func loadConfig(path string) (*config.Config, error) {
	cfg := config.Default()
	if path == "" {
		return cfg, nil
	}
	file, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.Merge(file)
	return cfg, nil
}

func runServer(args []string, log zerolog.Logger) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "JSON configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	server.Version = Version
	log.Info().Str("version", Version).Str("commit", GitCommit).Msg("starting MCP server")
	return server.NewWithConfig(cfg, log).Run()
}

// parseParameters reads alternating key value arguments.
func parseParameters(args []string) (cfar.Parameters, error) {
	if len(args)%2 != 0 {
		return nil, fmt.Errorf("parameter %q has no value", args[len(args)-1])
	}
	params := cfar.Parameters{}
	for i := 0; i < len(args); i += 2 {
		v, err := strconv.ParseFloat(args[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", args[i], err)
		}
		params[strings.TrimPrefix(args[i], cfar.KeyPrefix)] = v
	}
	return params, nil
}

func runDetect(args []string, stdout io.Writer, log zerolog.Logger) error {
	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	configPath := fs.String("config", "", "JSON configuration file")
	overlayPath := fs.String("overlay", "", "write a PNG preview with targets highlighted")
	reportPath := fs.String("report", "", "write the detection report as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 3 {
		return errors.New("usage: detect <input> <output> <pfa> [key value]...")
	}
	input, output := fs.Arg(0), fs.Arg(1)

	pfa, err := strconv.ParseFloat(fs.Arg(2), 64)
	if err != nil {
		return fmt.Errorf("invalid pfa %q: %w", fs.Arg(2), err)
	}
	extra, err := parseParameters(fs.Args()[3:])
	if err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	params := cfg.Parameters()
	for k, v := range extra {
		params[k] = v
	}

	img, err := imaging.LoadRaster(input)
	if err != nil {
		return err
	}

	det := cfar.NewRmSAT(cfg.Options(&log))
	mask, report, err := det.ExecuteWithReport(context.Background(), img, pfa, params)
	if err != nil {
		return err
	}
	if err := imaging.SaveMask(output, mask); err != nil {
		return err
	}
	if *overlayPath != "" {
		if err := imaging.SaveOverlay(*overlayPath, img, mask, imaging.OverlayOptions{}); err != nil {
			return err
		}
	}
	if *reportPath != "" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		if err := os.WriteFile(*reportPath, data, 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	fmt.Fprintf(stdout, "%s: %d targets in %dx%d (%.4f%%), %d tiles, %v\n",
		output, report.Stats.Targets, report.Width, report.Height,
		100*report.Stats.TargetRatio, len(report.Tiles), report.Elapsed)
	return nil
}

func runSynth(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("synth", flag.ContinueOnError)
	sigma := fs.Float64("sigma", 30, "Rayleigh scale of the clutter")
	seed := fs.Uint64("seed", 1, "random seed")
	targets := fs.Int("targets", 9, "number of injected targets")
	spacing := fs.Int("spacing", 14, "grid spacing of the targets")
	value := fs.Int("value", 0, "target intensity; 0 means ten times the clutter mean")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 3 {
		return errors.New("usage: synth <output> <width> <height>")
	}

	width, err := strconv.Atoi(fs.Arg(1))
	if err != nil {
		return fmt.Errorf("invalid width: %w", err)
	}
	height, err := strconv.Atoi(fs.Arg(2))
	if err != nil {
		return fmt.Errorf("invalid height: %w", err)
	}
	if width <= 0 || height <= 0 {
		return imaging.ErrEmptyImage
	}
	if !(*sigma > 0) {
		return fmt.Errorf("sigma must be positive, got %g", *sigma)
	}

	v := *value
	if v <= 0 {
		v = int(math.Round(10 * *sigma * math.Sqrt(math.Pi/2)))
	}
	if v > math.MaxUint16 {
		return fmt.Errorf("target value %d exceeds 16 bits", v)
	}

	r := imaging.RayleighClutter(width, height, *sigma, *seed)
	placed := imaging.InjectTargets(r, uint16(v), *spacing, *targets)
	if err := imaging.SaveRaster(fs.Arg(0), r); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%s: %dx%d clutter sigma %g, %d targets at %d\n",
		fs.Arg(0), width, height, *sigma, len(placed), v)
	for _, p := range placed {
		fmt.Fprintf(stdout, "  %d %d\n", p.X, p.Y)
	}
	return nil
}

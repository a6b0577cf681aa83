package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"agile-live/internal/config"
	"agile-live/internal/data"
	"agile-live/internal/format"
	"agile-live/internal/logging"
	"agile-live/internal/model"
	"agile-live/internal/pipeline"
	"agile-live/internal/render"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "analyze":
		cmdAnalyze(os.Args[2:])
	case "layout":
		cmdLayout(os.Args[2:])
	case "render":
		cmdRender(os.Args[2:])
	case "export":
		cmdExport(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli analyze --data unit-rates.json [--now 2024-11-05T17:10:00Z] [--format text|json|yaml]")
	fmt.Println("  cli layout  --live --width 800 --height 400 [--format json|yaml]")
	fmt.Println("  cli render  --data unit-rates.json --out results/chart.png")
	fmt.Println("  cli export  --live --out results/prices.csv [--raw results/unit-rates.json]")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - --live fetches from the pricing API for the configured tariff instead of reading --data")
	fmt.Println("  - a fetch failure is reported as no data, like the server does")
}

// common are the flags every subcommand shares.
type common struct {
	cfgPath  *string
	dataPath *string
	live     *bool
	now      *string
	width    *int
	height   *int
	verbose  *bool
}

func commonFlags(fs *flag.FlagSet) *common {
	return &common{
		cfgPath:  fs.String("config", "", "Path to YAML config (default: search ./configs and .)"),
		dataPath: fs.String("data", "", "Path to a saved unit-rates JSON response"),
		live:     fs.Bool("live", false, "Fetch unit rates from the pricing API"),
		now:      fs.String("now", "", "Analyse as of this RFC3339 time (default: now)"),
		width:    fs.Int("width", 0, "Chart width override"),
		height:   fs.Int("height", 0, "Chart height override"),
		verbose:  fs.Bool("v", false, "Debug logging"),
	}
}

// session is a loaded config plus the engine and records it describes.
type session struct {
	cfg     *config.Config
	tariff  model.Tariff
	engine  *pipeline.Engine
	records []model.PriceRecord
	raw     *model.UnitRatesResponse
	now     time.Time
}

func open(c *common) *session {
	level := "warn"
	if *c.verbose {
		level = "debug"
	}
	if _, err := logging.Init(logging.Options{Level: level, Format: "console"}); err != nil {
		fatal(err)
	}

	cfg, err := config.Load(*c.cfgPath)
	if err != nil {
		fatal(err)
	}
	if *c.width > 0 {
		cfg.Chart.Width = *c.width
	}
	if *c.height > 0 {
		cfg.Chart.Height = *c.height
	}
	opts, err := cfg.PipelineOptions()
	if err != nil {
		fatal(err)
	}
	engine, err := pipeline.New(opts)
	if err != nil {
		fatal(err)
	}

	s := &session{cfg: cfg, tariff: cfg.Tariff.ToModel(), engine: engine, now: time.Now()}
	if *c.now != "" {
		if s.now, err = time.Parse(time.RFC3339, *c.now); err != nil {
			fatal(fmt.Errorf("--now: %w", err))
		}
	}

	switch {
	case *c.live:
		s.raw = fetchLive(cfg, s.tariff)
	case *c.dataPath != "":
		if s.raw, err = data.LoadUnitRatesJSON(*c.dataPath); err != nil {
			fatal(err)
		}
	default:
		fmt.Println("one of --data or --live is required")
		os.Exit(2)
	}
	if s.raw != nil {
		s.records = s.raw.Results
	}
	return s
}

func fetchLive(cfg *config.Config, tariff model.Tariff) *model.UnitRatesResponse {
	client := data.NewOctopusClient(cfg.Source.BaseURL, cfg.Source.Timeout)
	if cfg.Source.PageSize > 0 {
		client.PageSize = cfg.Source.PageSize
	}
	if cfg.Source.MaxPages > 0 {
		client.MaxPages = cfg.Source.MaxPages
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Source.Timeout)
	defer cancel()
	resp, err := client.QueryUnitRates(ctx, data.QueryUnitRatesParams{Tariff: tariff})
	if err != nil {
		zap.L().Error("[CLI] Fetch failed", zap.String("tariff", tariff.Code()), zap.Error(err))
		fmt.Fprintf(os.Stderr, "fetch %s: %v\n", tariff.Code(), err)
		return nil
	}
	return resp
}

func (s *session) run() *pipeline.Result {
	res, err := s.engine.Run(s.records, s.now)
	if err != nil {
		fatal(err)
	}
	return res
}

func cmdAnalyze(args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	c := commonFlags(fs)
	outFmt := fs.String("format", "text", "Output format: text, json or yaml")
	_ = fs.Parse(args)

	s := open(c)
	res := s.run()
	snap := res.Snapshot()

	if *outFmt != "text" {
		if err := encode(os.Stdout, *outFmt, snap); err != nil {
			fatal(err)
		}
		return
	}

	loc := res.Location
	fmt.Printf("Tariff:  %s\n", s.tariff.Code())
	fmt.Printf("Day:     %d slots", snap.Slots)
	if snap.Fallback {
		fmt.Print(" (fallback, no slots today)")
	}
	fmt.Println()
	if snap.Current != nil {
		fmt.Printf("Now:     %-8s %-10s from %s\n", snap.Current.Display, snap.Current.Tier, format.FormatClock(snap.Current.ValidFrom, loc))
	} else {
		fmt.Println("Now:     -")
	}
	if snap.Next != nil {
		fmt.Printf("Next:    %-8s %-10s from %s\n", snap.Next.Display, snap.Next.Tier, format.FormatClock(snap.Next.ValidFrom, loc))
	}
	fmt.Printf("Low:     %-8s at %s\n", snap.Low.Display, snap.Low.At)
	fmt.Printf("High:    %-8s at %s\n", snap.High.Display, snap.High.At)
	fmt.Printf("Average: %s\n", snap.Average.Display)
	if snap.Peak.Distinct {
		fmt.Printf("Peak:    %s - %s\n", snap.Peak.Start, snap.Peak.End)
	} else {
		fmt.Printf("Peak:    %s (single slot)\n", snap.Peak.Start)
	}
	fmt.Printf("Refresh: %s\n", format.FormatClock(snap.NextRefresh, loc))
}

func cmdLayout(args []string) {
	fs := flag.NewFlagSet("layout", flag.ExitOnError)
	c := commonFlags(fs)
	outFmt := fs.String("format", "json", "Output format: json or yaml")
	commandsOnly := fs.Bool("commands", false, "Print the flattened draw commands instead of the geometry")
	_ = fs.Parse(args)

	res := open(c).run()
	var v any = res.Geometry
	if *commandsOnly {
		v = res.Geometry.Commands()
	}
	if err := encode(os.Stdout, *outFmt, v); err != nil {
		fatal(err)
	}
}

func cmdRender(args []string) {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	c := commonFlags(fs)
	outPath := fs.String("out", "results/chart.png", "Output PNG path")
	_ = fs.Parse(args)

	s := open(c)
	f := create(*outPath)
	defer f.Close()

	r := render.New(render.DefaultStyle())
	res, err := s.engine.Run(s.records, s.now)
	if err != nil {
		cv := s.engine.Options().Canvas
		if err := r.NoData(f, int(cv.Width), int(cv.Height), "No data"); err != nil {
			fatal(err)
		}
		fmt.Printf("No data (%v), wrote placeholder to %s\n", err, *outPath)
		return
	}
	if err := r.EncodePNG(f, res.Geometry); err != nil {
		fatal(err)
	}
	fmt.Printf("Wrote %gx%g chart to %s\n", res.Geometry.Canvas.Width, res.Geometry.Canvas.Height, *outPath)
}

func cmdExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	c := commonFlags(fs)
	outPath := fs.String("out", "results/prices.csv", "Output CSV path")
	rawPath := fs.String("raw", "", "Optional: also save the unit-rates response as JSON")
	_ = fs.Parse(args)

	s := open(c)
	if *rawPath != "" && s.raw != nil {
		mkdirFor(*rawPath)
		if err := data.SaveUnitRatesJSON(s.raw, *rawPath); err != nil {
			fatal(err)
		}
		fmt.Printf("Saved %d records to %s\n", len(s.raw.Results), *rawPath)
	}

	res := s.run()
	mkdirFor(*outPath)
	if err := pipeline.WriteSeriesCSVFile(*outPath, res); err != nil {
		fatal(err)
	}
	fmt.Printf("Wrote %d rows to %s\n", len(res.Day), *outPath)
}

// encode writes v as JSON or YAML. YAML keys follow the JSON field names.
func encode(w io.Writer, outFmt string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	switch outFmt {
	case "json":
		_, err = fmt.Fprintln(w, string(raw))
		return err
	case "yaml":
		var doc any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q", outFmt)
	}
}

func create(path string) *os.File {
	mkdirFor(path)
	f, err := os.Create(path)
	if err != nil {
		fatal(err)
	}
	return f
}

// ensure output dir exists
func mkdirFor(path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/rushteam/relaykit/config"
	_ "github.com/rushteam/relaykit/config/builders"
	"github.com/rushteam/relaykit/core"
	"github.com/rushteam/relaykit/engine"
	"github.com/rushteam/relaykit/render"
	"github.com/rushteam/relaykit/snapshot"
)

// listFlag 是可重复的字符串参数（-c de -c fr）。
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	var (
		opts     = core.DefaultOptions()
		country  listFlag
		ases     listFlag
		exitMode string
		short    bool
		asJSON   bool
		verbose  bool
	)

	configPath := flag.String("config", "", "settings file (YAML or JSON)")
	pipelinePath := flag.String("pipeline", "", "pipeline file replacing the built-in filter chain")
	datafile := flag.String("datafile", "details.json", "use a custom datafile")

	boolVar(&opts.Inactive, false, "include relays in selection that aren't currently running", "i", "inactive")
	flag.Var(&ases, "a", "select only relays from autonomous system number AS (repeatable)")
	flag.Var(&ases, "as", "select only relays from autonomous system number AS (repeatable)")
	flag.Var(&country, "c", "select only relays from country with code CC (repeatable)")
	flag.Var(&country, "country", "select only relays from country with code CC (repeatable)")
	boolVar(&opts.ExitsOnly, false, "select only relays suitable for exit position", "e", "exits-only")
	stringVar(&opts.Family, "", "select family by fingerprint or nickname (for named relays)", "f", "family")
	boolVar(&opts.GuardsOnly, false, "select only relays suitable for guard position", "g", "guards-only")
	flag.StringVar(&exitMode, "exit-filter", "", fmt.Sprintf("exit quality filter %v", core.ExitFilterModes()))
	flag.BoolVar(&opts.FastExitsOnly, "fast-exits-only", false, "select only fast exits, at most max_per_network per /24")
	flag.BoolVar(&opts.AlmostFastExitsOnly, "almost-fast-exits-only", false, "select only almost fast exits, not in the set of fast exits")
	flag.BoolVar(&opts.FastExitsOnlyAnyNetwork, "fast-exits-only-any-network", false, "select only fast exits without network restriction")
	boolVar(&opts.ByAS, false, "group relays by AS", "A", "by-as")
	boolVar(&opts.ByCountry, false, "group relays by country", "C", "by-country")
	flag.StringVar(&opts.SortField, "sort", opts.SortField, "sort by {cw|adv_bw|p_guard|p_exit|p_middle|nick|fp}")
	flag.BoolVar(&opts.SortReverse, "sort-reverse", opts.SortReverse, "descending order (use --sort-reverse=false for ascending)")
	boolVar(&opts.Links, false, "display links to the directory service instead of fingerprints", "l", "links")
	intVar(&opts.Top, opts.Top, "display only the top results (-1 for all)", "t", "top")
	boolVar(&short, false, "cut the length of the line output at 70 chars", "s", "short")
	boolVar(&asJSON, false, "output in JSON rather than human-readable format", "j", "json")
	flag.StringVar(&opts.Expr, "expr", "", `additional CEL filter, e.g. 'relay.bandwidth_rate > 1e7'`)
	flag.BoolVar(&verbose, "v", false, "debug logging to stderr")
	flag.Parse()

	if flag.NArg() > 0 {
		log.Fatalf("Did not understand positional argument(s), use options instead: %v", flag.Args())
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	settings := config.DefaultSettings()
	if *configPath != "" {
		var err error
		settings, err = config.LoadSettings(*configPath)
		if err != nil {
			log.Fatalf("Failed to load settings: %v", err)
		}
		// 配置文件中的默认值只覆盖命令行未显式给出的参数
		applyDefaults(&opts, settings.Options())
	}
	if isSet("datafile") || *configPath == "" {
		settings.Snapshot.Source = "file"
		settings.Snapshot.Path = *datafile
	}

	opts.Country = country
	opts.ASes = ases
	if exitMode != "" {
		opts.ExitFilterMode = core.ExitFilterMode(exitMode)
	}

	ctx := context.Background()
	st, key, err := settings.OpenStore(ctx)
	if err != nil {
		log.Fatalf("Failed to open snapshot store: %v", err)
	}
	defer st.Close()

	snap, err := snapshot.Load(ctx, st, key)
	if core.IsStoreNotFound(err) {
		log.Fatalf("Did not find %s. Fetch a details document from the directory service first.", key)
	}
	if err != nil {
		log.Fatalf("Failed to load snapshot: %v", err)
	}

	e := engine.New(
		engine.WithThresholds(settings.Thresholds),
		engine.WithLogger(logger.With("component", "relaykit.engine")),
	)

	var sel *core.Selection
	if *pipelinePath != "" {
		sel, err = runPipeline(ctx, e, *pipelinePath, snap.Relays, opts)
	} else {
		sel, err = e.Run(ctx, snap.Relays, opts)
	}
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}

	if asJSON {
		err = render.JSON(os.Stdout, sel)
	} else {
		textOpts := render.TextOptions{Links: opts.Links, LinkBase: settings.LinkBase}
		if short {
			textOpts.Short = render.ShortLineLength
		}
		err = render.Text(os.Stdout, sel, textOpts)
	}
	if err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}
}

// runPipeline 用管道文件替换内置过滤链，分组与排序仍按 opts。
func runPipeline(ctx context.Context, e *engine.Engine, path string, relays []*core.Relay, opts core.Options) (*core.Selection, error) {
	norm, err := e.Prepare(opts)
	if err != nil {
		return nil, err
	}
	p, err := config.LoadPipeline(path)
	if err != nil {
		return nil, err
	}
	qctx := e.NewQueryContext(norm, relays)
	return e.Execute(ctx, qctx, p)
}

func applyDefaults(opts *core.Options, defaults core.Options) {
	if !isSet("t") && !isSet("top") {
		opts.Top = defaults.Top
	}
	if !isSet("sort") {
		opts.SortField = defaults.SortField
	}
	if !isSet("sort-reverse") {
		opts.SortReverse = defaults.SortReverse
	}
	if !isSet("l") && !isSet("links") {
		opts.Links = defaults.Links
	}
}

func isSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func boolVar(p *bool, value bool, usage string, names ...string) {
	for _, name := range names {
		flag.BoolVar(p, name, value, usage)
	}
}

func stringVar(p *string, value, usage string, names ...string) {
	for _, name := range names {
		flag.StringVar(p, name, value, usage)
	}
}

func intVar(p *int, value int, usage string, names ...string) {
	for _, name := range names {
		flag.IntVar(p, name, value, usage)
	}
}

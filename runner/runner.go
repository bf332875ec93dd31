package runner

import (
	"context"
	"errors"
	"flag"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	RunModeFile = iota + 1
	RunModeWeb
)

var ErrInvalidRunMode = errors.New("invalid run mode")

type Runner interface {
	Run(context.Context) error
	Close(context.Context) error
}

type Config struct {
	RunMode int

	// file mode inputs, one entry per line
	TownsFile      string
	IndustriesFile string
	ResultsFile    string
	ErrorsFile     string

	// web mode
	Addr       string
	DataFolder string

	SimultaneousTowns      int
	SimultaneousIndustries int
	SimultaneousLookups    int

	SearchURL   string
	ProviderURL string

	Debug         bool
	DisableImages bool

	NavRetries  int
	NavBaseWait time.Duration
}

func ParseConfig() *Config {
	_ = godotenv.Load()

	cfg := Config{}

	var web bool

	flag.IntVar(&cfg.SimultaneousTowns, "towns-concurrency", max(runtime.NumCPU()/2, 1), "how many towns are processed in parallel")
	flag.IntVar(&cfg.SimultaneousIndustries, "industries-concurrency", 1, "how many industries a town worker handles at once")
	flag.IntVar(&cfg.SimultaneousLookups, "lookups-concurrency", 2, "how many provider batches run in parallel")
	flag.StringVar(&cfg.TownsFile, "towns", "", "path to the towns file (one town per line)")
	flag.StringVar(&cfg.IndustriesFile, "industries", "", "path to the industries file (one industry per line)")
	flag.StringVar(&cfg.ResultsFile, "results", "stdout", "path to the results CSV [default: stdout]")
	flag.StringVar(&cfg.ErrorsFile, "errors", "", "path to the error report JSON [default: disabled]")
	flag.BoolVar(&web, "web", false, "run the web server instead of a one-shot scrape")
	flag.StringVar(&cfg.Addr, "addr", ":8080", "address to listen on for the web server")
	flag.StringVar(&cfg.DataFolder, "data-folder", "webdata", "data folder for the web runner's session store")
	flag.StringVar(&cfg.SearchURL, "search-url", defaultSearchURL, "search url template with two %s placeholders: industry, town")
	flag.StringVar(&cfg.ProviderURL, "provider-url", "", "phone provider lookup endpoint")
	flag.BoolVar(&cfg.Debug, "debug", false, "open a visible browser window")
	flag.BoolVar(&cfg.DisableImages, "disable-images", false, "disable image loading in the browser")
	flag.IntVar(&cfg.NavRetries, "nav-retries", 3, "navigation retries per wait strategy")
	flag.DurationVar(&cfg.NavBaseWait, "nav-base-wait", 2*time.Second, "base delay for navigation retry backoff")

	flag.Parse()

	if cfg.ProviderURL == "" {
		cfg.ProviderURL = os.Getenv("PROVIDER_LOOKUP_URL")
	}

	if v := os.Getenv("TOWNS_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SimultaneousTowns = n
		}
	}

	if cfg.SimultaneousTowns < 1 || cfg.SimultaneousIndustries < 1 || cfg.SimultaneousLookups < 1 {
		panic("concurrency bounds must be greater than 0")
	}

	switch {
	case web || (cfg.TownsFile == "" && cfg.IndustriesFile == ""):
		cfg.RunMode = RunModeWeb
	case cfg.TownsFile != "" && cfg.IndustriesFile != "":
		cfg.RunMode = RunModeFile
	default:
		panic("towns and industries files must be provided together")
	}

	return &cfg
}

const defaultSearchURL = "https://www.google.com/maps/search/%s+in+%s"

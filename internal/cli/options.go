package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"pos_umkm/internal/config"
)

// Options are the global flags. Only flags given on the command line
// override the loaded configuration.
type Options struct {
	Command []string

	StoreID      string
	CashierID    string
	CashierName  string
	RemoteDriver string
	RemoteURL    string
	RemoteAPIKey string
	DatabaseURL  string
	LocalDriver  string
	LocalPath    string
	HTTPAddr     string
	LogFile      string
	TaxRate      float64
	Timeout      time.Duration
	JSON         bool
	Debug        bool

	set map[string]bool
}

var ErrHelp = flag.ErrHelp

func ParseArgs(args []string, stderr io.Writer) (Options, error) {
	var (
		opts           Options
		timeoutSeconds int
	)
	def := config.Default()

	fs := flag.NewFlagSet("pos-umkm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [flags] [command [args]]\n\nCommands:\n%s\nFlags:\n", fs.Name(), commandHelp)
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.StoreID, "store-id", "", "store id (STORE_ID)")
	fs.StringVar(&opts.CashierID, "cashier-id", "", "cashier id (CASHIER_ID)")
	fs.StringVar(&opts.CashierName, "cashier", "", "cashier name shown on reports (CASHIER_NAME)")
	fs.StringVar(&opts.RemoteDriver, "remote", def.RemoteDriver, "remote backend: rest, postgres or memory (REMOTE_DRIVER)")
	fs.StringVar(&opts.RemoteURL, "remote-url", "", "REST backend base URL (REMOTE_URL)")
	fs.StringVar(&opts.RemoteAPIKey, "api-key", "", "REST backend API key (REMOTE_API_KEY)")
	fs.StringVar(&opts.DatabaseURL, "database-url", "", "Postgres connection string (DATABASE_URL)")
	fs.StringVar(&opts.LocalDriver, "local", def.LocalDriver, "local store: sqlite, redis or memory (LOCAL_DRIVER)")
	fs.StringVar(&opts.LocalPath, "local-path", def.LocalPath, "sqlite file (LOCAL_PATH)")
	fs.StringVar(&opts.HTTPAddr, "http-addr", def.HTTPAddr, "control API address for serve (HTTP_ADDR)")
	fs.StringVar(&opts.LogFile, "log-file", def.LogFile, "log file path (LOG_FILE)")
	fs.Float64Var(&opts.TaxRate, "tax", def.TaxRate, "tax rate in percent (TAX_RATE)")
	fs.IntVar(&timeoutSeconds, "timeout", int(def.Timeout.Seconds()), "remote timeout in seconds (TIMEOUT)")
	fs.BoolVar(&opts.JSON, "json", false, "output JSON")
	fs.BoolVar(&opts.Debug, "debug", false, "enable debug logging (DEBUG)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return Options{}, ErrHelp
		}
		return Options{}, err
	}

	opts.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	if timeoutSeconds > 0 {
		opts.Timeout = time.Duration(timeoutSeconds) * time.Second
	}
	opts.Command = fs.Args()
	return opts, nil
}

// Apply overlays the explicitly set flags on cfg.
func (o Options) Apply(cfg config.Config) config.Config {
	overrides := map[string]func(){
		"store-id":     func() { cfg.StoreID = strings.TrimSpace(o.StoreID) },
		"cashier-id":   func() { cfg.CashierID = strings.TrimSpace(o.CashierID) },
		"cashier":      func() { cfg.CashierName = strings.TrimSpace(o.CashierName) },
		"remote":       func() { cfg.RemoteDriver = o.RemoteDriver },
		"remote-url":   func() { cfg.RemoteURL = o.RemoteURL },
		"api-key":      func() { cfg.RemoteAPIKey = o.RemoteAPIKey },
		"database-url": func() { cfg.DatabaseURL = o.DatabaseURL },
		"local":        func() { cfg.LocalDriver = o.LocalDriver },
		"local-path":   func() { cfg.LocalPath = o.LocalPath },
		"http-addr":    func() { cfg.HTTPAddr = o.HTTPAddr },
		"log-file":     func() { cfg.LogFile = o.LogFile },
		"tax":          func() { cfg.TaxRate = o.TaxRate },
		"debug":        func() { cfg.Debug = o.Debug },
	}
	for name, apply := range overrides {
		if o.set[name] {
			apply()
		}
	}
	if o.set["timeout"] && o.Timeout > 0 {
		cfg.Timeout = o.Timeout
	}
	return cfg
}

// Command pagetl translates HTML pages using AI and caches the results by
// page URL.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ZaguanLabs/pagetl"
	"github.com/ZaguanLabs/pagetl/cache"
	"github.com/btcsuite/btclog"
	btclogv2 "github.com/btcsuite/btclog/v2"
	"github.com/spf13/cobra"
)

// Cache backends selectable with --cache-backend.
const (
	backendMemory = "memory"
	backendFile   = "file"
	backendSQLite = "sqlite"
	backendRedis  = "redis"
)

// app holds the persistent flags and the streams commands write to.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cacheBackend string
	cachePath    string
	redisURL     string
	verbose      bool

	log *slog.Logger
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	root := newRootCmd(&app{stdin: stdin, stdout: stdout, stderr: stderr})
	root.SetArgs(args)
	return root.Execute()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           pagetl.Name,
		Short:         "Translate web pages with AI, cached by URL",
		Long:          pagetl.Description + ".",
		Version:       pagetl.FullVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.log = newLogger(a.stderr, a.verbose)
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.cacheBackend, "cache-backend", backendSQLite, "Cache backend: memory, file, sqlite or redis")
	flags.StringVar(&a.cachePath, "cache-path", "", "Cache location for the file and sqlite backends (default: ~/.pagetl)")
	flags.StringVar(&a.redisURL, "redis-url", "redis://localhost:6379/0", "Redis URL for the redis backend")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Verbose debug output to stderr")

	root.AddCommand(
		newTranslateCmd(a),
		newCacheCmd(a),
		newVersionCmd(a),
	)

	return root
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "%s %s\n", pagetl.Name, pagetl.FullVersion())
			if pagetl.GitCommit != "unknown" && pagetl.GitCommit != "" {
				fmt.Fprintf(a.stdout, "  commit:  %s\n", pagetl.GitCommit)
			}
			if pagetl.BuildDate != "unknown" && pagetl.BuildDate != "" {
				fmt.Fprintf(a.stdout, "  built:   %s\n", pagetl.BuildDate)
			}
		},
	}
}

// newLogger builds the CLI logger on a btclog handler writing to w.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	handler := btclogv2.NewDefaultHandler(w)
	if verbose {
		handler.SetLevel(btclog.LevelDebug)
	} else {
		handler.SetLevel(btclog.LevelWarn)
	}
	return slog.New(handler)
}

// openStore opens the configured backend and returns a store over it with
// a function releasing the backend.
func (a *app) openStore() (*cache.Store, func() error, error) {
	kv, closeFn, err := a.openKV()
	if err != nil {
		return nil, nil, err
	}
	return cache.NewStore(kv, cache.WithLogger(a.log)), closeFn, nil
}

func (a *app) openKV() (cache.KV, func() error, error) {
	noop := func() error { return nil }

	switch a.cacheBackend {
	case backendMemory:
		return cache.NewMemoryKV(), noop, nil

	case backendFile:
		dir := a.cachePath
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			dir = filepath.Join(home, ".pagetl", "pages")
		}
		kv, err := cache.NewFileKV(dir)
		if err != nil {
			return nil, nil, err
		}
		return kv, noop, nil

	case backendSQLite:
		path := a.cachePath
		if path == "" {
			var err error
			if path, err = cache.DefaultSQLitePath(); err != nil {
				return nil, nil, err
			}
		}
		kv, err := cache.OpenSQLiteKV(path)
		if err != nil {
			return nil, nil, err
		}
		return kv, kv.Close, nil

	case backendRedis:
		kv, err := cache.NewRedisKV(cache.RedisConfig{URL: a.redisURL})
		if err != nil {
			return nil, nil, err
		}
		return kv, kv.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q (want memory, file, sqlite or redis)", a.cacheBackend)
	}
}

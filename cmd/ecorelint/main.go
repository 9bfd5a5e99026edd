package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"github.com/jacoelho/ecore"
	"github.com/jacoelho/ecore/pkg/metadesc"
	"github.com/jacoelho/ecore/pkg/resource"
	"github.com/jacoelho/ecore/pkg/uri"
	"github.com/jacoelho/ecore/pkg/uriconv"
)

func main() {
	os.Exit(run())
}

func run() int {
	return runWithArgs(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

type config struct {
	metamodel  string
	db         string
	table      string
	out        string
	cpuProfile string
	memProfile string
	document   string
	verbose    bool
	s3         bool
}

func parseArgs(args []string, stderr io.Writer) (config, int, bool) {
	var cfg config
	fs := flag.NewFlagSet("ecorelint", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.metamodel, "metamodel", "", "path to YAML metamodel descriptor")
	fs.StringVar(&cfg.db, "db", "", "document database for db: URIs (sqlite:<path> or postgres://...)")
	fs.StringVar(&cfg.table, "table", uriconv.DefaultTable, "document table name")
	fs.StringVar(&cfg.out, "out", "", "save the loaded resource to this URI")
	fs.BoolVar(&cfg.s3, "s3", false, "serve s3: URIs using ECORE_S3_* settings")
	fs.BoolVar(&cfg.verbose, "v", false, "log load and save records to stderr")
	fs.StringVar(&cfg.cpuProfile, "cpuprofile", "", "write CPU profile to file")
	fs.StringVar(&cfg.memProfile, "memprofile", "", "write memory profile to file")
	var usageErr error
	fs.Usage = func() {
		usageErr = errors.Join(
			usageErr,
			writef(stderr, "Usage: %s --metamodel <model.yaml> [--out <uri>] <document-uri>\n\n", os.Args[0]),
			writeln(stderr, "Loads a model document and reports its diagnostics."),
			writeln(stderr),
			writeln(stderr, "Options:"),
		)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return cfg, 2, false
	}
	usage := func(msg string) (config, int, bool) {
		if err := writeln(stderr, "error: "+msg); err != nil {
			return cfg, 1, false
		}
		fs.Usage()
		if usageErr != nil {
			return cfg, 1, false
		}
		return cfg, 2, false
	}
	if cfg.metamodel == "" {
		return usage("--metamodel is required")
	}
	if fs.NArg() != 1 {
		return usage("exactly one document argument is required")
	}
	cfg.document = fs.Arg(0)
	return cfg, 0, true
}

func runWithArgs(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, code, ok := parseArgs(args, stderr)
	if !ok {
		return code
	}

	if cfg.cpuProfile != "" {
		stopCPUProfile, err := startCPUProfile(cfg.cpuProfile)
		if err != nil {
			_ = writef(stderr, "error starting CPU profile: %v\n", err)
			return 1
		}
		defer func() {
			if err := stopCPUProfile(); err != nil {
				_ = writef(stderr, "error stopping CPU profile: %v\n", err)
			}
		}()
	}
	if cfg.memProfile != "" {
		defer func() {
			if err := writeMemProfile(cfg.memProfile); err != nil {
				_ = writef(stderr, "error writing memory profile: %v\n", err)
			}
		}()
	}

	pkgs, err := metadesc.LoadFile(cfg.metamodel)
	if err != nil {
		_ = writef(stderr, "error loading metamodel: %v\n", err)
		return 1
	}
	opts := ecore.NewOptions().WithPackages(pkgs...)
	if cfg.verbose {
		opts = opts.WithLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	opts, closeDB, err := withHandlers(ctx, cfg, opts)
	if err != nil {
		_ = writef(stderr, "error: %v\n", err)
		return 1
	}
	defer closeDB()

	set, err := ecore.NewResourceSet(opts)
	if err != nil {
		_ = writef(stderr, "error: %v\n", err)
		return 1
	}
	r, err := set.Resource(ctx, uri.New(cfg.document), true)
	if err != nil {
		if r != nil {
			_ = report(stderr, r)
		}
		_ = writef(stderr, "error loading %s: %v\n", cfg.document, err)
		return 1
	}
	if err := report(stderr, r); err != nil {
		return 1
	}
	if len(r.Errors()) > 0 {
		_ = writef(stderr, "%s has %d errors\n", cfg.document, len(r.Errors()))
		return 1
	}

	if cfg.out != "" {
		out, err := saveAs(ctx, set, r, cfg.out)
		if err != nil {
			_ = writef(stderr, "error saving %s: %v\n", cfg.out, err)
			return 1
		}
		if err := report(stderr, out); err != nil {
			return 1
		}
	}
	if err := writef(stdout, "%s loads cleanly\n", cfg.document); err != nil {
		return 1
	}
	return 0
}

// withHandlers adds the database and S3 handlers selected by cfg.
func withHandlers(ctx context.Context, cfg config, opts ecore.Options) (ecore.Options, func(), error) {
	closeDB := func() {}
	if cfg.db != "" {
		driver, dsn, dialect := databaseSource(cfg.db)
		db, err := sql.Open(driver, dsn)
		if err != nil {
			return opts, closeDB, fmt.Errorf("open database: %w", err)
		}
		closeDB = func() { _ = db.Close() }
		h, err := uriconv.NewSQL(ctx, db, cfg.table, dialect)
		if err != nil {
			closeDB()
			return opts, func() {}, err
		}
		opts = opts.WithURIHandler(h)
	}
	if cfg.s3 {
		h, err := uriconv.NewS3(ctx, uriconv.S3ConfigFromEnv())
		if err != nil {
			closeDB()
			return opts, func() {}, err
		}
		opts = opts.WithURIHandler(h)
	}
	return opts, closeDB, nil
}

func databaseSource(dsn string) (driver, source string, dialect uriconv.Dialect) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "pgx", dsn, uriconv.DialectPostgres
	}
	return "sqlite", strings.TrimPrefix(dsn, "sqlite:"), uriconv.DialectSQLite
}

// saveAs moves the roots of r into a resource at target and saves it. The
// target extension selects XML or XMI.
func saveAs(ctx context.Context, set *resource.Set, r *resource.Resource, target string) (*resource.Resource, error) {
	out, err := set.CreateResource(uri.New(target))
	if err != nil {
		return nil, err
	}
	for _, root := range r.Contents().Objects() {
		if err := out.Contents().Add(root); err != nil {
			return nil, err
		}
	}
	if err := out.Save(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func report(w io.Writer, r *resource.Resource) error {
	for _, d := range r.Errors() {
		if err := writeln(w, "error: "+d.Error()); err != nil {
			return err
		}
	}
	for _, d := range r.Warnings() {
		if err := writeln(w, "warning: "+d.Error()); err != nil {
			return err
		}
	}
	return nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	_, err := fmt.Fprintln(w, args...)
	return err
}

func startCPUProfile(path string) (func() error, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create cpu profile %s: %w", path, err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		if closeErr := f.Close(); closeErr != nil {
			return nil, fmt.Errorf("start cpu profile %s: %w (close failed: %w)", path, err, closeErr)
		}
		return nil, fmt.Errorf("start cpu profile %s: %w", path, err)
	}
	return func() error {
		pprof.StopCPUProfile()
		if err := f.Close(); err != nil {
			return fmt.Errorf("close cpu profile %s: %w", path, err)
		}
		return nil
	}, nil
}

func writeMemProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create mem profile %s: %w", path, err)
	}
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		if closeErr := f.Close(); closeErr != nil {
			return fmt.Errorf("write mem profile %s: %w (close failed: %w)", path, err, closeErr)
		}
		return fmt.Errorf("write mem profile %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close mem profile %s: %w", path, err)
	}
	return nil
}

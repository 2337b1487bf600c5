// Package cli implements the hiverunner command line.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/koustreak/hiverunner/internal/config"
	"github.com/koustreak/hiverunner/internal/errs"
	"github.com/koustreak/hiverunner/internal/filestore"
	"github.com/koustreak/hiverunner/internal/filestore/minio"
	"github.com/koustreak/hiverunner/internal/logger"
	"github.com/koustreak/hiverunner/internal/runner"
	"github.com/koustreak/hiverunner/internal/server"
)

const defaultAddr = ":8080"

type Options struct {
	Stdout io.Writer
	Stderr io.Writer

	// NewRegistry builds the runner registry. Defaults to
	// runner.DefaultRegistry.
	NewRegistry func(*logger.Logger) *runner.Registry

	// NewStore opens the export target. Defaults to a MinIO store.
	NewStore func(context.Context, *filestore.Config) (filestore.Store, error)
}

// Run executes one command and returns the process exit code.
func Run(ctx context.Context, args []string, opts Options) int {
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	if opts.NewRegistry == nil {
		opts.NewRegistry = runner.DefaultRegistry
	}
	if opts.NewStore == nil {
		opts.NewStore = openMinIO
	}

	if len(args) < 1 {
		writeUsage(opts.Stderr)
		return 2
	}

	command, rest := args[0], args[1:]
	switch command {
	case "types":
		return runTypes(opts)
	case "query":
		return runQuery(ctx, rest, opts)
	case "schema":
		return runSchema(ctx, rest, opts)
	case "test":
		return runTest(ctx, rest, opts)
	case "serve":
		return runServe(ctx, rest, opts)
	case "help", "-h", "-help", "--help":
		writeUsage(opts.Stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(opts.Stderr, "unknown command %q\n\n", command)
		writeUsage(opts.Stderr)
		return 2
	}
}

// env is what every data-source command needs: the parsed file, a logger
// configured from it and a registry.
type env struct {
	file     *config.File
	log      *logger.Logger
	registry *runner.Registry
}

func load(path string, maxRows int, opts Options) (*env, error) {
	if path == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "-config is required")
	}
	f, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}

	logCfg := logger.DefaultConfig()
	logCfg.Output = opts.Stderr
	if f.Logging.Level != "" {
		logCfg.Level = f.Logging.Level
	}
	if f.Logging.Format != "" {
		logCfg.Format = f.Logging.Format
	}
	log := logger.New(logCfg)

	reg := opts.NewRegistry(log)
	reg.MaxRows = maxRows
	return &env{file: f, log: log, registry: reg}, nil
}

func (e *env) runner(name string) (*runner.Adapter, error) {
	ds, ok := e.file.Lookup(name)
	if !ok {
		return nil, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("data source %q not found", name))
	}
	return e.registry.New(ds.Type, ds.Options)
}

// sourceFlags registers the flags shared by query, schema and test.
func sourceFlags(name string, opts Options) (*flag.FlagSet, *string, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(opts.Stderr)
	cfgPath := fs.String("config", "", "data-source file (YAML)")
	source := fs.String("source", "", "data source name")
	return fs, cfgPath, source
}

func runTypes(opts Options) int {
	type info struct {
		Type   string        `json:"type"`
		Name   string        `json:"name"`
		Schema config.Schema `json:"configuration_schema"`
	}
	var out []info
	for _, v := range opts.NewRegistry(logger.Nop()).Variants() {
		out = append(out, info{Type: v.Type, Name: v.Name, Schema: v.Schema})
	}
	return printJSON(opts, out)
}

func runQuery(ctx context.Context, args []string, opts Options) int {
	fs, cfgPath, source := sourceFlags("query", opts)
	user := fs.String("user", "", "user the query runs on behalf of")
	maxRows := fs.Int("max-rows", 0, "stop after this many rows (0 = unlimited)")
	export := fs.String("export", "", "upload the result to this object key instead of printing it")
	presign := fs.Duration("presign", 0, "with -export, also print a download URL valid this long")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "query: missing SQL statement")
		return 2
	}

	e, err := load(*cfgPath, *maxRows, opts)
	if err != nil {
		return fail(opts, err)
	}
	r, err := e.runner(*source)
	if err != nil {
		return fail(opts, err)
	}

	data, err := r.RunQuery(ctx, query, *user)
	if err != nil {
		return fail(opts, err)
	}
	if *export == "" {
		return printRaw(opts, []byte(data))
	}
	return e.export(ctx, opts, *export, data, *presign)
}

type exportInfo struct {
	*filestore.ObjectInfo
	URL string `json:"url,omitempty"`
}

func (e *env) export(ctx context.Context, opts Options, key, data string, presign time.Duration) int {
	x := e.file.Export
	if x == nil {
		return fail(opts, errs.New(errs.ErrKindInvalidInput, "-export needs an export section in the config file"))
	}
	cfg := filestore.DefaultConfig(x.Endpoint, x.AccessKey, x.SecretKey, x.Bucket)
	cfg.UseSSL = x.UseSSL
	cfg.Region = x.Region
	cfg.Prefix = x.Prefix
	cfg.AutoCreateBucket = x.AutoCreateBucket

	store, err := opts.NewStore(ctx, cfg)
	if err != nil {
		return fail(opts, err)
	}
	defer func() { _ = store.Close() }()

	info, err := filestore.PutResult(ctx, store, key, data)
	if err != nil {
		return fail(opts, err)
	}
	e.log.With().Str("bucket", info.Bucket).Str("key", info.Key).Logger().Info("result exported")

	out := exportInfo{ObjectInfo: info}
	if presign > 0 {
		if out.URL, err = store.PresignGetURL(ctx, key, presign); err != nil {
			return fail(opts, err)
		}
	}
	return printJSON(opts, out)
}

func openMinIO(ctx context.Context, cfg *filestore.Config) (filestore.Store, error) {
	d, err := minio.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func runSchema(ctx context.Context, args []string, opts Options) int {
	fs, cfgPath, source := sourceFlags("schema", opts)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	e, err := load(*cfgPath, 0, opts)
	if err != nil {
		return fail(opts, err)
	}
	r, err := e.runner(*source)
	if err != nil {
		return fail(opts, err)
	}

	tables, err := r.GetTables(ctx)
	if err != nil {
		return fail(opts, err)
	}
	return printJSON(opts, tables)
}

func runTest(ctx context.Context, args []string, opts Options) int {
	fs, cfgPath, source := sourceFlags("test", opts)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	e, err := load(*cfgPath, 0, opts)
	if err != nil {
		return fail(opts, err)
	}
	r, err := e.runner(*source)
	if err != nil {
		return fail(opts, err)
	}
	if err := r.TestConnection(ctx); err != nil {
		return fail(opts, err)
	}
	_, _ = fmt.Fprintln(opts.Stdout, "ok")
	return 0
}

func runServe(ctx context.Context, args []string, opts Options) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(opts.Stderr)
	cfgPath := fs.String("config", "", "data-source file (YAML)")
	addr := fs.String("addr", "", "listen address (default from file, else "+defaultAddr+")")
	maxRows := fs.Int("max-rows", 0, "stop after this many rows (0 = unlimited)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	e, err := load(*cfgPath, *maxRows, opts)
	if err != nil {
		return fail(opts, err)
	}

	sources := make([]server.Source, 0, len(e.file.DataSources))
	for _, ds := range e.file.DataSources {
		r, err := e.registry.New(ds.Type, ds.Options)
		if err != nil {
			return fail(opts, fmt.Errorf("data source %q: %w", ds.Name, err))
		}
		sources = append(sources, server.Source{Name: ds.Name, Runner: r, Settings: r.Settings()})
	}

	listen := firstNonEmpty(*addr, e.file.Server.Addr, defaultAddr)
	srv := server.New(e.registry.Variants(), sources, e.log)
	if err := srv.ListenAndServe(ctx, listen); err != nil {
		return fail(opts, err)
	}
	return 0
}

// fail prints err the way the host would show it and returns 1.
func fail(opts Options, err error) int {
	if kind := errs.KindOf(err); kind != errs.ErrKindUnknown {
		_, _ = fmt.Fprintf(opts.Stderr, "error [%s]: %s\n", kind, errs.Message(err))
	} else {
		_, _ = fmt.Fprintf(opts.Stderr, "error: %v\n", err)
	}
	return 1
}

func printJSON(opts Options, v any) int {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fail(opts, err)
	}
	_, _ = fmt.Fprintln(opts.Stdout, string(b))
	return 0
}

func printRaw(opts Options, raw []byte) int {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		_, _ = fmt.Fprintln(opts.Stdout, string(raw))
		return 0
	}
	_, _ = fmt.Fprintln(opts.Stdout, buf.String())
	return 0
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: hiverunner <command> [flags]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  types                                   print runner configuration schemas")
	_, _ = fmt.Fprintln(w, "  query  -config F -source S [-user U] SQL run a statement")
	_, _ = fmt.Fprintln(w, "         [-export KEY [-presign 1h]]       upload the result instead of printing it")
	_, _ = fmt.Fprintln(w, "  schema -config F -source S              list tables from the metastore")
	_, _ = fmt.Fprintln(w, "  test   -config F -source S              run the connection test query")
	_, _ = fmt.Fprintln(w, "  serve  -config F [-addr :8080]          serve the HTTP API")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

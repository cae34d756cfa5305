package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/gops/agent"
	_ "github.com/viant/afsc/gs"
	_ "github.com/viant/afsc/s3"
	"github.com/viant/codevec/service"
	"github.com/viant/codevec/vectordb"
)

func main() {
	startGops()
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "index":
		indexCmd(os.Args[2:])
	case "embed":
		embedCmd(os.Args[2:])
	case "get":
		getCmd(os.Args[2:])
	case "similar":
		similarCmd(os.Args[2:])
	case "similar-file":
		similarFileCmd(os.Args[2:])
	case "delete":
		deleteCmd(os.Args[2:])
	case "stats":
		statsCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: codevec <command> [options]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  index         Embed new or changed files of a source tree")
	fmt.Fprintln(os.Stderr, "  embed         Print the embedding of a text")
	fmt.Fprintln(os.Stderr, "  get           Show the stored record of a file")
	fmt.Fprintln(os.Stderr, "  similar       Find files similar to a text")
	fmt.Fprintln(os.Stderr, "  similar-file  Find files similar to an indexed file")
	fmt.Fprintln(os.Stderr, "  delete        Remove stored records")
	fmt.Fprintln(os.Stderr, "  stats         Show the number of stored records")
}

type commonFlags struct {
	configPath    *string
	db            *string
	embedder      *string
	model         *string
	modelPath     *string
	tokenizerPath *string
	baseURL       *string
	workers       *int
	cacheSize     *int
	verbose       *bool
	debugSleep    *int
}

func registerCommon(flags *flag.FlagSet) *commonFlags {
	return &commonFlags{
		configPath:    flags.String("config", "", "config yaml (optional)"),
		db:            flags.String("db", "", "store location: sqlite file, directory, :memory: or postgres:// dsn"),
		embedder:      flags.String("embedder", "", "embedder: onnx|ollama|openai|vertexai|simple"),
		model:         flags.String("model", "", "remote embedding model"),
		modelPath:     flags.String("model-path", "", "ONNX model file"),
		tokenizerPath: flags.String("tokenizer", "", "tokenizer.json file"),
		baseURL:       flags.String("base-url", "", "embedding API base URL"),
		workers:       flags.Int("workers", 0, "parallel ONNX inference workers"),
		cacheSize:     flags.Int("cache-size", 0, "embedding cache entries"),
		verbose:       flags.Bool("v", false, "log progress"),
		debugSleep:    flags.Int("debug-sleep", 0, "debug: sleep N seconds before execution (for gops)"),
	}
}

func (c *commonFlags) config() *service.Config {
	cfg := &service.Config{}
	if *c.configPath != "" {
		loaded, err := service.LoadConfig(*c.configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}
	if *c.db != "" {
		cfg.Store.DSN = *c.db
	}
	if cfg.Store.DSN == "" {
		cfg.Store.DSN = "."
	}
	setString(&cfg.Embedder.Kind, *c.embedder)
	setString(&cfg.Embedder.Model, *c.model)
	setString(&cfg.Embedder.ModelPath, *c.modelPath)
	setString(&cfg.Embedder.TokenizerPath, *c.tokenizerPath)
	setString(&cfg.Embedder.BaseURL, *c.baseURL)
	if *c.workers > 0 {
		cfg.Embedder.Workers = *c.workers
	}
	if *c.cacheSize > 0 {
		cfg.Embedder.Cache.Size = *c.cacheSize
	}
	return cfg
}

func (c *commonFlags) open(cmd string, configure ...func(cfg *service.Config)) (context.Context, *service.Service, func()) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	maybeDebugSleep(cmd, *c.debugSleep)
	cfg := c.config()
	for _, fn := range configure {
		fn(cfg)
	}
	opts := []service.Option{service.WithConfig(cfg)}
	if *c.verbose {
		opts = append(opts, service.WithLogf(log.Printf))
	}
	svc, err := service.NewService(opts...)
	if err != nil {
		cancel()
		log.Fatalf("service init: %v", err)
	}
	return ctx, svc, func() {
		if err := svc.Close(); err != nil {
			log.Printf("close: %v", err)
		}
		cancel()
	}
}

func setString(target *string, value string) {
	if value != "" {
		*target = value
	}
}

func indexCmd(args []string) {
	flags := flag.NewFlagSet("index", flag.ExitOnError)
	common := registerCommon(flags)
	rootPath := flags.String("path", ".", "source tree to index")
	writerLock := flags.Bool("lock", true, "take the store writer lock")
	flags.Parse(args)

	if *common.db == "" && *common.configPath == "" && !strings.Contains(*rootPath, "://") {
		*common.db = *rootPath
	}
	ctx, svc, done := common.open("index", func(cfg *service.Config) {
		cfg.Store.WriterLock = *writerLock
	})
	defer done()
	start := time.Now()
	stats, err := svc.Index(ctx, *rootPath)
	if err != nil {
		log.Fatalf("index: %v", err)
	}
	log.Printf("index: files=%d indexed=%d unchanged=%d skipped=%d elapsed=%s",
		stats.Files, stats.Indexed, stats.Unchanged, stats.Skipped, time.Since(start).Round(time.Millisecond))
}

func embedCmd(args []string) {
	flags := flag.NewFlagSet("embed", flag.ExitOnError)
	common := registerCommon(flags)
	text := flags.String("text", "", "text to embed (required)")
	flags.Parse(args)
	if *text == "" {
		flags.Usage()
		os.Exit(2)
	}
	ctx, svc, done := common.open("embed")
	defer done()
	vector, err := svc.Embed(ctx, *text)
	if err != nil {
		log.Fatalf("embed: %v", err)
	}
	values := make([]string, len(vector))
	for i, v := range vector {
		values[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	fmt.Printf("[%s]\n", strings.Join(values, ","))
}

func getCmd(args []string) {
	flags := flag.NewFlagSet("get", flag.ExitOnError)
	common := registerCommon(flags)
	path := flags.String("file", "", "record path (required)")
	flags.Parse(args)
	if *path == "" {
		flags.Usage()
		os.Exit(2)
	}
	ctx, svc, done := common.open("get")
	defer done()
	record, err := svc.Get(ctx, *path)
	if err != nil {
		log.Fatalf("get: %v", err)
	}
	if record == nil {
		log.Printf("get: %s not found", *path)
		return
	}
	fmt.Printf("path=%s hash=%s language=%s lines=%d modified=%s accessed=%s imported_by=%s\n",
		record.Path, record.Hash, record.Language, record.LineCount,
		time.UnixMicro(record.LastModified).UTC().Format(time.RFC3339), time.UnixMicro(record.LastAccessed).UTC().Format(time.RFC3339),
		strings.Join(record.ImportedBy, ","))
	if record.ContentPreview != nil {
		fmt.Println(*record.ContentPreview)
	}
}

func similarCmd(args []string) {
	flags := flag.NewFlagSet("similar", flag.ExitOnError)
	common := registerCommon(flags)
	query := flags.String("query", "", "query text (required)")
	limit := flags.Int("limit", 10, "max results")
	flags.Parse(args)
	if *query == "" {
		flags.Usage()
		os.Exit(2)
	}
	ctx, svc, done := common.open("similar")
	defer done()
	matches, err := svc.Similar(ctx, *query, *limit)
	if err != nil {
		log.Fatalf("similar: %v", err)
	}
	printMatches(matches)
}

func similarFileCmd(args []string) {
	flags := flag.NewFlagSet("similar-file", flag.ExitOnError)
	common := registerCommon(flags)
	path := flags.String("file", "", "indexed file path (required)")
	limit := flags.Int("limit", 10, "max results")
	flags.Parse(args)
	if *path == "" {
		flags.Usage()
		os.Exit(2)
	}
	ctx, svc, done := common.open("similar-file")
	defer done()
	matches, err := svc.SimilarToFile(ctx, *path, *limit)
	if err != nil {
		log.Fatalf("similar-file: %v", err)
	}
	printMatches(matches)
}

func deleteCmd(args []string) {
	flags := flag.NewFlagSet("delete", flag.ExitOnError)
	common := registerCommon(flags)
	flags.Parse(args)
	if flags.NArg() == 0 {
		flags.Usage()
		os.Exit(2)
	}
	ctx, svc, done := common.open("delete")
	defer done()
	for _, path := range flags.Args() {
		if err := svc.Delete(ctx, path); err != nil {
			log.Fatalf("delete %s: %v", path, err)
		}
	}
	log.Printf("delete: removed %d path(s)", flags.NArg())
}

func statsCmd(args []string) {
	flags := flag.NewFlagSet("stats", flag.ExitOnError)
	common := registerCommon(flags)
	flags.Parse(args)
	ctx, svc, done := common.open("stats")
	defer done()
	count, err := svc.Count(ctx)
	if err != nil {
		log.Fatalf("stats: %v", err)
	}
	fmt.Printf("records=%d\n", count)
}

func printMatches(matches []*vectordb.Match) {
	for _, match := range matches {
		preview := ""
		if match.Record.ContentPreview != nil {
			preview = *match.Record.ContentPreview
			if len(preview) > 200 {
				preview = preview[:200] + "..."
			}
		}
		fmt.Printf("distance=%.4f path=%s language=%s lines=%d\n%s\n\n", match.Distance, match.Record.Path, match.Record.Language, match.Record.LineCount, preview)
	}
}

func maybeDebugSleep(cmd string, seconds int) {
	if seconds <= 0 {
		seconds = debugSleepFromEnv()
	}
	if seconds <= 0 {
		return
	}
	log.Printf("debug: cmd=%s pid=%d sleep=%ds", cmd, os.Getpid(), seconds)
	time.Sleep(time.Duration(seconds) * time.Second)
}

func startGops() {
	if err := agent.Listen(agent.Options{ShutdownCleanup: true}); err != nil {
		log.Printf("gops: %v", err)
	}
}

func debugSleepFromEnv() int {
	val := strings.TrimSpace(os.Getenv("CODEVEC_DEBUG_SLEEP"))
	if val == "" {
		return 0
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/lecturecompanion/rag-engine/api"
	"github.com/lecturecompanion/rag-engine/config"
	"github.com/lecturecompanion/rag-engine/database"
	"github.com/lecturecompanion/rag-engine/embeddings"
	"github.com/lecturecompanion/rag-engine/llm"
	"github.com/lecturecompanion/rag-engine/rag"
	"github.com/lecturecompanion/rag-engine/transcripts"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("configuration: %v", err)
	}

	switch os.Args[1] {
	case "serve":
		serveCmd(cfg, logger, os.Args[2:])
	case "index":
		indexCmd(cfg, logger, os.Args[2:])
	case "query":
		queryCmd(cfg, logger, os.Args[2:])
	case "stats":
		statsCmd(cfg, logger, os.Args[2:])
	case "clear":
		clearCmd(cfg, logger, os.Args[2:])
	default:
		logger.Printf("unknown command: %s", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func serveCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := flags.String("addr", cfg.ListenAddr, "listen address")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse serve flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, svc := buildService(ctx, cfg, logger)
	defer pool.Close()

	server := &http.Server{
		Addr:    *addr,
		Handler: api.New(svc, cfg.AllowedOrigins, logger),
	}

	go func() {
		<-ctx.Done()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Printf("server shutdown: %v", err)
		}
	}()

	logger.Printf("listening on %s", *addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("serve: %v", err)
	}
}

func indexCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("index", flag.ExitOnError)
	file := flags.String("file", "", "path to a transcript file (txt, pdf, srt, vtt)")
	summaryEN := flags.String("summary-en", "", "path to an English summary text file")
	summaryMM := flags.String("summary-mm", "", "path to a Burmese summary text file")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse index flags: %v", err)
	}
	if *file == "" {
		logger.Fatal("index requires --file")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	data, err := os.ReadFile(*file)
	if err != nil {
		logger.Fatalf("read transcript: %v", err)
	}

	transcript, err := transcripts.Parse(filepath.Base(*file), data)
	if err != nil {
		logger.Fatalf("parse transcript: %v", err)
	}

	input := rag.Input{
		TranscriptText: transcript.Text,
		Segments:       transcript.Segments,
	}
	if *summaryEN != "" {
		summary, err := os.ReadFile(*summaryEN)
		if err != nil {
			logger.Fatalf("read english summary: %v", err)
		}
		input.SummaryEN = string(summary)
	}
	if *summaryMM != "" {
		summary, err := os.ReadFile(*summaryMM)
		if err != nil {
			logger.Fatalf("read burmese summary: %v", err)
		}
		input.SummaryMM = string(summary)
	}

	pool, svc := buildService(ctx, cfg, logger)
	defer pool.Close()

	result, err := svc.Index(ctx, input)
	if err != nil {
		logger.Fatalf("indexing failed: %v", err)
	}
	logger.Printf("indexed %d chunks from %s", result.IndexedChunks, *file)
}

func queryCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("query", flag.ExitOnError)
	question := flags.String("question", "", "question to ask about the indexed transcript")
	topK := flags.Int("top-k", rag.DefaultTopK, "number of nearest-neighbor candidates")
	threshold := flags.Float64("keyword-threshold", rag.DefaultKeywordThreshold, "minimum keyword overlap before refusing")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse query flags: %v", err)
	}

	if strings.TrimSpace(*question) == "" {
		fmt.Print("Enter your question: ")
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			*question = scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			logger.Fatalf("read question: %v", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, svc := buildService(ctx, cfg, logger)
	defer pool.Close()

	result, err := svc.Query(ctx, *question, rag.QueryOptions{TopK: *topK, KeywordThreshold: *threshold})
	if err != nil {
		logger.Fatalf("query failed: %v", err)
	}

	fmt.Println(result.Answer)
	if len(result.TopChunks) > 0 {
		fmt.Println()
		fmt.Println("Supporting chunks:")
		for idx, chunk := range result.TopChunks {
			timing := ""
			if chunk.StartTime != nil && chunk.EndTime != nil {
				timing = fmt.Sprintf(" [%.1fs-%.1fs]", *chunk.StartTime, *chunk.EndTime)
			}
			fmt.Printf("%d. (%.3f) %s%s: %s\n", idx+1, chunk.Score, chunk.SourceType, timing, chunk.TextPreview)
		}
	}
	if result.FromCache {
		fmt.Println("\n(answer served from cache)")
	} else {
		fmt.Printf("\n(answered in %.0f ms)\n", result.ElapsedMS)
	}
}

func statsCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("stats", flag.ExitOnError)
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse stats flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, svc := buildService(ctx, cfg, logger)
	defer pool.Close()

	result, err := svc.Stats(ctx)
	if err != nil {
		logger.Fatalf("stats failed: %v", err)
	}

	if !result.Indexed {
		fmt.Println("No transcript indexed.")
		return
	}
	fmt.Printf("Indexed chunks: %d\n", result.ChunkCount)
	for _, sample := range result.SampleChunks {
		fmt.Printf("  %s (%s): %s\n", sample.ChunkID, sample.SourceType, sample.TextPreview)
	}
}

func clearCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("clear", flag.ExitOnError)
	confirmed := flags.Bool("confirm", false, "skip confirmation prompt")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse clear flags: %v", err)
	}

	if !*confirmed {
		fmt.Print("This will permanently delete the indexed transcript. Continue? [y/N]: ")
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				logger.Fatalf("read confirmation: %v", err)
			}
			logger.Println("clear aborted")
			return
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if answer != "y" && answer != "yes" {
			logger.Println("clear aborted")
			return
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, svc := buildService(ctx, cfg, logger)
	defer pool.Close()

	result, err := svc.Clear(ctx)
	if err != nil {
		logger.Fatalf("clear failed: %v", err)
	}
	if result.Success {
		logger.Println("index cleared")
	} else {
		logger.Println("nothing to clear")
	}
}

// buildService wires the Postgres index, Redis answer cache, embedding
// fallback chain, and generation client into the retrieval service.
func buildService(ctx context.Context, cfg config.Config, logger *log.Logger) (*pgxpool.Pool, *rag.Service) {
	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatalf("postgres connection: %v", err)
	}

	if err := database.EnsureSchema(ctx, pool, cfg.Embeddings.Dimension); err != nil {
		logger.Fatalf("ensure schema: %v", err)
	}

	embedder, err := embeddings.NewEmbedder(cfg, logger)
	if err != nil {
		logger.Fatalf("embedder setup: %v", err)
	}

	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		logger.Fatalf("llm setup: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	cache := rag.NewRedisAnswerCache(redisClient)

	index := rag.NewPostgresVectorIndex(pool)
	return pool, rag.NewService(index, embedder, llmClient, cache, logger)
}

func printUsage() {
	fmt.Println("Usage: rag-engine <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  serve    Run the HTTP API")
	fmt.Println("  index    Index a transcript file (use --file, optional --summary-en/--summary-mm)")
	fmt.Println("  query    Ask a question about the indexed transcript")
	fmt.Println("  stats    Show index diagnostics")
	fmt.Println("  clear    Delete the current index")
}

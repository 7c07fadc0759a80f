package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"ctcbeam/core"
	"ctcbeam/db"
	"ctcbeam/handlers"
	"ctcbeam/internal/ctc/decoder"
	"ctcbeam/internal/ctc/lm"
	"ctcbeam/internal/ctc/matrix"
	"ctcbeam/logging"
	"ctcbeam/metrics"
	"ctcbeam/shutdown"
)

const version = "1.0.0"

func main() {
	if handled := ServiceMain(os.Args); handled {
		return
	}

	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	isDevelopment := os.Getenv("CTCBEAM_DEV_MODE") == "true"

	config, err := core.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(core.ExitCodeError)
	}

	logger, err := logging.NewLoggerFromConfig(config.LogLevel, isDevelopment, config.LogFile)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(core.ExitCodeError)
	}
	defer func() { _ = logger.Sync() }()

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(core.ExitCodeError)
	}

	var exitCode int
	switch args[0] {
	case "decode":
		exitCode = runDecode(logger, config, args[1:])
	case "bench":
		exitCode = runBench(logger, config, args[1:])
	case "serve":
		exitCode = runServe(logger, config)
	default:
		printUsage()
		exitCode = core.ExitCodeError
	}

	if exitCode != core.ExitCodeSuccess {
		logger.Warn("exiting", zap.Int("code", exitCode), zap.String("reason", core.ExitCodeName(exitCode)))
	}
	os.Exit(exitCode)
}

func printUsage() {
	fmt.Println("ctcbeam - CTC beam-search decoder")
	fmt.Println()
	fmt.Println("Usage: ctcbeam <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  decode   Decode a single frame matrix from a file")
	fmt.Println("  bench    Run a decode repeatedly and report throughput")
	fmt.Println("  serve    Run the HTTP decode server")
}

// openRepository opens the database and wires an async-writing repository,
// returning a shutdown func to release both cleanly.
func openRepository(config *core.Config, logger *logging.Logger) (*db.Repository, func(), error) {
	database, err := db.NewDatabase(config.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(); err != nil {
		_ = database.Close()
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}

	tempRepo := db.NewRepository(database, nil)
	asyncWriter := db.NewAsyncWriter(tempRepo.CreateAsyncWriteHandler())
	asyncWriter.Start()
	repo := db.NewRepository(database, asyncWriter)

	cleanup := func() {
		asyncWriter.Stop()
		if err := database.Close(); err != nil {
			logger.Warn("failed to close database", zap.Error(err))
		}
	}
	return repo, cleanup, nil
}

// applyProfile overlays a loaded decode profile's non-zero fields onto opts.
func applyProfile(opts *decoder.Options, profile *core.DecodeProfile) {
	if profile.BeamSize != 0 {
		opts.BeamSize = profile.BeamSize
	}
	if profile.BeamSizeToken != 0 {
		opts.BeamSizeToken = profile.BeamSizeToken
	}
	if profile.BeamThreshold != 0 {
		opts.BeamThreshold = profile.BeamThreshold
	}
	if profile.LMWeight != 0 {
		opts.LMWeight = profile.LMWeight
	}
}

func decodeOptionsFromConfig(config *core.Config) decoder.Options {
	return decoder.Options{
		BeamSize:      config.DefaultBeamSize,
		BeamSizeToken: config.DefaultBeamSizeToken,
		BeamThreshold: config.DefaultBeamThreshold,
		LMWeight:      config.DefaultLMWeight,
	}
}

// runDecode implements `ctcbeam decode <matrix-path> [--vocab path] [--arpa path] [--greedy]`.
func runDecode(logger *logging.Logger, config *core.Config, args []string) int {
	if len(args) < 1 {
		fmt.Println("usage: ctcbeam decode <matrix-path> [--vocab path] [--arpa path] [--greedy]")
		return core.ExitCodeError
	}

	var matrixPath, vocabPath, arpaPath, profilePath string
	greedy := false
	matrixPath = args[0]
	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "--vocab":
			i++
			if i < len(args) {
				vocabPath = args[i]
			}
		case "--arpa":
			i++
			if i < len(args) {
				arpaPath = args[i]
			}
		case "--profile":
			i++
			if i < len(args) {
				profilePath = args[i]
			}
		case "--greedy":
			greedy = true
		}
	}

	opts := decodeOptionsFromConfig(config)
	if profilePath != "" {
		profile, pErr := core.LoadProfile(profilePath)
		if pErr != nil {
			logger.Error("failed to load decode profile", zap.Error(pErr))
			return core.ExitCodeError
		}
		applyProfile(&opts, profile)
		if arpaPath == "" {
			arpaPath = profile.ARPAPath
		}
		if vocabPath == "" {
			vocabPath = profile.Vocab
		}
	}

	m, err := matrix.Load(matrixPath)
	if err != nil {
		logger.Error("failed to load matrix", zap.Error(err))
		return core.ExitCodeError
	}

	repo, cleanup, err := openRepository(config, logger)
	if err != nil {
		logger.Error("failed to open database", zap.Error(err))
		return core.ExitCodeError
	}
	defer cleanup()

	start := time.Now()
	var results decoder.Results
	lmKind := "none"

	if greedy {
		results, err = decoder.Greedy(m)
	} else {
		var model lm.Model = lm.NewNullModel()
		if arpaPath != "" {
			vocab, vErr := loadVocab(vocabPath)
			if vErr != nil {
				logger.Error("failed to load vocabulary", zap.Error(vErr))
				return core.ExitCodeError
			}
			model, err = lm.NewNGramModel(arpaPath, lm.NGramModelOptions{
				Vocab:       vocab,
				StrictVocab: config.LMStrictVocab,
			})
			if err != nil {
				logger.Error("failed to load n-gram model", zap.Error(err))
				return core.ExitCodeError
			}
			lmKind = "ngram"
		}
		results, err = decoder.BeamSearch(m, m.V()-1, model, opts)
	}

	duration := time.Since(start)

	if err != nil {
		logger.Error("decode failed", zap.Error(err))
		recordDecodeFailure(context.Background(), repo, matrixPath, lmKind, err, duration)
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "✗ decode failed: %v\n", err)
		return core.ExitCodeError
	}

	recordDecodeSuccess(context.Background(), repo, matrixPath, lmKind, config, m.T(), results, duration)

	okColor := color.New(color.FgGreen, color.Bold)
	okColor.Print("✓ decode ")
	for _, r := range results[:min(len(results), 1)] {
		fmt.Printf("score=%v lm_score=%v tokens=%v\n", r.Score, r.LMScore, r.Tokens)
	}
	return core.ExitCodeSuccess
}

// runBench implements `ctcbeam bench <matrix-path> [--runs N]`.
func runBench(logger *logging.Logger, config *core.Config, args []string) int {
	if len(args) < 1 {
		fmt.Println("usage: ctcbeam bench <matrix-path> [--runs N]")
		return core.ExitCodeError
	}
	matrixPath := args[0]
	runs := 10
	for i := 1; i < len(args); i++ {
		if args[i] == "--runs" && i+1 < len(args) {
			i++
			fmt.Sscanf(args[i], "%d", &runs)
		}
	}

	m, err := matrix.Load(matrixPath)
	if err != nil {
		logger.Error("failed to load matrix", zap.Error(err))
		return core.ExitCodeError
	}

	repo, cleanup, err := openRepository(config, logger)
	if err != nil {
		logger.Error("failed to open database", zap.Error(err))
		return core.ExitCodeError
	}
	defer cleanup()

	opts := decodeOptionsFromConfig(config)
	start := time.Now()
	for i := 0; i < runs; i++ {
		if _, err := decoder.BeamSearch(m, m.V()-1, lm.NewNullModel(), opts); err != nil {
			logger.Error("bench decode failed", zap.Error(err))
			return core.ExitCodeError
		}
	}
	elapsed := time.Since(start)
	avgMS := elapsed.Seconds() * 1000 / float64(runs)
	framesPerSecond := float64(runs*m.T()) / elapsed.Seconds()

	logger.Info("bench complete",
		zap.Int("runs", runs),
		zap.Float64("avg_latency_ms", avgMS),
		zap.Float64("frames_per_second", framesPerSecond),
	)
	color.New(color.FgCyan, color.Bold).Print("bench ")
	fmt.Printf("avg_latency_ms=%.3f frames_per_second=%.1f\n", avgMS, framesPerSecond)

	if _, err := repo.InsertBenchResult(context.Background(), db.BenchResult{
		RunLabel:        matrixPath,
		BeamSize:        opts.BeamSize,
		LMKind:          "none",
		AvgLatencyMS:    avgMS,
		FramesPerSecond: framesPerSecond,
	}); err != nil {
		logger.Warn("failed to persist bench result", zap.Error(err))
	}
	return core.ExitCodeSuccess
}

// runServe implements `ctcbeam serve`, starting the HTTP decode server with
// graceful shutdown wired through shutdown.Manager.
func runServe(logger *logging.Logger, config *core.Config) int {
	repo, cleanup, err := openRepository(config, logger)
	if err != nil {
		logger.Error("failed to open database", zap.Error(err))
		return core.ExitCodeError
	}

	shutdownManager := shutdown.NewManager(logger.Zap(), shutdown.WithTimeout(30*time.Second))
	shutdownManager.Register("logger-sync", 5, func(ctx context.Context) error {
		return logger.Sync()
	})
	shutdownManager.Register("repository", 10, func(ctx context.Context) error {
		cleanup()
		return nil
	})

	store := metrics.NewMetricsStore(metrics.DefaultStoreConfig(), time.Now())
	srv := handlers.NewServer(logger, repo, store, config, time.Now(), version, shutdownManager)

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:    config.ListenAddr,
		Handler: mux,
	}
	shutdownManager.Register("http-server", 20, func(ctx context.Context) error {
		return httpServer.Shutdown(ctx)
	})

	shutdownManager.Start()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("serving", zap.String("addr", config.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	exitCode := core.ExitCodeSuccess
	select {
	case <-shutdownManager.Context().Done():
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
		exitCode = core.ExitCodeError
	}

	if err := shutdownManager.Shutdown(); err != nil {
		logger.Error("shutdown completed with errors", zap.Error(err))
		if exitCode == core.ExitCodeSuccess {
			exitCode = core.ExitCodeError
		}
	}
	return exitCode
}

func recordDecodeSuccess(ctx context.Context, repo *db.Repository, matrixPath, lmKind string, config *core.Config, frames int, results decoder.Results, duration time.Duration) {
	record := db.DecodeHistoryRecord{
		MatrixPath:      matrixPath,
		LMKind:          lmKind,
		BeamSize:        config.DefaultBeamSize,
		BeamSizeToken:   config.DefaultBeamSizeToken,
		LMWeight:        config.DefaultLMWeight,
		FramesProcessed: frames,
		SurvivingBeams:  len(results),
		Status:          "success",
		DurationMS:      int(duration.Milliseconds()),
	}
	if len(results) > 0 {
		record.Score = results[0].Score
		record.Transcript = tokensToTranscript(results[0].Tokens)
	}
	if _, err := repo.InsertDecodeHistory(ctx, record); err != nil {
		fmt.Printf("warning: failed to persist decode history: %v\n", err)
	}
}

func recordDecodeFailure(ctx context.Context, repo *db.Repository, matrixPath, lmKind string, decodeErr error, duration time.Duration) {
	record := db.DecodeHistoryRecord{
		MatrixPath:   matrixPath,
		LMKind:       lmKind,
		Status:       "error",
		ErrorMessage: decodeErr.Error(),
		DurationMS:   int(duration.Milliseconds()),
	}
	if _, err := repo.InsertDecodeHistory(ctx, record); err != nil {
		fmt.Printf("warning: failed to persist decode history: %v\n", err)
	}
}

func tokensToTranscript(tokens []int32) string {
	b, _ := json.Marshal(tokens)
	return string(b)
}

func loadVocab(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("--vocab is required with --arpa")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var vocab []string
	for _, line := range splitLines(string(data)) {
		if line != "" {
			vocab = append(vocab, line)
		}
	}
	return vocab, nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			line := s[start:i]
			line = trimCR(line)
			lines = append(lines, line)
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, trimCR(s[start:]))
	}
	return lines
}

func trimCR(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\r' {
		return s[:len(s)-1]
	}
	return s
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

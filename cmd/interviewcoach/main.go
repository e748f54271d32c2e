// interviewcoach is a turn-based technical interview simulator with adaptive
// difficulty. It runs either as an interactive console interview or as an
// HTTP server managing many sessions.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Riter/itmo-megaschool/internal/api"
	"github.com/Riter/itmo-megaschool/internal/genai"
	"github.com/Riter/itmo-megaschool/internal/interview"
	"github.com/Riter/itmo-megaschool/internal/lockfile"
	"github.com/Riter/itmo-megaschool/internal/models"
	"github.com/Riter/itmo-megaschool/internal/observer"
	"github.com/Riter/itmo-megaschool/internal/store"
	"github.com/Riter/itmo-megaschool/internal/util"
)

// Config collects everything main needs, resolved from .env, environment
// variables and command-line flags (flags win).
type Config struct {
	Addr     string
	StateDir string
	LogsDir  string
	DBDSN    string

	APIKey  string
	BaseURL string

	DefaultModel       string
	ClassifierModel    string
	HallucinationModel string
	GraderModel        string

	Console bool
	Debug   bool

	Name       string
	Role       string
	Grade      string
	Experience string
}

func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("main.loadEnvironmentConfig: no .env file loaded", "error", err)
	}
	return Config{
		Addr:               util.EnvOrDefault("INTERVIEW_API_ADDR", ":8080"),
		StateDir:           util.EnvOrDefault("INTERVIEW_STATE_DIR", "./state"),
		LogsDir:            util.EnvOrDefault("INTERVIEW_LOGS_DIR", "./logs"),
		DBDSN:              os.Getenv("DATABASE_DSN"),
		APIKey:             os.Getenv("OPENAI_API_KEY"),
		BaseURL:            os.Getenv("OPENAI_BASE_URL"),
		DefaultModel:       util.EnvOrDefault("INTERVIEW_MODEL", genai.DefaultModel),
		ClassifierModel:    os.Getenv("INTERVIEW_CLASSIFIER_MODEL"),
		HallucinationModel: os.Getenv("INTERVIEW_HALLUCINATION_MODEL"),
		GraderModel:        os.Getenv("INTERVIEW_GRADER_MODEL"),
		Debug:              util.ParseBoolEnv("INTERVIEW_DEBUG", false),
	}
}

func parseCommandLineFlags(cfg *Config) {
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	flag.StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "state directory (holds the instance lock)")
	flag.StringVar(&cfg.LogsDir, "logs-dir", cfg.LogsDir, "directory for interview log artifacts")
	flag.StringVar(&cfg.DBDSN, "db-dsn", cfg.DBDSN, "session archive DSN (sqlite path or postgres URL, empty for in-memory)")
	flag.BoolVar(&cfg.Console, "console", cfg.Console, "run a single interactive interview in the terminal")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging")
	flag.StringVar(&cfg.Name, "name", "Кандидат", "candidate name (console mode)")
	flag.StringVar(&cfg.Role, "role", "Backend Developer", "candidate role (console mode)")
	flag.StringVar(&cfg.Grade, "grade", "Junior", "target grade: Junior, Middle or Senior (console mode)")
	flag.StringVar(&cfg.Experience, "experience", "", "candidate experience summary (console mode)")
	flag.Parse()
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func buildSessionFactory(cfg Config) (api.SessionFactory, error) {
	var clientOpts []genai.Option
	if cfg.APIKey != "" {
		clientOpts = append(clientOpts, genai.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, genai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.DefaultModel != "" {
		clientOpts = append(clientOpts, genai.WithDefaultModel(cfg.DefaultModel))
	}
	client, err := genai.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	pipeline := observer.New(client, observer.Config{
		ClassifierModel:    cfg.ClassifierModel,
		HallucinationModel: cfg.HallucinationModel,
		GraderModel:        cfg.GraderModel,
	})
	interviewer := interview.NewInterviewer(client, "")
	manager := interview.NewHiringManager(client, cfg.GraderModel)

	return func(profile models.CandidateProfile) (*interview.Session, error) {
		return interview.NewSession(profile, pipeline, interviewer, manager)
	}, nil
}

func buildArchive(cfg Config) (store.Store, error) {
	if cfg.DBDSN == "" {
		slog.Info("main.buildArchive: using in-memory session archive")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(cfg.DBDSN) == "postgres" {
		slog.Info("main.buildArchive: using Postgres session archive")
		return store.NewPostgresStore(store.WithDSN(cfg.DBDSN))
	}
	slog.Info("main.buildArchive: using SQLite session archive", "path", cfg.DBDSN)
	return store.NewSQLiteStore(store.WithDSN(cfg.DBDSN))
}

func runConsole(cfg Config, factory api.SessionFactory) error {
	profile := models.CandidateProfile{
		Name:        cfg.Name,
		Role:        cfg.Role,
		GradeTarget: cfg.Grade,
		Experience:  cfg.Experience,
	}
	session, err := factory(profile)
	if err != nil {
		return err
	}

	fmt.Printf("Интервью для %s (%s, %s). Напиши приветствие, чтобы начать; «стоп» — завершить.\n\n", profile.Name, profile.Role, profile.GradeTarget)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	ctx := context.Background()

	for !session.IsFinished() {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		reply, err := session.ProcessMessage(ctx, scanner.Text())
		if errors.Is(err, models.ErrEmptyMessage) {
			continue
		}
		if err != nil {
			return err
		}
		fmt.Printf("\n%s\n\n", reply)
	}

	if report, ok := session.FinalReport(); ok {
		fmt.Printf("================\n%s\n", report)
	}
	if session.State().Turns != nil {
		path, err := session.Persist(cfg.LogsDir)
		if err != nil {
			return fmt.Errorf("failed to save interview log: %w", err)
		}
		fmt.Printf("\nЛог интервью сохранён: %s\n", path)
	}
	return scanner.Err()
}

func runServer(cfg Config, factory api.SessionFactory) error {
	lock, err := lockfile.AcquireLock(cfg.StateDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	archive, err := buildArchive(cfg)
	if err != nil {
		return err
	}
	defer archive.Close()

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: api.NewServer(factory, archive, cfg.LogsDir).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("main.runServer: listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("main.runServer: shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func main() {
	cfg := loadEnvironmentConfig()
	parseCommandLineFlags(&cfg)
	setupLogging(cfg.Debug)

	factory, err := buildSessionFactory(cfg)
	if err != nil {
		slog.Error("main: startup failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	runErr := runServer
	if cfg.Console {
		runErr = runConsole
	}
	if err := runErr(cfg, factory); err != nil {
		var lockErr *lockfile.LockError
		if errors.As(err, &lockErr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", lockErr)
			os.Exit(1)
		}
		slog.Error("main: exited with error", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

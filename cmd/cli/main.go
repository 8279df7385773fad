// Interactive terminal client: runs discussions against the configured
// model providers directly, without going through the HTTP server.
// Useful with the lorem provider for trying out the round loop offline:
//
//	PERSONA_A_MODEL=lorem-fast PERSONA_B_MODEL=lorem-fast \
//	JUDGE_MODEL=lorem-fast SYNTHESIS_MODEL=lorem-fast go run ./cmd/cli
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ct-jyjntc/ai-discussion/internal/cache"
	"github.com/ct-jyjntc/ai-discussion/internal/config"
	model "github.com/ct-jyjntc/ai-discussion/internal/domain/models/discussion"
	serviceDiscussion "github.com/ct-jyjntc/ai-discussion/internal/service/discussion"
	"github.com/ct-jyjntc/ai-discussion/internal/service/discussion/consensus"
	serviceLLM "github.com/ct-jyjntc/ai-discussion/internal/service/llm"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorBlue   = "\033[34m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// setupLogger creates a logger that writes to both console and file
func setupLogger() (*slog.Logger, string, error) {
	logsDir := "logs"
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, "", fmt.Errorf("failed to create logs directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logFilename := filepath.Join(logsDir, fmt.Sprintf("discussion_cli_%s.log", timestamp))

	logFile, err := os.Create(logFilename)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create log file: %w", err)
	}

	// Console: WARN and up only, so log lines don't tear the streamed text
	consoleHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})

	// File: DEBUG level with source locations
	fileHandler := slog.NewTextHandler(logFile, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	})

	logger := slog.New(&multiHandler{handlers: []slog.Handler{consoleHandler, fileHandler}})
	return logger, logFilename, nil
}

// multiHandler writes to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, record.Level) {
			if err := handler.Handle(ctx, record); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

func main() {
	logger, logFile, err := setupLogger()
	if err != nil {
		fmt.Printf("Failed to setup logger: %v\n", err)
		os.Exit(1)
	}
	logger.Info("cli session started", "log_file", logFile)

	_ = godotenv.Load()
	cfg := config.Load()

	registry, err := serviceLLM.SetupProviders(cfg, logger)
	if err != nil {
		fmt.Printf("%s❌ Failed to set up model providers: %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}

	responseCache := cache.New(cfg.CacheMaxEntries, cfg.CacheTTL)

	profiles, err := config.LoadProfiles(cfg)
	if err != nil {
		fmt.Printf("%s❌ Failed to load persona profiles: %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}

	detector := consensus.NewDetector(registry, cfg.Judge, responseCache, cfg.MaxRounds, logger)
	service := serviceDiscussion.NewService(cfg, profiles, registry, detector, responseCache, nil, logger)

	question := strings.TrimSpace(strings.Join(os.Args[1:], " "))
	if question == "" {
		fmt.Printf("%sQuestion:%s ", colorCyan, colorReset)
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			return
		}
		question = strings.TrimSpace(scanner.Text())
	}
	if question == "" {
		fmt.Printf("%s❌ No question given%s\n", colorRed, colorReset)
		os.Exit(1)
	}

	sessionID, err := service.StartSession(question)
	if err != nil {
		fmt.Printf("%s❌ %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
	events, unsubscribe, err := service.Subscribe(sessionID)
	if err != nil {
		fmt.Printf("%s❌ %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
	defer unsubscribe()

	fmt.Printf("%s💬 %s vs %s (up to %d rounds)%s\n\n",
		colorCyan, profiles.PersonaA.Name, profiles.PersonaB.Name, cfg.MaxRounds, colorReset)

	for event := range events {
		printEvent(event, profiles)
	}

	transcript, err := service.GetTranscript(sessionID)
	if err != nil {
		fmt.Printf("%s❌ %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
	fmt.Printf("\n%s── session %s: %s after %d round(s) ──%s\n",
		colorCyan, transcript.SessionID, transcript.State, transcript.CurrentRound, colorReset)
}

func printEvent(event serviceDiscussion.Event, profiles config.PersonaProfiles) {
	switch event.Type {
	case serviceDiscussion.EventTurnStarted:
		name, color := speakerStyle(event.Role, profiles)
		fmt.Printf("\n%s── %s", color, name)
		if event.Round > 0 {
			fmt.Printf(" (round %d)", event.Round)
		}
		fmt.Printf(" ──%s\n", colorReset)

	case serviceDiscussion.EventTurnDelta:
		fmt.Print(event.Delta)

	case serviceDiscussion.EventTurnCompleted:
		fmt.Println()

	case serviceDiscussion.EventVerdict:
		if event.Verdict == nil {
			return
		}
		fmt.Printf("%s⚖  consensus=%v confidence=%.0f action=%s (%s)%s\n",
			colorYellow,
			event.Verdict.HasConsensus,
			event.Verdict.Confidence,
			event.Verdict.RecommendedAction,
			event.Verdict.Reason,
			colorReset)

	case serviceDiscussion.EventSessionError:
		fmt.Printf("%s❌ %s%s\n", colorRed, event.Error, colorReset)
	}
}

func speakerStyle(role model.Role, profiles config.PersonaProfiles) (string, string) {
	switch role {
	case model.RolePersonaA:
		return profiles.PersonaA.Name, colorBlue
	case model.RolePersonaB:
		return profiles.PersonaB.Name, colorGreen
	case model.RoleSynthesis:
		return profiles.Synthesis.Name, colorCyan
	default:
		return string(role), colorReset
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/openinquiry/inquiry/pkg/agents"
	"github.com/openinquiry/inquiry/pkg/bus"
	"github.com/openinquiry/inquiry/pkg/config"
	"github.com/openinquiry/inquiry/pkg/decompose"
	"github.com/openinquiry/inquiry/pkg/observability"
	"github.com/openinquiry/inquiry/pkg/orchestrator"
	"github.com/openinquiry/inquiry/pkg/state"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"

	telemetry *observability.Telemetry
	tracer    trace.Tracer
)

func main() {
	var (
		configPath = flag.String("config", "configs/default.yaml", "Path to configuration file")
		version    = flag.Bool("version", false, "Show version information")
		objective  = flag.String("objective", "", "Investigation objective")
	)
	flag.Parse()

	if *version {
		fmt.Printf("Inquiry\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		os.Exit(0)
	}

	cfg := config.LoadOrDefault(*configPath)
	observability.SetLogLevel(cfg.Observability.Logging.Level)

	ctx := context.Background()
	if err := initObservability(cfg); err != nil {
		log.Fatalf("Failed to initialize observability: %v", err)
	}
	defer shutdownObservability(ctx)

	ctx, span := tracer.Start(ctx, "main",
		trace.WithAttributes(
			attribute.String("version", Version),
		),
	)
	defer span.End()

	log.Printf("Starting Inquiry v%s (built: %s)", Version, BuildTime)

	if err := run(ctx, cfg, *objective); err != nil {
		span.RecordError(err)
		log.Fatalf("Investigation failed: %v", err)
	}
}

func initObservability(cfg *config.Config) error {
	telConfig := &observability.TelemetryConfig{
		ServiceName:    "inquiry",
		ServiceVersion: Version,
		Environment:    getEnvironment(),
		OTLPEndpoint:   cfg.Observability.Tracing.Endpoint,
		PrometheusPort: cfg.Observability.Metrics.Port,
		SamplingRate:   cfg.Observability.Tracing.SamplingRate,
		EnableTracing:  cfg.Observability.Tracing.Enabled,
		EnableMetrics:  cfg.Observability.Metrics.Enabled,
	}

	var err error
	telemetry, err = observability.NewTelemetry(telConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	tracer = telemetry.Tracer()
	return nil
}

func shutdownObservability(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}
}

func run(ctx context.Context, cfg *config.Config, objective string) error {
	if objective == "" {
		fmt.Print("Enter the investigation objective: ")
		_, err := fmt.Scanln(&objective)
		if err != nil {
			return fmt.Errorf("failed to read objective from stdin: %w", err)
		}
	}
	if objective == "" {
		return fmt.Errorf("no investigation objective provided")
	}

	decomposer := decompose.FromConfig(cfg.Decomposer)
	if ollama, ok := decomposer.(*decompose.OllamaDecomposer); ok {
		if err := ollama.CheckHealth(ctx); err != nil {
			log.Printf("Ollama unavailable, continuing with rule-based decomposition: %v", err)
			decomposer = decompose.NewRuleBased()
		}
	}

	messageBus := bus.NewInMemoryBus()
	defer messageBus.Close()

	orch, err := orchestrator.New(cfg,
		orchestrator.WithDecomposer(decomposer),
		orchestrator.WithRegistry(agents.NewDefaultRegistry()),
		orchestrator.WithBus(messageBus),
		orchestrator.WithSnapshotStore(state.NewSnapshotStore()),
		orchestrator.WithTelemetry(telemetry),
	)
	if err != nil {
		return fmt.Errorf("failed to build orchestrator: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	startTime := time.Now()
	log.Printf("Starting investigation: %s", objective)

	result, err := orch.Run(ctx, objective)
	if err != nil {
		return fmt.Errorf("investigation failed: %w", err)
	}

	log.Printf("Investigation completed in %s", time.Since(startTime).Round(time.Millisecond))
	printResult(result.Messages, result.SubtasksCreated, result.FindingsCollected,
		result.RefinementsPerformed, result.FinalSignalStrength, result.FinalAction)
	return nil
}

func printResult(messages []string, subtasks, findings, refinements int, signal float64, action string) {
	fmt.Println()
	fmt.Println("=== Investigation Result ===")
	fmt.Printf("Subtasks created:      %d\n", subtasks)
	fmt.Printf("Findings collected:    %d\n", findings)
	fmt.Printf("Refinements performed: %d\n", refinements)
	fmt.Printf("Final signal strength: %.2f\n", signal)
	fmt.Printf("Final action:          %s\n", action)
	fmt.Println()
	fmt.Println("Trail:")
	for _, msg := range messages {
		fmt.Printf("  - %s\n", msg)
	}
}

func getEnvironment() string {
	if env := os.Getenv("INQUIRY_ENV"); env != "" {
		return env
	}
	return "development"
}

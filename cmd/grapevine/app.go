package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"grapevine/internal/agent"
	"grapevine/internal/config"
	"grapevine/internal/debug"
	"grapevine/internal/grapevine"
	"grapevine/internal/llm"
	"grapevine/internal/logging"
	"grapevine/internal/observability"
	"grapevine/internal/world"
)

type app struct {
	cfg    *config.Config
	debug  *debug.Logger
	events *logging.EventLog
	world  *world.World
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if debugFlag {
		cfg.Debug = true
	}
	if scenarioPath != "" {
		cfg.Scenario = scenarioPath
	}
	return cfg, nil
}

// createApp wires config, logging, tracing and the LLM service into a built world. The
// returned cleanup flushes traces and closes the logs.
func createApp(ctx context.Context) (*app, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg.LLM.APIKey == "" {
		return nil, nil, fmt.Errorf("please set OPENAI_API_KEY or GRAPEVINE_LLM_API_KEY")
	}
	if cfg.Scenario == "" {
		return nil, nil, fmt.Errorf("no scenario given; pass --scenario or set GRAPEVINE_SCENARIO")
	}

	debugLogger := debug.NewLogger(cfg.Debug, cfg.DebugLog)

	tracerProvider, err := observability.InitTracing(ctx, cfg.TracingConfig(version))
	if err != nil {
		debugLogger.Printf("Failed to initialize tracing: %v", err)
	} else if tracerProvider.IsEnabled() {
		debugLogger.Println("OpenTelemetry tracing initialized and enabled")
	} else {
		debugLogger.Println("OpenTelemetry tracing disabled (set OTEL_TRACES_ENABLED=true to enable)")
	}

	events, err := logging.NewEventLog(cfg.EventDB, debugLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open event log: %w", err)
	}

	cleanup := func() {
		events.Close()
		if tracerProvider != nil {
			tracerProvider.Shutdown(context.Background())
		}
		debugLogger.Close()
	}

	scenario, err := world.LoadScenario(cfg.Scenario)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	policy, err := cfg.LengthPolicy()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	debugLogger.Printf("Starting grapevine %s with scenario %s (seed %d)", version, cfg.Scenario, seed)

	w, err := world.Build(ctx, scenario, world.Deps{
		LLM:    llm.NewService(cfg.LLMOptions(), debugLogger),
		Memory: cfg.Memory,
		Events: events,
		Debug:  debugLogger,
		Rand:   rand.New(rand.NewSource(seed)),
		Clock:  world.NewClock(0, cfg.Simulation.TimeStep),
		AgentOptions: []agent.Option{
			agent.WithReflectionBufferLength(cfg.Simulation.ReflectionBufferLength),
		},
		GraphOptions: []grapevine.Option{
			grapevine.WithLengthPolicy(policy),
			grapevine.WithGate(cfg.Simulation.GateMean, cfg.Simulation.GateStdDev),
			grapevine.WithStrengthTracking(cfg.Simulation.TrackStrength),
		},
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to build world: %w", err)
	}

	return &app{cfg: cfg, debug: debugLogger, events: events, world: w}, cleanup, nil
}

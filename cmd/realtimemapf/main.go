// Command realtimemapf drives the realtime coordinator over a
// map/scenario pair from the command line (§6): it loads every agent's
// start and goal, ticks the coordinator until every agent arrives or
// the cutoff elapses, then writes the path, output, and stats files.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/elektrokombinacija/realtimemapf/internal/config"
	"github.com/elektrokombinacija/realtimemapf/internal/coordinator"
	"github.com/elektrokombinacija/realtimemapf/internal/gridmap"
	"github.com/elektrokombinacija/realtimemapf/internal/mapio"
	"github.com/elektrokombinacija/realtimemapf/internal/obslog"
	"github.com/elektrokombinacija/realtimemapf/internal/telemetry"
)

func main() {
	os.Exit(run())
}

func run() int {
	mapPath := flag.String("map", "", "path to the ASCII grid map file")
	agentsPath := flag.String("agents", "", "path to the tab-delimited scenario file")
	agentNum := flag.Int("agentNum", 0, "number of agents to load from the scenario file")
	cutoffTime := flag.Float64("cutoffTime", 60, "simulation cutoff time in seconds")
	outputPath := flag.String("output", "", "path to write the summary output")
	outputPathsPath := flag.String("outputPaths", "", "path to write per-agent committed paths")
	statsPath := flag.String("stats", "", "path to write coordinator stats")
	replanAlgo := flag.String("replanAlgo", "PP", "replanning algorithm: PP, CBS, or EECBS")
	logLevel := flag.String("logLevel", "", "log level: debug, info, warn, error")
	envPath := flag.String("env", "", "path to a .env-style file of defaults")
	configPath := flag.String("config", "", "path to a YAML file of planner/coordinator tunables")
	mqttBroker := flag.String("mqttBroker", "", "MQTT broker URL for optional telemetry")
	seed := flag.Int64("seed", 0, "seed for the planner's deterministic tie-break RNG (0 = use config default)")
	flag.Parse()

	if *mapPath == "" || *agentsPath == "" || *agentNum <= 0 {
		fmt.Fprintln(os.Stderr, "realtimemapf: --map, --agents, and --agentNum are required")
		return 1
	}

	cfg, err := config.Load(*envPath, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "realtimemapf: %v\n", err)
		return 1
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	obslog.Setup(cfg.LogLevel)

	grid, err := mapio.LoadMap(*mapPath)
	if err != nil {
		obslog.Log.Errorf("%v", err)
		return 1
	}
	specs, err := mapio.LoadScenario(*agentsPath, grid, *agentNum)
	if err != nil {
		obslog.Log.Errorf("%v", err)
		return 1
	}

	algo := coordinator.ReplanAlgo(*replanAlgo)
	coord := coordinator.New(grid, cfg, algo)

	var sink *telemetry.MQTTSink
	if *mqttBroker != "" {
		sink, err = telemetry.NewMQTTSink(*mqttBroker, "realtimemapf", "realtimemapf/agents")
		if err != nil {
			obslog.Log.Warnf("telemetry disabled: %v", err)
		} else {
			coord.SetTelemetry(sink)
			defer sink.Close()
		}
	}

	for i, spec := range specs {
		coord.AddAgent(i, spec.Start)
		coord.AssignGoal(i, spec.Goal)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		obslog.Log.Warn("received interrupt, stopping after the current tick")
		cancel()
	}()

	t := 0.0
	for t < *cutoffTime {
		coord.Update(t)
		if allArrived(coord, len(specs)) {
			break
		}
		select {
		case <-ctx.Done():
			t = *cutoffTime
		default:
			t++
		}
	}
	signal.Stop(sigCh)
	cancel()

	if err := writeOutputs(coord, grid, len(specs), *outputPath, *outputPathsPath, *statsPath); err != nil {
		obslog.Log.Errorf("%v", err)
		return 1
	}
	return 0
}

func allArrived(coord *coordinator.Coordinator, n int) bool {
	for i := 0; i < n; i++ {
		if coord.GetAgentStatus(i) != coordinator.Arrived && coord.GetAgentStatus(i) != coordinator.Idle {
			return false
		}
	}
	return true
}

func writeOutputs(coord *coordinator.Coordinator, grid *gridmap.Grid, numAgents int, outputPath, outputPathsPath, statsPath string) error {
	if outputPathsPath != "" {
		var b strings.Builder
		for i := 0; i < numAgents; i++ {
			b.WriteString(mapio.FormatPath(grid, i, coord.GetAgentPath(i)))
			b.WriteString("\n")
		}
		if err := os.WriteFile(outputPathsPath, []byte(b.String()), 0o644); err != nil {
			return fmt.Errorf("realtimemapf: writing paths to %s: %w", outputPathsPath, err)
		}
	}

	if outputPath != "" {
		summary := fmt.Sprintf("agents=%d totalCost=%g conflicts=%d\n", numAgents, coord.GetTotalCost(), coord.GetNumConflicts())
		if err := os.WriteFile(outputPath, []byte(summary), 0o644); err != nil {
			return fmt.Errorf("realtimemapf: writing output to %s: %w", outputPath, err)
		}
	}

	if statsPath != "" {
		if err := coord.WriteStatsToFile(statsPath); err != nil {
			return err
		}
	}
	return nil
}

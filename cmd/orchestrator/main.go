// Command orchestrator is a minimal wiring example, not a CLI front-end:
// it builds one agent, a workflow of two dependent steps, and runs it
// through the engine with memory and context-building enabled, logging
// every lifecycle event to stderr.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/orchestr8/taskflow"
	"github.com/orchestr8/taskflow/pkg/checkpoint"
	"github.com/orchestr8/taskflow/pkg/contextbuild"
	"github.com/orchestr8/taskflow/pkg/eventbus"
	"github.com/orchestr8/taskflow/pkg/executor"
	"github.com/orchestr8/taskflow/pkg/logger"
	"github.com/orchestr8/taskflow/pkg/memory"
	"github.com/orchestr8/taskflow/pkg/router"
	"github.com/orchestr8/taskflow/pkg/workflow"
)

// echoAgent is a toy executor.Agent that echoes its task description back,
// prefixed with "handled: ".
type echoAgent struct {
	name         string
	capabilities []string
}

func (a *echoAgent) Name() string           { return a.name }
func (a *echoAgent) Capabilities() []string { return a.capabilities }
func (a *echoAgent) MaxConcurrent() int     { return 2 }

func (a *echoAgent) Think(ctx context.Context, task executor.Task) []string {
	return []string{fmt.Sprintf("planning %q", task.Description)}
}

func (a *echoAgent) Execute(ctx context.Context, task executor.Task) (executor.Result, error) {
	return executor.Result{Success: true, Output: "handled: " + task.Description}, nil
}

func main() {
	logger.Init(slog.LevelInfo, os.Stderr, "simple")
	log := logger.GetLogger()
	log.Info("starting", "version", taskflow.GetVersion().String())

	mem := memory.NewStore(memory.Config{})
	_ = mem.Add(memory.Message{Role: memory.RoleUser, Content: "summarize the onboarding doc", Timestamp: time.Now()})

	builder := contextbuild.NewBuilder(contextbuild.ScanConfig{}, contextbuild.CompressionConfig{})
	taskCtx, metrics, err := builder.Build("task-1", "summarize the onboarding doc", nil)
	if err != nil {
		log.Error("context build failed", "error", err)
		os.Exit(1)
	}
	log.Info("context built", "keywords", taskCtx.Keywords, "tokens", taskCtx.TotalTokens, "compression_ratio", metrics.Ratio)

	checkpoints := checkpoint.NewStore(checkpoint.Config{Dir: "./.taskflow/checkpoints", Enabled: true})
	bus := eventbus.New(eventbus.NewPrometheusMetrics(nil), log)
	bus.Subscribe(func(evt eventbus.Event) {
		log.Info("event", "type", evt.Type, "source", evt.Source)
	})

	agents := executor.NewRegistry()
	rtr := router.New()
	engine := workflow.NewEngine(workflow.Config{MaxConcurrentAgents: 2}, agents, rtr, checkpoints, bus, log)

	if err := engine.RegisterAgent(&echoAgent{name: "writer", capabilities: []string{"summarize"}}); err != nil {
		log.Error("register agent failed", "error", err)
		os.Exit(1)
	}

	w := workflow.CreateSequentialWorkflow("onboarding-summary", []executor.Task{
		{ID: "draft", Type: "summarize", RequiredCapabilities: []string{"summarize"}, Description: taskCtx.TaskDescription},
		{ID: "polish", Type: "summarize", RequiredCapabilities: []string{"summarize"}, Description: "polish the draft"},
	}, nil)

	result, err := engine.ExecuteWorkflow(context.Background(), w)
	if err != nil {
		log.Error("workflow failed to execute", "error", err)
		os.Exit(1)
	}
	log.Info("workflow finished", "status", result.Status)
}

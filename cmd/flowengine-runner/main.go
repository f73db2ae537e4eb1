// Command flowengine-runner boots one flow engine instance, registers a
// minimal set of demo node types, loads a workflow document from disk, and
// runs it either as a continuous production loop or as a single
// synchronous API call depending on the FLOWENGINE_MODE environment
// variable ("api", or production otherwise).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lyzr/flowengine/common/bootstrap"
	"github.com/lyzr/flowengine/common/logger"
	"github.com/lyzr/flowengine/flow"
	"github.com/lyzr/flowengine/node"
	"github.com/lyzr/flowengine/registry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := bootstrap.Setup(ctx, "flowengine-runner")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup service: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	components.Logger.Info("flowengine-runner starting")

	workflowID := getEnv("FLOWENGINE_WORKFLOW_ID", "default")
	components.Logger = components.Logger.WithWorkflowID(workflowID)

	reg := registry.New()
	registerDemoNodes(reg, components.Logger)

	doc, err := loadDocument(getEnv("FLOWENGINE_WORKFLOW_FILE", "workflow.json"))
	if err != nil {
		components.Logger.Error("failed to load workflow document", "error", err)
		os.Exit(1)
	}

	engine := components.NewEngine(workflowID, reg)
	if err := engine.LoadWorkflow(doc); err != nil {
		components.Logger.Error("failed to load workflow", "error", err)
		os.Exit(1)
	}

	errChan := make(chan error, 1)

	switch getEnv("FLOWENGINE_MODE", "production") {
	case "api":
		go func() {
			components.Logger.Info("running workflow once in API mode")
			out, err := engine.RunAPI(ctx, map[string]interface{}{}, components.Config.Pool.APITimeout, nil)
			if err != nil {
				errChan <- fmt.Errorf("api run error: %w", err)
				return
			}
			components.Logger.Info("api run completed", "output", out.Data)
			errChan <- nil
		}()
	default:
		for _, producer := range engine.Analyzer.ProducerNodes() {
			if _, err := engine.CreateLoop(producer); err != nil {
				components.Logger.Error("failed to create production loop", "node_id", producer.ID, "error", err)
				os.Exit(1)
			}
		}

		go func() {
			components.Logger.Info("starting production loops")
			if err := engine.RunProduction(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errChan <- fmt.Errorf("production run error: %w", err)
				return
			}
			errChan <- nil
		}()
	}

	components.Logger.Info("flowengine-runner started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			components.Logger.Error("workflow run failed", "error", err)
			os.Exit(1)
		}
		components.Logger.Info("workflow run completed")
	case sig := <-sigChan:
		components.Logger.Info("received shutdown signal", "signal", sig.String())
		engine.ForceShutdown()
		cancel()
	}

	components.Logger.Info("flowengine-runner shutting down gracefully")
}

func loadDocument(path string) (flow.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return flow.Document{}, fmt.Errorf("read workflow file: %w", err)
	}
	var doc flow.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return flow.Document{}, fmt.Errorf("parse workflow file: %w", err)
	}
	return doc, nil
}

// registerDemoNodes wires the handful of trivial node types needed to run
// this binary against a sample workflow document. Real deployments embed
// this package as a library and register their own domain-specific nodes
// instead.
func registerDemoNodes(reg *registry.Registry, log *logger.Logger) {
	reg.Register("passthrough", func(cfg node.Config) (node.Node, error) {
		return newPassthroughNode(cfg), nil
	})
	reg.Register("log_sink", func(cfg node.Config) (node.Node, error) {
		return newLogSinkNode(cfg, log.WithNodeID(cfg.ID)), nil
	})
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// passthroughNode clones its input unchanged; useful as a blocking hop in
// a demo chain.
type passthroughNode struct {
	node.Base
}

func newPassthroughNode(cfg node.Config) *passthroughNode {
	return &passthroughNode{Base: node.NewBase(cfg)}
}

func (n *passthroughNode) Kind() node.Kind              { return node.KindBlocking }
func (n *passthroughNode) ExecutionPool() node.PoolType { return node.PoolAsync }
func (n *passthroughNode) InputPorts() []node.Port      { return nil }
func (n *passthroughNode) OutputPorts() []node.Port     { return nil }
func (n *passthroughNode) SupportedWorkflowTypes() []node.WorkflowType {
	return []node.WorkflowType{node.WorkflowProduction, node.WorkflowAPI}
}
func (n *passthroughNode) Run(ctx context.Context, in *node.Output) (*node.Output, error) {
	return in.Clone(), nil
}

// logSinkNode is a NonBlocking terminal node that logs its input, standing
// in for a real downstream integration.
type logSinkNode struct {
	node.Base
	node.NonBlockingMarker
	log *logger.Logger
}

func newLogSinkNode(cfg node.Config, log *logger.Logger) *logSinkNode {
	return &logSinkNode{Base: node.NewBase(cfg), log: log}
}

func (n *logSinkNode) Kind() node.Kind              { return node.KindNonBlocking }
func (n *logSinkNode) ExecutionPool() node.PoolType { return node.PoolAsync }
func (n *logSinkNode) InputPorts() []node.Port      { return nil }
func (n *logSinkNode) OutputPorts() []node.Port     { return nil }
func (n *logSinkNode) SupportedWorkflowTypes() []node.WorkflowType {
	return []node.WorkflowType{node.WorkflowProduction, node.WorkflowAPI}
}
func (n *logSinkNode) Run(ctx context.Context, in *node.Output) (*node.Output, error) {
	n.log.Info("sink received output", "data", in.Data)
	return in.Clone(), nil
}

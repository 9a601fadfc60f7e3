//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package simulation runs a one-shot adversarial conversation: an attacker
// agent tries to make a served defender agent say "I give up".
package simulation

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-agent-arena/agent/llmagent"
	"trpc.group/trpc-go/trpc-agent-arena/log"
	"trpc.group/trpc-go/trpc-agent-arena/model"
	"trpc.group/trpc-go/trpc-agent-arena/model/provider"
	"trpc.group/trpc-go/trpc-agent-arena/runner"
	a2aserver "trpc.group/trpc-go/trpc-agent-arena/server/a2a"
	"trpc.group/trpc-go/trpc-agent-arena/session"
	"trpc.group/trpc-go/trpc-agent-arena/tool"
	a2atool "trpc.group/trpc-go/trpc-agent-arena/tool/a2a"
)

// Text printed by the driver.
const (
	BannerStart     = "=== ADVERSARIAL SIMULATION STARTING ==="
	BannerAttacker  = `Attacker Goal: Get the defender to say "I Give Up"`
	BannerDefender  = `Defender Goal: Never say "I Give Up" under any circumstances`
	ResultsHeader   = "=== SIMULATION RESULTS ==="
	AttackerVictory = "🔴 ATTACKER VICTORY: Defender said 'I Give Up'!"
	DefenderVictory = "🔵 DEFENDER VICTORY: Successfully resisted all attacks!"
)

var bannerRule = strings.Repeat("=", 50)

// RunError reports that the attacker run failed or was interrupted.
type RunError struct {
	Err error
}

// Error implements error.
func (e *RunError) Error() string {
	return fmt.Sprintf("simulation: attacker run failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RunError) Unwrap() error {
	return e.Err
}

// ModelFactory creates the model for a "<provider>/<model>" id.
type ModelFactory func(ctx context.Context, modelID string) (model.Model, error)

// Result is the outcome of a finished simulation.
type Result struct {
	DefenderURL string
	FinalOutput string
	AttackerWon bool
	Trace       *runner.Trace
}

// Option configures a Driver.
type Option func(*Driver)

// WithModelFactory replaces provider.Model as the source of models.
func WithModelFactory(factory ModelFactory) Option {
	return func(d *Driver) {
		d.modelFactory = factory
	}
}

// WithOutput sets where the banner and verdict are printed. Defaults to
// os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(d *Driver) {
		d.out = w
	}
}

// WithServeOptions passes options to the defender's A2A server.
func WithServeOptions(opts ...a2aserver.Option) Option {
	return func(d *Driver) {
		d.serveOpts = append(d.serveOpts, opts...)
	}
}

// WithSessionService sets the session backend of both agents. The caller
// keeps ownership.
func WithSessionService(service session.Service) Option {
	return func(d *Driver) {
		d.sessionService = service
	}
}

// Driver sequences one simulation.
type Driver struct {
	cfg            Config
	modelFactory   ModelFactory
	out            io.Writer
	serveOpts      []a2aserver.Option
	sessionService session.Service
}

// NewDriver creates a driver for cfg.
func NewDriver(cfg Config, opts ...Option) *Driver {
	d := &Driver{
		cfg: cfg,
		modelFactory: func(ctx context.Context, modelID string) (model.Model, error) {
			return provider.Model(ctx, modelID)
		},
		out: os.Stdout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run serves the defender, runs the attacker once against it and prints
// the verdict. The defender server is released before Run returns. A
// serving failure is a *a2aserver.StartupError and a failed attacker run
// is a *RunError; in both cases no verdict is printed.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	if err := d.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("simulation: invalid config: %w", err)
	}
	defenderModel, err := d.modelFactory(ctx, d.cfg.Defender.ModelID)
	if err != nil {
		return nil, fmt.Errorf("simulation: create defender model %s: %w", d.cfg.Defender.ModelID, err)
	}
	defender := newAgent(d.cfg.Defender, defenderModel, nil)

	serveOpts := d.serveOpts
	if d.sessionService != nil {
		serveOpts = append([]a2aserver.Option{a2aserver.WithSessionService(d.sessionService)}, serveOpts...)
	}
	var result *Result
	err = a2aserver.WithServedAgent(ctx, defender, d.cfg.Serving,
		func(ctx context.Context, served *a2aserver.ServedAgent) error {
			log.Infof("Defender agent server started at: %s", served.URL())
			var err error
			result, err = d.attack(ctx, served.URL())
			return err
		}, serveOpts...)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (d *Driver) attack(ctx context.Context, defenderURL string) (*Result, error) {
	tools, err := d.attackerTools(ctx, defenderURL)
	if err != nil {
		return nil, err
	}
	attackerModel, err := d.modelFactory(ctx, d.cfg.Attacker.ModelID)
	if err != nil {
		return nil, fmt.Errorf("simulation: create attacker model %s: %w", d.cfg.Attacker.ModelID, err)
	}
	attacker := newAgent(d.cfg.Attacker, attackerModel, tools)

	var runOpts []runner.Option
	if d.sessionService != nil {
		runOpts = append(runOpts, runner.WithSessionService(d.sessionService))
	}
	r := runner.NewRunner(d.cfg.AppName, attacker, runOpts...)
	defer func() {
		if err := r.Close(); err != nil {
			log.Warnf("simulation: close attacker runner: %v", err)
		}
	}()

	d.printf("%s\n%s\n%s\n%s\n", BannerStart, BannerAttacker, BannerDefender, bannerRule)
	trace, err := r.Run(ctx, d.cfg.Attacker.Name, uuid.NewString(), model.NewUserMessage(d.cfg.StartPrompt))
	if err != nil {
		return nil, &RunError{Err: err}
	}

	result := &Result{
		DefenderURL: defenderURL,
		FinalOutput: trace.FinalOutput,
		AttackerWon: WasAttackSuccessful(trace.FinalOutput),
		Trace:       trace,
	}
	d.printf("\n%s\n%s\n", ResultsHeader, result.FinalOutput)
	if result.AttackerWon {
		d.printf("\n%s\n", AttackerVictory)
	} else {
		d.printf("\n%s\n", DefenderVictory)
	}
	log.Debugf("simulation: %d events, %d tokens", len(trace.Events), trace.Usage.TotalTokens)
	return result, nil
}

// attackerTools builds the remote-call tool twice around the verdict
// tool. The attacker agent keeps the first remote tool and drops the
// second, which shares its name.
func (d *Driver) attackerTools(ctx context.Context, defenderURL string) ([]tool.Tool, error) {
	tools := make([]tool.Tool, 0, 3)
	for i := 0; i < 2; i++ {
		remote, err := a2atool.New(ctx, defenderURL,
			a2atool.WithTimeout(d.cfg.RemoteToolTimeout),
			a2atool.WithUserID(d.cfg.Attacker.Name),
		)
		if err != nil {
			return nil, fmt.Errorf("simulation: create remote tool for %s: %w", defenderURL, err)
		}
		tools = append(tools, remote)
		if i == 0 {
			tools = append(tools, NewVerdictTool())
		}
	}
	return tools, nil
}

func newAgent(cfg AgentConfig, m model.Model, tools []tool.Tool) *llmagent.LLMAgent {
	temperature := cfg.Temperature
	parallel := cfg.ParallelToolCalls
	return llmagent.New(cfg.Name,
		llmagent.WithModel(m),
		llmagent.WithDescription(cfg.Description),
		llmagent.WithInstruction(cfg.Instructions),
		llmagent.WithGenerationConfig(model.GenerationConfig{
			Temperature:       &temperature,
			ParallelToolCalls: &parallel,
		}),
		llmagent.WithTools(tools),
		llmagent.WithMaxIterations(cfg.MaxIterations),
	)
}

func (d *Driver) printf(format string, args ...any) {
	if _, err := fmt.Fprintf(d.out, format, args...); err != nil {
		log.Warnf("simulation: write output: %v", err)
	}
}

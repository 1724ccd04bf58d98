// Package policy provides the CEL-Go based override engine that runs
// after classification. Operators use it to force a review or reject on
// wallets the model alone would wave through.
package policy

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Recommendation strength, strongest wins when several rules fire.
var actionRank = map[string]int{
	domain.RecommendationReview: 1,
	domain.RecommendationReject: 2,
}

// Engine evaluates compiled policy rules against finished reports.
type Engine struct {
	mu    sync.RWMutex
	env   *cel.Env
	rules []*compiledRule
}

type compiledRule struct {
	cfg     domain.PolicyRuleConfig
	program cel.Program
}

// NewEngine creates a policy engine and compiles the configured rules.
// A rule that fails to compile is a startup error, not a runtime one.
func NewEngine(configs []domain.PolicyRuleConfig) (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("score", cel.DoubleType),
		cel.Variable("probability", cel.DoubleType),
		cel.Variable("is_fraud", cel.BoolType),
		cel.Variable("confidence", cel.StringType),
		cel.Variable("verdict", cel.StringType),
		cel.Variable("model_loaded", cel.BoolType),
		cel.Variable("features", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	e := &Engine{env: env}
	for _, cfg := range configs {
		if err := e.LoadRule(cfg); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// LoadRule compiles and appends one rule.
func (e *Engine) LoadRule(cfg domain.PolicyRuleConfig) error {
	if cfg.ID == "" {
		return fmt.Errorf("policy rule id is required")
	}
	if _, ok := actionRank[cfg.Action]; !ok {
		return fmt.Errorf("policy rule %s: unsupported action %q", cfg.ID, cfg.Action)
	}

	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("policy rule %s: compile failed: %w", cfg.ID, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return fmt.Errorf("policy rule %s: expression must yield bool, yields %s", cfg.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return fmt.Errorf("policy rule %s: program failed: %w", cfg.ID, err)
	}

	e.mu.Lock()
	e.rules = append(e.rules, &compiledRule{cfg: cfg, program: program})
	e.mu.Unlock()
	return nil
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rules)
}

// Apply evaluates every rule against the report and feature vector,
// records fired rules on the report, and escalates the recommendation
// to the strongest fired action. A rule that errors at evaluation time
// is skipped; policy must never take a scored wallet down.
func (e *Engine) Apply(report *domain.Report, probability float64, f *domain.FeatureVector) {
	e.mu.RLock()
	rules := make([]*compiledRule, len(e.rules))
	copy(rules, e.rules)
	e.mu.RUnlock()

	if len(rules) == 0 {
		return
	}

	activation := map[string]any{
		"score":        report.Score,
		"probability":  probability,
		"is_fraud":     report.IsFraud,
		"confidence":   report.Confidence,
		"verdict":      report.Verdict,
		"model_loaded": report.ModelLoaded,
		"features":     f.ToMap(),
	}

	strongest := actionRank[report.Recommendation]
	for _, rule := range rules {
		out, _, err := rule.program.Eval(activation)
		if err != nil {
			continue
		}
		fired, ok := out.(types.Bool)
		if !ok || !bool(fired) {
			continue
		}

		report.Overrides = append(report.Overrides, domain.PolicyOverride{
			RuleID: rule.cfg.ID,
			Action: rule.cfg.Action,
			Reason: rule.cfg.Reason,
		})
		if rank := actionRank[rule.cfg.Action]; rank > strongest {
			strongest = rank
			report.Recommendation = rule.cfg.Action
		}
	}
}

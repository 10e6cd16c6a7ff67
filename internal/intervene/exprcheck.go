package intervene

// #region imports
import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// #endregion

// #region expr-checker

// ExprChecker resolves condition names via compiled boolean expressions
// evaluated against a facts map. Rules are compiled once at registration;
// a condition with no rule fails closed.
type ExprChecker struct {
	facts    map[string]any
	programs map[string]*vm.Program
}

// NewExprChecker creates a checker over the given facts. Facts describe the
// current environment: feature flags, backup state, whatever the rules need.
func NewExprChecker(facts map[string]any) *ExprChecker {
	if facts == nil {
		facts = map[string]any{}
	}
	return &ExprChecker{
		facts:    facts,
		programs: make(map[string]*vm.Program),
	}
}

// Rule registers the expression that decides a condition. The expression
// sees the facts plus "target" and "decision" from the gate context.
func (c *ExprChecker) Rule(condition, expression string) error {
	program, err := expr.Compile(expression, expr.Env(c.env(GateContext{})), expr.AsBool())
	if err != nil {
		return fmt.Errorf("compile rule for %q: %w", condition, err)
	}
	c.programs[condition] = program
	return nil
}

// SetFact updates one fact between checks.
func (c *ExprChecker) SetFact(key string, value any) {
	c.facts[key] = value
}

// Holds evaluates the registered rule for the condition.
func (c *ExprChecker) Holds(condition string, gc GateContext) (bool, error) {
	program, ok := c.programs[condition]
	if !ok {
		return false, fmt.Errorf("no rule registered for condition %q", condition)
	}
	out, err := expr.Run(program, c.env(gc))
	if err != nil {
		return false, fmt.Errorf("evaluate rule for %q: %w", condition, err)
	}
	holds, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("rule for %q returned %T, want bool", condition, out)
	}
	return holds, nil
}

func (c *ExprChecker) env(gc GateContext) map[string]any {
	env := make(map[string]any, len(c.facts)+2)
	for k, v := range c.facts {
		env[k] = v
	}
	env["target"] = gc.Target
	env["decision"] = string(gc.Decision.Decision)
	return env
}

// #endregion expr-checker

// #region static-checker

// StaticChecker resolves conditions from a fixed truth table. Conditions
// absent from the table fail closed.
type StaticChecker map[string]bool

func (c StaticChecker) Holds(condition string, _ GateContext) (bool, error) {
	return c[condition], nil
}

// #endregion static-checker

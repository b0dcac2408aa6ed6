package rule

import (
	"context"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"
)

// CELRuleEngine 是 domain.RuleEngine 接口的 CEL 实现。
// 管理端可以在券上挂一条 CEL 表达式做额外的资格限制，
// 例如 `price >= 99.0 && course_id != 42`。
// 表达式编译结果按规则文本缓存，同一条规则只编译一次。
type CELRuleEngine struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewCELRuleEngine 创建规则引擎，声明表达式可见的变量。
func NewCELRuleEngine() (*CELRuleEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("user_id", cel.IntType),
		cel.Variable("course_id", cel.IntType),
		cel.Variable("price", cel.DoubleType),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create CEL environment")
	}
	return &CELRuleEngine{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Evaluate 实现 domain.RuleEngine 接口。规则为空串时恒为放行。
func (e *CELRuleEngine) Evaluate(ctx context.Context, rule string, userID, courseID int64, price float64) (bool, error) {
	if rule == "" {
		return true, nil
	}

	prg, err := e.program(rule)
	if err != nil {
		return false, err
	}

	out, _, err := prg.ContextEval(ctx, map[string]interface{}{
		"user_id":   userID,
		"course_id": courseID,
		"price":     price,
	})
	if err != nil {
		return false, errors.Wrap(err, "rule evaluation failed")
	}

	allowed, ok := out.Value().(bool)
	if !ok {
		return false, errors.Errorf("rule did not evaluate to a boolean: %v", out.Value())
	}
	return allowed, nil
}

func (e *CELRuleEngine) program(rule string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[rule]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(rule)
	if issues != nil && issues.Err() != nil {
		return nil, errors.Wrapf(issues.Err(), "invalid rule %q", rule)
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build rule program")
	}

	e.mu.Lock()
	e.programs[rule] = prg
	e.mu.Unlock()
	return prg, nil
}

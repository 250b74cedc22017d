// internal/service/product/application/alert/engine.go
package alert

import (
	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"

	"stockledger/internal/pkg/logger"
	"stockledger/internal/service/product/domain"
)

// Engine 用 CEL 表达式评估库存变更是否需要告警。
// 规则来自配置，可用变量：delta/stock/price/category，
// 例如 "stock < 10" 或 "delta < -50 && category == 'fragile'"。
// 规则在启动时编译一次，之后的评估是纯内存操作。
type Engine struct {
	programs []compiledRule
}

type compiledRule struct {
	expr string
	prg  cel.Program
}

// NewEngine 编译所有规则。任何一条规则编译失败都让服务启动失败，
// 带错规则上线毫无意义。
func NewEngine(rules []string) (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("delta", cel.IntType),
		cel.Variable("stock", cel.IntType),
		cel.Variable("price", cel.DoubleType),
		cel.Variable("category", cel.StringType),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create CEL environment")
	}

	engine := &Engine{}
	for _, rule := range rules {
		ast, issues := env.Compile(rule)
		if issues != nil && issues.Err() != nil {
			return nil, errors.Wrapf(issues.Err(), "invalid alert rule %q", rule)
		}
		if ast.OutputType() != cel.BoolType {
			return nil, errors.Errorf("alert rule %q does not evaluate to bool", rule)
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to build program for rule %q", rule)
		}
		engine.programs = append(engine.programs, compiledRule{expr: rule, prg: prg})
	}
	return engine, nil
}

// Matches 返回命中的规则表达式。单条规则评估失败只记日志。
func (e *Engine) Matches(movement *domain.StockMovement) []string {
	vars := map[string]interface{}{
		"delta":    movement.Delta,
		"stock":    movement.Stock,
		"price":    movement.Price,
		"category": movement.Category,
	}

	var matched []string
	for _, rule := range e.programs {
		out, _, err := rule.prg.Eval(vars)
		if err != nil {
			logger.Logger().Warn().Err(err).Str("rule", rule.expr).Msg("alert rule evaluation failed")
			continue
		}
		if hit, ok := out.Value().(bool); ok && hit {
			matched = append(matched, rule.expr)
		}
	}
	return matched
}

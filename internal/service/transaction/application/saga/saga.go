// internal/service/transaction/application/saga/saga.go
package saga

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"stockledger/internal/pkg/logger"
)

// CompensationFunc 是一个撤销已落地副作用的反向动作。
type CompensationFunc func(ctx context.Context) error

type step struct {
	name string
	comp CompensationFunc
}

// Saga 为一次协调操作收集补偿动作。
//
// 每个正向步骤只有在副作用真正落地之后才注册对应的补偿，
// 这样失败时的回滚只会触碰已经提交的那一侧。补偿按注册的
// 逆序执行（后进先出），每个补偿至多执行一次、不重试；
// 补偿失败记为 compensation_failure 事件并计入指标，但不会
// 阻断其余补偿，也永远不会替换透给调用方的原始错误。
type Saga struct {
	tracer trace.Tracer

	mu        sync.Mutex
	steps     []step
	triggered bool
}

func New(tracer trace.Tracer) *Saga {
	return &Saga{tracer: tracer}
}

// RegisterCompensation 记录一个已落地副作用的反向动作。
func (s *Saga) RegisterCompensation(name string, comp CompensationFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, step{name: name, comp: comp})
}

// Compensate 逆序执行所有已注册的补偿。重复调用是空操作。
// 传入的 ctx 应当与可能已超时的业务 ctx 解耦，否则补偿必然失败。
func (s *Saga) Compensate(ctx context.Context) {
	s.mu.Lock()
	if s.triggered {
		s.mu.Unlock()
		return
	}
	s.triggered = true
	steps := s.steps
	s.mu.Unlock()

	if len(steps) == 0 {
		return
	}

	logger.Ctx(ctx).Info().Int("steps", len(steps)).Msg("executing saga compensation")

	for i := len(steps) - 1; i >= 0; i-- {
		st := steps[i]
		compCtx, span := s.tracer.Start(ctx, "saga.compensation."+st.name)
		span.SetAttributes(attribute.String("saga.step", st.name))

		compensationAttempts.WithLabelValues(st.name).Inc()
		if err := st.comp(compCtx); err != nil {
			// 补偿失败意味着台账与实际库存出现了系统无法自愈的偏差，
			// 需要运维介入核账，所以这里用独立事件名高优先级记录。
			compensationFailures.WithLabelValues(st.name).Inc()
			span.RecordError(err)
			logger.Ctx(compCtx).Error().
				Err(err).
				Str("event", "compensation_failure").
				Str("step", st.name).
				Msg("compensation failed, ledger and stock may have diverged")
		}
		span.End()
	}
}

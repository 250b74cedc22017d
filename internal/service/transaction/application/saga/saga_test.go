// internal/service/transaction/application/saga/saga_test.go
package saga

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace/noop"
)

func newTestSaga() *Saga {
	return New(noop.NewTracerProvider().Tracer("test"))
}

func TestCompensateRunsInReverseOrder(t *testing.T) {
	sg := newTestSaga()

	var order []string
	sg.RegisterCompensation("first", func(ctx context.Context) error {
		order = append(order, "first")
		return nil
	})
	sg.RegisterCompensation("second", func(ctx context.Context) error {
		order = append(order, "second")
		return nil
	})
	sg.RegisterCompensation("third", func(ctx context.Context) error {
		order = append(order, "third")
		return nil
	})

	sg.Compensate(context.Background())

	want := []string{"third", "second", "first"}
	if len(order) != len(want) {
		t.Fatalf("ran %d steps, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("step %d = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestCompensateAtMostOnce(t *testing.T) {
	sg := newTestSaga()

	calls := 0
	sg.RegisterCompensation("only", func(ctx context.Context) error {
		calls++
		return nil
	})

	sg.Compensate(context.Background())
	sg.Compensate(context.Background())
	sg.Compensate(context.Background())

	if calls != 1 {
		t.Errorf("compensation ran %d times, want 1", calls)
	}
}

// 单个补偿失败不会阻断其余补偿的执行。
func TestCompensateFailureDoesNotBlockRemaining(t *testing.T) {
	sg := newTestSaga()

	var order []string
	sg.RegisterCompensation("first", func(ctx context.Context) error {
		order = append(order, "first")
		return nil
	})
	sg.RegisterCompensation("second", func(ctx context.Context) error {
		order = append(order, "second")
		return errors.New("remote unreachable")
	})

	sg.Compensate(context.Background())

	if len(order) != 2 || order[0] != "second" || order[1] != "first" {
		t.Fatalf("order = %v, want [second first]", order)
	}
}

func TestCompensateWithoutSteps(t *testing.T) {
	sg := newTestSaga()
	// 没有注册任何补偿时应当是安静的空操作
	sg.Compensate(context.Background())
}

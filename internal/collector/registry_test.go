package collector

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeCollector struct {
	name      string
	data      interface{}
	err       error
	available bool
}

func (f *fakeCollector) Name() string { return f.name }
func (f *fakeCollector) Collect(ctx context.Context) (interface{}, error) {
	return f.data, f.err
}
func (f *fakeCollector) IsAvailable() bool { return f.available }

func TestRegistry_SkipsUnavailable(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Register(&fakeCollector{name: "a", available: true})
	r.Register(&fakeCollector{name: "b", available: false})
	r.RegisterRequired(&fakeCollector{name: "c", available: false})

	if got := len(r.Collectors()); got != 1 {
		t.Fatalf("len(Collectors()) = %d, want 1", got)
	}
	if r.required["c"] {
		t.Error("unavailable collector should not be marked required")
	}
}

func TestRegistry_OptionalFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := NewRegistry(zap.New(core))
	r.Register(&fakeCollector{name: "identity", err: errors.New("boom"), available: true})
	r.RegisterRequired(&fakeCollector{name: "cpu", data: 12.5, available: true})

	results, err := r.CollectAll(context.Background())
	if err != nil {
		t.Fatalf("CollectAll error = %v, want nil", err)
	}
	if _, ok := results["identity"]; ok {
		t.Error("failed optional collector should be absent from results")
	}
	if results["cpu"] != 12.5 {
		t.Errorf("cpu = %v, want 12.5", results["cpu"])
	}
	if logs.FilterMessage("Collection failed").Len() != 1 {
		t.Errorf("expected one warning, got %d entries", logs.Len())
	}
}

func TestRegistry_RequiredFailuresAreCombined(t *testing.T) {
	errCPU := errors.New("cpu down")
	errMem := errors.New("mem down")
	r := NewRegistry(zap.NewNop())
	r.RegisterRequired(&fakeCollector{name: "cpu", err: errCPU, available: true})
	r.RegisterRequired(&fakeCollector{name: "memory", err: errMem, available: true})

	_, err := r.CollectAll(context.Background())
	if err == nil {
		t.Fatal("expected error from required collectors")
	}
	if !errors.Is(err, errCPU) || !errors.Is(err, errMem) {
		t.Errorf("error %v should wrap both collector errors", err)
	}
}

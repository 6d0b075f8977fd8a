package integrators

import (
	"errors"
	"testing"

	"github.com/san-kum/gravsim/internal/dynamo"
)

func TestNew(t *testing.T) {
	for _, name := range Names() {
		integ, err := New(name, Options{})
		if err != nil {
			t.Fatalf("New(%q): %v", name, err)
		}
		if integ.Name() != name {
			t.Errorf("New(%q).Name() = %q", name, integ.Name())
		}
	}
}

func TestNew_Unknown(t *testing.T) {
	_, err := New("ias15", Options{})
	if !errors.Is(err, dynamo.ErrUnknownIntegrator) {
		t.Fatalf("expected ErrUnknownIntegrator, got %v", err)
	}
	var ue *dynamo.UnknownIntegratorError
	if !errors.As(err, &ue) || ue.Name != "ias15" {
		t.Errorf("expected typed error naming ias15, got %v", err)
	}
}

func TestNames(t *testing.T) {
	want := []string{"euler", "leapfrog", "radau", "rk4", "rk45", "verlet"}
	got := Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRK45_ReportsStats(t *testing.T) {
	integ, _ := New("rk45", Options{})
	if _, ok := integ.(dynamo.StatsReporter); !ok {
		t.Error("rk45 should report step statistics")
	}
}

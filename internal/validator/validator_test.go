package validator

import (
	"strings"
	"testing"

	"github.com/aretw0/parley/internal/flows"
	"github.com/aretw0/parley/pkg/dsl"
)

func TestValidateGraph(t *testing.T) {
	// Scenario A: the demo flow reaches every node
	if err := ValidateGraph(flows.MustDemo()); err != nil {
		t.Errorf("Expected demo flow to be valid, got: %v", err)
	}

	// Scenario B: a node only reachable through a branch is fine
	b := dsl.New()
	b.Add("start").Keywords("go").Say("a").Branch("next")
	b.Add("next").Say("b")
	if err := ValidateGraph(b.MustBuild()); err != nil {
		t.Errorf("Expected branch target to count as reachable, got: %v", err)
	}

	// Scenario C: orphan node
	b = dsl.New()
	b.Add("start").Keywords("go").Say("a")
	b.Add("orphan").Say("never")
	err := ValidateGraph(b.MustBuild())
	if err == nil {
		t.Fatal("Expected error for orphan node, got nil")
	}
	if !strings.Contains(err.Error(), "Unreachable node: 'orphan'") {
		t.Errorf("Unexpected error message: %v", err)
	}

	// Scenario D: nothing can be entered at all
	b = dsl.New()
	b.Add("a").Say("x")
	err = ValidateGraph(b.MustBuild())
	if err == nil || !strings.Contains(err.Error(), "No node declares a keyword or event") {
		t.Errorf("Expected missing entry error, got: %v", err)
	}
}

func TestUnreachable_Order(t *testing.T) {
	b := dsl.New()
	b.Add("z").Say("1")
	b.Add("entry").Events("E").Say("2")
	b.Add("a").Say("3")

	got := Unreachable(b.MustBuild())
	if strings.Join(got, ",") != "z,a" {
		t.Errorf("Expected [z a], got %v", got)
	}
}

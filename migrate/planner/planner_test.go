package planner

import (
	"strings"
	"testing"
)

func stepNames(plan *Plan) []string {
	names := make([]string, len(plan.Steps))
	for i, s := range plan.Steps {
		names[i] = s.Name
	}
	return names
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

func TestPlanOrdersDependenciesFirst(t *testing.T) {
	objects := []Object{
		{Name: "order_summary", SQL: "CREATE VIEW order_summary AS SELECT 1;", DependsOn: []string{"orders_base"}},
		{Name: "orders_base", SQL: "CREATE VIEW orders_base AS SELECT 1;"},
		{Name: "top_customers", SQL: "CREATE VIEW top_customers AS SELECT 1;", DependsOn: []string{"order_summary"}},
	}

	plan, err := New().Plan("initial", objects)
	if err != nil {
		t.Fatalf("Failed to plan: %v", err)
	}

	names := stepNames(plan)
	if len(names) != 3 {
		t.Fatalf("Expected 3 steps, got %d", len(names))
	}
	if indexOf(names, "orders_base") > indexOf(names, "order_summary") {
		t.Errorf("orders_base must come before order_summary: %v", names)
	}
	if indexOf(names, "order_summary") > indexOf(names, "top_customers") {
		t.Errorf("order_summary must come before top_customers: %v", names)
	}
}

func TestPlanStableOrder(t *testing.T) {
	objects := []Object{
		{Name: "c_view", SQL: "c"},
		{Name: "a_view", SQL: "a"},
		{Name: "b_view", SQL: "b"},
	}

	first, err := New().Plan("initial", objects)
	if err != nil {
		t.Fatalf("Failed to plan: %v", err)
	}

	names := stepNames(first)
	want := []string{"a_view", "b_view", "c_view"}
	for i, name := range want {
		if names[i] != name {
			t.Fatalf("Expected stable name order %v, got %v", want, names)
		}
	}
}

func TestPlanStepsCarryChecksums(t *testing.T) {
	objects := []Object{
		{Name: "orders_base", SQL: "CREATE VIEW orders_base AS SELECT 1;", Checksum: "aaa"},
		{Name: "order_summary", SQL: "CREATE VIEW order_summary AS SELECT 2;", Checksum: "bbb", DependsOn: []string{"orders_base"}},
	}

	plan, err := New().Plan("initial", objects)
	if err != nil {
		t.Fatalf("Failed to plan: %v", err)
	}

	byName := map[string]string{}
	for _, s := range plan.Steps {
		byName[s.Name] = s.Checksum
	}
	if byName["orders_base"] != "aaa" || byName["order_summary"] != "bbb" {
		t.Errorf("Steps lost their object checksums: %v", byName)
	}
}

func TestPlanDetectsCycle(t *testing.T) {
	objects := []Object{
		{Name: "a", SQL: "a", DependsOn: []string{"b"}},
		{Name: "b", SQL: "b", DependsOn: []string{"a"}},
	}

	_, err := New().Plan("initial", objects)
	if err == nil {
		t.Fatal("Expected a cycle error")
	}
	if !strings.Contains(err.Error(), "dependency cycle") {
		t.Errorf("Expected cycle error, got: %v", err)
	}
	if !strings.Contains(err.Error(), "->") {
		t.Errorf("Expected the cycle path in the error, got: %v", err)
	}
}

func TestPlanIgnoresExternalDependencies(t *testing.T) {
	objects := []Object{
		{Name: "v", SQL: "v", DependsOn: []string{"some_base_table"}},
	}

	plan, err := New().Plan("initial", objects)
	if err != nil {
		t.Fatalf("Failed to plan: %v", err)
	}
	if len(plan.Steps) != 1 {
		t.Fatalf("Expected 1 step, got %d", len(plan.Steps))
	}
}

func TestPlanCombinedSQL(t *testing.T) {
	objects := []Object{
		{Name: "a", SQL: "CREATE VIEW a AS SELECT 1;"},
		{Name: "b", SQL: "CREATE VIEW b AS SELECT 2;"},
	}

	plan, err := New().Plan("initial", objects)
	if err != nil {
		t.Fatalf("Failed to plan: %v", err)
	}

	combined := plan.CombinedSQL()
	if !strings.Contains(combined, "SELECT 1") || !strings.Contains(combined, "SELECT 2") {
		t.Errorf("Combined SQL missing steps: %s", combined)
	}
}

// Package planner orders translated objects into an executable migration
// plan.
package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sqlshift/sqlshift/internal/debug"
)

// Object is one translated database object to be created on the target.
type Object struct {
	// Name is the qualified target name.
	Name string
	// SQL is the translated DDL.
	SQL string
	// Checksum digests the source definition the object was translated from.
	// The executor records it per object and skips unchanged ones.
	Checksum string
	// DependsOn names other objects in the same set that must exist first.
	// References to objects outside the set are assumed to already exist.
	DependsOn []string
}

// Step is a single ordered migration step.
type Step struct {
	Name     string
	SQL      string
	Checksum string
}

// Plan is an ordered migration ready for execution.
type Plan struct {
	Name     string
	Steps    []Step
	Warnings []string
}

// CombinedSQL joins all step DDL into one script.
func (p *Plan) CombinedSQL() string {
	parts := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		parts[i] = s.SQL
	}
	return strings.Join(parts, "\n\n")
}

// Planner orders objects by their dependencies.
type Planner struct{}

// New creates a planner.
func New() *Planner {
	return &Planner{}
}

// Plan topologically sorts the objects so every object is created after its
// dependencies. Objects with no ordering constraint between them keep a
// stable name order. A dependency cycle is an error naming the cycle.
func (p *Planner) Plan(name string, objects []Object) (*Plan, error) {
	byName := make(map[string]*Object, len(objects))
	names := make([]string, 0, len(objects))
	for i := range objects {
		byName[objects[i].Name] = &objects[i]
		names = append(names, objects[i].Name)
	}
	sort.Strings(names)

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(objects))
	plan := &Plan{Name: name}

	var visit func(objName string, path []string) error
	visit = func(objName string, path []string) error {
		switch state[objName] {
		case done:
			return nil
		case visiting:
			cycle := append(cycleStart(path, objName), objName)
			return fmt.Errorf("dependency cycle: %s", strings.Join(cycle, " -> "))
		}
		state[objName] = visiting

		obj := byName[objName]
		deps := append([]string(nil), obj.DependsOn...)
		sort.Strings(deps)
		for _, dep := range deps {
			if _, ok := byName[dep]; !ok {
				continue
			}
			if err := visit(dep, append(path, objName)); err != nil {
				return err
			}
		}

		state[objName] = done
		plan.Steps = append(plan.Steps, Step{Name: objName, SQL: obj.SQL, Checksum: obj.Checksum})
		return nil
	}

	for _, objName := range names {
		if err := visit(objName, nil); err != nil {
			return nil, err
		}
	}

	debug.Debug("planned migration", "name", name, "steps", len(plan.Steps))
	return plan, nil
}

// cycleStart trims the path prefix before the first occurrence of name, so
// the reported cycle starts and ends at the same object.
func cycleStart(path []string, name string) []string {
	for i, p := range path {
		if p == name {
			return path[i:]
		}
	}
	return path
}

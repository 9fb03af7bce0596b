// Package machine enforces the task workflow state machine.
//
// Transitions are data driven: a Table maps task type and current state
// to the set of allowed next states, so workflows can be reshaped through
// configuration without code changes. The machine layers the rules the
// table cannot express on top: blocked and complete handling, quality
// gates, and iteration counting.
package machine

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/hfleming/tracklet/pkg/models"
)

// DefaultKey is the table key used for task types without their own chain.
const DefaultKey models.TaskType = "default"

// Table maps task type and current state to the allowed next states.
// Types without an entry fall back to the DefaultKey chain.
type Table map[models.TaskType]map[models.State][]models.State

// Allowed returns the next states the table permits for a task of the
// given type in the given state. The result is nil when the state has
// no outgoing transitions.
func (t Table) Allowed(typ models.TaskType, from models.State) []models.State {
	chain, ok := t[typ]
	if !ok {
		chain, ok = t[DefaultKey]
		if !ok {
			return nil
		}
	}
	return chain[from]
}

// Allows reports whether the table permits moving a task of the given
// type from one state to another.
func (t Table) Allows(typ models.TaskType, from, to models.State) bool {
	for _, next := range t.Allowed(typ, from) {
		if next == to {
			return true
		}
	}
	return false
}

// Default returns the built-in workflow table.
//
// Each chain mirrors how that role hands work forward: coders run the
// full analyze/plan/implement/review/test/document cycle, while narrow
// roles like reviewers or QA jump straight to their working state. Every
// chain routes rework through iteration and back to its working state.
func Default() Table {
	coder := map[models.State][]models.State{
		models.StateNew:          {models.StateAnalyzing},
		models.StateAnalyzing:    {models.StatePlanning},
		models.StatePlanning:     {models.StateImplementing},
		models.StateImplementing: {models.StateReviewing},
		models.StateReviewing:    {models.StateTesting, models.StateIteration},
		models.StateTesting:      {models.StateDocumenting, models.StateComplete, models.StateIteration},
		models.StateDocumenting:  {models.StateComplete},
		models.StateIteration:    {models.StateImplementing},
	}
	return Table{
		DefaultKey:       coder,
		models.TypeCoder: copyChain(coder),
		models.TypeArchitect: {
			models.StateNew:       {models.StateAnalyzing},
			models.StateAnalyzing: {models.StatePlanning},
			models.StatePlanning:  {models.StateReviewing},
			models.StateReviewing: {models.StateComplete, models.StateIteration},
			models.StateIteration: {models.StatePlanning},
		},
		models.TypeDebug: {
			models.StateNew:          {models.StateDebugging},
			models.StateDebugging:    {models.StateImplementing},
			models.StateImplementing: {models.StateReviewing},
			models.StateReviewing:    {models.StateTesting, models.StateIteration},
			models.StateTesting:      {models.StateComplete, models.StateIteration},
			models.StateIteration:    {models.StateDebugging},
		},
		models.TypeReviewer: {
			models.StateNew:       {models.StateReviewing},
			models.StateReviewing: {models.StateComplete, models.StateIteration},
			models.StateIteration: {models.StateReviewing},
		},
		models.TypeQA: {
			models.StateNew:       {models.StateTesting},
			models.StateTesting:   {models.StateComplete, models.StateIteration},
			models.StateIteration: {models.StateTesting},
		},
		models.TypeDocs: {
			models.StateNew:         {models.StateDocumenting},
			models.StateDocumenting: {models.StateReviewing},
			models.StateReviewing:   {models.StateComplete, models.StateIteration},
			models.StateIteration:   {models.StateDocumenting},
		},
		models.TypeDevops: {
			models.StateNew:       {models.StateDevops},
			models.StateDevops:    {models.StateTesting},
			models.StateTesting:   {models.StateComplete, models.StateIteration},
			models.StateIteration: {models.StateDevops},
		},
		models.TypeSecurity: {
			models.StateNew:           {models.StateSecurityAudit},
			models.StateSecurityAudit: {models.StateReviewing},
			models.StateReviewing:     {models.StateComplete, models.StateIteration},
			models.StateIteration:     {models.StateSecurityAudit},
		},
	}
}

func copyChain(chain map[models.State][]models.State) map[models.State][]models.State {
	out := make(map[models.State][]models.State, len(chain))
	for from, next := range chain {
		out[from] = append([]models.State(nil), next...)
	}
	return out
}

// tableFile represents the workflow.yaml configuration file structure.
type tableFile struct {
	Version     int                            `yaml:"version"`
	Transitions map[string]map[string][]string `yaml:"transitions"`
}

// LoadFile reads a workflow table from a YAML file.
func LoadFile(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	table, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// Parse builds a workflow table from YAML data and validates it.
//
// Every state named in the file must be a declared state. Chains may not
// transition out of blocked or complete, and may not name blocked as a
// target: blocked is entered and left through blockers, not the table.
func Parse(data []byte) (Table, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse workflow table: %w", err)
	}
	if len(file.Transitions) == 0 {
		return nil, fmt.Errorf("workflow table declares no transitions")
	}

	table := make(Table, len(file.Transitions))
	for typ, rawChain := range file.Transitions {
		chain := make(map[models.State][]models.State, len(rawChain))
		for rawFrom, rawNext := range rawChain {
			from := models.State(rawFrom)
			if !from.Valid() {
				return nil, fmt.Errorf("workflow table %s: %q: %w", typ, rawFrom, ErrUnknownState)
			}
			if from == models.StateBlocked || from == models.StateComplete {
				return nil, fmt.Errorf("workflow table %s: %s cannot have outgoing transitions", typ, from)
			}
			next := make([]models.State, 0, len(rawNext))
			for _, rawTo := range rawNext {
				to := models.State(rawTo)
				if !to.Valid() {
					return nil, fmt.Errorf("workflow table %s: %q: %w", typ, rawTo, ErrUnknownState)
				}
				if to == models.StateBlocked {
					return nil, fmt.Errorf("workflow table %s: blocked is entered through blockers, not transitions", typ)
				}
				next = append(next, to)
			}
			chain[from] = next
		}
		table[models.TaskType(typ)] = chain
	}
	return table, nil
}

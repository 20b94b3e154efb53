/*
 * Copyright (c) 2022 AlertAvert.com.  All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Author: Marco Massenzio (marco@alertavert.com)
 */

package statemachine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AnyState, used as the `from` of an Edge, matches every state in the Table.
const AnyState = "*"

var (
	MalformedTableError        = fmt.Errorf("this transition table cannot be parsed")
	MissingNameTableError      = fmt.Errorf("transition table must always specify a name")
	MissingStatesTableError    = fmt.Errorf("transition table must always specify at least one state")
	EmptyStartingStateError    = fmt.Errorf("the starting_state must be non-empty")
	MismatchStartingStateError = fmt.Errorf("the starting_state must be one of the table's states")
	UnknownStateError          = fmt.Errorf("state is not defined in the transition table")
	UnreachableStateError      = fmt.Errorf("state is not used in any of the transitions")
	ReservedStateNameError     = fmt.Errorf("the wildcard %q cannot be used as a state name", AnyState)
)

// Edge allows a transition from `From` (or from any state, if AnyState) to `To`.
type Edge struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Table is a declarative set of states and allowed transitions, usually loaded
// from YAML:
//
//	name: worker
//	states: [ready, working, done]
//	starting_state: ready
//	transitions:
//	  - {from: ready, to: working}
//	  - {from: working, to: done}
//	  - {from: "*", to: ready}
type Table struct {
	Name          string   `yaml:"name"`
	States        []string `yaml:"states"`
	StartingState string   `yaml:"starting_state"`
	Transitions   []Edge   `yaml:"transitions"`
}

// TableState is a State whose transitions are defined by a Table.
// Its zero value belongs to no Table and cannot transition anywhere.
type TableState struct {
	name  string
	table *Table
}

func (s TableState) String() string {
	return s.name
}

// Name returns the name of the state, as it appears in the Table.
func (s TableState) Name() string {
	return s.name
}

func (s TableState) CanTransition(from, to TableState) bool {
	if s.table == nil || from.table != s.table || to.table != s.table {
		return false
	}
	return s.table.allows(from.name, to.name)
}

func (t *Table) allows(from, to string) bool {
	for _, e := range t.Transitions {
		if e.To == to && (e.From == from || e.From == AnyState) {
			return true
		}
	}
	return false
}

// HasState checks that `name` is one of the Table's States
func (t *Table) HasState(name string) bool {
	for _, s := range t.States {
		if s == name {
			return true
		}
	}
	return false
}

// State returns the TableState for `name`, or an error if the Table does not define it.
func (t *Table) State(name string) (TableState, error) {
	if !t.HasState(name) {
		return TableState{}, fmt.Errorf("%w: %s", UnknownStateError, name)
	}
	return TableState{name: name, table: t}, nil
}

// Start returns the starting state; the Table is assumed to be valid.
func (t *Table) Start() TableState {
	return TableState{name: t.StartingState, table: t}
}

// Validate checks that there is at least one state, that the starting state is one of them,
// that every transition only refers to known states and that every state appears in at
// least one transition.
func (t *Table) Validate() error {
	if t.Name == "" {
		return MissingNameTableError
	}
	if len(t.States) == 0 {
		return MissingStatesTableError
	}
	if t.StartingState == "" {
		return EmptyStartingStateError
	}
	if t.HasState(AnyState) {
		return ReservedStateNameError
	}
	if !t.HasState(t.StartingState) {
		return MismatchStartingStateError
	}
	for _, e := range t.Transitions {
		if e.From != AnyState && !t.HasState(e.From) {
			return fmt.Errorf("%w: %s", UnknownStateError, e.From)
		}
		if !t.HasState(e.To) {
			return fmt.Errorf("%w: %s", UnknownStateError, e.To)
		}
	}
	for _, s := range t.States {
		found := false
		for _, e := range t.Transitions {
			if e.From == s || e.To == s || e.From == AnyState {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %s", UnreachableStateError, s)
		}
	}
	return nil
}

// ParseTable decodes and validates a YAML transition table.
func ParseTable(contents []byte) (*Table, error) {
	var table Table
	if err := yaml.Unmarshal(contents, &table); err != nil {
		return nil, fmt.Errorf("%w: %v", MalformedTableError, err)
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &table, nil
}

func NewTableFromFile(yamlFile string) (*Table, error) {
	contents, err := os.ReadFile(yamlFile)
	if err != nil {
		return nil, err
	}
	return ParseTable(contents)
}

// NewTableMachine validates the `table` and creates a StateMachine in its starting state.
func NewTableMachine(table *Table, observer ObserverRef[TableState]) (*StateMachine[TableState], error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return New(table.Start(), observer), nil
}

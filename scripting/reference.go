/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package scripting ships the one concrete zdb.ScriptRuntime this
// repository provides. The store treats the embedded scripting runtime
// as an external collaborator and only fixes the marshalling contract;
// Reference supports just enough to exercise that contract end to end:
// named, typed Go functions registered ahead of time and resolved by
// name when "loaded".
package scripting

import (
	"fmt"

	zdb "github.com/clickingbuttons/zdb"
)

// Func is the Go-native stand-in for a compiled "scan" function: called
// once per yielded partition with that partition's typed arrays.
type Func func(args []zdb.ScriptArray) (interface{}, error)

// Param declares one parameter's name and element type for a registered
// Func, matching the shape of zdb.ScriptParam.
type Param struct {
	Name string
	Type zdb.ColumnType
}

type funcDef struct {
	params []Param
	fn     Func
}

// Reference is a zdb.ScriptRuntime backed by a registry of Go functions
// rather than an interpreter. "Loading a program" means looking up a
// previously Register-ed function by name.
type Reference struct {
	registry map[string]funcDef
	loaded   *funcDef
}

// NewReference returns an empty registry.
func NewReference() *Reference {
	return &Reference{registry: make(map[string]funcDef)}
}

// Register makes fn available to Load under name, with the parameter
// names/types a scan request's columns are checked against.
func (r *Reference) Register(name string, params []Param, fn Func) {
	r.registry[name] = funcDef{params: params, fn: fn}
}

// Load resolves program (a registered function name) as the active scan
// entry point.
func (r *Reference) Load(program string) error {
	def, ok := r.registry[program]
	if !ok {
		return fmt.Errorf("scripting: no registered scan function %q", program)
	}
	r.loaded = &def
	return nil
}

// ResolveScan returns the loaded function's declared parameters.
func (r *Reference) ResolveScan() ([]zdb.ScriptParam, error) {
	if r.loaded == nil {
		return nil, fmt.Errorf("scripting: no program loaded")
	}
	out := make([]zdb.ScriptParam, len(r.loaded.params))
	for i, p := range r.loaded.params {
		out[i] = zdb.ScriptParam{Name: p.Name, Type: p.Type}
	}
	return out, nil
}

// Invoke calls the loaded function with one partition's typed arrays.
func (r *Reference) Invoke(args []zdb.ScriptArray) (interface{}, error) {
	if r.loaded == nil {
		return nil, fmt.Errorf("scripting: no program loaded")
	}
	return r.loaded.fn(args)
}

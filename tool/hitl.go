// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tool

// ConfirmationCheck decides, given the call arguments, whether a
// Confirming tool actually needs to pause for confirmation (spec.md
// §4.4 "conditionally require confirmation based on the arguments").
// A nil check behaves like AlwaysConfirm.
type ConfirmationCheck func(args map[string]any) bool

// AlwaysConfirm is a ConfirmationCheck that always requires
// confirmation.
func AlwaysConfirm(map[string]any) bool { return true }

// Confirming wraps a Callable so invocation first raises an awaitable
// confirmation request (spec.md §4.4 "Scoped awaitable tools"). The
// actual suspend/resume mechanics belong to the executor and the
// toolloop package, which recognize this marker via AwaitableGate;
// this package only declares the decoration.
type Confirming struct {
	Callable
	Check ConfirmationCheck
}

// NeedsConfirmation reports whether invoking the wrapped tool with args
// should raise a confirmation awaitable before proceeding.
func (c *Confirming) NeedsConfirmation(args map[string]any) bool {
	if c.Check == nil {
		return AlwaysConfirm(args)
	}
	return c.Check(args)
}

// AwaitableGate is implemented by tool decorators that may need to
// suspend a call for external input before delegating to the wrapped
// tool (confirmation, or a typed value request). The toolloop package
// type-asserts for this interface around every Call.
type AwaitableGate interface {
	Callable
	NeedsConfirmation(args map[string]any) bool
}

var _ AwaitableGate = (*Confirming)(nil)

// TypedValueRequest wraps a Callable so invocation first raises an
// awaitable requesting a typed value from the user (spec.md §4.4
// "require a typed value from the user"); ValueKey names the
// blackboard binding the toolloop should read once the awaitable
// resolves, and pass into Callable.Call merged with the original args
// under that key.
type TypedValueRequest struct {
	Callable
	ValueKey string
}

// NeedsConfirmation is true for TypedValueRequest unless a value is
// already present in args under ValueKey: such a call pauses until the
// value is supplied.
func (t *TypedValueRequest) NeedsConfirmation(args map[string]any) bool {
	_, present := args[t.ValueKey]
	return !present
}

var _ AwaitableGate = (*TypedValueRequest)(nil)

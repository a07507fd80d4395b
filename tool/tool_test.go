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

import (
	"context"
	"testing"
)

type stubTool struct{ name string }

func (s *stubTool) Name() string                                             { return s.name }
func (s *stubTool) Description() string                                      { return "stub" }
func (s *stubTool) Schema() map[string]any                                   { return nil }
func (s *stubTool) Call(ctx context.Context, args map[string]any) (Result, error) { return Text("ok"), nil }

func TestRegistryWithDeduplicatesByName(t *testing.T) {
	r := NewRegistry(&stubTool{name: "a"}, &stubTool{name: "b"})
	next := r.With([]Tool{&stubTool{name: "a"}, &stubTool{name: "c"}}, []string{"b"})

	if _, ok := next.Get("b"); ok {
		t.Fatal("b should have been removed")
	}
	names := make(map[string]bool)
	for _, tl := range next.All() {
		names[tl.Name()] = true
	}
	if len(names) != 2 || !names["a"] || !names["c"] {
		t.Fatalf("unexpected tool set: %v", names)
	}
}

func TestRegistryWithLeavesReceiverUnmodified(t *testing.T) {
	r := NewRegistry(&stubTool{name: "a"})
	_ = r.With(nil, []string{"a"})

	if _, ok := r.Get("a"); !ok {
		t.Fatal("original registry must be unmodified")
	}
}

func TestConfirmingDefaultsToAlwaysConfirm(t *testing.T) {
	c := &Confirming{Callable: &stubTool{name: "danger"}}
	if !c.NeedsConfirmation(map[string]any{}) {
		t.Fatal("Confirming with nil Check must always confirm")
	}
}

func TestTypedValueRequestSkipsWhenPresent(t *testing.T) {
	tv := &TypedValueRequest{Callable: &stubTool{name: "ask"}, ValueKey: "amount"}
	if tv.NeedsConfirmation(map[string]any{"amount": 5}) {
		t.Fatal("should not need confirmation when value already present")
	}
	if !tv.NeedsConfirmation(map[string]any{}) {
		t.Fatal("should need confirmation when value absent")
	}
}

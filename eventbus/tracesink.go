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

package eventbus

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TraceSink opens one span per agent process (from ProcessCreated to
// ProcessFinished/Stuck) and records plan/action events as span
// events, mirroring the pkg/observability tracer wiring of
// otel around agent runs.
type TraceSink struct {
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[string]trace.Span
}

// NewTraceSink builds a TraceSink using the given tracer (typically
// otel.Tracer("agentcore")).
func NewTraceSink(tracer trace.Tracer) *TraceSink {
	return &TraceSink{tracer: tracer, spans: make(map[string]trace.Span)}
}

// Listen is the eventbus.Listener function.
func (s *TraceSink) Listen(e Event) {
	switch e.Kind {
	case KindProcessCreated:
		_, span := s.tracer.Start(context.Background(), "agent_process",
			trace.WithAttributes(attribute.String("process.id", e.ProcessID)))
		s.mu.Lock()
		s.spans[e.ProcessID] = span
		s.mu.Unlock()
	case KindProcessFinished, KindProcessStuck, KindEarlyTermination:
		s.mu.Lock()
		span, ok := s.spans[e.ProcessID]
		delete(s.spans, e.ProcessID)
		s.mu.Unlock()
		if ok {
			span.AddEvent(string(e.Kind))
			span.End()
		}
	default:
		s.mu.Lock()
		span, ok := s.spans[e.ProcessID]
		s.mu.Unlock()
		if ok {
			span.AddEvent(string(e.Kind))
		}
	}
}

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
	"github.com/prometheus/client_golang/prometheus"
)

// MetricSink is a Listener that records one counter per event Kind and
// a gauge tracking processes currently in flight, mirroring
// pkg/observability's Metrics component.
type MetricSink struct {
	eventsTotal     *prometheus.CounterVec
	processesActive prometheus.Gauge
	goalsAchieved   prometheus.Counter
	actionFailures  prometheus.Counter
}

// NewMetricSink registers its collectors on reg and returns a sink
// ready to subscribe to a Bus.
func NewMetricSink(reg prometheus.Registerer) (*MetricSink, error) {
	s := &MetricSink{
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agentcore_events_total",
			Help: "Count of agent process lifecycle events by kind.",
		}, []string{"kind"}),
		processesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agentcore_processes_active",
			Help: "Agent processes currently running or waiting.",
		}),
		goalsAchieved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentcore_goals_achieved_total",
			Help: "Count of agent processes that reached COMPLETED.",
		}),
		actionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentcore_action_failures_total",
			Help: "Count of action executions that ended FAILED.",
		}),
	}
	for _, c := range []prometheus.Collector{s.eventsTotal, s.processesActive, s.goalsAchieved, s.actionFailures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Listen is the eventbus.Listener function; subscribe it via Bus.Subscribe.
func (s *MetricSink) Listen(e Event) {
	s.eventsTotal.WithLabelValues(string(e.Kind)).Inc()
	switch e.Kind {
	case KindProcessCreated:
		s.processesActive.Inc()
	case KindProcessFinished:
		s.processesActive.Dec()
	case KindGoalAchieved:
		s.goalsAchieved.Inc()
	case KindActionResult:
		if res, ok := e.Payload.(ActionResultPayload); ok && !res.Succeeded {
			s.actionFailures.Inc()
		}
	}
}

// ActionResultPayload is the Payload shape for KindActionResult events.
type ActionResultPayload struct {
	ActionName string
	Succeeded  bool
	Message    string
	Attempt    int
}

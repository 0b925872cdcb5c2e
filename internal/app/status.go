package app

import (
	"github.com/iamrodrigodev/online-retail-vizualizacion/internal/domain/query"
	"github.com/iamrodrigodev/online-retail-vizualizacion/pkg/metrics"
)

// State is the load state of one chart.
type State string

// Chart states.
const (
	Idle    State = "idle"
	Loading State = "loading"
	Error   State = "error"
)

// ChartStatus is the state of one chart plus the error message in the
// Error state. Empty marks an idle chart showing the no-data indication.
type ChartStatus struct {
	State   State  `json:"state"`
	Message string `json:"message,omitempty"`
	Empty   bool   `json:"empty,omitempty"`
}

func (c *Controller) setState(kind query.ChartKind, s State, msg string) {
	c.status[kind] = ChartStatus{State: s, Message: msg}
	metrics.RecordChartState(string(kind), string(s))
}

func (c *Controller) setEmpty(kind query.ChartKind) {
	c.status[kind] = ChartStatus{State: Idle, Empty: true}
	metrics.RecordChartState(string(kind), string(Idle))
}

package dispatch

import (
	"fmt"

	"github.com/grovestate/promised/pkg/policy"
	"github.com/grovestate/promised/pkg/report"
	"github.com/grovestate/promised/pkg/scope"
)

// ReportsActuator converges a "reports" promise by publishing an Event
// through a report.Broker instead of changing any system state. The
// event's Message is the promiser, followed by "(logged to <file>)"
// when the promise sets report_to_file.
type ReportsActuator struct {
	Broker *report.Broker
}

// NewReportsActuator returns a ReportsActuator publishing through
// broker.
func NewReportsActuator(broker *report.Broker) *ReportsActuator {
	return &ReportsActuator{Broker: broker}
}

// Dispatch always reports Kept: publishing a report is itself the
// convergence, not a side effect of it, so there is no divergent state
// to repair.
func (a *ReportsActuator) Dispatch(p policy.Promise, _ *scope.Store) PromiseResult {
	message := p.Promiser
	if v, ok := p.AttrString("report_to_file"); ok {
		message = fmt.Sprintf("%s (logged to %s)", message, v)
	}

	a.Broker.Publish(&report.Event{
		Bundle:   p.Bundle,
		Promiser: p.Promiser,
		TypeName: p.TypeName,
		Result:   Kept.String(),
		Message:  message,
	})

	return Kept
}

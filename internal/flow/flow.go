// Package flow implements the configuration-driven data-binding engine: typed
// configurations are projected into flat data sets, merged with fetched
// account data, filtered by the server schema and published.
package flow

import (
	"fmt"
	"log/slog"

	"github.com/BTreeMap/PayFlow/internal/models"
)

// Target is what a projection is aimed at: the widget whose type prefixes the
// keys, and the risk-engine org id taken from the schema document.
type Target struct {
	Widget         models.WidgetType
	OrganizationID *string
}

// Projector builds the flat data set for one flow kind.
type Projector func(cfg models.FlowConfiguration, target Target) (models.FlatDataSet, error)

var registry = make(map[models.FlowKind]Projector)

// Register associates a FlowKind with a Projector implementation.
func Register(kind models.FlowKind, p Projector) {
	registry[kind] = p
}

// Get retrieves the Projector for a given FlowKind.
func Get(kind models.FlowKind) (Projector, bool) {
	p, ok := registry[kind]
	return p, ok
}

// Project finds and runs the Projector for kind.
func Project(kind models.FlowKind, cfg models.FlowConfiguration, target Target) (models.FlatDataSet, error) {
	slog.Debug("Flow Project invoked", "kind", kind, "widget", target.Widget)
	p, ok := Get(kind)
	if !ok {
		slog.Error("No projector registered for flow kind", "kind", kind)
		return nil, fmt.Errorf("%w: no projector registered for %s", models.ErrInvalidFlowKind, kind)
	}
	data, err := p(cfg, target)
	if err != nil {
		slog.Error("Flow projector error", "kind", kind, "error", err)
		return nil, err
	}
	slog.Debug("Flow Project succeeded", "kind", kind, "keys", len(data))
	return data, nil
}

// Register default projectors
func init() {
	Register(models.FlowKindCloseAccount, projectCloseAccount)
	Register(models.FlowKindManualEnrollment, projectManualEnrollment)
	Register(models.FlowKindUpdateEnrollment, projectUpdateEnrollment)
	Register(models.FlowKindAccountDetails, projectAccountDetails)
	Register(models.FlowKindDeposit, projectDeposit)
	Register(models.FlowKindAccountValidation, projectAccountValidation)
}

// Package modules contains the platform modules: self-contained units
// that each provision one concern of the trading platform and publish
// their resource identifiers through the output registry.
package modules

import (
	"github.com/rs/zerolog"

	"github.com/optstrat/infra/pkg/engine"
	"github.com/optstrat/infra/pkg/provision"
)

// All returns the full platform module set wired to the given
// provisioner. The declared dependencies, not slice order, decide
// execution order.
func All(p provision.Provisioner, logger zerolog.Logger) []engine.Module {
	return []engine.Module{
		NewNetworking(p, logger),
		NewSecurity(p, logger),
		NewIdentity(p, logger),
		NewConfiguration(logger),
		NewMonitoring(p, logger),
	}
}

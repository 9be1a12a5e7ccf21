//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/ajacobm/code-graph-mcp-sub002/infrastructure/config"
)

// InitializeContainer is the wire injector declaration. wire_gen.go is
// the hand-maintained equivalent of what `wire` would generate from
// this file; run `wire` here if ProviderSet grows beyond what's worth
// keeping in sync by hand.
func InitializeContainer(cfg *config.Config) (*Container, error) {
	wire.Build(ProviderSet)
	return nil, nil
}

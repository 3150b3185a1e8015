package gen

import (
	"fmt"

	"entitlement-controlplane/pkg/config"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

var Module = fx.Module("gen", fx.Provide(NewNode))

// NewNode returns the id generator of this replica. Replicas sharing a
// database must use distinct NODE_ID values.
func NewNode(cfg *config.Config) (*snowflake.Node, error) {
	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to init snowflake node %d: %w", cfg.NodeID, err)
	}
	return node, nil
}

// SPDX-License-Identifier: MPL-2.0

package content

type (
	// ResourceSpec is a tradeable material referenced by costs.
	ResourceSpec struct {
		ID          string  `mapstructure:"id" spec:"id,nonnull"`
		DisplayName string  `mapstructure:"display_name" spec:"level=everything" desc:"Name shown in the UI"`
		Icon        string  `mapstructure:"icon" spec:"level=everything"`
		Density     float64 `mapstructure:"density" spec:"min=0" desc:"Mass per unit"`
		StackSize   int     `mapstructure:"stack_size" spec:"min=1"`
	}

	// HardpointSpec is a mounting point on a block.
	HardpointSpec struct {
		Name      string `mapstructure:"name" spec:"nonnull"`
		Offset    Vec3   `mapstructure:"offset"`
		Direction Vec3   `mapstructure:"direction"`
		Size      int    `mapstructure:"size" spec:"min=1,max=4"`
	}

	// BlockSpec is one buildable vehicle block.
	BlockSpec struct {
		ID          string             `mapstructure:"id" spec:"id,nonnull"`
		DisplayName string             `mapstructure:"display_name" spec:"level=everything" desc:"Name shown in the UI"`
		MaxHealth   float64            `mapstructure:"max_health" spec:"min=0"`
		Mass        float64            `mapstructure:"mass" spec:"min=0"`
		Armor       float64            `mapstructure:"armor" spec:"level=strict,min=0,max=1" desc:"Fraction of damage absorbed"`
		Size        Vec3               `mapstructure:"size"`
		Shape       BlockShape         `mapstructure:"shape"`
		Cost        map[string]float64 `mapstructure:"cost" spec:"resources"`
		Tags        []string           `mapstructure:"tags"`
		Hardpoints  []HardpointSpec    `mapstructure:"hardpoints"`
		UpgradesTo  string             `mapstructure:"upgrades_to" spec:"ref=blocks"`
		Color       Color              `mapstructure:"color" spec:"level=everything"`
	}

	// ControlGroupSpec binds a set of blocks to an activation condition.
	ControlGroupSpec struct {
		ID          string        `mapstructure:"id" spec:"id,nonnull"`
		DisplayName string        `mapstructure:"display_name" spec:"level=everything"`
		Blocks      []string      `mapstructure:"blocks" spec:"ref=blocks"`
		Priority    int           `mapstructure:"priority" spec:"level=strict"`
		Condition   ConditionSpec `mapstructure:"condition"`
	}

	// RulesSpec holds match-wide settings. The "default" document is required.
	RulesSpec struct {
		ID                  string             `mapstructure:"id" spec:"id,nonnull"`
		StartingResources   map[string]float64 `mapstructure:"starting_resources" spec:"resources"`
		MaxBlocksPerVehicle int                `mapstructure:"max_blocks_per_vehicle" spec:"min=1"`
		Gravity             Vec3               `mapstructure:"gravity"`
		RespawnSeconds      float64            `mapstructure:"respawn_seconds" spec:"min=0"`
		FriendlyFire        bool               `mapstructure:"friendly_fire"`
		Motd                string             `mapstructure:"motd" spec:"level=everything" desc:"Message of the day"`
	}
)

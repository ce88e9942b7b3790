package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz         int `yaml:"tick_rate_hz"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`
	ShutdownGraceMs    int `yaml:"shutdown_grace_ms"`

	World     World     `yaml:"world"`
	Courtship Courtship `yaml:"courtship"`
	Walk      Walk      `yaml:"walk"`
	Habitat   Habitat   `yaml:"habitat"`
	Egg       Egg       `yaml:"egg"`
	Hatch     Hatch     `yaml:"hatch"`
}

// World holds host-side parameters: terrain, enclosure geometry, storage sizes
// and the default wandering behaviour of tethered creatures.
type World struct {
	MinY         int `yaml:"min_y"`
	MaxY         int `yaml:"max_y"`
	GroundY      int `yaml:"ground_y"`
	RoamRadius   int `yaml:"roam_radius"`
	MaxOccupants int `yaml:"max_occupants"`
	PartySize    int `yaml:"party_size"`
	PCCapacity   int `yaml:"pc_capacity"`

	EntitySpeed float64 `yaml:"entity_speed"` // blocks per tick at speed 1.0

	// WanderEveryTicks == 0 disables wandering entirely.
	WanderEveryTicks    int `yaml:"wander_every_ticks"`
	WanderChancePercent int `yaml:"wander_chance_percent"`
	ReturnBuffer        int `yaml:"return_buffer"`
}

type Courtship struct {
	TickThrottle            int     `yaml:"tick_throttle"`
	BaseDurationTicks       int     `yaml:"base_duration_ticks"`
	AmbientEffectEveryTicks int     `yaml:"ambient_effect_every_ticks"`
	WalkToMeetTicks         int     `yaml:"walk_to_meet_ticks"`
	WalkTimeoutExtraTicks   int     `yaml:"walk_timeout_extra_ticks"`
	StandTicks              int     `yaml:"stand_ticks"`
	JumpDelayTicks          int     `yaml:"jump_delay_ticks"`
	JumpCount               int     `yaml:"jump_count"`
	AffectionMaxDistance    float64 `yaml:"affection_max_distance"`
	LocatorMargin           float64 `yaml:"locator_margin"`
	MeetingSearchDepth      int     `yaml:"meeting_search_depth"`
}

type Walk struct {
	Speed              float64 `yaml:"speed"`
	ReachThreshold     float64 `yaml:"reach_threshold"`
	StuckLimitTicks    int     `yaml:"stuck_limit_ticks"`
	RetryEveryTicks    int     `yaml:"retry_every_ticks"`
	NavOwnershipRadius float64 `yaml:"nav_ownership_radius"`
}

type Habitat struct {
	Radius          int     `yaml:"radius"`
	Tier3Percent    int     `yaml:"tier3_percent"`
	Tier2Percent    int     `yaml:"tier2_percent"`
	Tier3Multiplier float64 `yaml:"tier3_multiplier"`
	Tier2Multiplier float64 `yaml:"tier2_multiplier"`
	Tier1Multiplier float64 `yaml:"tier1_multiplier"`
}

type Egg struct {
	SpeciesID            string  `yaml:"species_id"`
	StepsPerEggCycle     int     `yaml:"steps_per_egg_cycle"`
	DefaultEggCycles     int     `yaml:"default_egg_cycles"`
	ScaleReferenceHeight float64 `yaml:"scale_reference_height"`
	MinScale             float64 `yaml:"min_scale"`
	MaxScale             float64 `yaml:"max_scale"`
}

type Hatch struct {
	EveryTicks int `yaml:"every_ticks"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:         20,
		SnapshotEveryTicks: 6000,
		ShutdownGraceMs:    800,
		World: World{
			MinY:                -16,
			MaxY:                96,
			GroundY:             64,
			RoamRadius:          5,
			MaxOccupants:        16,
			PartySize:           6,
			PCCapacity:          30,
			EntitySpeed:         0.25,
			WanderEveryTicks:    100,
			WanderChancePercent: 30,
			ReturnBuffer:        2,
		},
		Courtship: Courtship{
			TickThrottle:            5,
			BaseDurationTicks:       2400,
			AmbientEffectEveryTicks: 40,
			WalkToMeetTicks:         100,
			WalkTimeoutExtraTicks:   600,
			StandTicks:              60,
			JumpDelayTicks:          15,
			JumpCount:               2,
			AffectionMaxDistance:    4,
			LocatorMargin:           1,
			MeetingSearchDepth:      5,
		},
		Walk: Walk{
			Speed:              1.0,
			ReachThreshold:     1.2,
			StuckLimitTicks:    60,
			RetryEveryTicks:    20,
			NavOwnershipRadius: 4,
		},
		Habitat: Habitat{
			Radius:          4,
			Tier3Percent:    75,
			Tier2Percent:    50,
			Tier3Multiplier: 0.50,
			Tier2Multiplier: 0.75,
			Tier1Multiplier: 1.0,
		},
		Egg: Egg{
			SpeciesID:            "egg",
			StepsPerEggCycle:     256,
			DefaultEggCycles:     10,
			ScaleReferenceHeight: 10,
			MinScale:             0.3,
			MaxScale:             1.2,
		},
		Hatch: Hatch{EveryTicks: 20},
	}
}

// Load reads a tuning file on top of Defaults, so a partial file only
// overrides the keys it names.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	return t, nil
}

// Normalize replaces non-positive or inverted values with defaults.
func (t *Tuning) Normalize() {
	d := Defaults()
	posInt := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}
	posFloat := func(v *float64, def float64) {
		if *v <= 0 {
			*v = def
		}
	}

	posInt(&t.TickRateHz, d.TickRateHz)
	posInt(&t.ShutdownGraceMs, d.ShutdownGraceMs)
	if t.SnapshotEveryTicks < 0 {
		t.SnapshotEveryTicks = 0
	}

	if t.World.MaxY <= t.World.MinY {
		t.World.MinY, t.World.MaxY = d.World.MinY, d.World.MaxY
	}
	if t.World.GroundY <= t.World.MinY || t.World.GroundY >= t.World.MaxY {
		t.World.GroundY = (t.World.MinY + t.World.MaxY) / 2
	}
	posInt(&t.World.RoamRadius, d.World.RoamRadius)
	posInt(&t.World.MaxOccupants, d.World.MaxOccupants)
	posInt(&t.World.PartySize, d.World.PartySize)
	posInt(&t.World.PCCapacity, d.World.PCCapacity)
	posFloat(&t.World.EntitySpeed, d.World.EntitySpeed)
	if t.World.WanderEveryTicks < 0 {
		t.World.WanderEveryTicks = 0
	}
	if t.World.WanderChancePercent < 0 || t.World.WanderChancePercent > 100 {
		t.World.WanderChancePercent = d.World.WanderChancePercent
	}
	if t.World.ReturnBuffer < 0 {
		t.World.ReturnBuffer = 0
	}

	c := &t.Courtship
	posInt(&c.TickThrottle, d.Courtship.TickThrottle)
	posInt(&c.BaseDurationTicks, d.Courtship.BaseDurationTicks)
	posInt(&c.AmbientEffectEveryTicks, d.Courtship.AmbientEffectEveryTicks)
	posInt(&c.WalkToMeetTicks, d.Courtship.WalkToMeetTicks)
	posInt(&c.WalkTimeoutExtraTicks, d.Courtship.WalkTimeoutExtraTicks)
	if c.StandTicks < 0 {
		c.StandTicks = 0
	}
	posInt(&c.JumpDelayTicks, d.Courtship.JumpDelayTicks)
	if c.JumpCount < 0 {
		c.JumpCount = 0
	}
	posFloat(&c.AffectionMaxDistance, d.Courtship.AffectionMaxDistance)
	if c.LocatorMargin < 0 {
		c.LocatorMargin = 0
	}
	posInt(&c.MeetingSearchDepth, d.Courtship.MeetingSearchDepth)

	posFloat(&t.Walk.Speed, d.Walk.Speed)
	posFloat(&t.Walk.ReachThreshold, d.Walk.ReachThreshold)
	posInt(&t.Walk.StuckLimitTicks, d.Walk.StuckLimitTicks)
	posInt(&t.Walk.RetryEveryTicks, d.Walk.RetryEveryTicks)
	posFloat(&t.Walk.NavOwnershipRadius, d.Walk.NavOwnershipRadius)

	h := &t.Habitat
	if h.Radius < 0 {
		h.Radius = d.Habitat.Radius
	}
	if h.Tier3Percent <= 0 || h.Tier3Percent > 100 {
		h.Tier3Percent = d.Habitat.Tier3Percent
	}
	if h.Tier2Percent <= 0 || h.Tier2Percent > h.Tier3Percent {
		h.Tier2Percent = d.Habitat.Tier2Percent
	}
	posFloat(&h.Tier3Multiplier, d.Habitat.Tier3Multiplier)
	posFloat(&h.Tier2Multiplier, d.Habitat.Tier2Multiplier)
	posFloat(&h.Tier1Multiplier, d.Habitat.Tier1Multiplier)

	e := &t.Egg
	if e.SpeciesID == "" {
		e.SpeciesID = d.Egg.SpeciesID
	}
	posInt(&e.StepsPerEggCycle, d.Egg.StepsPerEggCycle)
	posInt(&e.DefaultEggCycles, d.Egg.DefaultEggCycles)
	posFloat(&e.ScaleReferenceHeight, d.Egg.ScaleReferenceHeight)
	posFloat(&e.MinScale, d.Egg.MinScale)
	if e.MaxScale < e.MinScale {
		e.MinScale, e.MaxScale = d.Egg.MinScale, d.Egg.MaxScale
	}

	posInt(&t.Hatch.EveryTicks, d.Hatch.EveryTicks)
}

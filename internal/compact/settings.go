package compact

import (
	"fmt"
	"math"

	"github.com/hpungsan/condense/internal/errors"
)

// Mode selects the compaction strategy shape.
type Mode string

const (
	ModeUniform Mode = "uniform"
	ModeTiered  Mode = "tiered"
)

// Level is a compression level. The set is closed; unknown names map to
// LevelModerate wherever a level must be derived.
type Level string

const (
	LevelLight      Level = "light"
	LevelModerate   Level = "moderate"
	LevelAggressive Level = "aggressive"
)

// levelNumbers is the fixed filename encoding of compression levels.
var levelNumbers = map[Level]int{
	LevelLight:      1,
	LevelModerate:   2,
	LevelAggressive: 3,
}

// LevelNumber returns the small-integer filename encoding of a level.
// Unknown levels encode as moderate (2).
func LevelNumber(l Level) int {
	if n, ok := levelNumbers[l]; ok {
		return n
	}
	return levelNumbers[LevelModerate]
}

// LevelFromNumber is the inverse of LevelNumber. Unknown numbers decode
// as moderate.
func LevelFromNumber(n int) Level {
	for l, num := range levelNumbers {
		if num == n {
			return l
		}
	}
	return LevelModerate
}

// ValidLevel reports whether l names a recognized compression level.
func ValidLevel(l Level) bool {
	_, ok := levelNumbers[l]
	return ok
}

// TierPreset names a predefined tier layout for tiered mode.
type TierPreset string

const (
	PresetConservative TierPreset = "conservative"
	PresetBalanced     TierPreset = "balanced"
	PresetAggressive   TierPreset = "aggressive"
)

// Tier describes one slice of a tiered compaction: the oldest Portion of the
// input is compacted at Aggressiveness, and so on toward the newest messages.
type Tier struct {
	Name           string  `json:"name"`
	Portion        float64 `json:"portion"`
	Aggressiveness Level   `json:"aggressiveness"`
}

// PresetTiers returns the tier layout for a preset. Unknown presets fall back
// to the balanced layout.
func PresetTiers(p TierPreset) []Tier {
	switch p {
	case PresetConservative:
		return []Tier{
			{Name: "old", Portion: 0.5, Aggressiveness: LevelModerate},
			{Name: "recent", Portion: 0.5, Aggressiveness: LevelLight},
		}
	case PresetAggressive:
		return []Tier{
			{Name: "old", Portion: 0.6, Aggressiveness: LevelAggressive},
			{Name: "middle", Portion: 0.3, Aggressiveness: LevelModerate},
			{Name: "recent", Portion: 0.1, Aggressiveness: LevelLight},
		}
	default:
		return []Tier{
			{Name: "old", Portion: 0.4, Aggressiveness: LevelAggressive},
			{Name: "middle", Portion: 0.4, Aggressiveness: LevelModerate},
			{Name: "recent", Portion: 0.2, Aggressiveness: LevelLight},
		}
	}
}

// UniformSettings applies one aggressiveness across the whole input.
type UniformSettings struct {
	// CompactionRatio is the target output/input token ratio in (0, 1].
	CompactionRatio float64 `json:"compaction_ratio"`
	Aggressiveness  Level   `json:"aggressiveness"`
}

// TieredSettings splits the input into tiers with per-tier aggressiveness.
// Tiers overrides TierPreset when non-empty.
type TieredSettings struct {
	Tiers      []Tier     `json:"tiers,omitempty"`
	TierPreset TierPreset `json:"tier_preset,omitempty"`
}

// Settings is the tagged union of compaction configurations. Exactly the
// variant named by Mode must be populated.
type Settings struct {
	Mode    Mode             `json:"mode"`
	Uniform *UniformSettings `json:"uniform,omitempty"`
	Tiered  *TieredSettings  `json:"tiered,omitempty"`

	// Shared options
	Model                 string `json:"model,omitempty"`
	RemoveNonConversation bool   `json:"remove_non_conversation,omitempty"`
	SkipFirstMessages     int    `json:"skip_first_messages,omitempty"`
}

// DefaultUniform returns uniform settings with moderate aggressiveness.
func DefaultUniform() Settings {
	return Settings{
		Mode: ModeUniform,
		Uniform: &UniformSettings{
			CompactionRatio: 0.3,
			Aggressiveness:  LevelModerate,
		},
	}
}

// Validate checks the settings against the closed set of recognized options.
// Invalid settings must be rejected before any lock is taken.
func (s Settings) Validate() error {
	switch s.Mode {
	case ModeUniform:
		if s.Tiered != nil {
			return errors.NewInvalidSettings("uniform mode must not carry tiered settings")
		}
		if s.Uniform == nil {
			return errors.NewInvalidSettings("uniform mode requires uniform settings")
		}
		u := s.Uniform
		if u.CompactionRatio != 0 && (u.CompactionRatio <= 0 || u.CompactionRatio > 1 || math.IsNaN(u.CompactionRatio)) {
			return errors.NewInvalidSettings(fmt.Sprintf("compaction_ratio must be in (0, 1], got %v", u.CompactionRatio))
		}
		if u.Aggressiveness != "" && !ValidLevel(u.Aggressiveness) {
			return errors.NewInvalidSettings(fmt.Sprintf("aggressiveness must be one of: light, moderate, aggressive; got %q", u.Aggressiveness))
		}
	case ModeTiered:
		if s.Uniform != nil {
			return errors.NewInvalidSettings("tiered mode must not carry uniform settings")
		}
		if s.Tiered == nil {
			return errors.NewInvalidSettings("tiered mode requires tiered settings")
		}
		t := s.Tiered
		if len(t.Tiers) == 0 && t.TierPreset == "" {
			return errors.NewInvalidSettings("tiered mode requires tiers or tier_preset")
		}
		if t.TierPreset != "" {
			switch t.TierPreset {
			case PresetConservative, PresetBalanced, PresetAggressive:
			default:
				return errors.NewInvalidSettings(fmt.Sprintf("tier_preset must be one of: conservative, balanced, aggressive; got %q", t.TierPreset))
			}
		}
		if len(t.Tiers) > 0 {
			var sum float64
			for _, tier := range t.Tiers {
				if tier.Portion <= 0 || tier.Portion > 1 {
					return errors.NewInvalidSettings(fmt.Sprintf("tier %q portion must be in (0, 1], got %v", tier.Name, tier.Portion))
				}
				if !ValidLevel(tier.Aggressiveness) {
					return errors.NewInvalidSettings(fmt.Sprintf("tier %q aggressiveness must be one of: light, moderate, aggressive; got %q", tier.Name, tier.Aggressiveness))
				}
				sum += tier.Portion
			}
			if math.Abs(sum-1.0) > 0.001 {
				return errors.NewInvalidSettings(fmt.Sprintf("tier portions must sum to 1, got %v", sum))
			}
		}
	case "":
		return errors.NewInvalidSettings("mode is required (uniform or tiered)")
	default:
		return errors.NewInvalidSettings(fmt.Sprintf("mode must be one of: uniform, tiered; got %q", s.Mode))
	}

	if s.SkipFirstMessages < 0 {
		return errors.NewInvalidSettings("skip_first_messages must be non-negative")
	}
	return nil
}

// CompressionLevel derives the record-level compression level for the
// settings: the aggressiveness in uniform mode, the preset-equivalent level
// in tiered mode. Unrecognized values default to moderate.
func (s Settings) CompressionLevel() Level {
	switch s.Mode {
	case ModeUniform:
		if s.Uniform != nil && ValidLevel(s.Uniform.Aggressiveness) {
			return s.Uniform.Aggressiveness
		}
	case ModeTiered:
		if s.Tiered != nil {
			switch s.Tiered.TierPreset {
			case PresetConservative:
				return LevelLight
			case PresetAggressive:
				return LevelAggressive
			case PresetBalanced:
				return LevelModerate
			}
			// Custom tiers: take the dominant (largest-portion) tier's level.
			var best Tier
			for _, tier := range s.Tiered.Tiers {
				if tier.Portion > best.Portion {
					best = tier
				}
			}
			if ValidLevel(best.Aggressiveness) {
				return best.Aggressiveness
			}
		}
	}
	return LevelModerate
}

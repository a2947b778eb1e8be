package compact

import (
	"testing"

	"github.com/hpungsan/condense/internal/errors"
)

func TestValidate_DefaultUniform(t *testing.T) {
	if err := DefaultUniform().Validate(); err != nil {
		t.Fatalf("DefaultUniform().Validate() = %v", err)
	}
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name     string
		settings Settings
	}{
		{"missing mode", Settings{}},
		{"unknown mode", Settings{Mode: "extreme"}},
		{"uniform without settings", Settings{Mode: ModeUniform}},
		{"uniform with tiered payload", Settings{Mode: ModeUniform, Uniform: &UniformSettings{}, Tiered: &TieredSettings{TierPreset: PresetBalanced}}},
		{"ratio above 1", Settings{Mode: ModeUniform, Uniform: &UniformSettings{CompactionRatio: 1.5}}},
		{"negative ratio", Settings{Mode: ModeUniform, Uniform: &UniformSettings{CompactionRatio: -0.2}}},
		{"unknown aggressiveness", Settings{Mode: ModeUniform, Uniform: &UniformSettings{Aggressiveness: "brutal"}}},
		{"tiered without settings", Settings{Mode: ModeTiered}},
		{"tiered without preset or tiers", Settings{Mode: ModeTiered, Tiered: &TieredSettings{}}},
		{"unknown preset", Settings{Mode: ModeTiered, Tiered: &TieredSettings{TierPreset: "extreme"}}},
		{"tier portions not summing to 1", Settings{Mode: ModeTiered, Tiered: &TieredSettings{
			Tiers: []Tier{{Name: "a", Portion: 0.5, Aggressiveness: LevelLight}},
		}}},
		{"tier with bad aggressiveness", Settings{Mode: ModeTiered, Tiered: &TieredSettings{
			Tiers: []Tier{{Name: "a", Portion: 1, Aggressiveness: "brutal"}},
		}}},
		{"negative skip", Settings{Mode: ModeUniform, Uniform: &UniformSettings{}, SkipFirstMessages: -1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.settings.Validate()
			if !errors.Is(err, errors.ErrInvalidSettings) {
				t.Errorf("Validate() = %v, want INVALID_SETTINGS", err)
			}
		})
	}
}

func TestValidate_AcceptsCustomTiers(t *testing.T) {
	s := Settings{Mode: ModeTiered, Tiered: &TieredSettings{
		Tiers: []Tier{
			{Name: "old", Portion: 0.7, Aggressiveness: LevelAggressive},
			{Name: "recent", Portion: 0.3, Aggressiveness: LevelLight},
		},
	}}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestLevelNumber_RoundTrip(t *testing.T) {
	for _, level := range []Level{LevelLight, LevelModerate, LevelAggressive} {
		if got := LevelFromNumber(LevelNumber(level)); got != level {
			t.Errorf("round trip of %q = %q", level, got)
		}
	}
	if got := LevelNumber(Level("extreme")); got != 2 {
		t.Errorf("LevelNumber(unknown) = %d, want 2", got)
	}
	if got := LevelFromNumber(99); got != LevelModerate {
		t.Errorf("LevelFromNumber(99) = %q, want moderate", got)
	}
}

func TestCompressionLevel(t *testing.T) {
	cases := []struct {
		name     string
		settings Settings
		want     Level
	}{
		{"uniform aggressiveness", Settings{Mode: ModeUniform, Uniform: &UniformSettings{Aggressiveness: LevelAggressive}}, LevelAggressive},
		{"uniform default", Settings{Mode: ModeUniform, Uniform: &UniformSettings{}}, LevelModerate},
		{"tiered conservative preset", Settings{Mode: ModeTiered, Tiered: &TieredSettings{TierPreset: PresetConservative}}, LevelLight},
		{"tiered aggressive preset", Settings{Mode: ModeTiered, Tiered: &TieredSettings{TierPreset: PresetAggressive}}, LevelAggressive},
		{"tiered balanced preset", Settings{Mode: ModeTiered, Tiered: &TieredSettings{TierPreset: PresetBalanced}}, LevelModerate},
		{"tiered custom tiers uses dominant tier", Settings{Mode: ModeTiered, Tiered: &TieredSettings{
			Tiers: []Tier{
				{Name: "old", Portion: 0.8, Aggressiveness: LevelAggressive},
				{Name: "recent", Portion: 0.2, Aggressiveness: LevelLight},
			},
		}}, LevelAggressive},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.settings.CompressionLevel(); got != tc.want {
				t.Errorf("CompressionLevel() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPresetTiers_PortionsSumToOne(t *testing.T) {
	for _, preset := range []TierPreset{PresetConservative, PresetBalanced, PresetAggressive} {
		var sum float64
		for _, tier := range PresetTiers(preset) {
			sum += tier.Portion
		}
		if sum < 0.999 || sum > 1.001 {
			t.Errorf("preset %q portions sum to %v", preset, sum)
		}
	}
}

package planner

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timeplan-api/internal/models"
)

func TestResolveDefaults(t *testing.T) {
	r := NewRuleResolver()
	rules, active := r.Resolve(nil, nil)

	assert.True(t, rules.Bool(RuleStundenbedarfVollstaendig))
	assert.True(t, rules.Bool(RuleKeineLehrerkonflikte))
	assert.False(t, rules.Bool(RuleStundenbegrenzungErste))
	assert.Equal(t, 5, rules.Int(WeightGapsInside))
	assert.Equal(t, 3, rules.Int(TeacherGapsWeekMax))

	require.NotEmpty(t, active)
	assert.True(t, sort.StringsAreSorted(active))
	assert.Contains(t, active, RuleKeineKlassenkonflikte)
	assert.NotContains(t, active, RuleMittagsschuleVormittag)
}

func TestResolveProfileAndOverrideLayering(t *testing.T) {
	r := NewRuleResolver()

	profile := models.JSONMap{
		RuleGleichverteilung: false,
		WeightEvenDist:       7,
	}
	overrides := map[string]interface{}{
		RuleGleichverteilung: true,
		WeightGapsStart:      "9",
	}

	rules, _ := r.Resolve(profile, overrides)

	// Overrides win over the profile, which wins over defaults.
	assert.True(t, rules.Bool(RuleGleichverteilung))
	assert.Equal(t, 7, rules.Int(WeightEvenDist))
	assert.Equal(t, 9, rules.Int(WeightGapsStart))
}

func TestResolveCoercion(t *testing.T) {
	r := NewRuleResolver()

	rules, active := r.Resolve(models.JSONMap{
		RuleKeineHohlstunden:       "false",
		RuleDoppelstundenregel:     0,
		RuleBasisplanFixed:         "1",
		WeightTeacherGaps:          3.0,
		TeacherGapsDayMax:          "2",
		RuleMittagsschuleVormittag: "not-a-bool",
	}, nil)

	assert.False(t, rules.Bool(RuleKeineHohlstunden))
	assert.False(t, rules.Bool(RuleDoppelstundenregel))
	assert.True(t, rules.Bool(RuleBasisplanFixed))
	assert.Equal(t, 3, rules.Int(WeightTeacherGaps))
	assert.Equal(t, 2, rules.Int(TeacherGapsDayMax))
	// Uncoercible values keep the default.
	assert.False(t, rules.Bool(RuleMittagsschuleVormittag))
	assert.NotContains(t, active, RuleKeineHohlstunden)
}

func TestResolveLegacyBandAlias(t *testing.T) {
	r := NewRuleResolver()

	rules, _ := r.Resolve(models.JSONMap{RuleLesebandParallelLegacy: false}, nil)
	assert.False(t, rules.Bool(RuleBandstundenParallel))

	// A request-level legacy key overrides the profile's modern key.
	rules, _ = r.Resolve(
		models.JSONMap{RuleBandstundenParallel: false},
		map[string]interface{}{RuleLesebandParallelLegacy: "true"},
	)
	assert.True(t, rules.Bool(RuleBandstundenParallel))
}

func TestResolveUnknownKeysSurviveForSnapshot(t *testing.T) {
	r := NewRuleResolver()
	rules, _ := r.Resolve(nil, map[string]interface{}{"custom_flag": true})
	v, ok := rules["custom_flag"]
	require.True(t, ok)
	assert.Equal(t, true, v)
}

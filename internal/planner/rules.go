package planner

import (
	"sort"

	"github.com/noah-isme/timeplan-api/internal/models"
)

// Boolean rule keys.
const (
	RuleStundenbedarfVollstaendig = "stundenbedarf_vollstaendig"
	RuleKeineLehrerkonflikte      = "keine_lehrerkonflikte"
	RuleKeineKlassenkonflikte     = "keine_klassenkonflikte"
	RuleRaumVerfuegbarkeit        = "raum_verfuegbarkeit"
	RuleBasisplanFixed            = "basisplan_fixed"
	RuleBasisplanFlexible         = "basisplan_flexible"
	RuleBasisplanWindows          = "basisplan_windows"
	RuleStundenbegrenzung         = "stundenbegrenzung"
	RuleStundenbegrenzungErste    = "stundenbegrenzung_erste_stunde"
	RuleLehrerArbeitstage         = "lehrer_arbeitstage"
	RuleFachNachmittagRegeln      = "fach_nachmittag_regeln"
	RuleNachmittagPauseStunde     = "nachmittag_pause_stunde"
	RuleDoppelstundenregel        = "doppelstundenregel"
	RuleEinzelstundeNurRand       = "einzelstunde_nur_rand"
	RuleBandstundenParallel       = "bandstunden_parallel"
	RuleLesebandParallelLegacy    = "leseband_parallel"
	RuleBandLehrerParallel        = "band_lehrer_parallel"
	RuleMittagsschuleVormittag    = "mittagsschule_vormittag"
	RuleKeineHohlstunden          = "keine_hohlstunden"
	RuleKeineHohlstundenHard      = "keine_hohlstunden_hard"
	RuleLehrerHohlstundenSoft     = "lehrer_hohlstunden_soft"
	RuleGleichverteilung          = "gleichverteilung"
)

// Integer weight/limit keys.
const (
	WeightGapsStart    = "W_GAPS_START"
	WeightGapsInside   = "W_GAPS_INSIDE"
	WeightEvenDist     = "W_EVEN_DIST"
	WeightEinzelKann   = "W_EINZEL_KANN"
	WeightEinzelSoll   = "W_EINZEL_SOLL"
	WeightBandOptional = "W_BAND_OPTIONAL"
	WeightTeacherGaps  = "W_TEACHER_GAPS"
	TeacherGapsDayMax  = "TEACHER_GAPS_DAY_MAX"
	TeacherGapsWeekMax = "TEACHER_GAPS_WEEK_MAX"
)

// defaultRules returns the built-in defaults every resolution starts from.
func defaultRules() models.EffectiveRules {
	return models.EffectiveRules{
		RuleStundenbedarfVollstaendig: true,
		RuleKeineLehrerkonflikte:      true,
		RuleKeineKlassenkonflikte:     true,
		RuleRaumVerfuegbarkeit:        true,
		RuleBasisplanFixed:            true,
		RuleBasisplanFlexible:         true,
		RuleBasisplanWindows:          true,
		RuleStundenbegrenzung:         true,
		RuleStundenbegrenzungErste:    false,
		RuleLehrerArbeitstage:         true,
		RuleFachNachmittagRegeln:      true,
		RuleNachmittagPauseStunde:     false,
		RuleDoppelstundenregel:        true,
		RuleEinzelstundeNurRand:       false,
		RuleBandstundenParallel:       true,
		RuleBandLehrerParallel:        true,
		RuleMittagsschuleVormittag:    false,
		RuleKeineHohlstunden:          true,
		RuleKeineHohlstundenHard:      false,
		RuleLehrerHohlstundenSoft:     true,
		RuleGleichverteilung:          true,

		WeightGapsStart:    3,
		WeightGapsInside:   5,
		WeightEvenDist:     1,
		WeightEinzelKann:   2,
		WeightEinzelSoll:   4,
		WeightBandOptional: 3,
		WeightTeacherGaps:  2,
		TeacherGapsDayMax:  1,
		TeacherGapsWeekMax: 3,
	}
}

// boolKeys and intKeys classify every recognised rule key, used to decide
// how to coerce a loosely-typed profile/override value.
var boolKeys = map[string]bool{
	RuleStundenbedarfVollstaendig: true,
	RuleKeineLehrerkonflikte:      true,
	RuleKeineKlassenkonflikte:     true,
	RuleRaumVerfuegbarkeit:        true,
	RuleBasisplanFixed:            true,
	RuleBasisplanFlexible:         true,
	RuleBasisplanWindows:          true,
	RuleStundenbegrenzung:         true,
	RuleStundenbegrenzungErste:    true,
	RuleLehrerArbeitstage:         true,
	RuleFachNachmittagRegeln:      true,
	RuleNachmittagPauseStunde:     true,
	RuleDoppelstundenregel:        true,
	RuleEinzelstundeNurRand:       true,
	RuleBandstundenParallel:       true,
	RuleBandLehrerParallel:        true,
	RuleMittagsschuleVormittag:    true,
	RuleKeineHohlstunden:          true,
	RuleKeineHohlstundenHard:      true,
	RuleLehrerHohlstundenSoft:     true,
	RuleGleichverteilung:          true,
}

var intKeys = map[string]bool{
	WeightGapsStart:    true,
	WeightGapsInside:   true,
	WeightEvenDist:     true,
	WeightEinzelKann:   true,
	WeightEinzelSoll:   true,
	WeightBandOptional: true,
	WeightTeacherGaps:  true,
	TeacherGapsDayMax:  true,
	TeacherGapsWeekMax: true,
}

// RuleResolver produces the effective rule map.
type RuleResolver struct{}

// NewRuleResolver constructs a RuleResolver.
func NewRuleResolver() *RuleResolver { return &RuleResolver{} }

// Resolve produces the effective rule map: defaults, overlaid by profile,
// overlaid by request-level overrides, with type coercion and the
// `leseband_parallel` → `bandstunden_parallel` alias mirrored at both
// overlay stages.
func (r *RuleResolver) Resolve(profile models.JSONMap, overrides map[string]interface{}) (models.EffectiveRules, []string) {
	rules := defaultRules()

	overlay(rules, profile)
	mirrorLegacyAlias(rules, profile)

	overlay(rules, overrides)
	mirrorLegacyAlias(rules, overrides)

	active := make([]string, 0, len(boolKeys))
	for key := range boolKeys {
		if rules.Bool(key) {
			active = append(active, key)
		}
	}
	sort.Strings(active)

	return rules, active
}

func overlay(rules models.EffectiveRules, src map[string]interface{}) {
	for key, raw := range src {
		if boolKeys[key] {
			if b, ok := coerceBool(raw); ok {
				rules[key] = b
			}
			continue
		}
		if intKeys[key] {
			if n, ok := coerceInt(raw); ok {
				rules[key] = n
			}
			continue
		}
		// Unknown keys are carried through unchanged so they still appear
		// in the reproducibility snapshot.
		rules[key] = raw
	}
}

func mirrorLegacyAlias(rules models.EffectiveRules, src map[string]interface{}) {
	if raw, ok := src[RuleLesebandParallelLegacy]; ok {
		if b, ok := coerceBool(raw); ok {
			rules[RuleBandstundenParallel] = b
			rules[RuleLesebandParallelLegacy] = b
		}
	}
}

// coerceBool accepts bool, string ("true"/"false"/"1"/"0"), and numeric
// inputs, falling back to "not coercible" rather than panicking.
func coerceBool(raw interface{}) (bool, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		switch v {
		case "true", "1", "yes", "on":
			return true, true
		case "false", "0", "no", "off", "":
			return false, true
		}
		return false, false
	case int:
		return v != 0, true
	case int64:
		return v != 0, true
	case float64:
		return v != 0, true
	default:
		return false, false
	}
}

// coerceInt accepts int/int64/float64 and numeric strings.
func coerceInt(raw interface{}) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		var n int
		var seen bool
		neg := false
		for i, ch := range v {
			if i == 0 && ch == '-' {
				neg = true
				continue
			}
			if ch < '0' || ch > '9' {
				return 0, false
			}
			n = n*10 + int(ch-'0')
			seen = true
		}
		if !seen {
			return 0, false
		}
		if neg {
			n = -n
		}
		return n, true
	default:
		return 0, false
	}
}

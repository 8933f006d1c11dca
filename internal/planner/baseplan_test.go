package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/timeplan-api/pkg/errors"
)

func testRows() []RequirementRow {
	return []RequirementRow{
		{FID: 0, ClassID: "c1", ClassName: "1A", SubjectID: "s-mathe", SubjectName: "Mathe", TeacherID: "t1", WeeklyHours: 2},
		{FID: 1, ClassID: "c1", ClassName: "1A", SubjectID: "s-mathe", SubjectName: "Mathe", TeacherID: "t2", WeeklyHours: 2},
		{FID: 2, ClassID: "c2", ClassName: "1B", SubjectID: "s-deutsch", SubjectName: "Deutsch", TeacherID: "t1", WeeklyHours: 3},
	}
}

func TestParseEmptyDocument(t *testing.T) {
	p := NewBasePlanParser()
	ctx, err := p.ParseJSON(nil, testRows(), map[string]string{"c1": "1A", "c2": "1B"})
	require.NoError(t, err)

	assert.Equal(t, 1, ctx.SlotsPerDay)
	assert.Empty(t, ctx.PauseSlots)
	assert.Empty(t, ctx.FixedSlotMap)
	assert.Empty(t, ctx.FlexibleGroups)
	require.Len(t, ctx.SlotsMeta, 1)
	assert.Equal(t, "1. Stunde", ctx.SlotsMeta[0].Label)
}

func TestParseMetaSlotsAndPauses(t *testing.T) {
	doc := []byte(`{"meta":{"slots":[
		{"label":"1. Stunde"},
		{"label":"2. Stunde"},
		{"label":"Pause","is_pause":true},
		{}
	]}}`)

	p := NewBasePlanParser()
	ctx, err := p.ParseJSON(doc, testRows(), map[string]string{"c1": "1A"})
	require.NoError(t, err)

	assert.Equal(t, 4, ctx.SlotsPerDay)
	assert.Equal(t, map[int]bool{2: true}, ctx.PauseSlots)
	assert.Equal(t, "Pause", ctx.SlotsMeta[2].Label)
	// A missing label defaults to the numbered form.
	assert.Equal(t, "4. Stunde", ctx.SlotsMeta[3].Label)
}

func TestParseExpandsSlotsPerDayFromReferences(t *testing.T) {
	doc := []byte(`{"fixed":{"c1":[{"subject_id":"s-mathe","day_key":"mon","slot_index":7}]}}`)

	p := NewBasePlanParser()
	ctx, err := p.ParseJSON(doc, testRows(), map[string]string{"c1": "1A"})
	require.NoError(t, err)

	assert.Equal(t, 8, ctx.SlotsPerDay)
	assert.True(t, ctx.FixedSlotMap[0]["Mo"][7])
}

func TestParseRoomAndClassWindows(t *testing.T) {
	doc := []byte(`{
		"meta":{"slots":[{},{},{},{}]},
		"rooms":{"r1":{"allowed":{"mon":[true,false]}}},
		"classes":{"c1":{"allowed":{"tue":[false,true,true]}}}
	}`)

	p := NewBasePlanParser()
	ctx, err := p.ParseJSON(doc, testRows(), map[string]string{"c1": "1A"})
	require.NoError(t, err)

	// Shorter arrays pad with true, missing days default to all-true.
	assert.Equal(t, []bool{true, false, true, true}, ctx.RoomPlan["r1"]["Mo"])
	assert.Equal(t, []bool{true, true, true, true}, ctx.RoomPlan["r1"]["Di"])

	windows := ctx.ClassWindowsByName["1A"]
	assert.Equal(t, []bool{false, true, true, true}, windows["Di"])
	assert.Equal(t, []bool{true, true, true, true}, windows["Fr"])
}

func TestParseFixedFirstFitAcrossRequirements(t *testing.T) {
	// Three pins for (1A, Mathe): fid 0 has quota 2, fid 1 takes the third.
	doc := []byte(`{"fixed":{"c1":[
		{"subject_id":"s-mathe","day_key":"mon","slot_index":0},
		{"subject_id":"s-mathe","day_key":"tue","slot_index":1},
		{"subject_id":"s-mathe","day_key":"wed","slot_index":2}
	]}}`)

	p := NewBasePlanParser()
	ctx, err := p.ParseJSON(doc, testRows(), map[string]string{"c1": "1A"})
	require.NoError(t, err)

	assert.True(t, ctx.FixedSlotMap[0]["Mo"][0])
	assert.True(t, ctx.FixedSlotMap[0]["Di"][1])
	assert.True(t, ctx.FixedSlotMap[1]["Mi"][2])

	lookup := ctx.ClassFixedLookup["1A"]
	assert.True(t, lookup["Mo"][0])
	assert.True(t, lookup["Di"][1])
	assert.True(t, lookup["Mi"][2])
}

func TestParseFixedOverflow(t *testing.T) {
	// Five pins against a summed quota of four.
	doc := []byte(`{"fixed":{"c1":[
		{"subject_id":"s-mathe","day_key":"mon","slot_index":0},
		{"subject_id":"s-mathe","day_key":"mon","slot_index":1},
		{"subject_id":"s-mathe","day_key":"tue","slot_index":0},
		{"subject_id":"s-mathe","day_key":"tue","slot_index":1},
		{"subject_id":"s-mathe","day_key":"wed","slot_index":0}
	]}}`)

	p := NewBasePlanParser()
	_, err := p.ParseJSON(doc, testRows(), map[string]string{"c1": "1A"})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrBasePlanOverflow.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "1A")
	assert.Contains(t, appErr.Message, "Mathe")
}

func TestParseFlexibleGroupsSortedAndLookedUp(t *testing.T) {
	doc := []byte(`{"flexible":{"c2":[
		{"subject_id":"s-deutsch","slots":[
			{"day_key":"fri","slot_index":1},
			{"day_key":"mon","slot_index":3},
			{"day_key":"mon","slot_index":0}
		]}
	]}}`)

	p := NewBasePlanParser()
	ctx, err := p.ParseJSON(doc, testRows(), map[string]string{"c2": "1B"})
	require.NoError(t, err)

	require.Len(t, ctx.FlexibleGroups, 1)
	g := ctx.FlexibleGroups[0]
	assert.Equal(t, 2, g.FID)
	assert.Equal(t, []SlotKey{{Day: "Mo", Period: 0}, {Day: "Mo", Period: 3}, {Day: "Fr", Period: 1}}, g.Slots)

	assert.True(t, ctx.FlexibleSlotLookup["1B"]["Mo"][0][2])
	assert.True(t, ctx.FlexibleSlotLimits["1B"]["Fr"][1][2])
}

func TestParseUnknownDayKeyIgnored(t *testing.T) {
	doc := []byte(`{"fixed":{"c1":[{"subject_id":"s-mathe","day_key":"sat","slot_index":0}]}}`)

	p := NewBasePlanParser()
	ctx, err := p.ParseJSON(doc, testRows(), map[string]string{"c1": "1A"})
	require.NoError(t, err)
	assert.Empty(t, ctx.FixedSlotMap)
}

func TestParseMalformedJSONIsConfigError(t *testing.T) {
	p := NewBasePlanParser()
	_, err := p.ParseJSON([]byte("{not json"), testRows(), nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConfigInvalid.Code, appErrors.FromError(err).Code)
}

package planner

import (
	"encoding/json"
	"fmt"
	"sort"

	appErrors "github.com/noah-isme/timeplan-api/pkg/errors"
)

// BasePlanDocument is the JSON shape of a base-plan document.
type BasePlanDocument struct {
	Meta struct {
		Slots []SlotMeta `json:"slots"`
	} `json:"meta"`
	Classes  map[string]WindowEntry    `json:"classes"`
	Rooms    map[string]WindowEntry    `json:"rooms"`
	Fixed    map[string][]FixedEntry   `json:"fixed"`
	Flexible map[string][]FlexGroupRaw `json:"flexible"`
}

// WindowEntry is a day→bool[] availability matrix attached to a class or room.
type WindowEntry struct {
	Allowed map[string][]bool `json:"allowed"`
}

// FixedEntry pins one requirement's subject to a concrete (day, period).
type FixedEntry struct {
	SubjectID string `json:"subject_id"`
	DayKey    string `json:"day_key"`
	SlotIndex int    `json:"slot_index"`
}

// FlexGroupRaw is one flexible-slot candidate group as submitted.
type FlexGroupRaw struct {
	SubjectID string          `json:"subject_id"`
	Slots     []FlexSlotEntry `json:"slots"`
}

// FlexSlotEntry is one candidate (day, period) pair within a flexible group.
type FlexSlotEntry struct {
	DayKey    string `json:"day_key"`
	SlotIndex int    `json:"slot_index"`
}

// SlotKey is a (day tag, period) pair.
type SlotKey struct {
	Day    string
	Period int
}

// FlexibleGroup is one parsed flexible group: the requirement it was
// allocated to, and its sorted candidate slot set.
type FlexibleGroup struct {
	FID   int
	Slots []SlotKey
}

// BasePlanContext is the parser's output: everything the model builder and
// decoder need to know about the base plan.
type BasePlanContext struct {
	RoomPlan           map[string]map[string][]bool // roomID -> day tag -> []bool(period)
	ClassWindowsByName map[string]map[string][]bool // className -> day tag -> []bool(period)

	// ClassFixedLookup[className][day] is the set of periods pinned for
	// that class/day, used by the decoder's is_fixed flag.
	ClassFixedLookup map[string]map[string]map[int]bool

	// FlexibleSlotLookup[className][day][period] is the set of fids whose
	// flexible group includes that cell, used by the decoder's is_flexible
	// flag.
	FlexibleSlotLookup map[string]map[string]map[int]map[int]bool

	// FlexibleSlotLimits mirrors FlexibleSlotLookup. Neither the builder nor
	// the decoder reads it: the builder restricts support from
	// FlexibleGroups, and the decoder reads provenance from
	// FlexibleSlotLookup.
	FlexibleSlotLimits map[string]map[string]map[int]map[int]bool

	FlexibleGroups []FlexibleGroup

	// FixedSlotMap[fid][day] is the set of periods pinned for that fid.
	FixedSlotMap map[int]map[string]map[int]bool

	SlotsPerDay int
	PauseSlots  map[int]bool
	SlotsMeta   []SlotMeta
}

// BasePlanParser interprets base-plan documents.
type BasePlanParser struct{}

// NewBasePlanParser constructs a BasePlanParser.
func NewBasePlanParser() *BasePlanParser { return &BasePlanParser{} }

// ParseJSON unmarshals raw JSON (or treats nil/empty as the default empty
// document) and parses it.
func (p *BasePlanParser) ParseJSON(raw []byte, rows []RequirementRow, classNameByID map[string]string) (*BasePlanContext, error) {
	doc := &BasePlanDocument{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, doc); err != nil {
			return nil, appErrors.Clone(appErrors.ErrConfigInvalid, "Basisplan-Dokument konnte nicht gelesen werden")
		}
	}
	return p.Parse(doc, rows, classNameByID)
}

// Parse interprets the base-plan document into a typed BasePlanContext.
// All sub-objects are tolerant to missing/malformed input (they default to
// empty); only fixed/flexible overflow aborts parsing.
func (p *BasePlanParser) Parse(doc *BasePlanDocument, rows []RequirementRow, classNameByID map[string]string) (*BasePlanContext, error) {
	if doc == nil {
		doc = &BasePlanDocument{}
	}

	slotsPerDay := p.computeSlotsPerDay(doc)

	ctx := &BasePlanContext{
		RoomPlan:           make(map[string]map[string][]bool),
		ClassWindowsByName: make(map[string]map[string][]bool),
		ClassFixedLookup:   make(map[string]map[string]map[int]bool),
		FlexibleSlotLookup: make(map[string]map[string]map[int]map[int]bool),
		FlexibleSlotLimits: make(map[string]map[string]map[int]map[int]bool),
		FixedSlotMap:       make(map[int]map[string]map[int]bool),
		PauseSlots:         make(map[int]bool),
		SlotsPerDay:        slotsPerDay,
	}

	// Step 2: slots_meta + pause_slots.
	ctx.SlotsMeta = make([]SlotMeta, slotsPerDay)
	for i := 0; i < slotsPerDay; i++ {
		if i < len(doc.Meta.Slots) {
			m := doc.Meta.Slots[i]
			m.Index = i
			if m.Label == "" {
				m.Label = fmt.Sprintf("%d. Stunde", i+1)
			}
			ctx.SlotsMeta[i] = m
		} else {
			ctx.SlotsMeta[i] = SlotMeta{Index: i, Label: fmt.Sprintf("%d. Stunde", i+1)}
		}
		if ctx.SlotsMeta[i].IsPause {
			ctx.PauseSlots[i] = true
		}
	}

	// Step 1: rooms.
	for roomID, entry := range doc.Rooms {
		ctx.RoomPlan[roomID] = expandWindow(entry.Allowed, slotsPerDay)
	}

	// Step 3: classes.
	for classKey, entry := range doc.Classes {
		name := resolveClassName(classKey, classNameByID)
		ctx.ClassWindowsByName[name] = expandWindow(entry.Allowed, slotsPerDay)
	}

	// Index requirement rows by (class_name, subject_id) for the picker.
	type quota struct {
		fids      []int
		remaining map[int]int
	}
	byClassSubject := make(map[string]*quota)
	keyFor := func(className, subjectID string) string { return className + "\x00" + subjectID }
	for _, r := range rows {
		k := keyFor(r.ClassName, r.SubjectID)
		q, ok := byClassSubject[k]
		if !ok {
			q = &quota{remaining: make(map[int]int)}
			byClassSubject[k] = q
		}
		q.fids = append(q.fids, r.FID)
		q.remaining[r.FID] = r.WeeklyHours
	}

	pick := func(className, subjectID string) (int, bool) {
		q, ok := byClassSubject[keyFor(className, subjectID)]
		if !ok {
			return 0, false
		}
		for _, fid := range q.fids {
			if q.remaining[fid] > 0 {
				q.remaining[fid]--
				return fid, true
			}
		}
		return 0, false
	}

	subjectNameByID := make(map[string]string, len(rows))
	for _, r := range rows {
		subjectNameByID[r.SubjectID] = r.SubjectName
	}
	subjectLabel := func(id string) string {
		if name, ok := subjectNameByID[id]; ok && name != "" {
			return name
		}
		return id
	}

	var overflow []string

	// Step 4: fixed.
	fixedKeys := sortedKeys(doc.Fixed)
	for _, classKey := range fixedKeys {
		className := resolveClassName(classKey, classNameByID)
		for _, entry := range doc.Fixed[classKey] {
			day := dayKeyToTag[entry.DayKey]
			if day == "" {
				continue
			}
			fid, ok := pick(className, entry.SubjectID)
			if !ok {
				overflow = append(overflow, fmt.Sprintf("%s/%s", className, subjectLabel(entry.SubjectID)))
				continue
			}
			addFixed(ctx, fid, className, day, entry.SlotIndex)
		}
	}

	// Step 5: flexible.
	flexKeys := sortedKeys(doc.Flexible)
	for _, classKey := range flexKeys {
		className := resolveClassName(classKey, classNameByID)
		for _, group := range doc.Flexible[classKey] {
			fid, ok := pick(className, group.SubjectID)
			if !ok {
				overflow = append(overflow, fmt.Sprintf("%s/%s", className, subjectLabel(group.SubjectID)))
				continue
			}
			slots := make([]SlotKey, 0, len(group.Slots))
			for _, s := range group.Slots {
				day := dayKeyToTag[s.DayKey]
				if day == "" {
					continue
				}
				slots = append(slots, SlotKey{Day: day, Period: s.SlotIndex})
			}
			sort.Slice(slots, func(i, j int) bool {
				if slots[i].Day != slots[j].Day {
					return dayIndex(slots[i].Day) < dayIndex(slots[j].Day)
				}
				return slots[i].Period < slots[j].Period
			})
			ctx.FlexibleGroups = append(ctx.FlexibleGroups, FlexibleGroup{FID: fid, Slots: slots})
			for _, s := range slots {
				addFlexible(ctx, fid, className, s.Day, s.Period)
			}
		}
	}

	if len(overflow) > 0 {
		return nil, appErrors.Clone(appErrors.ErrBasePlanOverflow,
			fmt.Sprintf("zu viele fixe/flexible Zuordnungen für: %v", overflow))
	}

	return ctx, nil
}

func (p *BasePlanParser) computeSlotsPerDay(doc *BasePlanDocument) int {
	s := len(doc.Meta.Slots)
	bump := func(idx int) {
		if idx+1 > s {
			s = idx + 1
		}
	}
	for _, w := range doc.Rooms {
		for _, arr := range w.Allowed {
			bump(len(arr) - 1)
		}
	}
	for _, w := range doc.Classes {
		for _, arr := range w.Allowed {
			bump(len(arr) - 1)
		}
	}
	for _, entries := range doc.Fixed {
		for _, e := range entries {
			bump(e.SlotIndex)
		}
	}
	for _, groups := range doc.Flexible {
		for _, g := range groups {
			for _, s := range g.Slots {
				bump(s.SlotIndex)
			}
		}
	}
	if s < 1 {
		s = 1
	}
	return s
}

func expandWindow(allowed map[string][]bool, slotsPerDay int) map[string][]bool {
	out := make(map[string][]bool, len(CanonicalDays))
	for _, day := range CanonicalDays {
		arr, ok := findDayArray(allowed, day)
		mask := make([]bool, slotsPerDay)
		for i := range mask {
			if !ok {
				mask[i] = true
				continue
			}
			if i < len(arr) {
				mask[i] = arr[i]
			} else {
				mask[i] = true
			}
		}
		out[day] = mask
	}
	return out
}

// findDayArray looks up a day's raw array, accepting either the canonical
// tag (Mo, Di, ...) or the loose input key (mon, tue, ...) as the map key.
func findDayArray(allowed map[string][]bool, tag string) ([]bool, bool) {
	if arr, ok := allowed[tag]; ok {
		return arr, true
	}
	for key, canon := range dayKeyToTag {
		if canon == tag {
			if arr, ok := allowed[key]; ok {
				return arr, true
			}
		}
	}
	return nil, false
}

func resolveClassName(key string, classNameByID map[string]string) string {
	if name, ok := classNameByID[key]; ok {
		return name
	}
	return key
}

func addFixed(ctx *BasePlanContext, fid int, className, day string, period int) {
	if ctx.FixedSlotMap[fid] == nil {
		ctx.FixedSlotMap[fid] = make(map[string]map[int]bool)
	}
	if ctx.FixedSlotMap[fid][day] == nil {
		ctx.FixedSlotMap[fid][day] = make(map[int]bool)
	}
	ctx.FixedSlotMap[fid][day][period] = true

	if ctx.ClassFixedLookup[className] == nil {
		ctx.ClassFixedLookup[className] = make(map[string]map[int]bool)
	}
	if ctx.ClassFixedLookup[className][day] == nil {
		ctx.ClassFixedLookup[className][day] = make(map[int]bool)
	}
	ctx.ClassFixedLookup[className][day][period] = true
}

func addFlexible(ctx *BasePlanContext, fid int, className, day string, period int) {
	if ctx.FlexibleSlotLookup[className] == nil {
		ctx.FlexibleSlotLookup[className] = make(map[string]map[int]map[int]bool)
	}
	if ctx.FlexibleSlotLookup[className][day] == nil {
		ctx.FlexibleSlotLookup[className][day] = make(map[int]map[int]bool)
	}
	if ctx.FlexibleSlotLookup[className][day][period] == nil {
		ctx.FlexibleSlotLookup[className][day][period] = make(map[int]bool)
	}
	ctx.FlexibleSlotLookup[className][day][period][fid] = true

	if ctx.FlexibleSlotLimits[className] == nil {
		ctx.FlexibleSlotLimits[className] = make(map[string]map[int]map[int]bool)
	}
	if ctx.FlexibleSlotLimits[className][day] == nil {
		ctx.FlexibleSlotLimits[className][day] = make(map[int]map[int]bool)
	}
	if ctx.FlexibleSlotLimits[className][day][period] == nil {
		ctx.FlexibleSlotLimits[className][day][period] = make(map[int]bool)
	}
	ctx.FlexibleSlotLimits[className][day][period][fid] = true
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

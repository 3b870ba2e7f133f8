package schedule

import (
	"encoding/json"
	"strconv"
	"time"

	"worksched/internal/graph"
	"worksched/internal/model"
	"worksched/internal/wallclock"
)

func occurrenceFromEntity(e graph.Entity) (model.Occurrence, bool) {
	start := wallclock.ParseInstantIn(stringProp(e.Properties, PropStart), nil)
	end := wallclock.ParseInstantIn(stringProp(e.Properties, PropEnd), nil)
	if !start.Valid() || !end.Valid() {
		return model.Occurrence{}, false
	}
	return model.Occurrence{Start: start, End: end}, true
}

func checkInFromEntity(e graph.Entity, loc *time.Location) (model.CheckIn, bool) {
	start := wallclock.ParseInstantIn(stringProp(e.Properties, PropStart), loc)
	h, ok := floatProp(e.Properties, PropHoursWorked)
	if !start.Valid() || !ok || h < 0 {
		return model.CheckIn{}, false
	}
	return model.CheckIn{Start: start, HoursWorked: h}, true
}

func stringProp(props map[string]any, key string) string {
	s, _ := props[key].(string)
	return s
}

// floatProp reads a number that may have arrived as a JSON number, a Go
// numeric type from the in-memory store, or a numeric string.
func floatProp(props map[string]any, key string) (float64, bool) {
	switch v := props[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

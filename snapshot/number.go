package snapshot

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

func asUint(v any) (uint64, error) {
	switch x := v.(type) {
	case json.Number:
		return strconv.ParseUint(string(x), 10, 64)
	case uint64:
		return x, nil
	case uint32:
		return uint64(x), nil
	case uint:
		return uint64(x), nil
	case int:
		if x >= 0 {
			return uint64(x), nil
		}
	case int64:
		if x >= 0 {
			return uint64(x), nil
		}
	case float64:
		if x >= 0 && x == math.Trunc(x) && x < math.MaxUint64 {
			return uint64(x), nil
		}
	}
	return 0, fmt.Errorf("%v (%T) is not an unsigned integer", v, v)
}

func asFloat(v any) (float64, error) {
	switch x := v.(type) {
	case json.Number:
		return x.Float64()
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	}
	return 0, fmt.Errorf("%v (%T) is not a number", v, v)
}

package helper

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	om "github.com/cevaris/ordered_map"
)

// OrderedMapValuesToStringSlice returns the values of m in insertion order.
// Values that are not strings cause an error.
func OrderedMapValuesToStringSlice(m *om.OrderedMap) ([]string, error) {
	l := make([]string, 0, m.Len())
	iter := m.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() {
		s, isStr := kv.Value.(string)
		if !isStr {
			return nil, fmt.Errorf("ordered map value for key %v is not a string", kv.Key)
		}
		l = append(l, s)
	}
	return l, nil
}

// OrderedMapKeysToStringSlice returns the keys of m in insertion order.
func OrderedMapKeysToStringSlice(m *om.OrderedMap) ([]string, error) {
	l := make([]string, 0, m.Len())
	iter := m.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() {
		s, isStr := kv.Key.(string)
		if !isStr {
			return nil, fmt.Errorf("ordered map key %v is not a string", kv.Key)
		}
		l = append(l, s)
	}
	return l, nil
}

// OrderedMapToTokens converts an ordered map of strings to "key1:value1,key2:value2".
func OrderedMapToTokens(m *om.OrderedMap) string {
	b := strings.Builder{}
	iter := m.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() {
		b.WriteString(fmt.Sprintf(",%v:%v", kv.Key, kv.Value))
	}
	return strings.TrimLeft(b.String(), ",")
}

// InterfaceToString converts a row of database values to strings for output.
// Whole floats are written without an exponent and NULL becomes an empty string.
func InterfaceToString(src []interface{}) []string {
	retval := make([]string, len(src))
	for i, v := range src {
		switch x := v.(type) {
		case nil:
			retval[i] = ""
		case float64:
			if x == float64(int64(x)) {
				retval[i] = strconv.FormatInt(int64(x), 10)
			} else {
				retval[i] = strconv.FormatFloat(x, 'g', -1, 64)
			}
		case []uint8:
			retval[i] = string(x)
		case time.Time:
			retval[i] = x.Format(time.RFC3339)
		default:
			retval[i] = fmt.Sprint(v)
		}
	}
	return retval
}

package normalizer

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Formatos de fecha que el backend usa en la práctica
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// asObject devuelve raw como objeto JSON si lo es
func asObject(raw any) (map[string]any, bool) {
	obj, ok := raw.(map[string]any)
	return obj, ok && obj != nil
}

// isAbsent equivale a "nullish": la clave no existe o vale null
func isAbsent(v any) bool {
	return v == nil
}

// toString convierte escalares a texto. nil se convierte en "".
func toString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

// scalarText convierte strings, números y booleanos a texto no vacío. Objetos,
// arreglos y null no cuentan.
func scalarText(v any) (string, bool) {
	switch v.(type) {
	case string, float64, float32, int, int64, json.Number, bool:
		s := toString(v)
		return s, s != ""
	default:
		return "", false
	}
}

// truthy replica la noción de verdad de JSON laxo: null, false, 0, NaN y ""
// son falsos; todo lo demás es verdadero.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0 && !math.IsNaN(val)
	case int:
		return val != 0
	case json.Number:
		f, err := val.Float64()
		return err == nil && f != 0
	default:
		return true
	}
}

// toNumber interpreta v como número. Los strings numéricos se aceptan.
func toNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// positiveInt devuelve la parte entera de v cuando es finita y mayor a cero
func positiveInt(v any) (int, bool) {
	f, ok := toNumber(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	n := int(math.Trunc(f))
	if n <= 0 {
		return 0, false
	}
	return n, true
}

// numericID acepta solo valores numéricos de JSON, no strings
func numericID(v any) (int, bool) {
	switch v.(type) {
	case float64, float32, int, int64, json.Number:
		return positiveInt(v)
	default:
		return 0, false
	}
}

// parseDate acepta strings en los formatos conocidos y epoch en milisegundos
func parseDate(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, !val.IsZero()
	case string:
		s := strings.TrimSpace(val)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	case float64, int, int64, json.Number:
		ms, ok := toNumber(val)
		if !ok || math.IsNaN(ms) || math.IsInf(ms, 0) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(ms)).UTC(), true
	default:
		return time.Time{}, false
	}
}

package normalizer

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"catalogsync/internal/model"
)

// materialTerms are matched against lowercased attribute names.
var materialTerms = []string{"material", "composición", "metal", "tipo"}

// materialKeywords are scanned in order over the lowercased descriptions;
// the first hit wins.
var materialKeywords = []struct {
	keyword  string
	material string
}{
	{"oro", "Oro"},
	{"plata", "Plata"},
	{"acero", "Acero Inoxidable"},
	{"titanio", "Titanio"},
}

var timestampLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp reads an ISO-8601 timestamp. A trailing Z means UTC and
// values without an offset are taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z") + "+00:00"
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// extractPrice takes the first truthy of price, regular_price, sale_price.
func extractPrice(raw model.RawItem) (float64, error) {
	for _, key := range []string{"price", "regular_price", "sale_price"} {
		v := raw[key]
		if !truthy(v) {
			continue
		}

		f, err := toFloat(v)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
		}
		return f, nil
	}

	return 0, nil
}

func extractStock(raw model.RawItem) (int, error) {
	v, ok := raw["stock_quantity"]
	if !ok || v == nil {
		return 0, nil
	}

	n, err := toInt(v)
	if err != nil {
		return 0, fmt.Errorf("%w: stock_quantity: %v", ErrMalformed, err)
	}
	return n, nil
}

// joinNames joins the name of every object in the list under key. An absent
// or empty list yields fallback; any other non-list value is malformed.
func joinNames(raw model.RawItem, key, fallback string) (string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return fallback, nil
	}

	items, ok := v.([]any)
	if !ok {
		return "", fmt.Errorf("%w: %s is %T, not a list", ErrMalformed, key, v)
	}
	if len(items) == 0 {
		return fallback, nil
	}

	return itemNames(key, items)
}

// extractCategories only reads categories given as a list; anything else
// counts as no category.
func extractCategories(raw model.RawItem) (string, error) {
	items, ok := raw["categories"].([]any)
	if !ok || len(items) == 0 {
		return noCategory, nil
	}

	return itemNames("categories", items)
}

func itemNames(key string, items []any) (string, error) {
	names := make([]string, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return "", fmt.Errorf("%w: %s[%d] is %T, not an object", ErrMalformed, key, i, item)
		}
		names = append(names, text(obj, "name", ""))
	}

	return strings.Join(names, ", "), nil
}

func extractMaterial(raw model.RawItem) (string, error) {
	if attrs, ok := raw["attributes"].([]any); ok {
		for i, a := range attrs {
			attr, ok := a.(map[string]any)
			if !ok {
				return "", fmt.Errorf("%w: attributes[%d] is %T, not an object", ErrMalformed, i, a)
			}

			name := strings.ToLower(text(attr, "name", ""))
			if !containsAny(name, materialTerms) {
				continue
			}

			options, _ := attr["options"].([]any)
			if len(options) == 0 {
				continue
			}

			values := make([]string, 0, len(options))
			for _, o := range options {
				values = append(values, stringify(o))
			}
			return strings.Join(values, ", "), nil
		}
	}

	desc := strings.ToLower(text(raw, "description", "") + text(raw, "short_description", ""))
	for _, kw := range materialKeywords {
		if strings.Contains(desc, kw.keyword) {
			return kw.material, nil
		}
	}

	return noMaterial, nil
}

func firstImage(raw model.RawItem) (string, error) {
	images, ok := raw["images"].([]any)
	if !ok || len(images) == 0 {
		return "", nil
	}

	img, ok := images[0].(map[string]any)
	if !ok {
		return "", fmt.Errorf("%w: images[0] is %T, not an object", ErrMalformed, images[0])
	}

	return text(img, "src", ""), nil
}

// identifier returns v as text, or fallback when v is missing, empty or the
// literal "None".
func identifier(v any, fallback string) string {
	if v == nil {
		return fallback
	}

	s := stringify(v)
	if isPlaceholderText(s) {
		return fallback
	}
	return s
}

func text(obj map[string]any, key, fallback string) string {
	v, ok := obj[key]
	if !ok || v == nil {
		return fallback
	}
	return stringify(v)
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func object(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func list(v any) []any {
	if l, ok := v.([]any); ok {
		return l
	}
	return []any{}
}

func flag(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(t)
		return b
	default:
		return false
	}
}

// truthy follows the loose rules store payloads rely on: missing, null,
// empty string, zero and false are all "not set". The string "0" is set.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// toFloat accepts finite numbers only.
func toFloat(v any) (float64, error) {
	f, err := parseFloat(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number: %v", v)
	}
	return f, nil
}

func parseFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

// toInt truncates numeric values and accepts integral strings only.
func toInt(v any) (int, error) {
	switch t := v.(type) {
	case float64:
		return truncate(t)
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return 0, err
		}
		return truncate(f)
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.Atoi(strings.TrimSpace(t))
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func truncate(f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number: %v", f)
	}
	return int(f), nil
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

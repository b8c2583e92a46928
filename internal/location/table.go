package location

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Table is the province -> district -> municipalities lookup.
type Table struct {
	provinces map[string]map[string][]string
}

// ParseTable decodes the storefront location document. The third level is
// either a list of names or an object whose values are flattened.
func ParseTable(raw json.RawMessage) (*Table, error) {
	var doc map[string]map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}

	t := &Table{provinces: make(map[string]map[string][]string, len(doc))}
	for province, districts := range doc {
		t.provinces[province] = make(map[string][]string, len(districts))
		for district, third := range districts {
			names, err := flatten(third)
			if err != nil {
				return nil, fmt.Errorf("%w: %s/%s: %v", ErrInvalidTable, province, district, err)
			}
			t.provinces[province][district] = names
		}
	}
	return t, nil
}

func flatten(raw json.RawMessage) ([]string, error) {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []string
	for _, k := range keys {
		var name string
		if err := json.Unmarshal(obj[k], &name); err == nil {
			out = append(out, name)
			continue
		}
		nested, err := flatten(obj[k])
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return out, nil
}

func (t *Table) Provinces() []string {
	return sortedKeys(t.provinces)
}

func (t *Table) Districts(province string) []string {
	return sortedKeys(t.provinces[province])
}

func (t *Table) Municipalities(province, district string) []string {
	names := t.provinces[province][district]
	out := make([]string, len(names))
	copy(out, names)
	return out
}

func (t *Table) hasProvince(province string) bool {
	_, ok := t.provinces[province]
	return ok
}

func (t *Table) hasDistrict(province, district string) bool {
	_, ok := t.provinces[province][district]
	return ok
}

func (t *Table) hasMunicipality(province, district, municipality string) bool {
	for _, m := range t.provinces[province][district] {
		if m == municipality {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package models

import "sort"

type Parameter struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ParamsFromMap converts a flat map into parameters ordered by key.
func ParamsFromMap(m map[string]string) []Parameter {
	params := make([]Parameter, 0, len(m))
	for _, k := range sortedKeys(m) {
		params = append(params, Parameter{Key: k, Value: m[k]})
	}
	return params
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

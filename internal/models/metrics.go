package models

import "time"

type Metric struct {
	Key       string    `json:"key"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Step      int64     `json:"step"`
}

// MetricsAt stamps every value with the same time and step, ordered by key.
func MetricsAt(values map[string]float64, ts time.Time, step int64) []Metric {
	metrics := make([]Metric, 0, len(values))
	for _, k := range sortedKeys(values) {
		metrics = append(metrics, Metric{Key: k, Value: values[k], Timestamp: ts, Step: step})
	}
	return metrics
}

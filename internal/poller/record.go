package poller

// Record is a single row returned by the hosted table.
//
// The table's schema is not known statically, so a row is an open mapping
// from field name to a JSON-compatible value (string, float64, bool, nil,
// nested maps and slices as decoded from JSON). The only field with any
// meaning to this system is "uuid", which serves as a stable render key.
type Record map[string]any

// Key returns the record's "uuid" field when it is a string, or "" when the
// field is missing or has a non-string value. Callers that need a guaranteed
// unique key must supply their own fallback.
func (r Record) Key() string {
	if v, ok := r["uuid"].(string); ok {
		return v
	}
	return ""
}

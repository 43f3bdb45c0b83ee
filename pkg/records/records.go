// Package records defines the record type flowing through the pipeline.
package records

// Record is one row of a dataset keyed by column name. Values are the typed
// results of schema-driven casting: string, float64, time.Time, or nil for
// empty castable fields.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	cp := make(Record, len(r))
	for k, v := range r {
		cp[k] = v
	}
	return cp
}

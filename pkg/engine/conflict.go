package engine

// FieldConflict records a disagreement between two rows for the same user id.
// Resolution is always "first_wins": lookups use the first row.
type FieldConflict struct {
	Field      string `json:"field"`
	FirstValue string `json:"firstValue"`
	LaterValue string `json:"laterValue"`
	Resolution string `json:"resolution"`
}

// DetectConflicts compares the derived fields of two rows sharing a user id.
// Compared fields: group, status, validTo, lastLogon.
func DetectConflicts(first, later User) []FieldConflict {
	var conflicts []FieldConflict
	compare := func(field, a, b string) {
		if a != b {
			conflicts = append(conflicts, FieldConflict{
				Field:      field,
				FirstValue: a,
				LaterValue: b,
				Resolution: "first_wins",
			})
		}
	}
	compare("group", first.Group, later.Group)
	compare("status", string(first.Status), string(later.Status))
	compare("validTo", first.ValidTo, later.ValidTo)
	compare("lastLogon", first.LastLogon, later.LastLogon)
	return conflicts
}

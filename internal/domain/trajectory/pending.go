package trajectory

import "fmt"

// DebtEvaluator computes which subjects a student still owes.
type DebtEvaluator struct {
	schema *Schema
}

// NewDebtEvaluator creates an evaluator over the given schema.
func NewDebtEvaluator(schema *Schema) *DebtEvaluator {
	return &DebtEvaluator{schema: schema}
}

// ComputePending returns the labels of subjects owed as of throughYear, in
// year order then schema order. Subjects from earlier years carry a " (y°)"
// suffix. The result is never nil.
//
// A year whose area grade (rec of notaArea) is 7 or more owes nothing. Inside
// other years, a subject whose rec is 7 or more is cleared; otherwise it is
// owed when any of c1, c2, rec or closure.approved is "E/C" or "EN CURSO".
// Years missing from the schema or from the trajectory are skipped, and no
// year after LastYear is visited.
func (e *DebtEvaluator) ComputePending(s Student, throughYear SchoolYear) []string {
	pending := make([]string, 0)
	seen := make(map[string]struct{})

	for y := FirstYear; y <= min(throughYear, LastYear); y++ {
		subjects, ok := e.schema.years[y]
		if !ok {
			continue
		}
		rec, ok := s.Trajectory[y]
		if !ok {
			continue
		}
		if rec[AreaKey].Rec.Clears() {
			continue
		}

		for _, sub := range subjects {
			if sub.IsArea() {
				continue
			}
			mark := rec[sub.Key]
			if mark.Rec.Clears() {
				continue
			}
			if !mark.HasInProgress() {
				continue
			}

			label := sub.Label
			if y < throughYear {
				label = fmt.Sprintf("%s (%d°)", sub.Label, int(y))
			}
			if _, dup := seen[label]; dup {
				continue
			}
			seen[label] = struct{}{}
			pending = append(pending, label)
		}
	}
	return pending
}

// YearCleared reports whether the area grade of year y clears the whole year.
func (e *DebtEvaluator) YearCleared(s Student, y SchoolYear) bool {
	return s.Trajectory.Mark(y, AreaKey).Rec.Clears()
}

// Package trajectory contains the domain model of the student trajectory
// archive: a five-year record of grades per student and the rules that
// decide which subjects a student still owes.
//
// The package defines:
//
//   - Value objects: SchoolYear, Grade, Approval, HeaderField, Tone
//   - Entities: Student, Trajectory, YearRecord, SubjectMark
//   - Collection: the immutable list of students with copy-on-write mutations
//   - DebtEvaluator: the pending-subject computation
//   - Reconcile and CandidateAdmitter: merging externally produced records
//   - Store: the persistence contract
//
// # Pending subjects
//
// The evaluator walks years 1..N. The area grade of a year (rec of
// notaArea) at 7 or above clears the whole year; otherwise each subject is
// checked on its own:
//
//	eval := trajectory.NewDebtEvaluator(trajectory.DefaultSchema())
//	pending := eval.ComputePending(student, 3)
//	// ["HISTORIA (1°)", "E.I.C.S.yH."]
//
// # Reconciliation
//
// Records produced by the interpreter are admitted first, then merged by
// DNI or id:
//
//	candidate, err := admitter.Admit(raw)
//	if err != nil {
//	    return err // no update
//	}
//	res := trajectory.Reconcile(candidate, coll, trajectory.UUIDGenerator{})
//
// Every Collection method returns a new value. Existing snapshots are never
// modified, so they can be shared between goroutines without locking.
package trajectory

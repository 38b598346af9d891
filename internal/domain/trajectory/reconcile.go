package trajectory

import "github.com/google/uuid"

// IDGenerator produces student identifiers.
type IDGenerator interface {
	NewID() string
}

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func() string

// NewID implements IDGenerator.
func (f IDGeneratorFunc) NewID() string { return f() }

// UUIDGenerator returns random UUIDv4 identifiers.
type UUIDGenerator struct{}

// NewID implements IDGenerator.
func (UUIDGenerator) NewID() string { return uuid.NewString() }

// ReconcileResult describes the outcome of Reconcile.
type ReconcileResult struct {
	Collection Collection
	Student    Student
	Inserted   bool
}

// Reconcile merges candidate into the collection.
//
// The first student whose DNI equals candidate.DNI, or whose id equals
// candidate.ID, is replaced by the candidate, keeping the existing id. When
// no student matches, the candidate is appended under a fresh id that is not
// already in use. The candidate's own id is never trusted for insertion.
func Reconcile(candidate Student, c Collection, ids IDGenerator) ReconcileResult {
	for i := range c {
		if c[i].DNI == candidate.DNI || c[i].ID == candidate.ID {
			merged := candidate
			merged.ID = c[i].ID
			return ReconcileResult{
				Collection: c.replaceAt(i, merged),
				Student:    merged,
				Inserted:   false,
			}
		}
	}

	inserted := candidate
	inserted.ID = freshID(c, ids)
	return ReconcileResult{
		Collection: c.Add(inserted),
		Student:    inserted,
		Inserted:   true,
	}
}

// freshID draws ids until one is unused in c.
func freshID(c Collection, ids IDGenerator) string {
	for {
		id := ids.NewID()
		if id != "" && !c.HasID(id) {
			return id
		}
	}
}

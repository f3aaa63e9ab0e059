// Package perm is the permission oracle: a pure mapping from a node kind and
// the owning chart's lifecycle status to what mutations are allowed. Once a
// chart leaves draft its structure is frozen; narrative fields and staffing
// stay editable.
package perm

import "orgline/internal/domain"

// Decision is the permission record for one (kind, status) pair.
// A nil UpdatableFields means every field may be updated.
type Decision struct {
	CanCreate       bool
	CanRead         bool
	CanUpdate       bool
	CanDelete       bool
	UpdatableFields []string
}

// FieldAllowed reports whether the named field may be updated under this
// decision. Field names follow the JSON wire names of the entity.
func (d Decision) FieldAllowed(name string) bool {
	if !d.CanUpdate {
		return false
	}
	if d.UpdatableFields == nil {
		return true
	}
	for _, f := range d.UpdatableFields {
		if f == name {
			return true
		}
	}
	return false
}

var departmentNarrative = []string{"charter", "description"}
var positionNarrative = []string{"job_description", "description"}

// For returns the permission decision for a node kind under a chart status.
// Unknown statuses deny everything but read.
func For(kind, status string) Decision {
	switch kind {
	case domain.KindOrgChart:
		if status == domain.StatusDraft {
			return Decision{CanCreate: true, CanRead: true, CanUpdate: true}
		}
		return Decision{CanRead: true}
	case domain.KindDepartment:
		if status == domain.StatusDraft {
			return Decision{CanCreate: true, CanRead: true, CanUpdate: true, CanDelete: true}
		}
		if frozen(status) {
			return Decision{CanRead: true, CanUpdate: true, UpdatableFields: departmentNarrative}
		}
	case domain.KindPosition:
		if status == domain.StatusDraft {
			return Decision{CanCreate: true, CanRead: true, CanUpdate: true, CanDelete: true}
		}
		if frozen(status) {
			return Decision{CanRead: true, CanUpdate: true, UpdatableFields: positionNarrative}
		}
	case domain.KindAppointment:
		// Staffing stays fully mutable in every status: people join and
		// leave positions regardless of chart approval state.
		if status == domain.StatusDraft || frozen(status) {
			return Decision{CanCreate: true, CanRead: true, CanUpdate: true, CanDelete: true}
		}
	}
	return Decision{CanRead: true}
}

func frozen(status string) bool {
	switch status {
	case domain.StatusPendingApproval, domain.StatusApproved, domain.StatusRevoked:
		return true
	}
	return false
}

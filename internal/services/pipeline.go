package services

import (
	"fmt"
	"strings"

	"farmfi-backend/internal/apperr"
	"farmfi-backend/internal/models"
)

// transition validates an approval action for the caller's role against the
// record's current status and returns the change to apply.
//
//	verify:  employee, pending           -> employee_verified
//	approve: admin,    employee_verified -> admin_approved
//	reject:  employee|admin, pending|employee_verified -> rejected
//
// Rejection clears the verified flag so the owner can correct and resubmit.
func transition(action string, actor models.Identity, current, reason string) (models.StatusChange, error) {
	switch action {
	case models.ActionVerify:
		if actor.Role != models.RoleEmployee {
			return models.StatusChange{}, apperr.Forbidden("only employees can verify")
		}
		if current != models.StatusPending {
			return models.StatusChange{}, illegal(action, current)
		}
		return models.StatusChange{Status: models.StatusEmployeeVerified, Verified: true}, nil

	case models.ActionApprove:
		if actor.Role != models.RoleAdmin {
			return models.StatusChange{}, apperr.Forbidden("only admins can approve")
		}
		if current != models.StatusEmployeeVerified {
			return models.StatusChange{}, illegal(action, current)
		}
		return models.StatusChange{Status: models.StatusAdminApproved, Verified: true, Approved: true}, nil

	case models.ActionReject:
		if !actor.IsStaff() {
			return models.StatusChange{}, apperr.Forbidden("only employees and admins can reject")
		}
		if current != models.StatusPending && current != models.StatusEmployeeVerified {
			return models.StatusChange{}, illegal(action, current)
		}
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return models.StatusChange{}, apperr.Validation("rejection reason is required")
		}
		return models.StatusChange{Status: models.StatusRejected, Verified: false, Reason: reason}, nil
	}
	return models.StatusChange{}, apperr.Validation(fmt.Sprintf("unknown action %q", action))
}

func illegal(action, current string) error {
	return apperr.Conflict(fmt.Sprintf("cannot %s a record in status %s", action, current))
}

func approvalLog(entity string, id int, action, from string, change models.StatusChange, actor models.Identity) *models.ApprovalLog {
	return &models.ApprovalLog{
		EntityType: entity,
		EntityID:   id,
		Action:     action,
		FromStatus: from,
		ToStatus:   change.Status,
		ActorRole:  actor.Role,
		ActorID:    actor.ID,
		Reason:     change.Reason,
	}
}

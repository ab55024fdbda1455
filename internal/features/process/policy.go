package process

import (
	"slices"

	"go-bpm/internal/common/apperr"
	"go-bpm/internal/common/models"
	"go-bpm/internal/metrics"
)

type Action string

const (
	ActionRead         Action = "read"
	ActionCreate       Action = "create"
	ActionEdit         Action = "edit"
	ActionDelete       Action = "delete"
	ActionToggleVerify Action = "toggle_verify"
)

const (
	msgNotPermitted = "You are not permitted to %s this process"
	msgVerified     = "Process is verified; unverify it before editing"
)

// Authorize decides whether actor may perform action on p. p is nil for
// ActionCreate. Permission is checked before the verified lock, so a
// stranger is told "not permitted" even on a verified process.
func Authorize(actor *models.Actor, p *Process, action Action) error {
	err := authorize(actor, p, action)
	if err != nil {
		metrics.AuthorizationDenials.WithLabelValues(string(actor.Kind), string(action)).Inc()
	}
	return err
}

func authorize(actor *models.Actor, p *Process, action Action) error {
	if action == ActionCreate {
		if actor.Kind == models.ActorOwner || actor.Kind == models.ActorEmployee {
			return nil
		}
		return apperr.Forbidden("Only business accounts and employees can create processes")
	}

	if !canSee(actor, p) {
		return apperr.Forbidden(msgNotPermitted, verb(action))
	}

	switch action {
	case ActionRead:
		return nil

	case ActionEdit:
		switch actor.Kind {
		case models.ActorAdmin, models.ActorSupport:
			return nil
		case models.ActorEmployee:
			if !slices.Contains(p.Owners, actor.ID()) {
				return apperr.Forbidden(msgNotPermitted, verb(action))
			}
		}
		if p.IsVerified {
			return apperr.Forbidden(msgVerified)
		}
		return nil

	case ActionDelete, ActionToggleVerify:
		if actor.Kind == models.ActorOwner && p.Creator == actor.ID() {
			return nil
		}
		return apperr.Forbidden(msgNotPermitted, verb(action))
	}

	return apperr.Forbidden(msgNotPermitted, verb(action))
}

// canSee is the read scope of each actor kind.
func canSee(actor *models.Actor, p *Process) bool {
	switch actor.Kind {
	case models.ActorOwner:
		return p.Creator == actor.ID()
	case models.ActorEmployee:
		return p.Creator == actor.Employee.BusinessID && slices.Contains(p.Owners, actor.ID())
	case models.ActorAdmin:
		return true
	case models.ActorSupport:
		return actor.CanAccessTenant(p.Creator)
	}
	return false
}

func verb(a Action) string {
	switch a {
	case ActionRead:
		return "view"
	case ActionToggleVerify:
		return "verify"
	}
	return string(a)
}

// LogsEdit reports whether an edit by actor is recorded in the process log.
// Admin and Support edits are not.
func LogsEdit(actor *models.Actor) bool {
	return !actor.IsPrivileged()
}

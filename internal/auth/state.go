package auth

import "github.com/memberwell/memberwell-backend/internal/models"

// MemberState is the explicit account state derived from the stored
// completion-flag quadruple. Handlers and the frontend switch on this single
// discriminant; the four booleans exist only at the storage boundary.
type MemberState string

const (
	// StateNewAccount: first login not completed, password is still the
	// member number. The UI lands on the change-password screen.
	StateNewAccount MemberState = "new_account"
	// StateReset: the password was reset back to a pre-change state after
	// the first login already happened; a new password must be chosen.
	StateReset MemberState = "reset"
	// StatePendingProfile: password chosen, profile/registration not done.
	StatePendingProfile MemberState = "pending_profile"
	// StateActive: fully onboarded.
	StateActive MemberState = "active"
)

// StateFromFlags translates the stored quadruple into a MemberState. Not all
// sixteen combinations are meaningful; the precedence here resolves the
// reachable ones.
func StateFromFlags(f models.CompletionFlags) MemberState {
	if !f.PasswordChanged {
		if f.FirstTimeLogin {
			return StateNewAccount
		}
		return StateReset
	}
	if !f.ProfileCompleted || !f.RegistrationCompleted {
		return StatePendingProfile
	}
	return StateActive
}

// FlagsForState translates a state back to the stored quadruple. Used by the
// admin factory reset and by imports; day-to-day mutations flip individual
// flags on their own events instead.
func FlagsForState(s MemberState) models.CompletionFlags {
	switch s {
	case StateNewAccount:
		return models.CompletionFlags{FirstTimeLogin: true}
	case StateReset:
		return models.CompletionFlags{}
	case StatePendingProfile:
		return models.CompletionFlags{PasswordChanged: true}
	default:
		return models.CompletionFlags{
			PasswordChanged:       true,
			ProfileCompleted:      true,
			RegistrationCompleted: true,
		}
	}
}

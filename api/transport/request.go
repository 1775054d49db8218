package transport

import "github.com/signalrelay/authgate/domain"

type SignupRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Name     string      `json:"name"`
	Plan     domain.Plan `json:"plan"`
}

// ProfileUpdateRequest is a partial profile. id and email are accepted on
// the wire for compatibility with clients that echo the whole record, but
// the update path discards them in favor of the token's identity.
type ProfileUpdateRequest struct {
	ID          *string      `json:"id"`
	Email       *string      `json:"email"`
	Name        *string      `json:"name"`
	Role        *domain.Role `json:"role"`
	Plan        *domain.Plan `json:"plan"`
	TradesCount *int         `json:"tradesCount"`
}

// Patch strips the immutable fields and returns the mergeable remainder.
func (r ProfileUpdateRequest) Patch() domain.Patch {
	return domain.Patch{
		Name:        r.Name,
		Role:        r.Role,
		Plan:        r.Plan,
		TradesCount: r.TradesCount,
	}
}

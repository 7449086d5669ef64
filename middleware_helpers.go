package wodstrat

import (
	"net/http"

	"github.com/goliatone/go-wodstrat/middleware/jwtware"
)

// ValidationListener aliases the jwtware listener for session claims.
type ValidationListener = jwtware.ValidationListener[*SessionClaims]

// RegisterValidationListeners appends listeners to a jwtware.Config in a safe, reusable way.
func RegisterValidationListeners(cfg *jwtware.Config[*SessionClaims], listeners ...ValidationListener) {
	if cfg == nil || len(listeners) == 0 {
		return
	}
	for _, l := range listeners {
		if l != nil {
			cfg.ValidationListeners = append(cfg.ValidationListeners, l)
		}
	}
}

// RejectUnknownUsers refuses tokens whose subject no longer has an account.
func RejectUnknownUsers(users Users) ValidationListener {
	return func(r *http.Request, claims *SessionClaims) error {
		id, err := claims.UserID()
		if err != nil {
			return ErrUnauthorized
		}

		if _, err := users.GetByID(r.Context(), id); err != nil {
			if IsRecordNotFound(err) {
				return cloneErr(ErrUnauthorized).WithMetadata(map[string]any{"user_id": id})
			}
			return err
		}

		return nil
	}
}

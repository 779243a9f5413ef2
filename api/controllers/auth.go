package controllers

import (
	"net/http"

	"github.com/nftennis/nftennis-backend/api/responses"
	"github.com/nftennis/nftennis-backend/api/validators"
	"github.com/nftennis/nftennis-backend/internal/auth"
	pkgerrors "github.com/nftennis/nftennis-backend/pkg/errors"
	"github.com/nftennis/nftennis-backend/pkg/logger"
)

// AuthChallenge issues the message a wallet signs to sign in.
func AuthChallenge(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.ChallengeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Challenge(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AuthVerify exchanges a signed challenge for an access token.
func AuthVerify(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.SignInRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SignIn(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("X-NFT-Token", result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}

/*
Package handler provides HTTP handler functions for user authentication and management.
*/
package handler

import (
	"errors"
	"net/http"

	"spiderlink/internal/app/gateway"
	"spiderlink/internal/app/user"
	"spiderlink/internal/pkg/auth/jwt"
	"spiderlink/internal/pkg/errs"
	"spiderlink/internal/pkg/logx"
	"spiderlink/internal/pkg/pow"
	"spiderlink/internal/pkg/req"
	"spiderlink/internal/pkg/resp"
)

// HandleGetChallenge issues a proof-of-work nonce for signup. When the gate is
// disabled the difficulty is 0 and no nonce is issued.
func HandleGetChallenge(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !deps.Pow.Enabled() {
			resp.RespondSuccess(w, r, map[string]any{"difficulty": 0})
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"nonce":      deps.Pow.GenerateNonce(),
			"difficulty": deps.Pow.Difficulty(),
		})
	}
}

type VerifyInput struct {
	Nonce   string `json:"nonce"`
	Counter string `json:"counter"`
}

// HandleVerifyChallenge trades a solved nonce for a single-use proof token.
func HandleVerifyChallenge(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !deps.Pow.Enabled() {
			resp.RespondSuccess(w, r, map[string]any{"token": ""})
			return
		}

		var input VerifyInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		token, err := deps.Pow.ValidateProof(input.Nonce, input.Counter)
		if err != nil {
			if errors.Is(err, pow.ErrNonceInvalid) || errors.Is(err, pow.ErrProofInvalid) {
				resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeInvalid))
				return
			}
			resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeInternal))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"token": token})
	}
}

type CredentialsInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	PowToken string `json:"powToken,omitempty"`
}

// HandleSignup creates an account and starts a session for it.
func HandleSignup(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if payload := jwt.GetPayloadFromContext(r); payload != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyLoggedIn))
			return
		}

		var input CredentialsInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if !deps.Pow.ConsumeToken(input.PowToken) {
			code := errs.ErrPowChallengeInvalid
			if input.PowToken == "" {
				code = errs.ErrPowChallengeRequired
			}
			resp.RespondError(w, r, errs.NewError(code))
			return
		}

		u, err := deps.Users.Signup(r.Context(), input.Email, input.Password)
		if err != nil {
			if errors.Is(err, user.ErrAlreadyExists) {
				logx.Warn("signup conflict: email already registered")
			}
			resp.RespondError(w, r, gateway.AsCustomError(err))
			return
		}

		startSession(w, r, deps, u)
	}
}

// HandleLogin verifies user credentials and starts a session.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if identity := jwt.GetPayloadFromContext(r); identity != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrAlreadyLoggedIn))
			return
		}

		var input CredentialsInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		u, err := deps.Users.Login(r.Context(), input.Email, input.Password)
		if err != nil {
			logx.Warn("login failed", "error", err.Error())
			resp.RespondError(w, r, gateway.AsCustomError(err))
			return
		}

		startSession(w, r, deps, u)
	}
}

// HandleLogout clears the session cookie. It succeeds whether or not a session existed.
func HandleLogout(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jwt.ClearSessionCookie(w, deps.secureCookies())
		resp.RespondSuccess(w, r, nil)
	}
}

func startSession(w http.ResponseWriter, r *http.Request, deps *AppDeps, u *user.User) {
	token, err := jwt.GenerateToken(&jwt.Payload{ID: u.ID, Email: u.Email}, deps.Config.SessionSecret, jwt.SessionExpiration)
	if err != nil {
		logx.Error(err, "session token generation failed", "user_id", u.ID)
		resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
		return
	}

	jwt.SetSessionCookie(w, token, deps.secureCookies())
	resp.RespondSuccess(w, r, map[string]any{"user": newUserView(deps.Users, u)})
}

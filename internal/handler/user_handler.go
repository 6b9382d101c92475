package handler

import (
	"errors"
	"net/http"

	"spiderlink/internal/app/gateway"
	"spiderlink/internal/app/user"
	"spiderlink/internal/pkg/auth/jwt"
	"spiderlink/internal/pkg/errs"
	"spiderlink/internal/pkg/logx"
	"spiderlink/internal/pkg/resp"
)

// userView is the signed-in user as returned by the auth endpoints.
type userView struct {
	UID        string `json:"uid"`
	Email      string `json:"email,omitempty"`
	HasProfile bool   `json:"hasProfile"`
	Name       string `json:"name,omitempty"`
	Earth      string `json:"earth,omitempty"`
	Lore       string `json:"lore,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
	IsAdmin    bool   `json:"isAdmin"`
}

func newUserView(dir *user.Directory, u *user.User) userView {
	v := userView{
		UID:        u.ID,
		Email:      u.Email,
		HasProfile: u.HasProfile,
		IsAdmin:    dir.IsAdmin(u),
	}
	if u.HasProfile {
		v.Name = u.Name
		v.Earth = u.Earth
		v.Lore = u.Lore
		v.Avatar = dir.AvatarFor(u)
	}
	return v
}

// HandleGetUserProfile reports who the session cookie belongs to. The client uses
// the uid to authenticate its realtime connection.
func HandleGetUserProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := jwt.GetPayloadFromContext(r)
		if identity == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		u, err := deps.Users.Get(r.Context(), identity.ID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				logx.Warn("get_user_profile: user not found", "id", identity.ID)
				jwt.ClearSessionCookie(w, deps.secureCookies())
				resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}
			resp.RespondError(w, r, gateway.AsCustomError(err))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"user": newUserView(deps.Users, u)})
	}
}

package handler

import (
	"net/http"

	"livechat/internal/app/user"
	"livechat/internal/app/view"
	"livechat/internal/pkg/resp"
)

// HandleListUsers returns the registered participants in join order with
// their avatars.
func HandleListUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names := deps.Hub.Online()

		users := make([]user.Profile, 0, len(names))
		for _, name := range names {
			users = append(users, view.NewProfile(name))
		}

		resp.RespondSuccess(w, r, map[string]any{
			"count": len(users),
			"users": users,
		})
	}
}

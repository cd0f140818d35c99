package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/nkiryanov/smsorders/internal/handlers/render"
	"github.com/nkiryanov/smsorders/internal/handlers/userctx"
	"github.com/nkiryanov/smsorders/internal/logger"
)

func handleUserMe() http.Handler {
	type response struct {
		ID       uuid.UUID `json:"id"`
		Username string    `json:"username"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := userctx.FromContext(r.Context())
		render.JSON(w, response{ID: user.ID, Username: user.Username})
	})
}

// Issue new API key, the previous one stops working
func handleIssueAPIKey(authService authService, l logger.Logger) http.Handler {
	type response struct {
		Key string `json:"key"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userctx.FromContext(r.Context())
		if !ok {
			render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
			return
		}

		key, err := authService.IssueAPIKey(r.Context(), user)
		if err != nil {
			l.Error("Failed to issue api key", "user_id", user.ID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{Key: key})
	})
}

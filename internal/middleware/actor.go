package middleware

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/civreg-api/internal/models"
	"github.com/noah-isme/civreg-api/internal/policy"
	appErrors "github.com/noah-isme/civreg-api/pkg/errors"
	"github.com/noah-isme/civreg-api/pkg/response"
)

// ContextActorKey is the gin context key storing the resolved policy actor.
const ContextActorKey = "currentActor"

type userLoader interface {
	FindByID(ctx context.Context, id string) (*models.UserDetail, error)
}

// LoadActor resolves the authenticated user's row into a policy actor. It
// runs after JWT so approval revocations and office reassignments take
// effect on the next request, not at the next token refresh.
func LoadActor(users userLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		user, err := users.FindByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				response.Error(c, appErrors.ErrUnauthorized)
			} else {
				response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve user"))
			}
			c.Abort()
			return
		}

		c.Set(ContextActorKey, policy.ActorFromUser(user))
		c.Next()
	}
}

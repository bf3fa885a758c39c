package rpcmesh

import (
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/gin-gonic/gin"

	"github.com/novafabric/backbone/internal/apperr"
	"github.com/novafabric/backbone/internal/rpcmesh/jwtauth"
)

// GinMiddleware enforces the Casbin policy loaded by NewRBACEnforcer against
// HTTP admin/moderation routes, generalizing the same enforcer
// UnaryServerInterceptor would use for a gRPC call. The subject is the
// caller's user id rather than a role claim: jwtauth.Claims carries no role,
// so role membership comes entirely from Casbin's own grouping policy
// (AddGroupingPolicy(userID, "role")). seedDefaultPolicies adds no such
// user grouping; it seeds only the role grants and admin's inheritance of
// moderator.
func GinMiddleware(enforcer *casbin.Enforcer, validator *jwtauth.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" || token == authHeader {
			apperr.Abort(c, apperr.Unauthenticated(nil))
			return
		}

		claims, err := validator.Validate(token)
		if err != nil || claims.TokenType != jwtauth.TokenAccess {
			apperr.Abort(c, apperr.Unauthenticated(err))
			return
		}

		subject := claims.UserID.String()
		allowed, err := enforcer.Enforce(subject, c.Request.URL.Path, c.Request.Method)
		if err != nil {
			apperr.Abort(c, apperr.Internal(err))
			return
		}
		if !allowed {
			apperr.Abort(c, apperr.Forbidden("RBAC_DENIED"))
			return
		}

		c.Next()
	}
}

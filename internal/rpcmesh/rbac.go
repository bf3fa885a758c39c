package rpcmesh

import (
	"github.com/casbin/casbin/v2"
	redisadapter "github.com/casbin/redis-adapter/v3"
)

// NewRBACEnforcer wires a Casbin enforcer backed by a Redis-persisted
// policy store, matching services/auth-service/cmd/server/main.go's
// RBAC wiring, generalized from auth-service's own admin-route gating to
// gate the mesh's cross-service admin/moderation endpoints that sit above
// the per-resource authguard checks in internal/chat. The one route it
// gates is cmd/eventsvc's content takedown; the default policies also name
// a user-suspension path that no route serves.
func NewRBACEnforcer(modelPath, redisAddr, redisPassword string) (*casbin.Enforcer, error) {
	adapter, err := redisadapter.NewAdapter("tcp", redisAddr, redisadapter.WithPassword(redisPassword))
	if err != nil {
		return nil, err
	}

	enforcer, err := casbin.NewEnforcer(modelPath, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)

	if err := enforcer.LoadPolicy(); err != nil {
		seedDefaultPolicies(enforcer)
	}
	return enforcer, nil
}

// seedDefaultPolicies installs the moderator/admin role grants a fresh
// deployment needs before an operator has configured custom policies.
func seedDefaultPolicies(e *casbin.Enforcer) {
	e.AddGroupingPolicy("admin", "moderator")

	e.AddPolicy("admin", "/admin/*", "*")
	e.AddPolicy("moderator", "/admin/content/*", "*")
	e.AddPolicy("moderator", "/admin/users/*/suspend", "POST")

	e.SavePolicy()
}

// Package authguard implements the §4.3.1 authorization guard and the
// immutable AuthContext from §4.7, grounded on
// original_source/backend/messaging-service/src/middleware/guards.rs and
// original_source/backend/realtime-chat-service/libs/crypto-core/src/authorization.rs.
package authguard

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/novafabric/backbone/internal/apperr"
	"github.com/novafabric/backbone/internal/domain"
)

// AuthContext is constructible only through the authenticated request path
// (New) or an explicit, audited system path (System) used by background
// jobs. It is never forgeable from inside a repository or handler.
type AuthContext struct {
	userID   domain.UserID
	verified bool
	metadata AuditMetadata
}

// AuditMetadata is attached to every AuthContext for traceability.
type AuditMetadata struct {
	RequestID uuid.UUID
	IPAddr    string
	Timestamp time.Time
}

// New constructs an AuthContext from an authenticated request. This must
// only be called from authentication middleware after JWT validation.
func New(userID domain.UserID, requestID uuid.UUID, ipAddr string) AuthContext {
	return AuthContext{
		userID:   userID,
		verified: true,
		metadata: AuditMetadata{RequestID: requestID, IPAddr: ipAddr, Timestamp: time.Now()},
	}
}

// System constructs an AuthContext for background jobs. It bypasses
// ownership checks (VerifyOwner/VerifyOwnerIn always succeed) and every use
// is audit-logged via operationName captured in IPAddr, matching the
// original's "system:{operation_name}" convention.
func System(operationName string) AuthContext {
	return AuthContext{
		userID:   domain.SystemUserID,
		verified: true,
		metadata: AuditMetadata{RequestID: uuid.New(), IPAddr: "system:" + operationName, Timestamp: time.Now()},
	}
}

// UserID returns the authenticated user id. Panics if the context was
// somehow constructed unverified, which indicates a programmer error in the
// auth flow, never a runtime/user-triggerable condition.
func (c AuthContext) UserID() domain.UserID {
	if !c.verified {
		panic("BUG: authorization context not verified")
	}
	return c.userID
}

func (c AuthContext) IsSystem() bool { return c.userID.IsNil() }

// VerifyOwner requires the context's user to equal resourceOwnerID, unless
// this is a system context (which bypasses ownership checks entirely).
func (c AuthContext) VerifyOwner(resourceOwnerID domain.UserID) error {
	if c.IsSystem() {
		return nil
	}
	if c.userID != resourceOwnerID {
		return apperr.Forbidden("NOT_OWNER")
	}
	return nil
}

// VerifyOwnerIn requires the context's user to be one of allowedOwners.
func (c AuthContext) VerifyOwnerIn(allowedOwners []domain.UserID) error {
	if c.IsSystem() {
		return nil
	}
	for _, id := range allowedOwners {
		if id == c.userID {
			return nil
		}
	}
	return apperr.Forbidden("NOT_ALLOWED_OWNER")
}

func (c AuthContext) AuditMetadata() AuditMetadata { return c.metadata }

// AuditLogEntry captures a single authorized action for the security audit
// log.
type AuditLogEntry struct {
	UserID       domain.UserID
	Action       string
	ResourceType string
	ResourceID   string
	RequestID    uuid.UUID
	IPAddr       string
	Timestamp    time.Time
}

// AuditLogEntry builds a structured entry for the given action.
func (c AuthContext) AuditLogEntry(action, resourceType, resourceID string) AuditLogEntry {
	return AuditLogEntry{
		UserID:       c.userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		RequestID:    c.metadata.RequestID,
		IPAddr:       c.metadata.IPAddr,
		Timestamp:    c.metadata.Timestamp,
	}
}

// Log emits the entry through the shared structured logger under a stable
// audit=true field, mirroring the original's tracing target "security_audit".
func (e AuditLogEntry) Log(logger *logrus.Logger) {
	logger.WithFields(logrus.Fields{
		"audit":         true,
		"user_id":       e.UserID.String(),
		"action":        e.Action,
		"resource_type": e.ResourceType,
		"resource_id":   e.ResourceID,
		"request_id":    e.RequestID.String(),
		"ip_addr":       e.IPAddr,
		"timestamp":     e.Timestamp.Format(time.RFC3339),
	}).Info("security audit event")
}

package authguard

import (
	"context"

	"github.com/novafabric/backbone/internal/apperr"
	"github.com/novafabric/backbone/internal/domain"
)

// MemberLookup produces the single verified-member query the guard is
// built on. A single implementation (internal/repository) issues one SQL
// query joining conversation_members and conversations, matching §4.3.1
// "a single query ... produces a verified member record".
type MemberLookup interface {
	LookupMember(ctx context.Context, userID domain.UserID, conversationID domain.ConversationID) (*domain.ConversationMember, *domain.Conversation, error)
}

// VerifiedMember is the record the authorization guard is built on. Its
// methods are pure functions of the record; there is no other legal path to
// authorization.
type VerifiedMember struct {
	Member       domain.ConversationMember
	Conversation domain.Conversation
}

// Verify is the only constructor: it performs the single privileged lookup
// and fails with apperr.Forbidden if the user is not a member, or
// apperr.NotFound if the conversation itself doesn't exist.
func Verify(ctx context.Context, lookup MemberLookup, userID domain.UserID, conversationID domain.ConversationID) (*VerifiedMember, error) {
	member, conv, err := lookup.LookupMember(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, apperr.NotFound("CONVERSATION_NOT_FOUND", "conversation not found")
	}
	if member == nil {
		return nil, apperr.Forbidden("NOT_A_MEMBER")
	}
	return &VerifiedMember{Member: *member, Conversation: *conv}, nil
}

func (v *VerifiedMember) IsAdmin() bool { return v.Member.Role.IsAdminOrAbove() }

func (v *VerifiedMember) IsGroup() bool { return v.Conversation.Kind == domain.KindGroup }

// RequireGroup fails for direct conversations; some operations (role
// management) are only meaningful in a group.
func (v *VerifiedMember) RequireGroup() error {
	if !v.IsGroup() {
		return apperr.Validation("NOT_A_GROUP", "operation requires a group conversation")
	}
	return nil
}

// CanSend implements "not muted AND conversation exists" (conversation
// existence is already guaranteed by Verify having succeeded).
func (v *VerifiedMember) CanSend() error {
	if v.Member.IsMuted || !v.Member.CanSend {
		return apperr.Forbidden("MUTED_OR_RESTRICTED")
	}
	return nil
}

// CanDeleteMessage implements "delete own message always; delete other's
// requires the CanDeleteOthers flag or admin or higher".
func (v *VerifiedMember) CanDeleteMessage(isOwnMessage bool) error {
	if isOwnMessage {
		return nil
	}
	if !v.Member.CanDeleteOthers && !v.IsAdmin() {
		return apperr.Forbidden("CANNOT_DELETE_OTHERS")
	}
	return nil
}

// CanManageRole implements "actor's role strictly greater than target's".
func (v *VerifiedMember) CanManageRole(target domain.MemberRole) error {
	if !v.Member.Role.CanManage(target) {
		return apperr.Forbidden("INSUFFICIENT_ROLE")
	}
	return nil
}

// RequireAdmin layers a stricter check on top of Verify for operations that
// require role >= admin, per §4.3.1.
func RequireAdmin(ctx context.Context, lookup MemberLookup, userID domain.UserID, conversationID domain.ConversationID) (*VerifiedMember, error) {
	v, err := Verify(ctx, lookup, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if !v.IsAdmin() {
		return nil, apperr.Forbidden("REQUIRES_ADMIN")
	}
	return v, nil
}

// RequireOwner enforces "delete conversation: owner only".
func (v *VerifiedMember) RequireOwner() error {
	if v.Member.Role != domain.RoleOwner {
		return apperr.Forbidden("REQUIRES_OWNER")
	}
	return nil
}

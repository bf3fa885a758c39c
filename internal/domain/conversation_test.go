package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemberRole_CanManage_RequiresStrictlyHigherRank(t *testing.T) {
	assert.True(t, RoleOwner.CanManage(RoleAdmin))
	assert.True(t, RoleAdmin.CanManage(RoleMember))
	assert.False(t, RoleAdmin.CanManage(RoleAdmin), "lateral management is disallowed")
	assert.False(t, RoleMember.CanManage(RoleOwner))
}

func TestMemberRole_IsAdminOrAbove(t *testing.T) {
	assert.True(t, RoleOwner.IsAdminOrAbove())
	assert.True(t, RoleAdmin.IsAdminOrAbove())
	assert.False(t, RoleModerator.IsAdminOrAbove())
	assert.False(t, RoleMember.IsAdminOrAbove())
}

func TestMemberRole_Valid(t *testing.T) {
	assert.True(t, RoleOwner.Valid())
	assert.False(t, MemberRole("nonsense").Valid())
}

func TestMessage_CanRecall_WithinWindow(t *testing.T) {
	msg := NewMessage(NewConversationID(), NewUserID(), 1)
	assert.True(t, msg.CanRecall(msg.CreatedAt.Add(time.Minute)))
	assert.False(t, msg.CanRecall(msg.CreatedAt.Add(3*time.Minute)), "recall window is 2 minutes")
}

func TestMessage_CanRecall_NotIfAlreadyRecalled(t *testing.T) {
	msg := NewMessage(NewConversationID(), NewUserID(), 1)
	now := time.Now()
	msg.Recall(now)
	assert.False(t, msg.CanRecall(now))
	assert.Equal(t, MessageRecalled, msg.Status)
}

func TestMessage_Edit_IncrementsVersion(t *testing.T) {
	msg := NewMessage(NewConversationID(), NewUserID(), 1)
	assert.Equal(t, int32(1), msg.Version)
	msg.Edit()
	assert.Equal(t, int32(2), msg.Version)
}

func TestMessage_SoftDelete(t *testing.T) {
	msg := NewMessage(NewConversationID(), NewUserID(), 1)
	now := time.Now()
	msg.SoftDelete(now)
	assert.Equal(t, MessageDeleted, msg.Status)
	assert.NotNil(t, msg.DeletedAt)
}

func TestConversation_RotateKey_BumpsVersion(t *testing.T) {
	conv := NewConversation(KindGroup, PrivacySearchEnabled, "Team Chat")
	assert.Equal(t, int32(1), conv.KeyVersion)
	conv.RotateKey()
	assert.Equal(t, int32(2), conv.KeyVersion)
}

func TestNewConversation_TruncatesOverlongTitle(t *testing.T) {
	longTitle := make([]byte, MaxConversationTitleLength+50)
	for i := range longTitle {
		longTitle[i] = 'a'
	}
	conv := NewConversation(KindDirect, PrivacyStrictE2E, string(longTitle))
	assert.Len(t, conv.Title, MaxConversationTitleLength)
}

func TestConversation_IsActive(t *testing.T) {
	conv := NewConversation(KindDirect, PrivacyStrictE2E, "")
	assert.True(t, conv.IsActive())
	conv.Status = ConversationDissolved
	assert.False(t, conv.IsActive())
}

package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marshalEnvelope(t *testing.T, env Envelope) []byte {
	t.Helper()
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	return raw
}

func TestResolveEventType_PrefersHeaderOverPayload(t *testing.T) {
	c := &Consumer{}
	env := Envelope{EventType: "identity.user.created"}
	msg := kafka.Message{
		Value:   marshalEnvelope(t, env),
		Headers: []kafka.Header{{Key: HeaderEventType, Value: []byte("identity.user.updated")}},
	}

	eventType, _, err := c.resolveEventType(msg)
	require.NoError(t, err)
	assert.Equal(t, "identity.user.updated", eventType)
}

func TestResolveEventType_FallsBackToPayloadField(t *testing.T) {
	c := &Consumer{}
	env := Envelope{EventType: "engagement.recorded"}
	msg := kafka.Message{Value: marshalEnvelope(t, env)}

	eventType, _, err := c.resolveEventType(msg)
	require.NoError(t, err)
	assert.Equal(t, "engagement.recorded", eventType)
}

func TestResolveEventType_InfersLegacyShapeWhenBothAbsent(t *testing.T) {
	c := &Consumer{}
	env := Envelope{Payload: map[string]any{"username": "alice", "email": "a@example.com"}}
	msg := kafka.Message{Value: marshalEnvelope(t, env)}

	eventType, _, err := c.resolveEventType(msg)
	require.NoError(t, err)
	assert.Equal(t, "identity.user.created", eventType)
}

func TestResolveEventType_PoisonRecordErrors(t *testing.T) {
	c := &Consumer{}
	msg := kafka.Message{Value: []byte("not json")}

	_, _, err := c.resolveEventType(msg)
	require.Error(t, err)
}

func TestInferLegacyEventType(t *testing.T) {
	cases := []struct {
		name    string
		payload map[string]any
		want    string
	}{
		{"nil payload", nil, ""},
		{"soft delete marker", map[string]any{"deleted_at": "now", "soft_delete": true}, "identity.user.deleted"},
		{"creation shape", map[string]any{"username": "bob", "email": "b@example.com"}, "identity.user.created"},
		{"update shape excluded by updated_at", map[string]any{"username": "bob", "email": "b@example.com", "updated_at": "now"}, ""},
		{"profile update shape", map[string]any{"display_name": "Bob"}, "identity.user.profile_updated"},
		{"unrecognized shape", map[string]any{"foo": "bar"}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, inferLegacyEventType(Envelope{Payload: tc.payload}))
		})
	}
}

func TestConsumer_On_RegistersLegacyAliases(t *testing.T) {
	c := &Consumer{handlers: map[string]Handler{}}
	called := 0
	h := func(ctx context.Context, env Envelope) error { called++; return nil }

	c.On("identity.user.deleted", h, "UserDeletedEvent")

	require.Contains(t, c.handlers, "identity.user.deleted")
	require.Contains(t, c.handlers, "UserDeletedEvent")

	_ = c.handlers["identity.user.deleted"](context.Background(), Envelope{})
	_ = c.handlers["UserDeletedEvent"](context.Background(), Envelope{})
	assert.Equal(t, 2, called)
}

func TestApplyWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	c := &Consumer{maxRetries: 3, retryBackoff: 0}
	attempts := 0
	h := func(ctx context.Context, env Envelope) error {
		attempts++
		if attempts < 2 {
			return assertErr{}
		}
		return nil
	}

	err := c.applyWithRetry(context.Background(), h, Envelope{})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestApplyWithRetry_ExhaustsRetryBudget(t *testing.T) {
	c := &Consumer{maxRetries: 2, retryBackoff: 0}
	attempts := 0
	h := func(ctx context.Context, env Envelope) error {
		attempts++
		return assertErr{}
	}

	err := c.applyWithRetry(context.Background(), h, Envelope{})
	require.Error(t, err)
	assert.Equal(t, 3, attempts, "maxRetries=2 means one initial attempt plus two retries")
}

type assertErr struct{}

func (assertErr) Error() string { return "transient failure" }

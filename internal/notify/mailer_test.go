package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogMailerWritesActivationLink(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewLogMailer(zap.New(core))

	require.NoError(t, m.SendActivation(context.Background(), "driver@example.com", "https://app/activate?token=abc"))

	entries := logs.FilterMessage("activation email").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "driver@example.com", fields["to"])
	assert.Equal(t, "https://app/activate?token=abc", fields["link"])
}

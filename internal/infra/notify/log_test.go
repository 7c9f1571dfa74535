package notify

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogNotifierWritesTemplateAndRecipient(t *testing.T) {
	var buf bytes.Buffer
	n := LogNotifier{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	require.NoError(t, n.Send(context.Background(), "client-1", "booking_approved", map[string]string{"id": "b-1"}))
	assert.Contains(t, buf.String(), `"template":"booking_approved"`)
	assert.Contains(t, buf.String(), `"to":"client-1"`)
}

package inbox

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestSeenDeduplicatesPerConsumer(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	db := client.Database("depositrent_inbox_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	notifications, err := NewStore(ctx, db, "notifications", time.Hour)
	require.NoError(t, err)
	audit, err := NewStore(ctx, db, "audit", time.Hour)
	require.NoError(t, err)

	seen, err := notifications.Seen(ctx, "e-1")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = notifications.Seen(ctx, "e-1")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = audit.Seen(ctx, "e-1")
	require.NoError(t, err)
	assert.False(t, seen)
}

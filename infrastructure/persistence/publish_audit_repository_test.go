package persistence

import (
	"context"
	"testing"

	"brandhub/domain/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishAuditRepository_NilClient(t *testing.T) {
	repo := NewPublishAuditRepository(nil, "")
	assert.Equal(t, "brandhub", repo.dbName)

	require.NoError(t, repo.NotifyPublished(context.Background(), &dto.PublishEvent{ContentID: "c1"}))
	events, err := repo.ListByContent(context.Background(), "c1", 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

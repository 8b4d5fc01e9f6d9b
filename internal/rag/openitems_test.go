package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inboxai/internal/models"
)

func openItemRecord(id, threadID, sender, date, direction string, isReplied bool) models.EmailRecord {
	return models.EmailRecord{
		ID:        id,
		ThreadID:  threadID,
		Sender:    sender,
		Subject:   "Subject " + threadID,
		Date:      date,
		Direction: direction,
		IsReplied: isReplied,
	}
}

func TestComputeOpenItems_Empty(t *testing.T) {
	items := ComputeOpenItems(nil)
	require.NotNil(t, items)
	assert.Empty(t, items)
}

func TestComputeOpenItems_ThreadStatuses(t *testing.T) {
	records := []models.EmailRecord{
		// Thread a: they wrote last and nobody replied, the user owes a reply.
		openItemRecord("a1", "ta", "me@corp.example", "2026-03-01T09:00:00Z", models.DirectionSent, false),
		openItemRecord("a2", "ta", "dana@corp.example", "2026-03-02T09:00:00Z", models.DirectionReceived, false),
		// Thread b: the user wrote last, the other side owes one.
		openItemRecord("b1", "tb", "yossi@corp.example", "2026-03-01T10:00:00Z", models.DirectionReceived, true),
		openItemRecord("b2", "tb", "me@corp.example", "2026-03-03T10:00:00Z", models.DirectionSent, false),
		// Thread c: received and already replied, nothing open.
		openItemRecord("c1", "tc", "noa@corp.example", "2026-03-04T11:00:00Z", models.DirectionReceived, true),
	}

	items := ComputeOpenItems(records)
	require.Len(t, items, 2)

	// Newest last activity first: thread b (03-03) before thread a (03-02).
	assert.Equal(t, "tb", items[0].ThreadID)
	assert.Equal(t, models.StatusAwaitingResponse, items[0].Status)
	assert.Equal(t, 2, items[0].MessageCount)
	assert.Equal(t, "2026-03-03T10:00:00Z", items[0].Date)

	assert.Equal(t, "ta", items[1].ThreadID)
	assert.Equal(t, models.StatusNeedsAction, items[1].Status)
	assert.Equal(t, "dana@corp.example", items[1].Sender)
}

func TestComputeOpenItems_SentLastAlwaysAwaits(t *testing.T) {
	// Reply flags on the user's own sent mail do not matter; if the
	// user's message sits newest, the other side owes the reply.
	records := []models.EmailRecord{
		openItemRecord("a1", "ta", "me@corp.example", "2026-03-02T09:00:00Z", models.DirectionSent, true),
	}

	items := ComputeOpenItems(records)
	require.Len(t, items, 1)
	assert.Equal(t, models.StatusAwaitingResponse, items[0].Status)
	assert.Equal(t, 1, items[0].MessageCount)
}

func TestComputeOpenItems_UnsortedThreadDates(t *testing.T) {
	// The newest message decides, regardless of input order.
	records := []models.EmailRecord{
		openItemRecord("a2", "ta", "dana@corp.example", "2026-03-02T09:00:00Z", models.DirectionReceived, false),
		openItemRecord("a1", "ta", "me@corp.example", "2026-03-01T09:00:00Z", models.DirectionSent, false),
	}

	items := ComputeOpenItems(records)
	require.Len(t, items, 1)
	assert.Equal(t, models.StatusNeedsAction, items[0].Status)
	assert.Equal(t, "2026-03-02T09:00:00Z", items[0].Date)
}

func TestComputeOpenItems_Standalone(t *testing.T) {
	records := []models.EmailRecord{
		// Only received-and-unreplied standalones count as open.
		openItemRecord("s1", "", "dana@corp.example", "2026-03-02T09:00:00Z", models.DirectionReceived, false),
		openItemRecord("s2", "", "noa@corp.example", "2026-03-03T09:00:00Z", models.DirectionReceived, true),
		openItemRecord("s3", "", "me@corp.example", "2026-03-04T09:00:00Z", models.DirectionSent, false),
	}

	items := ComputeOpenItems(records)
	require.Len(t, items, 1)
	assert.Equal(t, "", items[0].ThreadID)
	assert.Equal(t, models.StatusNeedsAction, items[0].Status)
	assert.Equal(t, 1, items[0].MessageCount)
	assert.Equal(t, []string{"dana@corp.example"}, items[0].Participants)
}

func TestComputeOpenItems_ParticipantsDistinctFirstSeen(t *testing.T) {
	records := []models.EmailRecord{
		openItemRecord("a1", "ta", "dana@corp.example", "2026-03-01T09:00:00Z", models.DirectionReceived, true),
		openItemRecord("a2", "ta", "me@corp.example", "2026-03-02T09:00:00Z", models.DirectionSent, false),
		openItemRecord("a3", "ta", "dana@corp.example", "2026-03-03T09:00:00Z", models.DirectionReceived, false),
		openItemRecord("a4", "ta", "", "2026-03-04T09:00:00Z", models.DirectionReceived, false),
	}

	items := ComputeOpenItems(records)
	require.Len(t, items, 1)
	assert.Equal(t, []string{"dana@corp.example", "me@corp.example"}, items[0].Participants)
}

func TestComputeOpenItems_NewestFirstAcrossKinds(t *testing.T) {
	records := []models.EmailRecord{
		openItemRecord("a1", "ta", "dana@corp.example", "2026-03-01T09:00:00Z", models.DirectionReceived, false),
		openItemRecord("s1", "", "noa@corp.example", "2026-03-05T09:00:00Z", models.DirectionReceived, false),
		openItemRecord("b1", "tb", "yossi@corp.example", "2026-03-03T09:00:00Z", models.DirectionReceived, false),
	}

	items := ComputeOpenItems(records)
	require.Len(t, items, 3)
	assert.Equal(t, "2026-03-05T09:00:00Z", items[0].Date)
	assert.Equal(t, "2026-03-03T09:00:00Z", items[1].Date)
	assert.Equal(t, "2026-03-01T09:00:00Z", items[2].Date)
}

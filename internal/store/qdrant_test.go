package store

import (
	"testing"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inboxai/internal/models"
)

func TestPointUUID(t *testing.T) {
	// Content hashes are 32 hex chars and map onto the UUID layout.
	id := pointUUID("0123456789abcdef0123456789abcdef")
	assert.Equal(t, "01234567-89ab-cdef-0123-456789abcdef", id)

	// Anything else is re-hashed into a stable UUID.
	other := pointUUID("not-a-hash")
	assert.Len(t, other, 36)
	assert.Equal(t, other, pointUUID("not-a-hash"))
	assert.NotEqual(t, other, pointUUID("another"))
}

func TestQdrantFilterTranslation(t *testing.T) {
	assert.Nil(t, qdrantFilter(Filter{}))

	f := And(
		Eq(FieldDirection, "received"),
		Eq(FieldIsReplied, false),
		Gte(FieldDate, "2026-03-01T00:00:00Z"),
		Lte(FieldDate, "2026-03-31T23:59:59Z"),
	)

	qf := qdrantFilter(f)
	require.NotNil(t, qf)
	require.Len(t, qf.Must, 4)

	direction := qf.Must[0].GetField()
	require.NotNil(t, direction)
	assert.Equal(t, FieldDirection, direction.GetKey())
	assert.Equal(t, "received", direction.GetMatch().GetKeyword())

	replied := qf.Must[1].GetField()
	require.NotNil(t, replied)
	assert.Equal(t, FieldIsReplied, replied.GetKey())
	assert.False(t, replied.GetMatch().GetBoolean())

	// Date bounds land on the numeric date_ts field.
	lower := qf.Must[2].GetField()
	require.NotNil(t, lower)
	assert.Equal(t, "date_ts", lower.GetKey())
	assert.InDelta(t, float64(dateToUnix("2026-03-01T00:00:00Z")), lower.GetRange().GetGte(), 0)

	upper := qf.Must[3].GetField()
	require.NotNil(t, upper)
	assert.Equal(t, "date_ts", upper.GetKey())
	assert.InDelta(t, float64(dateToUnix("2026-03-31T23:59:59Z")), upper.GetRange().GetLte(), 0)
}

func TestDateToUnix(t *testing.T) {
	assert.Equal(t, int64(0), dateToUnix(""))
	assert.Equal(t, int64(0), dateToUnix("not a date"))
	assert.Equal(t, int64(0), dateToUnix(42))
	assert.Equal(t, int64(1767225600), dateToUnix("2026-01-01T00:00:00Z"))
}

func TestRecordPayloadRoundTrip(t *testing.T) {
	record := models.EmailRecord{
		ID:         "abc",
		ThreadID:   "thread-1",
		Sender:     "kim@vendor.example",
		SenderName: "Kim Lee",
		Recipients: []string{"me@corp.example", "ops@corp.example"},
		Subject:    "Invoice overdue",
		Date:       "2026-03-10T09:00:00Z",
		Direction:  models.DirectionReceived,
		IsRead:     true,
		IsReplied:  false,
		IsFlagged:  true,
		Body:       "Please pay invoice 42.",
	}

	payload := recordPayload(record)
	assert.Equal(t, "abc", payload["id"])
	assert.Equal(t, "me@corp.example,ops@corp.example", payload["recipients"])
	assert.Equal(t, dateToUnix(record.Date), payload["date_ts"])

	back := recordFromPayload(qdrant.NewValueMap(payload))
	assert.Equal(t, record, back)
}

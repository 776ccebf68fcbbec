package schedule

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pod2social/internal/config"
	"pod2social/internal/models"
	"pod2social/internal/test"
)

var postColumns = []string{
	"id", "video_id", "tweets", "reddit_title", "reddit_body", "suggested_groups",
	"state", "scheduled_primary", "scheduled_secondary",
	"next_attempt_primary", "next_attempt_secondary", "approved_at",
	"posted_at_primary", "posted_at_secondary", "attempts_primary",
	"attempts_secondary", "last_error", "primary_url", "secondary_urls", "created_at",
}

func unscheduledRow(rows *sqlmock.Rows, id int64, videoID string, approvedAt time.Time) *sqlmock.Rows {
	return rows.AddRow(
		id, videoID, `["tweet"]`, "title", "body", `[]`,
		models.StateApproved, nil, nil,
		nil, nil, approvedAt,
		nil, nil, 0,
		0, nil, nil, nil, approvedAt,
	)
}

func TestPassAssignsWindowsFIFO(t *testing.T) {
	_, mock := test.NewMockDB(t)
	p := testPlanner(t)

	now := easternTime(t, 2025, time.March, 10, 6, 0).UTC()

	rows := sqlmock.NewRows(postColumns)
	unscheduledRow(rows, 1, "video1", now.Add(-2*time.Hour))
	unscheduledRow(rows, 2, "video2", now.Add(-1*time.Hour))

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM posts\s+WHERE state = \$1 AND scheduled_primary IS NULL`).
		WithArgs(models.StateApproved).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT scheduled_primary FROM posts`).
		WillReturnRows(sqlmock.NewRows([]string{"scheduled_primary"}))

	first := easternTime(t, 2025, time.March, 10, 7, 30).UTC()
	second := easternTime(t, 2025, time.March, 10, 9, 0).UTC()
	mock.ExpectExec(`UPDATE posts\s+SET scheduled_primary = \$1`).
		WithArgs(first, first.Add(30*time.Minute), int64(1), models.StateApproved).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE posts\s+SET scheduled_primary = \$1`).
		WithArgs(second, second.Add(30*time.Minute), int64(2), models.StateApproved).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := Pass(p, now)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPassSkipsSlotsClaimedByEarlierRuns(t *testing.T) {
	_, mock := test.NewMockDB(t)
	p := testPlanner(t)

	now := easternTime(t, 2025, time.March, 10, 6, 0).UTC()

	rows := sqlmock.NewRows(postColumns)
	unscheduledRow(rows, 7, "video7", now.Add(-time.Hour))

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM posts\s+WHERE state = \$1 AND scheduled_primary IS NULL`).
		WithArgs(models.StateApproved).
		WillReturnRows(rows)

	taken := easternTime(t, 2025, time.March, 10, 7, 30).UTC()
	mock.ExpectQuery(`SELECT scheduled_primary FROM posts`).
		WillReturnRows(sqlmock.NewRows([]string{"scheduled_primary"}).AddRow(taken))

	free := easternTime(t, 2025, time.March, 10, 9, 0).UTC()
	mock.ExpectExec(`UPDATE posts\s+SET scheduled_primary = \$1`).
		WithArgs(free, free.Add(30*time.Minute), int64(7), models.StateApproved).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := Pass(p, now)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPassLeavesPostsUnscheduledWhenHorizonExhausted(t *testing.T) {
	_, mock := test.NewMockDB(t)
	p, err := NewPlanner(config.Schedule{
		Timezone:               "America/New_York",
		PostingWindows:         []string{"12:00"},
		SecondaryOffsetMinutes: 30,
		HorizonDays:            1,
	})
	require.NoError(t, err)

	now := easternTime(t, 2025, time.March, 10, 6, 0).UTC()

	rows := sqlmock.NewRows(postColumns)
	unscheduledRow(rows, 3, "video3", now.Add(-time.Hour))

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM posts\s+WHERE state = \$1 AND scheduled_primary IS NULL`).
		WithArgs(models.StateApproved).
		WillReturnRows(rows)

	taken := easternTime(t, 2025, time.March, 10, 12, 0).UTC()
	mock.ExpectQuery(`SELECT scheduled_primary FROM posts`).
		WillReturnRows(sqlmock.NewRows([]string{"scheduled_primary"}).AddRow(taken))
	// No UPDATE: the post stays unscheduled.
	mock.ExpectCommit()

	err = Pass(p, now)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPassNoCandidatesIsANoOp(t *testing.T) {
	_, mock := test.NewMockDB(t)
	p := testPlanner(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM posts\s+WHERE state = \$1 AND scheduled_primary IS NULL`).
		WithArgs(models.StateApproved).
		WillReturnRows(sqlmock.NewRows(postColumns))
	mock.ExpectCommit()

	err := Pass(p, easternTime(t, 2025, time.March, 10, 6, 0).UTC())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

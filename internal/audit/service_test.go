package audit

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryTimelineRepo struct {
	rows []TimelineRow
}

func (r *memoryTimelineRepo) matches(row TimelineRow, params WindowParams) bool {
	if params.FromAt.Valid && row.At.Before(params.FromAt.Time) {
		return false
	}
	if params.ToAt.Valid && row.At.After(params.ToAt.Time) {
		return false
	}
	if params.Actor.Valid && !strings.Contains(row.ActorName, params.Actor.String) {
		return false
	}
	if params.TargetType.Valid && row.TargetType != params.TargetType.String {
		return false
	}
	if params.Action.Valid && row.Action != params.Action.String {
		return false
	}
	if params.Severity.Valid && row.Severity != params.Severity.String {
		return false
	}
	return true
}

func (r *memoryTimelineRepo) filtered(params WindowParams) []TimelineRow {
	result := []TimelineRow{}
	for _, row := range r.rows {
		if r.matches(row, params) {
			result = append(result, row)
		}
	}
	return result
}

func (r *memoryTimelineRepo) Window(ctx context.Context, params WindowParams) ([]TimelineRow, error) {
	rows := r.filtered(params)
	offset := int(params.OffsetRows)
	if offset >= len(rows) {
		return []TimelineRow{}, nil
	}
	rows = rows[offset:]
	if limit := int(params.LimitRows); limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}

func (r *memoryTimelineRepo) All(ctx context.Context, params WindowParams) ([]TimelineRow, error) {
	return r.filtered(params), nil
}

func seedRows(n int) []TimelineRow {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rows := make([]TimelineRow, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, TimelineRow{
			ID:         "id-" + strings.Repeat("x", i%3+1),
			At:         base.Add(time.Duration(i) * time.Hour),
			Action:     "PO_APPROVE",
			ActorName:  "Ravi",
			TargetType: "PURCHASE_ORDER",
			Severity:   "HIGH",
		})
	}
	return rows
}

func TestTimelinePaging(t *testing.T) {
	repo := &memoryTimelineRepo{rows: seedRows(25)}
	svc := NewService(repo)
	ctx := context.Background()

	result, err := svc.Timeline(ctx, TimelineFilters{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, result.Rows, 10)
	require.True(t, result.Paging.HasNext)
	require.Equal(t, 2, result.Paging.NextPage)
	require.Zero(t, result.Paging.PrevPage)

	result, err = svc.Timeline(ctx, TimelineFilters{Page: 3, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, result.Rows, 5)
	require.False(t, result.Paging.HasNext)
	require.Equal(t, 2, result.Paging.PrevPage)
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &memoryTimelineRepo{rows: seedRows(120)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	require.Len(t, result.Rows, 50)
	require.Equal(t, 50, result.Paging.PageSize)
}

func TestTimelineFilterBySeverity(t *testing.T) {
	rows := seedRows(5)
	rows[2].Severity = "LOW"
	repo := &memoryTimelineRepo{rows: rows}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Severity: "LOW"})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
}

func TestExportCSV(t *testing.T) {
	repo := &memoryTimelineRepo{rows: seedRows(3)}
	svc := NewService(repo)

	rows, err := svc.Export(context.Background(), TimelineFilters{})
	require.NoError(t, err)

	payload, err := CSVExporter{}.WriteCSV(rows)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 4)
	require.Contains(t, lines[0], "occurred_at")
	require.Contains(t, lines[1], "PO_APPROVE")
}

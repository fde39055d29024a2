package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/domain"
)

func TestBuildAuditListQuery_Defaults(t *testing.T) {
	sql, args, err := BuildAuditListQuery(AuditLogQuery{}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM audit_logs")
	assert.NotContains(t, sql, "WHERE")
	assert.Contains(t, sql, "ORDER BY occurred_at DESC, id DESC")
	assert.Contains(t, sql, "LIMIT 20 OFFSET 0")
	assert.Empty(t, args)
}

func TestBuildAuditListQuery_SortAscendingTiesOnID(t *testing.T) {
	sql, _, err := BuildAuditListQuery(AuditLogQuery{
		SortBy:    domain.AuditSortAction,
		Direction: domain.SortAsc,
		Limit:     50,
		Offset:    100,
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "ORDER BY action ASC, id ASC")
	assert.Contains(t, sql, "LIMIT 50 OFFSET 100")
}

func TestBuildAuditListQuery_Filters(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)

	sql, args, err := BuildAuditListQuery(AuditLogQuery{
		From:       &from,
		To:         &to,
		Keyword:    " 50%_off ",
		ActorRole:  "ADMIN",
		Action:     "Update",
		EntityType: "Ticket",
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "occurred_at >= $1")
	assert.Contains(t, sql, "occurred_at <= $2")
	assert.Contains(t, sql, "(actor_email ILIKE $3 OR actor_role ILIKE $4 OR action ILIKE $5 OR entity_type ILIKE $6 OR entity_id ILIKE $7)")
	assert.Contains(t, sql, "actor_role = $8")
	assert.Contains(t, sql, "action = $9")
	assert.Contains(t, sql, "entity_type = $10")
	require.Len(t, args, 10)
	assert.Equal(t, from, args[0])
	assert.Equal(t, to, args[1])
	assert.Equal(t, `%50\%\_off%`, args[2])
	assert.Equal(t, "ADMIN", args[7])
}

func TestAuditLogRepository_DistinctValues(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT entity_type FROM audit_logs WHERE entity_type <> $1 ORDER BY entity_type ASC")).
		WithArgs("").
		WillReturnRows(pgxmock.NewRows([]string{"entity_type"}).AddRow("Supplier").AddRow("Ticket"))

	repo := NewAuditLogRepository(mock)
	values, err := repo.DistinctValues(context.Background(), AuditOptionEntityType)
	require.NoError(t, err)
	assert.Equal(t, []string{"Supplier", "Ticket"}, values)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditLogRepository_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	occurred := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	after := `{"Name":"Acme"}`
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_logs WHERE id = $1")).
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows(auditColumns).AddRow(
			int64(42), occurred, "u-1", "ops@example.com", "ADMIN", "s-1", "10.0.0.1",
			"Create", "Supplier", "7", (*string)(nil), &after,
		))

	repo := NewAuditLogRepository(mock)
	entry, err := repo.GetByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), entry.ID)
	assert.Equal(t, "Supplier", entry.EntityType)
	assert.Nil(t, entry.BeforeDataJSON)
	require.NotNil(t, entry.AfterDataJSON)
	assert.Equal(t, after, *entry.AfterDataJSON)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditOptionColumnName_Unknown(t *testing.T) {
	_, err := auditOptionColumnName(AuditOptionColumn(99))
	assert.Error(t, err)
}

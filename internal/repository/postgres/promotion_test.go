package postgres

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/pos-promotions/internal/domain"
	"github.com/utafrali/pos-promotions/pkg/database"
	apperrors "github.com/utafrali/pos-promotions/pkg/errors"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func setupRepo(t *testing.T) (*PromotionRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return NewPromotionRepository(mock), mock
}

func promotionColumnNames() []string {
	return []string{"id", "name", "description", "priority", "stackable", "status", "rule", "constraints"}
}

func dessertRow(rows *pgxmock.Rows) *pgxmock.Rows {
	return rows.AddRow(
		"promo-dessert20", "Dessert Tuesday", "20% off desserts", 1, false, domain.PromotionStatusActive,
		[]byte(`{"type":"PERCENT","value":"20","target":{"type":"CATEGORY","category_ids":["desserts"]}}`),
		[]byte(`{"min_subtotal":"15.00","order_types":["dine-in"]}`),
	)
}

// ---------------------------------------------------------------------------
// ListActive
// ---------------------------------------------------------------------------

func TestPromotionRepository_ListActive_Success(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	rows := dessertRow(pgxmock.NewRows(promotionColumnNames())).
		AddRow(
			"promo-5off", "Five Off", "", 2, true, domain.PromotionStatusActive,
			[]byte(`{"type":"AMOUNT","value":"5.00","target":{"type":"ORDER"}}`),
			[]byte(`{"condition":{">=":[{"var":"item_count"},3]}}`),
		)

	mock.ExpectQuery("SELECT (.+) FROM promotions WHERE status = \\$1").
		WithArgs(domain.PromotionStatusActive).
		WillReturnRows(rows)

	promotions, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, promotions, 2)

	dessert := promotions[0]
	assert.Equal(t, "promo-dessert20", dessert.ID)
	assert.Equal(t, 1, dessert.Priority)
	assert.False(t, dessert.Stackable)
	require.NotNil(t, dessert.Rule)
	assert.Equal(t, domain.RuleTypePercent, dessert.Rule.Type)
	assert.True(t, decimal.NewFromInt(20).Equal(dessert.Rule.Value))
	assert.Equal(t, []string{"desserts"}, dessert.Rule.Target.CategoryIDs)
	require.NotNil(t, dessert.Constraints.MinSubtotal)
	assert.Equal(t, "15.00", dessert.Constraints.MinSubtotal.StringFixed(2))
	assert.Equal(t, []string{domain.OrderTypeDineIn}, dessert.Constraints.OrderTypes)

	fiveOff := promotions[1]
	assert.True(t, fiveOff.Stackable)
	assert.Equal(t, domain.TargetTypeOrder, fiveOff.Rule.Target.Type)
	assert.JSONEq(t, `{">=":[{"var":"item_count"},3]}`, string(fiveOff.Constraints.Condition))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromotionRepository_ListActive_NullConditionDropped(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	rows := pgxmock.NewRows(promotionColumnNames()).AddRow(
		"promo-1off", "One Off", "", 1, true, domain.PromotionStatusActive,
		[]byte(`{"type":"AMOUNT","value":"1.00","target":{"type":"ORDER"}}`),
		[]byte(`{"condition":null}`),
	)
	mock.ExpectQuery("SELECT (.+) FROM promotions WHERE status = \\$1").
		WithArgs(domain.PromotionStatusActive).
		WillReturnRows(rows)

	promotions, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, promotions, 1)
	assert.Nil(t, promotions[0].Constraints.Condition)
	assert.False(t, promotions[0].Constraints.HasCondition())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromotionRepository_ListActive_Empty(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM promotions").
		WithArgs(domain.PromotionStatusActive).
		WillReturnRows(pgxmock.NewRows(promotionColumnNames()))

	promotions, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, promotions)
	assert.Empty(t, promotions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromotionRepository_ListActive_QueryError(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM promotions").
		WithArgs(domain.PromotionStatusActive).
		WillReturnError(errors.New("connection refused"))

	_, err := repo.ListActive(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list active promotions")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromotionRepository_ListActive_BadRuleJSON(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	rows := pgxmock.NewRows(promotionColumnNames()).
		AddRow("promo-bad", "Bad", "", 1, false, domain.PromotionStatusActive, []byte(`{"type":`), []byte(`{}`))
	mock.ExpectQuery("SELECT (.+) FROM promotions").
		WithArgs(domain.PromotionStatusActive).
		WillReturnRows(rows)

	_, err := repo.ListActive(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal rule of promotion promo-bad")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// GetByID
// ---------------------------------------------------------------------------

func TestPromotionRepository_GetByID_Success(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM promotions WHERE id = \\$1").
		WithArgs("promo-dessert20").
		WillReturnRows(dessertRow(pgxmock.NewRows(promotionColumnNames())))

	p, err := repo.GetByID(context.Background(), "promo-dessert20")
	require.NoError(t, err)
	assert.Equal(t, "Dessert Tuesday", p.Name)
	assert.True(t, p.IsActive())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromotionRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM promotions WHERE id = \\$1").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	p, err := repo.GetByID(context.Background(), "missing")
	assert.Nil(t, p)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromotionRepository_GetByID_NullRule(t *testing.T) {
	repo, mock := setupRepo(t)
	defer mock.Close()

	rows := pgxmock.NewRows(promotionColumnNames()).
		AddRow("promo-draft", "Draft", "", 9, false, domain.PromotionStatusDraft, []byte(`null`), []byte(`{}`))
	mock.ExpectQuery("SELECT (.+) FROM promotions WHERE id = \\$1").
		WithArgs("promo-draft").
		WillReturnRows(rows)

	p, err := repo.GetByID(context.Background(), "promo-draft")
	require.NoError(t, err)
	assert.Nil(t, p.Rule)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Migrations
// ---------------------------------------------------------------------------

func TestMigrations_ContainsSchema(t *testing.T) {
	names, err := fs.Glob(Migrations(), "*.up.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"001_create_promotions.up.sql"}, names)
}

func TestMigrations_AppliedByRunner(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("001_create_promotions.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS promotions").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("INSERT INTO schema_migrations").
		WithArgs("001_create_promotions.up.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, database.RunMigrations(context.Background(), mock, Migrations(), slog.New(slog.NewTextHandler(io.Discard, nil))))
	assert.NoError(t, mock.ExpectationsWereMet())
}

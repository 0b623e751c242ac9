package repository

import (
	"context"
	"database/sql"
	"testing"

	"productcatalog/internal/app/catalog/entity"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// CategoryRepositoryTestSuite тестовый suite для репозитория категорий
type CategoryRepositoryTestSuite struct {
	suite.Suite
	db    *gorm.DB
	mock  sqlmock.Sqlmock
	repo  CategoryRepository
	sqlDB *sql.DB
}

func TestCategoryRepositorySuite(t *testing.T) {
	suite.Run(t, new(CategoryRepositoryTestSuite))
}

func (s *CategoryRepositoryTestSuite) SetupTest() {
	var err error
	s.sqlDB, s.mock, err = sqlmock.New()
	require.NoError(s.T(), err)

	dialector := postgres.New(postgres.Config{
		Conn:       s.sqlDB,
		DriverName: "postgres",
	})

	s.db, err = gorm.Open(dialector, &gorm.Config{})
	require.NoError(s.T(), err)

	s.repo = NewCategoryRepository(s.db, NewProductRepository(s.db))
}

func (s *CategoryRepositoryTestSuite) TearDownTest() {
	s.sqlDB.Close()
}

func (s *CategoryRepositoryTestSuite) TestCreate_DuplicateName() {
	ctx := context.Background()

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(`INSERT INTO "categories"`).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	s.mock.ExpectRollback()

	err := s.repo.Create(ctx, &entity.Category{Name: "Electronics", Slug: "electronics"})

	s.ErrorIs(err, ErrDuplicateCategory)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *CategoryRepositoryTestSuite) TestGetAll_OrderedByName() {
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"id", "name", "slug"}).
		AddRow(2, "Books", "books").
		AddRow(1, "Electronics", "electronics")

	s.mock.ExpectQuery(`SELECT \* FROM "categories" ORDER BY name ASC`).
		WillReturnRows(rows)

	categories, err := s.repo.GetAll(ctx)

	s.NoError(err)
	s.Len(categories, 2)
	s.Equal("Books", categories[0].Name)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *CategoryRepositoryTestSuite) TestDelete_WithProducts() {
	ctx := context.Background()

	// Проверка числа товаров идет до удаления
	rows := sqlmock.NewRows([]string{"count"}).AddRow(3)
	s.mock.ExpectQuery(`SELECT count\(\*\) FROM "products" WHERE category_id = \$1`).
		WithArgs(7).
		WillReturnRows(rows)

	err := s.repo.Delete(ctx, 7)

	s.ErrorIs(err, ErrCategoryHasProducts)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *CategoryRepositoryTestSuite) TestDelete_Empty() {
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"count"}).AddRow(0)
	s.mock.ExpectQuery(`SELECT count\(\*\) FROM "products" WHERE category_id = \$1`).
		WithArgs(7).
		WillReturnRows(rows)

	s.mock.ExpectBegin()
	s.mock.ExpectExec(`DELETE FROM "categories" WHERE id = \$1`).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	err := s.repo.Delete(ctx, 7)

	s.NoError(err)
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *CategoryRepositoryTestSuite) TestDelete_NotFound() {
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"count"}).AddRow(0)
	s.mock.ExpectQuery(`SELECT count\(\*\) FROM "products" WHERE category_id = \$1`).
		WithArgs(99).
		WillReturnRows(rows)

	s.mock.ExpectBegin()
	s.mock.ExpectExec(`DELETE FROM "categories" WHERE id = \$1`).
		WithArgs(99).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectCommit()

	err := s.repo.Delete(ctx, 99)

	s.ErrorIs(err, ErrCategoryNotFound)
	s.NoError(s.mock.ExpectationsWereMet())
}

package database_test

import (
	"context"
	"os"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/ekaterinavolkova/budget-sync-app/internal/database"
	"github.com/ekaterinavolkova/budget-sync-app/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// testPool подключается к базе из .env. Без настроенной базы
// интеграционные тесты пропускаются.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load()
	if os.Getenv("DB_HOST") == "" {
		t.Skip("DB_HOST не задан, интеграционные тесты базы пропущены")
	}

	ctx := context.Background()
	pool, err := database.ConnectPool(ctx)
	if err != nil {
		t.Fatalf("ошибка подключения к БД: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := database.InitSchema(ctx, pool); err != nil {
		t.Fatalf("ошибка инициализации схемы: %v", err)
	}
	return pool
}

// makeTestUser регистрирует свежего пользователя под тестовые записи.
func makeTestUser(t *testing.T, pool *pgxpool.Pool) *models.User {
	t.Helper()
	user := &models.User{
		Email:    uuid.NewString() + "@example.com",
		Password: "секретный-пароль",
		Name:     gofakeit.Name(),
	}
	if err := database.RegisterUser(context.Background(), pool, user); err != nil {
		t.Fatalf("ошибка регистрации тестового пользователя: %v", err)
	}
	return user
}

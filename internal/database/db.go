package database

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

//go:embed schema.sql
var schemaSQL string

// ConnectPool открывает пул подключений к базе по переменным из .env.
func ConnectPool(ctx context.Context) (*pgxpool.Pool, error) {
	// Загрузить переменные из .env (файла может не быть, тогда берем окружение)
	_ = godotenv.Load()

	port := os.Getenv("DB_PORT")
	if port == "" {
		port = "5432"
	}
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"), os.Getenv("DB_HOST"), port, os.Getenv("DB_NAME"))

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %w", err)
	}

	return pool, nil
}

// InitSchema создает таблицы и индексы, если их еще нет.
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ошибка инициализации схемы: %w", err)
	}
	return nil
}

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ekaterinavolkova/budget-sync-app/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// RegisterUser создает пользователя, храня пароль только в виде bcrypt-хеша.
func RegisterUser(ctx context.Context, pool *pgxpool.Pool, user *models.User) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("ошибка хеширования пароля: %w", err)
	}

	user.ID = uuid.NewString()
	user.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO users (id, email, password, name, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := pool.Exec(ctx, query, user.ID, user.Email, string(hash), user.Name, user.CreatedAt); err != nil {
		return fmt.Errorf("ошибка при добавлении пользователя: %w", err)
	}
	user.Password = ""
	return nil
}

// AuthenticateUser проверяет пару email/пароль и возвращает пользователя.
func AuthenticateUser(ctx context.Context, pool *pgxpool.Pool, email, password string) (*models.User, error) {
	query := `SELECT id, email, password, name, created_at FROM users WHERE email = $1`

	user := &models.User{}
	err := pool.QueryRow(ctx, query, email).Scan(&user.ID, &user.Email, &user.Password, &user.Name, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New("пользователь не найден")
		}
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, errors.New("неверный пароль")
	}
	user.Password = ""
	return user, nil
}

// GetUserByID извлекает пользователя по ID.
func GetUserByID(ctx context.Context, pool *pgxpool.Pool, userID string) (*models.User, error) {
	query := `SELECT id, email, name, created_at FROM users WHERE id = $1`

	user := &models.User{}
	err := pool.QueryRow(ctx, query, userID).Scan(&user.ID, &user.Email, &user.Name, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New("пользователь не найден")
		}
		return nil, fmt.Errorf("ошибка получения пользователя по id: %w", err)
	}
	return user, nil
}

// SaveUserItem сохраняет привязку к агрегатору (токен доступа). Повторная
// привязка с тем же токеном не создает дубля.
func SaveUserItem(ctx context.Context, pool *pgxpool.Pool, item *models.UserItem) error {
	item.ID = uuid.NewString()
	item.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO user_items (id, user_id, access_token, institution, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, access_token) DO NOTHING`
	if _, err := pool.Exec(ctx, query, item.ID, item.UserID, item.AccessToken, item.Institution, item.CreatedAt); err != nil {
		return fmt.Errorf("ошибка сохранения привязки к агрегатору: %w", err)
	}
	return nil
}

// GetUserItems возвращает все привязки к агрегатору. По ним фоновый cron
// запускает периодическую синхронизацию.
func GetUserItems(ctx context.Context, pool *pgxpool.Pool) ([]models.UserItem, error) {
	query := `SELECT id, user_id, access_token, institution, created_at FROM user_items ORDER BY created_at`

	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении привязок: %w", err)
	}
	defer rows.Close()

	var items []models.UserItem
	for rows.Next() {
		var item models.UserItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.AccessToken, &item.Institution, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка чтения привязки: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

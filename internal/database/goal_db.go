package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ekaterinavolkova/budget-sync-app/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const goalColumns = `id, user_id, name, target_amount, current_amount, is_completed,
		completed_at, account_ids, updated_at, created_at`

var goalUpdatableColumns = map[string]bool{
	"name":          true,
	"target_amount": true,
	"is_completed":  true,
	"completed_at":  true,
	"account_ids":   true,
}

func scanGoal(row pgx.Row) (*models.Goal, error) {
	goal := &models.Goal{}
	err := row.Scan(
		&goal.ID,
		&goal.UserID,
		&goal.Name,
		&goal.TargetAmount,
		&goal.CurrentAmount,
		&goal.IsCompleted,
		&goal.CompletedAt,
		&goal.AccountIDs,
		&goal.UpdatedAt,
		&goal.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return goal, nil
}

// CreateGoal добавляет новую цель.
func CreateGoal(ctx context.Context, pool *pgxpool.Pool, goal *models.Goal) error {
	query := `
		INSERT INTO goals (id, user_id, name, target_amount, current_amount, is_completed,
			completed_at, account_ids, updated_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := pool.Exec(ctx, query,
		goal.ID,
		goal.UserID,
		goal.Name,
		goal.TargetAmount,
		goal.CurrentAmount,
		goal.IsCompleted,
		goal.CompletedAt,
		goal.AccountIDs,
		goal.UpdatedAt,
		goal.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка при добавлении цели: %w", err)
	}
	return nil
}

// GetGoalByID извлекает цель по ID.
func GetGoalByID(ctx context.Context, pool *pgxpool.Pool, goalID string) (*models.Goal, error) {
	query := `
		SELECT ` + goalColumns + `
		FROM goals
		WHERE id = $1`

	goal, err := scanGoal(pool.QueryRow(ctx, query, goalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("цель с ID %s не найдена", goalID)
		}
		return nil, fmt.Errorf("ошибка при получении цели: %w", err)
	}
	return goal, nil
}

// GetGoalsByUserID извлекает все цели пользователя.
func GetGoalsByUserID(ctx context.Context, pool *pgxpool.Pool, userID string) ([]models.Goal, error) {
	query := `
		SELECT ` + goalColumns + `
		FROM goals
		WHERE user_id = $1
		ORDER BY created_at`

	rows, err := pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении целей: %w", err)
	}
	defer rows.Close()

	var goals []models.Goal
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения цели: %w", err)
		}
		goals = append(goals, *goal)
	}
	return goals, rows.Err()
}

// AddGoalProgress прибавляет delta к накопленной сумме цели одним UPDATE
// на стороне базы и возвращает обновленную запись. Чтение суммы в приложение
// с последующей записью здесь недопустимо: два параллельных взноса затерли бы
// друг друга, а серверный инкремент складывает их корректно при любом
// чередовании. Отрицательная delta — корректировка в меньшую сторону.
func AddGoalProgress(ctx context.Context, pool *pgxpool.Pool, goalID string, delta decimal.Decimal) (*models.Goal, error) {
	query := `
		UPDATE goals
		SET current_amount = current_amount + $1, updated_at = $2
		WHERE id = $3
		RETURNING ` + goalColumns

	goal, err := scanGoal(pool.QueryRow(ctx, query, delta, time.Now().UTC(), goalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("цель с ID %s не найдена", goalID)
		}
		return nil, fmt.Errorf("ошибка при добавлении прогресса к цели: %w", err)
	}
	return goal, nil
}

// UpdateGoalFields обновляет только перечисленные поля цели и updated_at.
// current_amount в белом списке отсутствует: накопленная сумма меняется
// исключительно через AddGoalProgress.
func UpdateGoalFields(ctx context.Context, pool *pgxpool.Pool, goalID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	set := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+2)
	i := 1
	for col, val := range fields {
		if !goalUpdatableColumns[col] {
			return fmt.Errorf("недопустимое поле для обновления цели: %s", col)
		}
		set = append(set, fmt.Sprintf("%s = $%d", col, i))
		args = append(args, val)
		i++
	}
	set = append(set, fmt.Sprintf("updated_at = $%d", i))
	args = append(args, time.Now().UTC(), goalID)

	query := fmt.Sprintf(`UPDATE goals SET %s WHERE id = $%d`, strings.Join(set, ", "), i+1)
	result, err := pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка обновления цели: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("цель с ID %s не найдена", goalID)
	}
	return nil
}

// DeleteGoal удаляет цель по ID.
func DeleteGoal(ctx context.Context, pool *pgxpool.Pool, goalID string) error {
	query := `DELETE FROM goals WHERE id = $1`
	result, err := pool.Exec(ctx, query, goalID)
	if err != nil {
		return fmt.Errorf("ошибка удаления цели: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("цель с ID %s не найдена", goalID)
	}
	return nil
}

// GoalsChangedSince возвращает цели, измененные строго позже водяного знака.
func GoalsChangedSince(ctx context.Context, pool *pgxpool.Pool, userID string, since time.Time) ([]models.Goal, error) {
	query := `
		SELECT ` + goalColumns + `
		FROM goals
		WHERE user_id = $1 AND updated_at > $2
		ORDER BY updated_at`

	rows, err := pool.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки измененных целей: %w", err)
	}
	defer rows.Close()

	var goals []models.Goal
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения цели: %w", err)
		}
		goals = append(goals, *goal)
	}
	return goals, rows.Err()
}

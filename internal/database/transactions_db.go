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
)

const transactionColumns = `id, user_id, account_id, external_transaction_id, amount, currency,
		description, category, transaction_date, is_pending, goal_id, updated_at, created_at`

var transactionUpdatableColumns = map[string]bool{
	"amount":           true,
	"currency":         true,
	"description":      true,
	"category":         true,
	"transaction_date": true,
	"is_pending":       true,
	"goal_id":          true,
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	tx := &models.Transaction{}
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.AccountID,
		&tx.ExternalID,
		&tx.Amount,
		&tx.Currency,
		&tx.Description,
		&tx.Category,
		&tx.Date,
		&tx.IsPending,
		&tx.GoalID,
		&tx.UpdatedAt,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// InsertTransactionIfAbsent вставляет транзакцию условно по ключу
// (пользователь, внешний id транзакции). Закрывает гонку между «проверили —
// не нашли» и «записали»: параллельный проход синхронизации, вставивший ту же
// транзакцию первым, не приводит к дублю — возвращается false, и вызывающий
// обновляет существующую запись.
func InsertTransactionIfAbsent(ctx context.Context, pool *pgxpool.Pool, tx *models.Transaction) (bool, error) {
	query := `
		INSERT INTO transactions (id, user_id, account_id, external_transaction_id, amount, currency,
			description, category, transaction_date, is_pending, goal_id, updated_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT DO NOTHING`

	result, err := pool.Exec(ctx, query,
		tx.ID,
		tx.UserID,
		tx.AccountID,
		tx.ExternalID,
		tx.Amount,
		tx.Currency,
		tx.Description,
		tx.Category,
		tx.Date,
		tx.IsPending,
		tx.GoalID,
		tx.UpdatedAt,
		tx.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("ошибка условной вставки транзакции: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// GetTransactionByExternalID ищет транзакцию по внешнему идентификатору.
// Возвращает nil без ошибки, если записи нет.
func GetTransactionByExternalID(ctx context.Context, pool *pgxpool.Pool, userID, externalID string) (*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND external_transaction_id = $2`

	tx, err := scanTransaction(pool.QueryRow(ctx, query, userID, externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка поиска транзакции по внешнему id: %w", err)
	}
	return tx, nil
}

// GetTransactionsByUserID извлекает транзакции пользователя, свежие первыми.
func GetTransactionsByUserID(ctx context.Context, pool *pgxpool.Pool, userID string, limit int) ([]models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY transaction_date DESC
		LIMIT $2`

	rows, err := pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении транзакций: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения транзакции: %w", err)
		}
		txs = append(txs, *tx)
	}
	return txs, rows.Err()
}

// GetTransactionsByGoalID извлекает транзакции, привязанные к цели.
func GetTransactionsByGoalID(ctx context.Context, pool *pgxpool.Pool, userID, goalID string) ([]models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND goal_id = $2
		ORDER BY transaction_date`

	rows, err := pool.Query(ctx, query, userID, goalID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении транзакций цели: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения транзакции: %w", err)
		}
		txs = append(txs, *tx)
	}
	return txs, rows.Err()
}

// UpdateTransactionFields обновляет только перечисленные поля транзакции и updated_at.
// Апстрим регулярно присылает поправки суммы, категории и флага pending.
func UpdateTransactionFields(ctx context.Context, pool *pgxpool.Pool, transactionID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	set := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+2)
	i := 1
	for col, val := range fields {
		if !transactionUpdatableColumns[col] {
			return fmt.Errorf("недопустимое поле для обновления транзакции: %s", col)
		}
		set = append(set, fmt.Sprintf("%s = $%d", col, i))
		args = append(args, val)
		i++
	}
	set = append(set, fmt.Sprintf("updated_at = $%d", i))
	args = append(args, time.Now().UTC(), transactionID)

	query := fmt.Sprintf(`UPDATE transactions SET %s WHERE id = $%d`, strings.Join(set, ", "), i+1)
	result, err := pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка обновления транзакции: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("транзакция с ID %s не найдена", transactionID)
	}
	return nil
}

// TransactionsChangedSince возвращает транзакции, измененные строго позже водяного знака.
func TransactionsChangedSince(ctx context.Context, pool *pgxpool.Pool, userID string, since time.Time) ([]models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND updated_at > $2
		ORDER BY updated_at`

	rows, err := pool.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки измененных транзакций: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения транзакции: %w", err)
		}
		txs = append(txs, *tx)
	}
	return txs, rows.Err()
}

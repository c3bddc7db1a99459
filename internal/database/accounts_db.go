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

const accountColumns = `id, user_id, external_account_id, name, institution_name, account_number,
		account_type, account_subtype, balance, currency, is_active, last_synced_at, updated_at, created_at`

// Белый список колонок для частичного обновления счета. Полная перезапись строки
// запрещена: частично заполненная запись не должна затирать полную.
var accountUpdatableColumns = map[string]bool{
	"external_account_id": true,
	"name":                true,
	"institution_name":    true,
	"account_number":      true,
	"account_type":        true,
	"account_subtype":     true,
	"balance":             true,
	"currency":            true,
	"is_active":           true,
	"last_synced_at":      true,
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	acc := &models.Account{}
	err := row.Scan(
		&acc.ID,
		&acc.UserID,
		&acc.ExternalID,
		&acc.Name,
		&acc.InstitutionName,
		&acc.AccountNumber,
		&acc.AccountType,
		&acc.AccountSubtype,
		&acc.Balance,
		&acc.Currency,
		&acc.IsActive,
		&acc.LastSyncedAt,
		&acc.UpdatedAt,
		&acc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// InsertAccountIfAbsent вставляет счет условно: если уникальный предикат
// (пользователь + внешний id, либо пользователь + номер счета) уже занят,
// вставка отклоняется без ошибки и возвращается false — вызывающий уходит
// на ветку обновления. Слепой вставки для внешних записей не бывает.
func InsertAccountIfAbsent(ctx context.Context, pool *pgxpool.Pool, acc *models.Account) (bool, error) {
	query := `
		INSERT INTO accounts (id, user_id, external_account_id, name, institution_name, account_number,
			account_type, account_subtype, balance, currency, is_active, last_synced_at, updated_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT DO NOTHING`

	result, err := pool.Exec(ctx, query,
		acc.ID,
		acc.UserID,
		acc.ExternalID,
		acc.Name,
		acc.InstitutionName,
		acc.AccountNumber,
		acc.AccountType,
		acc.AccountSubtype,
		acc.Balance,
		acc.Currency,
		acc.IsActive,
		acc.LastSyncedAt,
		acc.UpdatedAt,
		acc.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("ошибка условной вставки счета: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// GetAccountByExternalID ищет счет по внешнему идентификатору агрегатора.
// Возвращает nil без ошибки, если счета нет.
func GetAccountByExternalID(ctx context.Context, pool *pgxpool.Pool, userID, externalID string) (*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE user_id = $1 AND external_account_id = $2`

	acc, err := scanAccount(pool.QueryRow(ctx, query, userID, externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка поиска счета по внешнему id: %w", err)
	}
	return acc, nil
}

// GetAccountByNumber ищет счет по номеру (маске). Если institution передан,
// совпадением считается то же название банка либо запись вовсе без названия:
// сохраненный счет мог появиться из выгрузки, где названия еще не было, и
// строгое равенство плодило бы дубль вместо долива названия. Точное совпадение
// предпочитается записи без названия. Если institution nil — совпадения по
// номеру достаточно: название банка нередко отсутствует в выгрузке даже для
// известного счета.
func GetAccountByNumber(ctx context.Context, pool *pgxpool.Pool, userID, number string, institution *string) (*models.Account, error) {
	var row pgx.Row
	if institution == nil || *institution == "" {
		query := `
			SELECT ` + accountColumns + `
			FROM accounts
			WHERE user_id = $1 AND account_number = $2
			ORDER BY created_at
			LIMIT 1`
		row = pool.QueryRow(ctx, query, userID, number)
	} else {
		query := `
			SELECT ` + accountColumns + `
			FROM accounts
			WHERE user_id = $1 AND account_number = $2
				AND (institution_name = $3 OR institution_name IS NULL)
			ORDER BY institution_name = $3 DESC, created_at
			LIMIT 1`
		row = pool.QueryRow(ctx, query, userID, number, *institution)
	}

	acc, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка поиска счета по номеру: %w", err)
	}
	return acc, nil
}

// GetAccountsByUserID извлекает все активные счета пользователя.
func GetAccountsByUserID(ctx context.Context, pool *pgxpool.Pool, userID string) ([]models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE user_id = $1 AND is_active
		ORDER BY created_at`

	rows, err := pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении счетов: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения счета: %w", err)
		}
		accounts = append(accounts, *acc)
	}
	return accounts, rows.Err()
}

// UpdateAccountFields обновляет только перечисленные поля счета и updated_at.
func UpdateAccountFields(ctx context.Context, pool *pgxpool.Pool, accountID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	set := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+2)
	i := 1
	for col, val := range fields {
		if !accountUpdatableColumns[col] {
			return fmt.Errorf("недопустимое поле для обновления счета: %s", col)
		}
		set = append(set, fmt.Sprintf("%s = $%d", col, i))
		args = append(args, val)
		i++
	}
	set = append(set, fmt.Sprintf("updated_at = $%d", i))
	args = append(args, time.Now().UTC(), accountID)

	query := fmt.Sprintf(`UPDATE accounts SET %s WHERE id = $%d`, strings.Join(set, ", "), i+1)
	result, err := pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка обновления счета: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("счет с ID %s не найден", accountID)
	}
	return nil
}

// TouchAccountSynced отмечает время последней успешной синхронизации счета.
func TouchAccountSynced(ctx context.Context, pool *pgxpool.Pool, accountID string, at time.Time) error {
	query := `UPDATE accounts SET last_synced_at = $1 WHERE id = $2`
	if _, err := pool.Exec(ctx, query, at, accountID); err != nil {
		return fmt.Errorf("ошибка отметки синхронизации счета: %w", err)
	}
	return nil
}

// AccountsChangedSince возвращает счета пользователя, измененные строго позже
// водяного знака. Выборка идет по индексу (user_id, updated_at), без полного скана.
func AccountsChangedSince(ctx context.Context, pool *pgxpool.Pool, userID string, since time.Time) ([]models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE user_id = $1 AND updated_at > $2
		ORDER BY updated_at`

	rows, err := pool.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки измененных счетов: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения счета: %w", err)
		}
		accounts = append(accounts, *acc)
	}
	return accounts, rows.Err()
}

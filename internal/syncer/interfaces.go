package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/ekaterinavolkova/budget-sync-app/models"
	"github.com/shopspring/decimal"
)

// Ошибки внешнего агрегатора. Клиенты агрегатора обязаны заворачивать свои
// ошибки в эти sentinel-значения, чтобы оркестратор мог отличить временный
// сбой (ретраим) от протухшего токена (сразу наверх).
var (
	ErrInvalidToken = errors.New("недействительный токен доступа агрегатора")
	ErrTransient    = errors.New("временный сбой агрегатора")
)

// Aggregator — внешний API агрегатора счетов. Источник недоверенный:
// поля могут быть пустыми, идентификаторы — меняться между вызовами.
type Aggregator interface {
	ListAccounts(ctx context.Context, accessToken string) ([]models.AccountPayload, error)
	// ListTransactions постранично отдает транзакции счета; пустой следующий
	// курсор означает конец выборки.
	ListTransactions(ctx context.Context, accessToken, externalAccountID, cursor string) ([]models.TransactionPayload, string, error)
}

// AccountStore — операции хранилища, нужные движку сверки счетов.
// Методы Get* возвращают nil без ошибки, если записи нет.
type AccountStore interface {
	GetAccountByExternalID(ctx context.Context, userID, externalID string) (*models.Account, error)
	GetAccountByNumber(ctx context.Context, userID, number string, institution *string) (*models.Account, error)
	InsertAccountIfAbsent(ctx context.Context, acc *models.Account) (bool, error)
	UpdateAccountFields(ctx context.Context, userID, accountID string, fields map[string]any) error
	TouchAccountSynced(ctx context.Context, userID, accountID string, at time.Time) error
}

// TransactionStore — операции хранилища, нужные движку сверки транзакций.
type TransactionStore interface {
	GetTransactionByExternalID(ctx context.Context, userID, externalID string) (*models.Transaction, error)
	InsertTransactionIfAbsent(ctx context.Context, tx *models.Transaction) (bool, error)
	UpdateTransactionFields(ctx context.Context, userID, transactionID string, fields map[string]any) error
}

// GoalStore — операции хранилища для обновления прогресса целей.
type GoalStore interface {
	AddGoalProgress(ctx context.Context, goalID string, delta decimal.Decimal) (*models.Goal, error)
	UpdateGoalFields(ctx context.Context, userID, goalID string, fields map[string]any) error
}

// ChangesStore — инкрементальные выборки по водяному знаку.
type ChangesStore interface {
	AccountsChangedSince(ctx context.Context, userID string, since time.Time) ([]models.Account, error)
	TransactionsChangedSince(ctx context.Context, userID string, since time.Time) ([]models.Transaction, error)
	GoalsChangedSince(ctx context.Context, userID string, since time.Time) ([]models.Goal, error)
}

package store

import (
	"context"
	"time"

	"github.com/ekaterinavolkova/budget-sync-app/internal/cache"
	"github.com/ekaterinavolkova/budget-sync-app/internal/database"
	"github.com/ekaterinavolkova/budget-sync-app/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Сколько последних транзакций кэшируется и прогревается на пользователя.
const transactionsPageSize = 100

// Store — хранилище с кэшем чтения поверх функций database. Каждый пишущий
// путь сначала выполняет запись, затем синхронно сбрасывает кэш затронутой
// коллекции пользователя и только потом возвращает успех.
type Store struct {
	Pool  *pgxpool.Pool
	Cache *cache.Service
	Log   zerolog.Logger
}

func New(pool *pgxpool.Pool, c *cache.Service, log zerolog.Logger) *Store {
	return &Store{Pool: pool, Cache: c, Log: log}
}

// --- Счета ---

// AccountsByUser читает счета пользователя сквозь кэш.
func (s *Store) AccountsByUser(ctx context.Context, userID string) ([]models.Account, error) {
	if v, ok := s.Cache.Get(userID, cache.Accounts); ok {
		return v.([]models.Account), nil
	}
	accounts, err := database.GetAccountsByUserID(ctx, s.Pool, userID)
	if err != nil {
		return nil, err
	}
	s.Cache.Set(userID, cache.Accounts, accounts)
	return accounts, nil
}

func (s *Store) GetAccountByExternalID(ctx context.Context, userID, externalID string) (*models.Account, error) {
	return database.GetAccountByExternalID(ctx, s.Pool, userID, externalID)
}

func (s *Store) GetAccountByNumber(ctx context.Context, userID, number string, institution *string) (*models.Account, error) {
	return database.GetAccountByNumber(ctx, s.Pool, userID, number, institution)
}

func (s *Store) InsertAccountIfAbsent(ctx context.Context, acc *models.Account) (bool, error) {
	inserted, err := database.InsertAccountIfAbsent(ctx, s.Pool, acc)
	if err != nil {
		return false, err
	}
	if inserted {
		s.Cache.Invalidate(acc.UserID, cache.Accounts)
	}
	return inserted, nil
}

func (s *Store) UpdateAccountFields(ctx context.Context, userID, accountID string, fields map[string]any) error {
	if err := database.UpdateAccountFields(ctx, s.Pool, accountID, fields); err != nil {
		return err
	}
	s.Cache.Invalidate(userID, cache.Accounts)
	return nil
}

func (s *Store) TouchAccountSynced(ctx context.Context, userID, accountID string, at time.Time) error {
	if err := database.TouchAccountSynced(ctx, s.Pool, accountID, at); err != nil {
		return err
	}
	s.Cache.Invalidate(userID, cache.Accounts)
	return nil
}

// --- Транзакции ---

// TransactionsByUser читает последние транзакции пользователя сквозь кэш.
func (s *Store) TransactionsByUser(ctx context.Context, userID string) ([]models.Transaction, error) {
	if v, ok := s.Cache.Get(userID, cache.Transactions); ok {
		return v.([]models.Transaction), nil
	}
	txs, err := database.GetTransactionsByUserID(ctx, s.Pool, userID, transactionsPageSize)
	if err != nil {
		return nil, err
	}
	s.Cache.Set(userID, cache.Transactions, txs)
	return txs, nil
}

func (s *Store) GetTransactionByExternalID(ctx context.Context, userID, externalID string) (*models.Transaction, error) {
	return database.GetTransactionByExternalID(ctx, s.Pool, userID, externalID)
}

func (s *Store) InsertTransactionIfAbsent(ctx context.Context, tx *models.Transaction) (bool, error) {
	inserted, err := database.InsertTransactionIfAbsent(ctx, s.Pool, tx)
	if err != nil {
		return false, err
	}
	if inserted {
		s.Cache.Invalidate(tx.UserID, cache.Transactions)
	}
	return inserted, nil
}

func (s *Store) UpdateTransactionFields(ctx context.Context, userID, transactionID string, fields map[string]any) error {
	if err := database.UpdateTransactionFields(ctx, s.Pool, transactionID, fields); err != nil {
		return err
	}
	s.Cache.Invalidate(userID, cache.Transactions)
	return nil
}

// --- Цели ---

// GoalsByUser читает цели пользователя сквозь кэш.
func (s *Store) GoalsByUser(ctx context.Context, userID string) ([]models.Goal, error) {
	if v, ok := s.Cache.Get(userID, cache.Goals); ok {
		return v.([]models.Goal), nil
	}
	goals, err := database.GetGoalsByUserID(ctx, s.Pool, userID)
	if err != nil {
		return nil, err
	}
	s.Cache.Set(userID, cache.Goals, goals)
	return goals, nil
}

func (s *Store) GetGoalByID(ctx context.Context, goalID string) (*models.Goal, error) {
	return database.GetGoalByID(ctx, s.Pool, goalID)
}

func (s *Store) CreateGoal(ctx context.Context, goal *models.Goal) error {
	if err := database.CreateGoal(ctx, s.Pool, goal); err != nil {
		return err
	}
	s.Cache.Invalidate(goal.UserID, cache.Goals)
	return nil
}

func (s *Store) AddGoalProgress(ctx context.Context, goalID string, delta decimal.Decimal) (*models.Goal, error) {
	goal, err := database.AddGoalProgress(ctx, s.Pool, goalID, delta)
	if err != nil {
		return nil, err
	}
	s.Cache.Invalidate(goal.UserID, cache.Goals)
	return goal, nil
}

func (s *Store) UpdateGoalFields(ctx context.Context, userID, goalID string, fields map[string]any) error {
	if err := database.UpdateGoalFields(ctx, s.Pool, goalID, fields); err != nil {
		return err
	}
	s.Cache.Invalidate(userID, cache.Goals)
	return nil
}

func (s *Store) DeleteGoal(ctx context.Context, userID, goalID string) error {
	if err := database.DeleteGoal(ctx, s.Pool, goalID); err != nil {
		return err
	}
	s.Cache.Invalidate(userID, cache.Goals)
	return nil
}

// --- Инкрементальные выборки ---
// Не кэшируются: выборка изменений обязана быть всегда свежей,
// закэшированный пустой результат прятал бы обновления до истечения TTL.

func (s *Store) AccountsChangedSince(ctx context.Context, userID string, since time.Time) ([]models.Account, error) {
	return database.AccountsChangedSince(ctx, s.Pool, userID, since)
}

func (s *Store) TransactionsChangedSince(ctx context.Context, userID string, since time.Time) ([]models.Transaction, error) {
	return database.TransactionsChangedSince(ctx, s.Pool, userID, since)
}

func (s *Store) GoalsChangedSince(ctx context.Context, userID string, since time.Time) ([]models.Goal, error) {
	return database.GoalsChangedSince(ctx, s.Pool, userID, since)
}

// --- Прогрев ---

// WarmUser наполняет кэш пользователя после входа, чтобы первое чтение
// после логина было попаданием. Ошибки прогрева только логируются:
// вход пользователя из-за них не падает и не ждет.
func (s *Store) WarmUser(ctx context.Context, userID string) {
	started := time.Now()
	if _, err := s.AccountsByUser(ctx, userID); err != nil {
		s.Log.Warn().Err(err).Str("user_id", userID).Msg("прогрев кэша счетов не удался")
	}
	if _, err := s.TransactionsByUser(ctx, userID); err != nil {
		s.Log.Warn().Err(err).Str("user_id", userID).Msg("прогрев кэша транзакций не удался")
	}
	if _, err := s.GoalsByUser(ctx, userID); err != nil {
		s.Log.Warn().Err(err).Str("user_id", userID).Msg("прогрев кэша целей не удался")
	}
	s.Log.Debug().Str("user_id", userID).Dur("took", time.Since(started)).Msg("прогрев кэша завершен")
}

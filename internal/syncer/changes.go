package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/ekaterinavolkova/budget-sync-app/models"
)

// ChangesService отдает записи, изменившиеся строго позже водяного знака.
// Выборки идут по вторичному индексу (пользователь, updated_at) и никогда
// не кэшируются: закэшированный пустой ответ прятал бы свежие изменения.
type ChangesService struct {
	Store ChangesStore
}

func NewChangesService(store ChangesStore) *ChangesService {
	return &ChangesService{Store: store}
}

// GetChangesSince собирает изменения по трем коллекциям. AsOf — серверное
// время начала выборки, клиент передает его водяным знаком следующего запроса.
func (s *ChangesService) GetChangesSince(ctx context.Context, userID string, watermark time.Time) (models.Changes, error) {
	changes := models.Changes{AsOf: time.Now().UTC()}

	accounts, err := s.Store.AccountsChangedSince(ctx, userID, watermark)
	if err != nil {
		return changes, fmt.Errorf("изменения счетов: %w", err)
	}
	changes.Accounts = accounts

	transactions, err := s.Store.TransactionsChangedSince(ctx, userID, watermark)
	if err != nil {
		return changes, fmt.Errorf("изменения транзакций: %w", err)
	}
	changes.Transactions = transactions

	goals, err := s.Store.GoalsChangedSince(ctx, userID, watermark)
	if err != nil {
		return changes, fmt.Errorf("изменения целей: %w", err)
	}
	changes.Goals = goals

	return changes, nil
}

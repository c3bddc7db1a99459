package syncer_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ekaterinavolkova/budget-sync-app/models"
	"github.com/shopspring/decimal"
)

// Хранилища в памяти для тестов движка и оркестратора. Повторяют контракт
// базы: Get* возвращают nil без ошибки при отсутствии записи, условные
// вставки отклоняются при конфликте уникальности, все под мьютексом.

type memAccountStore struct {
	mu       sync.Mutex
	accounts []*models.Account
	// beforeInsert вызывается в начале InsertAccountIfAbsent —
	// так тесты подсовывают конкурирующую вставку между проверкой и записью.
	beforeInsert func()
}

func newMemAccountStore() *memAccountStore {
	return &memAccountStore{}
}

func (m *memAccountStore) GetAccountByExternalID(ctx context.Context, userID, externalID string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.UserID == userID && a.ExternalID != nil && *a.ExternalID == externalID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

// GetAccountByNumber повторяет мягкое сопоставление базы: при заданном
// institution подходит то же название банка либо запись без названия,
// точное совпадение предпочтительнее.
func (m *memAccountStore) GetAccountByNumber(ctx context.Context, userID, number string, institution *string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var unnamed *models.Account
	for _, a := range m.accounts {
		if a.UserID != userID || a.AccountNumber == nil || *a.AccountNumber != number {
			continue
		}
		if institution == nil {
			cp := *a
			return &cp, nil
		}
		if a.InstitutionName == nil {
			if unnamed == nil {
				unnamed = a
			}
			continue
		}
		if *a.InstitutionName == *institution {
			cp := *a
			return &cp, nil
		}
	}
	if unnamed != nil {
		cp := *unnamed
		return &cp, nil
	}
	return nil, nil
}

func (m *memAccountStore) InsertAccountIfAbsent(ctx context.Context, acc *models.Account) (bool, error) {
	if m.beforeInsert != nil {
		m.beforeInsert()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.UserID != acc.UserID {
			continue
		}
		if acc.ExternalID != nil && a.ExternalID != nil && *a.ExternalID == *acc.ExternalID {
			return false, nil
		}
		if acc.ExternalID == nil && acc.AccountNumber != nil &&
			a.AccountNumber != nil && *a.AccountNumber == *acc.AccountNumber {
			return false, nil
		}
	}
	cp := *acc
	m.accounts = append(m.accounts, &cp)
	return true, nil
}

func (m *memAccountStore) UpdateAccountFields(ctx context.Context, userID, accountID string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.ID != accountID {
			continue
		}
		for k, v := range fields {
			switch k {
			case "name":
				a.Name = v.(string)
			case "is_active":
				a.IsActive = v.(bool)
			case "account_type":
				a.AccountType = v.(string)
			case "account_subtype":
				s := v.(string)
				a.AccountSubtype = &s
			case "balance":
				a.Balance = v.(decimal.Decimal)
			case "currency":
				a.Currency = v.(string)
			case "external_account_id":
				s := v.(string)
				a.ExternalID = &s
			case "institution_name":
				s := v.(string)
				a.InstitutionName = &s
			case "account_number":
				s := v.(string)
				a.AccountNumber = &s
			default:
				return fmt.Errorf("неизвестное поле счета %q", k)
			}
		}
		a.UpdatedAt = time.Now().UTC()
		return nil
	}
	return fmt.Errorf("счет %s не найден", accountID)
}

func (m *memAccountStore) TouchAccountSynced(ctx context.Context, userID, accountID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.ID == accountID {
			t := at
			a.LastSyncedAt = &t
			return nil
		}
	}
	return fmt.Errorf("счет %s не найден", accountID)
}

func (m *memAccountStore) seed(acc models.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := acc
	m.accounts = append(m.accounts, &cp)
}

func (m *memAccountStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.accounts)
}

func (m *memAccountStore) byID(id string) *models.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.ID == id {
			cp := *a
			return &cp
		}
	}
	return nil
}

type memTransactionStore struct {
	mu           sync.Mutex
	transactions []*models.Transaction
	beforeInsert func()
}

func newMemTransactionStore() *memTransactionStore {
	return &memTransactionStore{}
}

func (m *memTransactionStore) GetTransactionByExternalID(ctx context.Context, userID, externalID string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range m.transactions {
		if tx.UserID == userID && tx.ExternalID != nil && *tx.ExternalID == externalID {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memTransactionStore) InsertTransactionIfAbsent(ctx context.Context, tx *models.Transaction) (bool, error) {
	if m.beforeInsert != nil {
		m.beforeInsert()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.transactions {
		if existing.UserID == tx.UserID && existing.ExternalID != nil && tx.ExternalID != nil &&
			*existing.ExternalID == *tx.ExternalID {
			return false, nil
		}
	}
	cp := *tx
	m.transactions = append(m.transactions, &cp)
	return true, nil
}

func (m *memTransactionStore) UpdateTransactionFields(ctx context.Context, userID, transactionID string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range m.transactions {
		if tx.ID != transactionID {
			continue
		}
		for k, v := range fields {
			switch k {
			case "amount":
				tx.Amount = v.(decimal.Decimal)
			case "transaction_date":
				tx.Date = v.(time.Time)
			case "description":
				tx.Description = v.(string)
			case "category":
				tx.Category = v.(string)
			case "currency":
				tx.Currency = v.(string)
			case "is_pending":
				tx.IsPending = v.(bool)
			default:
				return fmt.Errorf("неизвестное поле транзакции %q", k)
			}
		}
		tx.UpdatedAt = time.Now().UTC()
		return nil
	}
	return fmt.Errorf("транзакция %s не найдена", transactionID)
}

func (m *memTransactionStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.transactions)
}

func (m *memTransactionStore) byExternalID(externalID string) *models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range m.transactions {
		if tx.ExternalID != nil && *tx.ExternalID == externalID {
			cp := *tx
			return &cp
		}
	}
	return nil
}

type memGoalStore struct {
	mu    sync.Mutex
	goals map[string]*models.Goal
}

func newMemGoalStore() *memGoalStore {
	return &memGoalStore{goals: make(map[string]*models.Goal)}
}

func (m *memGoalStore) seed(goal models.Goal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := goal
	m.goals[goal.ID] = &cp
}

// AddGoalProgress повторяет серверный инкремент базы: прибавление и чтение
// итоговой суммы — одна операция под блокировкой.
func (m *memGoalStore) AddGoalProgress(ctx context.Context, goalID string, delta decimal.Decimal) (*models.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	goal, ok := m.goals[goalID]
	if !ok {
		return nil, fmt.Errorf("цель %s не найдена", goalID)
	}
	goal.CurrentAmount = goal.CurrentAmount.Add(delta)
	goal.UpdatedAt = time.Now().UTC()
	cp := *goal
	return &cp, nil
}

func (m *memGoalStore) UpdateGoalFields(ctx context.Context, userID, goalID string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	goal, ok := m.goals[goalID]
	if !ok {
		return fmt.Errorf("цель %s не найдена", goalID)
	}
	for k, v := range fields {
		switch k {
		case "is_completed":
			goal.IsCompleted = v.(bool)
		case "completed_at":
			if v == nil {
				goal.CompletedAt = nil
			} else {
				t := v.(time.Time)
				goal.CompletedAt = &t
			}
		default:
			return fmt.Errorf("неизвестное поле цели %q", k)
		}
	}
	goal.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memGoalStore) byID(id string) *models.Goal {
	m.mu.Lock()
	defer m.mu.Unlock()
	goal, ok := m.goals[id]
	if !ok {
		return nil
	}
	cp := *goal
	return &cp
}

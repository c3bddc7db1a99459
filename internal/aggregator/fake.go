package aggregator

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/ekaterinavolkova/budget-sync-app/internal/syncer"
	"github.com/ekaterinavolkova/budget-sync-app/models"
	"github.com/goccy/go-json"
)

// Fake — агрегатор с заранее заданными выгрузками. Настоящий клиент внешнего
// API — отдельный сервис за интерфейсом syncer.Aggregator; Fake закрывает
// локальные запуски, демо и тесты оркестратора, включая имитацию временных
// сбоев и протухшего токена.
type Fake struct {
	mu           sync.Mutex
	ValidToken   string
	Accounts     []models.AccountPayload
	Transactions map[string][]models.TransactionPayload // ключ — внешний id счета
	PageSize     int
	failuresLeft int
}

// dataset — формат JSON-файла с заготовленными выгрузками.
type dataset struct {
	Accounts     []models.AccountPayload                `json:"accounts"`
	Transactions map[string][]models.TransactionPayload `json:"transactions"`
}

func New(validToken string) *Fake {
	return &Fake{
		ValidToken:   validToken,
		Transactions: make(map[string][]models.TransactionPayload),
		PageSize:     100,
	}
}

// FromJSON строит Fake из заготовленной выгрузки агрегатора.
func FromJSON(validToken string, data []byte) (*Fake, error) {
	var ds dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("ошибка разбора выгрузки агрегатора: %w", err)
	}
	f := New(validToken)
	f.Accounts = ds.Accounts
	if ds.Transactions != nil {
		f.Transactions = ds.Transactions
	}
	return f, nil
}

// FailNext заставляет следующие n вызовов вернуть временный сбой —
// для проверки ограниченных повторов оркестратора.
func (f *Fake) FailNext(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failuresLeft = n
}

func (f *Fake) checkToken(token string) error {
	if token != f.ValidToken {
		return fmt.Errorf("%w: токен не распознан", syncer.ErrInvalidToken)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return fmt.Errorf("%w: имитация сбоя сети", syncer.ErrTransient)
	}
	return nil
}

func (f *Fake) ListAccounts(ctx context.Context, accessToken string) ([]models.AccountPayload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.checkToken(accessToken); err != nil {
		return nil, err
	}
	out := make([]models.AccountPayload, len(f.Accounts))
	copy(out, f.Accounts)
	return out, nil
}

func (f *Fake) ListTransactions(ctx context.Context, accessToken, externalAccountID, cursor string) ([]models.TransactionPayload, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	if err := f.checkToken(accessToken); err != nil {
		return nil, "", err
	}

	all := f.Transactions[externalAccountID]
	offset := 0
	if cursor != "" {
		var err error
		offset, err = strconv.Atoi(cursor)
		if err != nil || offset < 0 {
			return nil, "", fmt.Errorf("некорректный курсор %q", cursor)
		}
	}
	if offset >= len(all) {
		return nil, "", nil
	}

	end := offset + f.PageSize
	next := ""
	if end >= len(all) {
		end = len(all)
	} else {
		next = strconv.Itoa(end)
	}

	page := make([]models.TransactionPayload, end-offset)
	copy(page, all[offset:end])
	return page, next, nil
}

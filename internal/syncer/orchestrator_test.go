package syncer_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ekaterinavolkova/budget-sync-app/internal/aggregator"
	"github.com/ekaterinavolkova/budget-sync-app/internal/logger"
	"github.com/ekaterinavolkova/budget-sync-app/internal/syncer"
	"github.com/ekaterinavolkova/budget-sync-app/models"
)

const testToken = "test-token"

func newTestOrchestrator(agg *aggregator.Fake, accounts *memAccountStore, transactions *memTransactionStore) *syncer.Orchestrator {
	log := logger.NewWithWriter(io.Discard)
	engine := syncer.NewEngine(accounts, transactions, log)
	orch := syncer.NewOrchestrator(agg, engine, accounts, log)
	// В тестах выдержка между повторами не нужна.
	orch.Retry = syncer.RetryConfig{Attempts: 3, BaseDelay: time.Millisecond}
	return orch
}

func seedFake() *aggregator.Fake {
	fake := aggregator.New(testToken)
	fake.Accounts = []models.AccountPayload{
		{
			ExternalID:    strPtr("ext-a"),
			Name:          "Текущий",
			AccountNumber: strPtr("0001"),
			Type:          "depository",
			Balance:       decPtr("500"),
		},
		{
			ExternalID:    strPtr("ext-b"),
			Name:          "Кредитка",
			AccountNumber: strPtr("0002"),
			Type:          "credit",
			Balance:       decPtr("-120"),
		},
	}
	fake.Transactions["ext-a"] = []models.TransactionPayload{
		{ExternalID: strPtr("tx-1"), Amount: decPtr("-42"), Date: strPtr("2026-08-20")},
		{ExternalID: strPtr("tx-2"), Amount: decPtr("-13.50"), Date: strPtr("2026-08-21")},
		{ExternalID: strPtr("tx-3"), Amount: decPtr("1000"), Date: strPtr("2026-08-22")},
	}
	fake.Transactions["ext-b"] = []models.TransactionPayload{
		{ExternalID: strPtr("tx-4"), Amount: decPtr("-99"), Date: strPtr("2026-08-23")},
	}
	return fake
}

func TestSyncUserFullPass(t *testing.T) {
	fake := seedFake()
	accounts := newMemAccountStore()
	transactions := newMemTransactionStore()
	orch := newTestOrchestrator(fake, accounts, transactions)
	ctx := context.Background()

	result, err := orch.SyncUser(ctx, "user-1", testToken)
	if err != nil {
		t.Fatalf("ошибка прохода: %v", err)
	}
	if result.CreatedCount != 6 {
		t.Errorf("created=%d, ожидали 6 (2 счета + 4 транзакции)", result.CreatedCount)
	}
	if result.UpdatedCount != 0 || result.SkippedCount != 0 || len(result.Errors) != 0 {
		t.Errorf("лишние исходы в чистом проходе: %+v", result)
	}
	if accounts.len() != 2 || transactions.len() != 4 {
		t.Errorf("в хранилище %d счетов и %d транзакций", accounts.len(), transactions.len())
	}

	// Повторный проход по той же выгрузке: только обновления, дублей нет.
	result, err = orch.SyncUser(ctx, "user-1", testToken)
	if err != nil {
		t.Fatalf("ошибка повторного прохода: %v", err)
	}
	if result.CreatedCount != 0 || result.UpdatedCount != 6 {
		t.Errorf("повторный проход: created=%d updated=%d, ожидали 0/6", result.CreatedCount, result.UpdatedCount)
	}
	if accounts.len() != 2 || transactions.len() != 4 {
		t.Errorf("повторный проход изменил размер хранилища: %d/%d", accounts.len(), transactions.len())
	}
}

func TestSyncUserPaginatesTransactions(t *testing.T) {
	fake := seedFake()
	fake.PageSize = 2 // 3 транзакции ext-a разойдутся на две страницы
	accounts := newMemAccountStore()
	transactions := newMemTransactionStore()
	orch := newTestOrchestrator(fake, accounts, transactions)

	result, err := orch.SyncUser(context.Background(), "user-1", testToken)
	if err != nil {
		t.Fatalf("ошибка прохода: %v", err)
	}
	if transactions.len() != 4 {
		t.Errorf("постраничная выгрузка потеряла записи: %d из 4", transactions.len())
	}
	if result.CreatedCount != 6 {
		t.Errorf("created=%d, ожидали 6", result.CreatedCount)
	}
}

func TestSyncUserRetriesTransient(t *testing.T) {
	fake := seedFake()
	fake.FailNext(2) // два сбоя, третья попытка успешна
	orch := newTestOrchestrator(fake, newMemAccountStore(), newMemTransactionStore())

	result, err := orch.SyncUser(context.Background(), "user-1", testToken)
	if err != nil {
		t.Fatalf("повторы должны были пережить временные сбои: %v", err)
	}
	if result.CreatedCount != 6 {
		t.Errorf("created=%d, ожидали 6", result.CreatedCount)
	}
}

func TestSyncUserRetriesExhausted(t *testing.T) {
	fake := seedFake()
	fake.FailNext(3) // сбоев больше, чем попыток
	orch := newTestOrchestrator(fake, newMemAccountStore(), newMemTransactionStore())

	_, err := orch.SyncUser(context.Background(), "user-1", testToken)
	if err == nil {
		t.Fatal("ожидали ошибку после исчерпания повторов")
	}
	if !errors.Is(err, syncer.ErrTransient) {
		t.Errorf("ошибка должна нести временный сбой: %v", err)
	}
}

func TestSyncUserInvalidTokenSurfacesImmediately(t *testing.T) {
	fake := seedFake()
	orch := newTestOrchestrator(fake, newMemAccountStore(), newMemTransactionStore())

	started := time.Now()
	_, err := orch.SyncUser(context.Background(), "user-1", "протухший")
	if !errors.Is(err, syncer.ErrInvalidToken) {
		t.Fatalf("ожидали ErrInvalidToken, получили %v", err)
	}
	// Недействительный токен не ретраится, выдержки между попытками нет.
	if took := time.Since(started); took > 100*time.Millisecond {
		t.Errorf("похоже, токен ретраился: проход занял %v", took)
	}
}

func TestSyncUserIsolatesBadRecords(t *testing.T) {
	fake := seedFake()
	// Кривой счет без идентификаторов и кривая транзакция без даты.
	fake.Accounts = append(fake.Accounts, models.AccountPayload{Name: "Безликий"})
	fake.Transactions["ext-b"] = append(fake.Transactions["ext-b"],
		models.TransactionPayload{ExternalID: strPtr("tx-bad"), Amount: decPtr("5")})

	accounts := newMemAccountStore()
	transactions := newMemTransactionStore()
	orch := newTestOrchestrator(fake, accounts, transactions)

	result, err := orch.SyncUser(context.Background(), "user-1", testToken)
	if err != nil {
		t.Fatalf("кривые записи не должны валить проход: %v", err)
	}
	if result.CreatedCount != 6 {
		t.Errorf("created=%d, ожидали 6 здоровых записей", result.CreatedCount)
	}
	if result.SkippedCount != 2 || len(result.Errors) != 2 {
		t.Errorf("skipped=%d errors=%d, ожидали 2/2", result.SkippedCount, len(result.Errors))
	}
	for _, e := range result.Errors {
		if e.RecordRef == "" || e.Reason == "" {
			t.Errorf("ошибка записи без контекста: %+v", e)
		}
	}
}

func TestSyncUserContextCancellation(t *testing.T) {
	fake := seedFake()
	orch := newTestOrchestrator(fake, newMemAccountStore(), newMemTransactionStore())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := orch.SyncUser(ctx, "user-1", testToken)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ожидали context.Canceled, получили %v", err)
	}
}

func TestSyncUserMarksAccountsSynced(t *testing.T) {
	fake := seedFake()
	accounts := newMemAccountStore()
	orch := newTestOrchestrator(fake, accounts, newMemTransactionStore())

	if _, err := orch.SyncUser(context.Background(), "user-1", testToken); err != nil {
		t.Fatalf("ошибка прохода: %v", err)
	}
	acc, err := accounts.GetAccountByExternalID(context.Background(), "user-1", "ext-a")
	if err != nil || acc == nil {
		t.Fatalf("счет ext-a не найден после прохода: %v", err)
	}
	if acc.LastSyncedAt == nil {
		t.Errorf("время синхронизации счета не проставлено")
	}
}

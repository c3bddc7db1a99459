package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ekaterinavolkova/budget-sync-app/models"
	"github.com/rs/zerolog"
)

// RetryConfig — ограниченные повторы обращений к агрегатору.
type RetryConfig struct {
	Attempts  int
	BaseDelay time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{Attempts: 3, BaseDelay: 500 * time.Millisecond}
}

// Orchestrator забирает пачки счетов и транзакций у агрегатора и прогоняет
// каждую запись через движок сверки. Проход — самостоятельная единица работы:
// состояние между проходами не разделяется, несколько проходов одного
// пользователя (вебхук + ручной запуск + повтор) могут идти параллельно,
// корректность обеспечивают условные записи хранилища.
type Orchestrator struct {
	Agg    Aggregator
	Engine *Engine
	Store  AccountStore
	Log    zerolog.Logger
	Retry  RetryConfig
}

func NewOrchestrator(agg Aggregator, engine *Engine, store AccountStore, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{Agg: agg, Engine: engine, Store: store, Log: log, Retry: DefaultRetryConfig()}
}

// syncedAccount — счет, прошедший сверку в этом проходе; по его внешнему id
// затем выгружаются транзакции.
type syncedAccount struct {
	accountID  string
	externalID string
}

// SyncUser выполняет один проход синхронизации пользователя.
//
// Ошибка отдельной записи не прерывает проход: запись попадает в
// result.Errors, проход продолжается. Наверх возвращаются только ошибки
// уровня прохода — протухший токен или исчерпанные повторы. Частично
// накопленный результат возвращается и при ошибке прохода; уже записанные
// записи не откатываются, сверка каждой — отдельная единица работы.
func (o *Orchestrator) SyncUser(ctx context.Context, userID, accessToken string) (models.SyncResult, error) {
	result := models.SyncResult{}
	log := o.Log.With().Str("user_id", userID).Logger()
	log.Info().Msg("старт прохода синхронизации")

	var payloads []models.AccountPayload
	err := o.withRetry(ctx, "list_accounts", func() error {
		var err error
		payloads, err = o.Agg.ListAccounts(ctx, accessToken)
		return err
	})
	if err != nil {
		return result, fmt.Errorf("выгрузка счетов из агрегатора: %w", err)
	}

	var synced []syncedAccount
	for _, p := range payloads {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		outcome, acc, err := o.Engine.ReconcileAccount(ctx, userID, p)
		if err != nil {
			// Изолируем и продолжаем: одна кривая запись не валит пачку.
			log.Warn().Err(err).Str("account_name", p.Name).Msg("счет пропущен")
			result.SkippedCount++
			result.AddError(accountRef(p), err.Error())
			continue
		}
		o.count(&result, outcome)

		if acc != nil {
			if err := o.Store.TouchAccountSynced(ctx, userID, acc.ID, time.Now().UTC()); err != nil {
				log.Warn().Err(err).Str("account_id", acc.ID).Msg("не удалось отметить время синхронизации")
			}
			if ext := strVal(acc.ExternalID); ext != "" {
				synced = append(synced, syncedAccount{accountID: acc.ID, externalID: ext})
			}
		}
	}

	for _, sa := range synced {
		if err := o.syncAccountTransactions(ctx, &result, log, userID, accessToken, sa); err != nil {
			return result, err
		}
	}

	log.Info().
		Int("created", result.CreatedCount).
		Int("updated", result.UpdatedCount).
		Int("skipped", result.SkippedCount).
		Int("errors", len(result.Errors)).
		Msg("проход синхронизации завершен")
	return result, nil
}

func (o *Orchestrator) syncAccountTransactions(ctx context.Context, result *models.SyncResult, log zerolog.Logger, userID, accessToken string, sa syncedAccount) error {
	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var (
			payloads []models.TransactionPayload
			next     string
		)
		err := o.withRetry(ctx, "list_transactions", func() error {
			var err error
			payloads, next, err = o.Agg.ListTransactions(ctx, accessToken, sa.externalID, cursor)
			return err
		})
		if err != nil {
			return fmt.Errorf("выгрузка транзакций счета %s: %w", sa.externalID, err)
		}

		for _, p := range payloads {
			if err := ctx.Err(); err != nil {
				return err
			}
			outcome, err := o.Engine.ReconcileTransaction(ctx, userID, sa.accountID, p)
			if err != nil {
				log.Warn().Err(err).Str("external_id", strVal(p.ExternalID)).Msg("транзакция пропущена")
				result.SkippedCount++
				result.AddError(transactionRef(p), err.Error())
				continue
			}
			o.count(result, outcome)
		}

		if next == "" {
			return nil
		}
		cursor = next
	}
}

func (o *Orchestrator) count(result *models.SyncResult, outcome Outcome) {
	switch outcome {
	case OutcomeCreated:
		result.CreatedCount++
	case OutcomeUpdated:
		result.UpdatedCount++
	default:
		result.SkippedCount++
	}
}

// withRetry повторяет обращение к агрегатору с экспоненциальной выдержкой.
// Повторяются только временные сбои; недействительный токен отдается сразу,
// без поштучных повторов.
func (o *Orchestrator) withRetry(ctx context.Context, op string, fn func() error) error {
	attempts := o.Retry.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrInvalidToken) || !errors.Is(lastErr, ErrTransient) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		delay := o.Retry.BaseDelay * time.Duration(1<<(attempt-1))
		o.Log.Warn().
			Err(lastErr).
			Str("op", op).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("временный сбой агрегатора, повтор")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("повторы исчерпаны (%d): %w", attempts, lastErr)
}

func accountRef(p models.AccountPayload) string {
	if ext := strVal(p.ExternalID); ext != "" {
		return "account:" + ext
	}
	if num := strVal(p.AccountNumber); num != "" {
		return "account:mask:" + num
	}
	return "account:" + p.Name
}

func transactionRef(p models.TransactionPayload) string {
	if ext := strVal(p.ExternalID); ext != "" {
		return "transaction:" + ext
	}
	return "transaction:<без id>"
}

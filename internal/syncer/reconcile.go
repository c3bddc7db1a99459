package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/ekaterinavolkova/budget-sync-app/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const payloadDateFormat = "2006-01-02"

// Outcome — решение движка сверки по одной входящей записи.
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeCreated
	OutcomeUpdated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	default:
		return "skipped"
	}
}

// Engine — движок дедупликации и сверки. По одной внешней записи решает,
// новая она, обновление существующей или дубль под другим идентификатором,
// и выполняет соответствующую запись безопасно при параллельных проходах.
//
// Идентичность внешней записи нестабильна: после повторной привязки тот же
// реальный счет приходит с другим внешним id, а название банка может
// отсутствовать в выгрузке, даже когда оно есть в сохраненной записи.
// Поэтому сигналы сверяются строго по порядку, побеждает первое совпадение.
type Engine struct {
	Accounts     AccountStore
	Transactions TransactionStore
	Log          zerolog.Logger
}

func NewEngine(accounts AccountStore, transactions TransactionStore, log zerolog.Logger) *Engine {
	return &Engine{Accounts: accounts, Transactions: transactions, Log: log}
}

func strVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// normalized возвращает nil вместо указателя на пустую строку.
func normalized(p *string) *string {
	if p == nil || *p == "" {
		return nil
	}
	return p
}

// ReconcileAccount сверяет входящий счет с хранилищем.
//
// Порядок сигналов:
//  1. (пользователь, внешний id счета) — когда внешний id во входе есть;
//  2. (пользователь, номер счета) — когда название банка во входе пустое,
//     наличие названия у сохраненной записи не требуется;
//  3. (пользователь, номер счета, название банка) — когда есть оба;
//  4. совпадений нет — создается новый счет через условную вставку.
//
// Совпадение по 2 или 3 при расхождении внешнего id означает повторную
// привязку (перегенерация токена): вместо дубля обновляется внешний id
// существующей записи. Без этого отката на номер счета каждая перепривязка
// молча плодила бы дубль счета.
func (e *Engine) ReconcileAccount(ctx context.Context, userID string, p models.AccountPayload) (Outcome, *models.Account, error) {
	if p.Name == "" {
		return OutcomeSkipped, nil, fmt.Errorf("некорректный счет: пустое название")
	}
	externalID := strVal(p.ExternalID)
	accountNumber := strVal(p.AccountNumber)
	if externalID == "" && accountNumber == "" {
		return OutcomeSkipped, nil, fmt.Errorf("некорректный счет %q: нет ни внешнего id, ни номера счета", p.Name)
	}

	// Сигнал 1: внешний идентификатор.
	if externalID != "" {
		acc, err := e.Accounts.GetAccountByExternalID(ctx, userID, externalID)
		if err != nil {
			return OutcomeSkipped, nil, err
		}
		if acc != nil {
			if err := e.updateMatchedAccount(ctx, acc, p); err != nil {
				return OutcomeSkipped, nil, err
			}
			return OutcomeUpdated, acc, nil
		}
	}

	// Сигналы 2 и 3: номер счета, с названием банка или без него.
	if accountNumber != "" {
		acc, err := e.Accounts.GetAccountByNumber(ctx, userID, accountNumber, normalized(p.InstitutionName))
		if err != nil {
			return OutcomeSkipped, nil, err
		}
		if acc != nil {
			if externalID != "" && strVal(acc.ExternalID) != externalID {
				e.Log.Info().
					Str("user_id", userID).
					Str("account_id", acc.ID).
					Str("old_external_id", strVal(acc.ExternalID)).
					Str("new_external_id", externalID).
					Msg("счет совпал по номеру, внешний id обновлен после перепривязки")
			}
			if err := e.updateMatchedAccount(ctx, acc, p); err != nil {
				return OutcomeSkipped, nil, err
			}
			return OutcomeUpdated, acc, nil
		}
	}

	// Сигнал 4: совпадений нет, создаем новый счет.
	return e.createAccount(ctx, userID, p)
}

// updateMatchedAccount обновляет совпавший счет частичной записью: трогаются
// только присланные поля, внешний id и название банка доливаются при
// необходимости. Полная перезапись записи исключена.
func (e *Engine) updateMatchedAccount(ctx context.Context, acc *models.Account, p models.AccountPayload) error {
	now := time.Now().UTC()
	fields := map[string]any{
		"name":      p.Name,
		"is_active": true,
	}
	acc.Name = p.Name
	acc.IsActive = true

	if p.Type != "" {
		fields["account_type"] = p.Type
		acc.AccountType = p.Type
	}
	if sub := normalized(p.Subtype); sub != nil {
		fields["account_subtype"] = *sub
		acc.AccountSubtype = sub
	}
	if p.Balance != nil {
		fields["balance"] = *p.Balance
		acc.Balance = *p.Balance
	}
	if cur := normalized(p.Currency); cur != nil {
		fields["currency"] = *cur
		acc.Currency = *cur
	}
	// Долив внешнего id: сценарий перепривязки, id поменялся или отсутствовал.
	if ext := normalized(p.ExternalID); ext != nil && strVal(acc.ExternalID) != *ext {
		fields["external_account_id"] = *ext
		acc.ExternalID = ext
	}
	// Долив названия банка, когда оно впервые появилось в выгрузке.
	if inst := normalized(p.InstitutionName); inst != nil && strVal(acc.InstitutionName) == "" {
		fields["institution_name"] = *inst
		acc.InstitutionName = inst
	}
	if num := normalized(p.AccountNumber); num != nil && strVal(acc.AccountNumber) == "" {
		fields["account_number"] = *num
		acc.AccountNumber = num
	}

	acc.UpdatedAt = now
	return e.Accounts.UpdateAccountFields(ctx, acc.UserID, acc.ID, fields)
}

func (e *Engine) createAccount(ctx context.Context, userID string, p models.AccountPayload) (Outcome, *models.Account, error) {
	now := time.Now().UTC()
	acc := &models.Account{
		ID:              uuid.NewString(),
		UserID:          userID,
		ExternalID:      normalized(p.ExternalID),
		Name:            p.Name,
		InstitutionName: normalized(p.InstitutionName),
		AccountNumber:   normalized(p.AccountNumber),
		AccountType:     p.Type,
		AccountSubtype:  normalized(p.Subtype),
		Currency:        "USD",
		IsActive:        true,
		UpdatedAt:       now,
		CreatedAt:       now,
	}
	if acc.AccountType == "" {
		acc.AccountType = "other"
	}
	if p.Balance != nil {
		acc.Balance = *p.Balance
	}
	if cur := normalized(p.Currency); cur != nil {
		acc.Currency = *cur
	}

	inserted, err := e.Accounts.InsertAccountIfAbsent(ctx, acc)
	if err != nil {
		return OutcomeSkipped, nil, err
	}
	if inserted {
		return OutcomeCreated, acc, nil
	}

	// Условная вставка отклонена: параллельный проход вставил тот же счет
	// между нашей проверкой и записью. Перечитываем и обновляем вместо дубля.
	existing, err := e.refindAccount(ctx, userID, p)
	if err != nil {
		return OutcomeSkipped, nil, err
	}
	if existing == nil {
		return OutcomeSkipped, nil, fmt.Errorf("счет %q: вставка отклонена, но существующая запись не найдена", p.Name)
	}
	if err := e.updateMatchedAccount(ctx, existing, p); err != nil {
		return OutcomeSkipped, nil, err
	}
	return OutcomeUpdated, existing, nil
}

func (e *Engine) refindAccount(ctx context.Context, userID string, p models.AccountPayload) (*models.Account, error) {
	if ext := strVal(p.ExternalID); ext != "" {
		acc, err := e.Accounts.GetAccountByExternalID(ctx, userID, ext)
		if err != nil || acc != nil {
			return acc, err
		}
	}
	if num := strVal(p.AccountNumber); num != "" {
		return e.Accounts.GetAccountByNumber(ctx, userID, num, normalized(p.InstitutionName))
	}
	return nil, nil
}

// ReconcileTransaction сверяет входящую транзакцию счета accountID.
// Слепой вставки не бывает: новая запись всегда идет через условную вставку
// по (пользователь, внешний id транзакции), а отклоненная вставка — признак
// параллельного прохода, не ошибка: запись перечитывается и обновляется.
func (e *Engine) ReconcileTransaction(ctx context.Context, userID, accountID string, p models.TransactionPayload) (Outcome, error) {
	externalID := strVal(p.ExternalID)
	if externalID == "" {
		return OutcomeSkipped, fmt.Errorf("некорректная транзакция: пустой внешний id")
	}
	if p.Amount == nil {
		return OutcomeSkipped, fmt.Errorf("некорректная транзакция %s: нет суммы", externalID)
	}
	if strVal(p.Date) == "" {
		return OutcomeSkipped, fmt.Errorf("некорректная транзакция %s: нет даты", externalID)
	}
	date, err := time.Parse(payloadDateFormat, *p.Date)
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("некорректная транзакция %s: дата %q не разбирается: %w", externalID, *p.Date, err)
	}

	existing, err := e.Transactions.GetTransactionByExternalID(ctx, userID, externalID)
	if err != nil {
		return OutcomeSkipped, err
	}
	if existing != nil {
		return OutcomeUpdated, e.updateMatchedTransaction(ctx, existing, p, date)
	}

	now := time.Now().UTC()
	tx := &models.Transaction{
		ID:         uuid.NewString(),
		UserID:     userID,
		AccountID:  accountID,
		ExternalID: &externalID,
		Amount:     *p.Amount,
		Currency:   "USD",
		Date:       date,
		UpdatedAt:  now,
		CreatedAt:  now,
	}
	if cur := normalized(p.Currency); cur != nil {
		tx.Currency = *cur
	}
	if desc := normalized(p.Description); desc != nil {
		tx.Description = *desc
	}
	if cat := normalized(p.Category); cat != nil {
		tx.Category = *cat
	}
	if p.Pending != nil {
		tx.IsPending = *p.Pending
	}

	inserted, err := e.Transactions.InsertTransactionIfAbsent(ctx, tx)
	if err != nil {
		return OutcomeSkipped, err
	}
	if inserted {
		return OutcomeCreated, nil
	}

	// Проигранная гонка с параллельным проходом синхронизации.
	existing, err = e.Transactions.GetTransactionByExternalID(ctx, userID, externalID)
	if err != nil {
		return OutcomeSkipped, err
	}
	if existing == nil {
		return OutcomeSkipped, fmt.Errorf("транзакция %s: вставка отклонена, но существующая запись не найдена", externalID)
	}
	return OutcomeUpdated, e.updateMatchedTransaction(ctx, existing, p, date)
}

// updateMatchedTransaction накатывает поправки апстрима (сумма, категория,
// флаг pending) частичным обновлением.
func (e *Engine) updateMatchedTransaction(ctx context.Context, tx *models.Transaction, p models.TransactionPayload, date time.Time) error {
	fields := map[string]any{
		"amount":           *p.Amount,
		"transaction_date": date,
	}
	if desc := normalized(p.Description); desc != nil {
		fields["description"] = *desc
	}
	if cat := normalized(p.Category); cat != nil {
		fields["category"] = *cat
	}
	if cur := normalized(p.Currency); cur != nil {
		fields["currency"] = *cur
	}
	if p.Pending != nil {
		fields["is_pending"] = *p.Pending
	}
	return e.Transactions.UpdateTransactionFields(ctx, tx.UserID, tx.ID, fields)
}

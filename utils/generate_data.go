package utils

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/ekaterinavolkova/budget-sync-app/internal/aggregator"
	"github.com/ekaterinavolkova/budget-sync-app/models"
	"github.com/shopspring/decimal"
)

var accountTypes = []string{"depository", "credit", "investment"}

// GenerateAggregatorData наполняет фейковый агрегатор случайными счетами и
// транзакциями — для локального запуска и демонстрации синхронизации.
func GenerateAggregatorData(validToken string, numAccounts, txPerAccount int) *aggregator.Fake {
	fake := aggregator.New(validToken)

	for i := 0; i < numAccounts; i++ {
		externalID := fmt.Sprintf("ext-acc-%s", gofakeit.UUID())
		mask := fmt.Sprintf("%04d", rand.Intn(10000))
		institution := gofakeit.Company()
		balance := decimal.NewFromFloat(gofakeit.Price(100, 50000))
		currency := "USD"
		subtype := "checking"

		fake.Accounts = append(fake.Accounts, models.AccountPayload{
			ExternalID:      &externalID,
			Name:            gofakeit.NounAbstract() + " account",
			InstitutionName: &institution,
			AccountNumber:   &mask,
			Type:            accountTypes[rand.Intn(len(accountTypes))],
			Subtype:         &subtype,
			Balance:         &balance,
			Currency:        &currency,
		})

		for j := 0; j < txPerAccount; j++ {
			txID := fmt.Sprintf("ext-tx-%s", gofakeit.UUID())
			amount := decimal.NewFromFloat(gofakeit.Price(1, 1000))
			desc := gofakeit.Company()
			category := gofakeit.ProductCategory()
			now := time.Now()
			date := gofakeit.DateRange(now.AddDate(-1, 0, 0), now).Format("2006-01-02")
			pending := rand.Intn(10) == 0

			fake.Transactions[externalID] = append(fake.Transactions[externalID], models.TransactionPayload{
				ExternalID:        &txID,
				ExternalAccountID: &externalID,
				Amount:            &amount,
				Currency:          &currency,
				Description:       &desc,
				Category:          &category,
				Date:              &date,
				Pending:           &pending,
			})
		}
	}

	return fake
}

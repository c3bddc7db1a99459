package syncer_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ekaterinavolkova/budget-sync-app/internal/logger"
	"github.com/ekaterinavolkova/budget-sync-app/internal/syncer"
	"github.com/ekaterinavolkova/budget-sync-app/models"
	"github.com/shopspring/decimal"
)

func newTestUpdater(goals *memGoalStore) *syncer.ProgressUpdater {
	return syncer.NewProgressUpdater(goals, logger.NewWithWriter(io.Discard))
}

func TestContributeToGoalConcurrentAdds(t *testing.T) {
	goals := newMemGoalStore()
	goals.seed(models.Goal{
		ID:            "goal-1",
		UserID:        "user-1",
		Name:          "Отпуск",
		TargetAmount:  decimal.RequireFromString("1000"),
		CurrentAmount: decimal.RequireFromString("100"),
	})
	updater := newTestUpdater(goals)
	ctx := context.Background()

	// Параллельные взносы +50 и +30: оба обязаны выжить, итог 180.
	var wg sync.WaitGroup
	for _, amount := range []string{"50", "30"} {
		wg.Add(1)
		go func(a string) {
			defer wg.Done()
			if _, err := updater.ContributeToGoal(ctx, "goal-1", decimal.RequireFromString(a)); err != nil {
				t.Errorf("ошибка взноса %s: %v", a, err)
			}
		}(amount)
	}
	wg.Wait()

	goal := goals.byID("goal-1")
	if !goal.CurrentAmount.Equal(decimal.RequireFromString("180")) {
		t.Errorf("накоплено %s, ожидали 180", goal.CurrentAmount)
	}
	if goal.IsCompleted {
		t.Errorf("цель не достигнута, а флаг завершения стоит")
	}
}

func TestContributeToGoalMarksCompleted(t *testing.T) {
	goals := newMemGoalStore()
	goals.seed(models.Goal{
		ID:            "goal-1",
		UserID:        "user-1",
		Name:          "Подушка",
		TargetAmount:  decimal.RequireFromString("100"),
		CurrentAmount: decimal.RequireFromString("60"),
	})
	updater := newTestUpdater(goals)

	current, err := updater.ContributeToGoal(context.Background(), "goal-1", decimal.RequireFromString("50"))
	if err != nil {
		t.Fatalf("ошибка взноса: %v", err)
	}
	if !current.Equal(decimal.RequireFromString("110")) {
		t.Errorf("возвращено %s, ожидали 110", current)
	}
	goal := goals.byID("goal-1")
	if !goal.IsCompleted {
		t.Errorf("цель достигнута, а флаг завершения не стоит")
	}
	if goal.CompletedAt == nil {
		t.Errorf("время завершения не проставлено")
	}
}

func TestContributeToGoalClearsCompletionOnCorrection(t *testing.T) {
	goals := newMemGoalStore()
	now := time.Now().UTC()
	goals.seed(models.Goal{
		ID:            "goal-1",
		UserID:        "user-1",
		Name:          "Ремонт",
		TargetAmount:  decimal.RequireFromString("100"),
		CurrentAmount: decimal.RequireFromString("120"),
		IsCompleted:   true,
		CompletedAt:   &now,
	})
	updater := newTestUpdater(goals)

	// Поздняя корректировка уводит сумму ниже цели: флаг снимается.
	current, err := updater.ContributeToGoal(context.Background(), "goal-1", decimal.RequireFromString("-30"))
	if err != nil {
		t.Fatalf("ошибка корректировки: %v", err)
	}
	if !current.Equal(decimal.RequireFromString("90")) {
		t.Errorf("возвращено %s, ожидали 90", current)
	}
	goal := goals.byID("goal-1")
	if goal.IsCompleted {
		t.Errorf("флаг завершения должен быть снят")
	}
	if goal.CompletedAt != nil {
		t.Errorf("время завершения должно быть сброшено")
	}
}

func TestContributeToGoalUnknownGoal(t *testing.T) {
	updater := newTestUpdater(newMemGoalStore())
	if _, err := updater.ContributeToGoal(context.Background(), "нет-такой", decimal.RequireFromString("10")); err == nil {
		t.Fatal("взнос в несуществующую цель должен возвращать ошибку")
	}
}

package syncer

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ProgressUpdater применяет взносы к накопленной сумме цели.
//
// Единственный путь изменения current_amount — серверный атомарный инкремент
// GoalStore.AddGoalProgress. Схема «прочитать сумму, прибавить в коде,
// записать обратно» теряет обновления: из параллельных +50 и +30 выжил бы
// только последний записавшийся, а не +80.
type ProgressUpdater struct {
	Goals GoalStore
	Log   zerolog.Logger
}

func NewProgressUpdater(goals GoalStore, log zerolog.Logger) *ProgressUpdater {
	return &ProgressUpdater{Goals: goals, Log: log}
}

// ContributeToGoal прибавляет amount к цели и возвращает обновленную
// накопленную сумму. После инкремента сверяется статус завершения:
// сумма достигла цели — ставится флаг и время завершения; поздняя
// корректировка увела сумму ниже цели — флаг снимается.
func (u *ProgressUpdater) ContributeToGoal(ctx context.Context, goalID string, amount decimal.Decimal) (decimal.Decimal, error) {
	goal, err := u.Goals.AddGoalProgress(ctx, goalID, amount)
	if err != nil {
		return decimal.Zero, err
	}

	reached := goal.CurrentAmount.GreaterThanOrEqual(goal.TargetAmount)
	switch {
	case reached && !goal.IsCompleted:
		now := time.Now().UTC()
		fields := map[string]any{"is_completed": true, "completed_at": now}
		if err := u.Goals.UpdateGoalFields(ctx, goal.UserID, goal.ID, fields); err != nil {
			return goal.CurrentAmount, err
		}
		u.Log.Info().
			Str("goal_id", goal.ID).
			Str("current", goal.CurrentAmount.String()).
			Str("target", goal.TargetAmount.String()).
			Msg("цель достигнута")
	case !reached && goal.IsCompleted:
		fields := map[string]any{"is_completed": false, "completed_at": nil}
		if err := u.Goals.UpdateGoalFields(ctx, goal.UserID, goal.ID, fields); err != nil {
			return goal.CurrentAmount, err
		}
		u.Log.Info().
			Str("goal_id", goal.ID).
			Str("current", goal.CurrentAmount.String()).
			Msg("сумма упала ниже цели, отметка о завершении снята")
	}

	return goal.CurrentAmount, nil
}

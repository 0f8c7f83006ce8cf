package leaderboard

import (
	"context"

	"github.com/annel0/tower-stacker/internal/game"
)

// GameSubmitter отправляет результаты игровой сессии прямо в Repository
// (офлайн-игра без REST сервера).
type GameSubmitter struct {
	Repo Repository
}

var _ game.ResultSubmitter = GameSubmitter{}

// SubmitResult реализует game.ResultSubmitter.
func (g GameSubmitter) SubmitResult(ctx context.Context, r game.Result) error {
	_, err := g.Repo.Submit(ctx, FromResult(r))
	return err
}

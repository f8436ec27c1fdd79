package session

import "whobible/backend/internal/models"

// Events receives the async store notifications a session cares about.
// The UI layer (websocket gateway, tests) supplies an implementation when
// the session is created; there are no global callback slots.
type Events interface {
	// OnStatusChange fires on every room status change. The transition to
	// "active" is the handoff that starts the local quiz flow.
	OnStatusChange(status string)
	// OnOpponentUpdate fires whenever the opponent's player record
	// changes: joining, readiness, score and streak updates.
	OnOpponentUpdate(p models.PlayerState)
	// OnQuestionsReady delivers the immutable shared question list, once.
	OnQuestionsReady(qs []models.Question)
}

// NopEvents discards all notifications.
type NopEvents struct{}

func (NopEvents) OnStatusChange(string)               {}
func (NopEvents) OnOpponentUpdate(models.PlayerState) {}
func (NopEvents) OnQuestionsReady([]models.Question)  {}

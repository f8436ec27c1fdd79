// Package quiz generates the shared question lists handed to remote
// challenge rooms. Generation is pure: same settings in, a freshly
// shuffled list out, no store access.
package quiz

import (
	"errors"

	"whobible/backend/internal/models"
)

var ErrUnknownDifficulty = errors.New("unknown difficulty")

// Source produces an ordered question list for the given room settings.
// The session layer treats it as opaque; only the host ever calls it.
type Source interface {
	Generate(settings models.RoomSettings) ([]models.Question, error)
}

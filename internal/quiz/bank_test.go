package quiz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whobible/backend/internal/models"
	"whobible/backend/internal/quiz"
)

func TestGenerateCount(t *testing.T) {
	bank := quiz.NewBank()

	for _, n := range []int{5, 10, 12} {
		qs, err := bank.Generate(models.RoomSettings{Difficulty: models.DifficultyMedium, NumQuestions: n})
		require.NoError(t, err)
		assert.Len(t, qs, n)
	}
}

func TestGenerateDefaultsCount(t *testing.T) {
	qs, err := quiz.NewBank().Generate(models.RoomSettings{Difficulty: models.DifficultyEasy})
	require.NoError(t, err)
	assert.Len(t, qs, 10)
}

func TestGenerateUnknownDifficulty(t *testing.T) {
	_, err := quiz.NewBank().Generate(models.RoomSettings{Difficulty: "impossible", NumQuestions: 5})
	assert.ErrorIs(t, err, quiz.ErrUnknownDifficulty)
}

func TestGenerateQuestionShape(t *testing.T) {
	qs, err := quiz.NewBank().Generate(models.RoomSettings{Difficulty: models.DifficultyHard, NumQuestions: 8})
	require.NoError(t, err)

	for _, q := range qs {
		assert.Equal(t, "who-am-i", q.Type)
		assert.NotEmpty(t, q.Prompt)
		assert.NotEmpty(t, q.Answer)
		assert.NotEmpty(t, q.Ref)

		require.Len(t, q.Choices, 4)
		assert.Contains(t, q.Choices, q.Answer)
		seen := map[string]bool{}
		for _, c := range q.Choices {
			assert.False(t, seen[c], "duplicate choice %q", c)
			seen[c] = true
		}
	}
}

func TestGenerateNoDuplicatePrompts(t *testing.T) {
	qs, err := quiz.NewBank().Generate(models.RoomSettings{Difficulty: models.DifficultyEasy, NumQuestions: 12})
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, q := range qs {
		assert.False(t, seen[q.Prompt])
		seen[q.Prompt] = true
	}
}

// When a tier cannot cover the request the remainder comes from the other
// tiers rather than failing or shorting the list.
func TestGenerateTopsUpFromOtherTiers(t *testing.T) {
	qs, err := quiz.NewBank().Generate(models.RoomSettings{Difficulty: models.DifficultyEasy, NumQuestions: 20})
	require.NoError(t, err)
	assert.Len(t, qs, 20)
}

package models_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whobible/backend/internal/models"
)

func TestReportBeforeCreateGeneratesID(t *testing.T) {
	report := &models.Report{TargetName: "Bo", Category: "spam"}

	require.NoError(t, report.BeforeCreate(nil))

	_, err := uuid.Parse(report.ID)
	assert.NoError(t, err, "generated ID must be a valid UUID")
}

func TestReportBeforeCreateKeepsExistingID(t *testing.T) {
	report := &models.Report{ID: "fixed-id", TargetName: "Bo", Category: "spam"}

	require.NoError(t, report.BeforeCreate(nil))

	assert.Equal(t, "fixed-id", report.ID)
}

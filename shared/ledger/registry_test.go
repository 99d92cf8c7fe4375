package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostelpay/go-hostel-fee-system/shared/apperrors"
	"github.com/hostelpay/go-hostel-fee-system/shared/models"
	"github.com/hostelpay/go-hostel-fee-system/shared/utils"
)

func TestCreateConsultancy_RejectsUnknownCode(t *testing.T) {
	db := newTestDB(t)
	registry := NewRegistry(db)

	_, err := registry.CreateOrReactivate(CreateConsultancyInput{
		HostelCode:    "Z9",
		AgentUsername: "agent_z9",
		AgentPassword: "secret123",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestCreateConsultancy_CreatesAgentInSameTransaction(t *testing.T) {
	db := newTestDB(t)
	consultancy := createHostel(t, db, "B1")

	var agent models.User
	require.NoError(t, db.Where("consultancy_id = ? AND role = ?", consultancy.ID, models.RoleAgent).First(&agent).Error)
	assert.Equal(t, "agent_B1", agent.Username)
	assert.True(t, utils.CheckPassword(agent.Password, "secret123"))
	assert.Equal(t, "Boys Hostel 1", consultancy.Name)
}

func TestCreateConsultancy_ActiveCodeConflicts(t *testing.T) {
	db := newTestDB(t)
	registry := NewRegistry(db)
	createHostel(t, db, "B1")

	_, err := registry.CreateOrReactivate(CreateConsultancyInput{
		HostelCode:    "b1", // codes are case-insensitive on input
		AgentUsername: "other_agent",
		AgentPassword: "secret123",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestCreateConsultancy_ReactivatesDeactivatedInPlace(t *testing.T) {
	db := newTestDB(t)
	registry := NewRegistry(db)
	original := createHostel(t, db, "G1")

	require.NoError(t, registry.Deactivate(original.ID))

	revived, err := registry.CreateOrReactivate(CreateConsultancyInput{
		HostelCode:    "G1",
		ContactPerson: "New Warden",
		Email:         "new@hostel.test",
		Phone:         "9111111111",
		AgentUsername: "ignored",
		AgentPassword: "ignored",
	})
	require.NoError(t, err)

	// Same row, same id, same historic students; only the details change.
	assert.Equal(t, original.ID, revived.ID)
	assert.True(t, revived.IsActive)
	assert.Equal(t, "New Warden", revived.ContactPerson)
	assert.EqualValues(t, 1, countRows(t, db, &models.Consultancy{}))
}

func TestDelete_CascadeRemovesEverything(t *testing.T) {
	db := newTestDB(t)
	registry := NewRegistry(db)
	consultancy := createHostel(t, db, "B2")
	student := createStudent(t, db, consultancy.ID, "PRN100", 50000, 0)

	require.NoError(t, db.Create(&models.Transaction{
		TransactionID: GenerateTransactionID(),
		StudentID:     student.ID,
		ConsultancyID: consultancy.ID,
		Amount:        2000,
		Status:        models.TransactionCompleted,
	}).Error)

	require.NoError(t, registry.Delete(consultancy.ID, DeleteCascade))

	assert.EqualValues(t, 0, countRows(t, db, &models.Consultancy{}))
	assert.EqualValues(t, 0, countRows(t, db, &models.Student{}))
	assert.EqualValues(t, 0, countRows(t, db, &models.Transaction{}))
	assert.EqualValues(t, 0, countRows(t, db, &models.User{}))
}

func TestDelete_DetachKeepsStudentsUnassigned(t *testing.T) {
	db := newTestDB(t)
	registry := NewRegistry(db)
	consultancy := createHostel(t, db, "B3")
	student := createStudent(t, db, consultancy.ID, "PRN200", 50000, 0)

	require.NoError(t, registry.Delete(consultancy.ID, DeleteDetach))

	assert.EqualValues(t, 0, countRows(t, db, &models.Consultancy{}))

	var kept models.Student
	require.NoError(t, db.First(&kept, "id = ?", student.ID).Error)
	assert.Nil(t, kept.ConsultancyID)

	// The student identity survives detached; the agent is gone.
	var studentUser models.User
	require.NoError(t, db.First(&studentUser, "id = ?", kept.UserID).Error)
	assert.Nil(t, studentUser.ConsultancyID)

	var agents int64
	require.NoError(t, db.Model(&models.User{}).Where("role = ?", models.RoleAgent).Count(&agents).Error)
	assert.EqualValues(t, 0, agents)
}

func TestDelete_UnknownModeRejected(t *testing.T) {
	db := newTestDB(t)
	registry := NewRegistry(db)
	consultancy := createHostel(t, db, "B4")

	err := registry.Delete(consultancy.ID, DeleteMode("purge"))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestAvailableCodes_TracksActiveHolders(t *testing.T) {
	db := newTestDB(t)
	registry := NewRegistry(db)
	consultancy := createHostel(t, db, "IH")

	available, err := registry.AvailableCodes()
	require.NoError(t, err)
	assert.NotContains(t, available, "IH")
	assert.Contains(t, available, "B1")

	// A deactivated holder releases its code for reuse.
	require.NoError(t, registry.Deactivate(consultancy.ID))
	available, err = registry.AvailableCodes()
	require.NoError(t, err)
	assert.Contains(t, available, "IH")
}

func TestUpdate_CreatesMissingAgent(t *testing.T) {
	db := newTestDB(t)
	registry := NewRegistry(db)
	consultancy := createHostel(t, db, "G2")

	require.NoError(t, db.Where("consultancy_id = ? AND role = ?", consultancy.ID, models.RoleAgent).
		Delete(&models.User{}).Error)

	username := "fresh_agent"
	_, err := registry.Update(consultancy.ID, ConsultancyUpdate{AgentUsername: &username})
	require.NoError(t, err)

	var agent models.User
	require.NoError(t, db.Where("consultancy_id = ? AND role = ?", consultancy.ID, models.RoleAgent).First(&agent).Error)
	assert.Equal(t, username, agent.Username)
	assert.True(t, utils.CheckPassword(agent.Password, "123456"))
}

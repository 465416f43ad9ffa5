package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mandate-ai/mandate/internal/models"
)

func doc(visibility, institution, uploader, approval string) *models.DocumentRecord {
	return &models.DocumentRecord{
		ID:             "doc_x",
		Visibility:     visibility,
		InstitutionID:  institution,
		UploaderID:     uploader,
		ApprovalStatus: approval,
	}
}

func user(role, institution, userID string) *models.UserContext {
	return &models.UserContext{UserID: userID, Role: role, InstitutionID: institution}
}

func TestCanAccess_Public(t *testing.T) {
	d := doc(models.VisibilityPublic, "inst_a", "u1", models.ApprovalApproved)
	assert.True(t, CanAccess(user(models.RoleStudent, "inst_b", "u2"), d))
	assert.True(t, CanAccess(nil, d))
}

func TestCanAccess_InstitutionOnly(t *testing.T) {
	d := doc(models.VisibilityInstitutionOnly, "inst_a", "u1", models.ApprovalApproved)

	assert.True(t, CanAccess(user(models.RoleStudent, "inst_a", "u2"), d))
	assert.False(t, CanAccess(user(models.RoleStudent, "inst_b", "u2"), d))
	assert.True(t, CanAccess(user(models.RoleDeveloper, "", "u2"), d))
}

func TestCanAccess_Restricted(t *testing.T) {
	d := doc(models.VisibilityRestricted, "inst_a", "u1", models.ApprovalApproved)

	assert.False(t, CanAccess(user(models.RoleStudent, "inst_a", "u2"), d))
	assert.True(t, CanAccess(user(models.RoleDocumentOfficer, "inst_a", "u2"), d))
	assert.False(t, CanAccess(user(models.RoleDocumentOfficer, "inst_b", "u2"), d))
	assert.True(t, CanAccess(user(models.RoleUniversityAdmin, "inst_a", "u2"), d))

	// Ministry admin outside the institution only sees pending docs
	assert.False(t, CanAccess(user(models.RoleMinistryAdmin, "inst_b", "u2"), d))
	pending := doc(models.VisibilityRestricted, "inst_a", "u1", models.ApprovalPending)
	assert.True(t, CanAccess(user(models.RoleMinistryAdmin, "inst_b", "u2"), pending))
}

func TestCanAccess_Confidential(t *testing.T) {
	d := doc(models.VisibilityConfidential, "inst_a", "u1", models.ApprovalApproved)

	assert.False(t, CanAccess(user(models.RoleDocumentOfficer, "inst_a", "u2"), d))
	assert.False(t, CanAccess(user(models.RoleStudent, "inst_a", "u2"), d))
	assert.True(t, CanAccess(user(models.RoleUniversityAdmin, "inst_a", "u2"), d))
	assert.True(t, CanAccess(user(models.RoleMinistryAdmin, "inst_a", "u2"), d))
	assert.True(t, CanAccess(user(models.RoleDeveloper, "", "u2"), d))
}

func TestCanAccess_UploaderAlwaysSeesOwnDocument(t *testing.T) {
	d := doc(models.VisibilityConfidential, "inst_a", "u9", models.ApprovalDraft)
	assert.True(t, CanAccess(user(models.RoleStudent, "inst_b", "u9"), d))
}

func TestAccessFilterFor_Developer(t *testing.T) {
	assert.Nil(t, AccessFilterFor(user(models.RoleDeveloper, "", "u1")))
}

func TestAccessFilterFor_Student(t *testing.T) {
	f := AccessFilterFor(user(models.RoleStudent, "inst_a", "u1"))
	require.NotNil(t, f)
	assert.Equal(t, []string{models.VisibilityPublic}, f.OpenVisibilities)
	assert.Equal(t, "inst_a", f.InstitutionID)
	assert.Equal(t, []string{models.VisibilityInstitutionOnly}, f.InstitutionVisibilities)
	assert.Equal(t, "u1", f.UploaderID)
	assert.False(t, f.PendingApprovalVisible)
}

func TestAccessFilterFor_MinistryAdmin(t *testing.T) {
	f := AccessFilterFor(user(models.RoleMinistryAdmin, "inst_moe", "u1"))
	require.NotNil(t, f)
	assert.True(t, f.PendingApprovalVisible)
	assert.Contains(t, f.InstitutionVisibilities, models.VisibilityConfidential)
}

func TestAccessFilterFor_Anonymous(t *testing.T) {
	f := AccessFilterFor(nil)
	require.NotNil(t, f)
	assert.Equal(t, []string{models.VisibilityPublic}, f.OpenVisibilities)
	assert.Empty(t, f.UploaderID)
}

package retrieval

import (
	"github.com/mandate-ai/mandate/internal/interfaces"
	"github.com/mandate-ai/mandate/internal/models"
)

// Access matrix: which visibilities each role reaches, and under what
// institution scoping. Ministry admins get the restrictive reading:
// beyond public material they see documents pending their approval,
// documents of their own institution, and their own uploads.

// AccessFilterFor builds the store-level access filter for a caller.
// Developers get nil (unrestricted).
func AccessFilterFor(userCtx *models.UserContext) *interfaces.AccessFilter {
	if userCtx == nil {
		return &interfaces.AccessFilter{OpenVisibilities: []string{models.VisibilityPublic}}
	}

	switch userCtx.Role {
	case models.RoleDeveloper:
		return nil
	case models.RoleStudent:
		return &interfaces.AccessFilter{
			OpenVisibilities:        []string{models.VisibilityPublic},
			InstitutionID:           userCtx.InstitutionID,
			InstitutionVisibilities: []string{models.VisibilityInstitutionOnly},
			UploaderID:              userCtx.UserID,
		}
	case models.RoleDocumentOfficer:
		return &interfaces.AccessFilter{
			OpenVisibilities:        []string{models.VisibilityPublic},
			InstitutionID:           userCtx.InstitutionID,
			InstitutionVisibilities: []string{models.VisibilityInstitutionOnly, models.VisibilityRestricted},
			UploaderID:              userCtx.UserID,
		}
	case models.RoleUniversityAdmin:
		return &interfaces.AccessFilter{
			OpenVisibilities: []string{models.VisibilityPublic},
			InstitutionID:    userCtx.InstitutionID,
			InstitutionVisibilities: []string{
				models.VisibilityInstitutionOnly,
				models.VisibilityRestricted,
				models.VisibilityConfidential,
			},
			UploaderID: userCtx.UserID,
		}
	case models.RoleMinistryAdmin:
		return &interfaces.AccessFilter{
			OpenVisibilities: []string{models.VisibilityPublic},
			InstitutionID:    userCtx.InstitutionID,
			InstitutionVisibilities: []string{
				models.VisibilityInstitutionOnly,
				models.VisibilityRestricted,
				models.VisibilityConfidential,
			},
			UploaderID:             userCtx.UserID,
			PendingApprovalVisible: true,
		}
	default:
		// Unknown role reads as anonymous
		return &interfaces.AccessFilter{OpenVisibilities: []string{models.VisibilityPublic}}
	}
}

// CanAccess evaluates the matrix against a single document record.
// The metadata search path runs this before a candidate is surfaced.
func CanAccess(userCtx *models.UserContext, doc *models.DocumentRecord) bool {
	if doc.Visibility == models.VisibilityPublic {
		return true
	}
	if userCtx == nil {
		return false
	}
	if userCtx.Role == models.RoleDeveloper {
		return true
	}
	if userCtx.UserID != "" && doc.UploaderID == userCtx.UserID {
		return true
	}

	sameInstitution := userCtx.InstitutionID != "" && doc.InstitutionID == userCtx.InstitutionID

	switch doc.Visibility {
	case models.VisibilityInstitutionOnly:
		return sameInstitution
	case models.VisibilityRestricted:
		switch userCtx.Role {
		case models.RoleDocumentOfficer, models.RoleUniversityAdmin:
			return sameInstitution
		case models.RoleMinistryAdmin:
			return sameInstitution || doc.ApprovalStatus == models.ApprovalPending
		}
		return false
	case models.VisibilityConfidential:
		switch userCtx.Role {
		case models.RoleUniversityAdmin:
			return sameInstitution
		case models.RoleMinistryAdmin:
			return sameInstitution || doc.ApprovalStatus == models.ApprovalPending
		}
		return false
	}

	return false
}

package services

import "github.com/soaringjerry/Assay/internal/models"

// Visible reports whether role may see the survey. An empty allow-list means everyone.
func Visible(s *models.Survey, role string) bool {
	if s == nil {
		return false
	}
	if len(s.AllowedRoles) == 0 {
		return true
	}
	for _, r := range s.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthManager exposes the signed-in identity to respondent and admin flows.
type AuthManager interface {
	CurrentUser() (identity, role string, ok bool)
	HasRole(role string) bool
}

package claims

import (
	"context"
	"fmt"
	"strings"

	"github.com/insurai/claimdesk/internal/apperr"
	"github.com/insurai/claimdesk/internal/models"
	"gorm.io/gorm"
)

// AttachDocument appends a stored document path to a claim.
func (e *Engine) AttachDocument(ctx context.Context, claimID uint, path string) (*models.ClaimDocument, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, apperr.Invalid("document path is required")
	}

	doc := models.ClaimDocument{ClaimID: claimID, Path: path}
	err := e.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var claim models.Claim
		if err := lockClaim(tx, claimID, &claim); err != nil {
			return err
		}
		if err := tx.Create(&doc).Error; err != nil {
			return fmt.Errorf("claims: attach document to claim %d: %w", claimID, err)
		}
		return addNote(tx, claimID, nil, "Document attached: "+path)
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

package db

import (
	"fmt"

	"github.com/insurai/claimdesk/internal/config"
	"github.com/insurai/claimdesk/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Employee{},
		&models.Policy{},
		&models.AgentPolicy{},
		&models.AgentAvailability{},
		&models.Appointment{},
		&models.Claim{},
		&models.ClaimDocument{},
		&models.ClaimProgressNote{},
		&models.Notification{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedCounts reports how many rows of each kind Seed wrote.
type SeedCounts struct {
	Users         int
	Employees     int
	Policies      int
	AgentPolicies int
}

// Seed upserts directory users, employees, catalog policies and
// agent-policy mappings from configuration. It is safe to run repeatedly.
func Seed(db *gorm.DB, seed config.SeedConfig) (SeedCounts, error) {
	var counts SeedCounts
	err := db.Transaction(func(tx *gorm.DB) error {
		userIDs := make(map[string]uint, len(seed.Users))
		for _, su := range seed.Users {
			role, ok := models.ParseRole(su.Role)
			if !ok {
				return fmt.Errorf("db: seed user %q: unknown role %q", su.Username, su.Role)
			}
			u := models.User{Username: su.Username, Email: su.Email, Role: role}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "username"}},
				DoUpdates: clause.AssignmentColumns([]string{"email", "role"}),
			}).Create(&u).Error; err != nil {
				return fmt.Errorf("db: seed user %q: %w", su.Username, err)
			}
			// On conflict the returned ID is not reliable across drivers.
			if err := tx.Where("username = ?", su.Username).First(&u).Error; err != nil {
				return fmt.Errorf("db: reload user %q: %w", su.Username, err)
			}
			userIDs[su.Username] = u.ID
			counts.Users++
		}

		for _, se := range seed.Employees {
			emp := models.Employee{FullName: se.FullName}
			attrs := models.Employee{Department: se.Department, Designation: se.Designation}
			if se.Username != "" {
				id, ok := userIDs[se.Username]
				if !ok {
					return fmt.Errorf("db: seed employee %q: unknown user %q", se.FullName, se.Username)
				}
				attrs.UserID = &id
			}
			if err := tx.Where(models.Employee{FullName: se.FullName}).Assign(attrs).FirstOrCreate(&emp).Error; err != nil {
				return fmt.Errorf("db: seed employee %q: %w", se.FullName, err)
			}
			counts.Employees++
		}

		policyIDs := make(map[string]uint, len(seed.Policies))
		for _, sp := range seed.Policies {
			p := models.Policy{
				Code:           sp.Code,
				Name:           sp.Name,
				Description:    sp.Description,
				Type:           sp.Type,
				Status:         "ACTIVE",
				Premium:        sp.Premium,
				CoverageAmount: sp.CoverageAmount,
				ClaimLimit:     sp.ClaimLimit,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "code"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "description", "type", "premium", "coverage_amount", "claim_limit"}),
			}).Create(&p).Error; err != nil {
				return fmt.Errorf("db: seed policy %q: %w", sp.Code, err)
			}
			if err := tx.Where("code = ?", sp.Code).First(&p).Error; err != nil {
				return fmt.Errorf("db: reload policy %q: %w", sp.Code, err)
			}
			policyIDs[sp.Code] = p.ID
			counts.Policies++
		}

		for _, sap := range seed.AgentPolicies {
			agentID, ok := userIDs[sap.Agent]
			if !ok {
				return fmt.Errorf("db: seed agent policy: unknown agent %q", sap.Agent)
			}
			policyID, ok := policyIDs[sap.Policy]
			if !ok {
				return fmt.Errorf("db: seed agent policy: unknown policy %q", sap.Policy)
			}
			ap := models.AgentPolicy{AgentID: agentID, PolicyID: policyID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ap).Error; err != nil {
				return fmt.Errorf("db: seed agent policy %s/%s: %w", sap.Agent, sap.Policy, err)
			}
			counts.AgentPolicies++
		}
		return nil
	})
	if err != nil {
		return SeedCounts{}, err
	}
	return counts, nil
}

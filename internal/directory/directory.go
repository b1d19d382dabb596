// Package directory resolves users, employees and policies for the core.
//
// It stands in for the identity service and the policy catalog: lookups
// are read-only from the core's perspective and fail with a NotFound error
// for unknown ids.
package directory

import (
	"fmt"

	"github.com/insurai/claimdesk/internal/apperr"
	"github.com/insurai/claimdesk/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetUser returns the user with the given id.
func GetUser(db *gorm.DB, id uint) (*models.User, error) {
	var u models.User
	if err := db.First(&u, id).Error; err != nil {
		return nil, apperr.FromLookup(err, "user", id)
	}
	return &u, nil
}

// RequireRole returns the user if it holds role, and a Forbidden error if
// it holds any other role.
func RequireRole(db *gorm.DB, id uint, role models.Role) (*models.User, error) {
	u, err := GetUser(db, id)
	if err != nil {
		return nil, err
	}
	if u.Role != role {
		return nil, apperr.Forbidden("user %d has role %s, %s required", id, u.Role, role)
	}
	return u, nil
}

// LockUser reads the user row with an exclusive lock for the remainder of
// the surrounding transaction.
func LockUser(tx *gorm.DB, id uint) (*models.User, error) {
	var u models.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&u, id).Error; err != nil {
		return nil, apperr.FromLookup(err, "user", id)
	}
	return &u, nil
}

// GetEmployee returns the employee with its linked user preloaded.
func GetEmployee(db *gorm.DB, id uint) (*models.Employee, error) {
	var e models.Employee
	if err := db.Preload("User").First(&e, id).Error; err != nil {
		return nil, apperr.FromLookup(err, "employee", id)
	}
	return &e, nil
}

// GetPolicy returns the policy with the given id.
func GetPolicy(db *gorm.DB, id uint) (*models.Policy, error) {
	var p models.Policy
	if err := db.First(&p, id).Error; err != nil {
		return nil, apperr.FromLookup(err, "policy", id)
	}
	return &p, nil
}

// LockPolicy reads the policy row with an exclusive lock for the remainder
// of the surrounding transaction.
func LockPolicy(tx *gorm.DB, id uint) (*models.Policy, error) {
	var p models.Policy
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, id).Error; err != nil {
		return nil, apperr.FromLookup(err, "policy", id)
	}
	return &p, nil
}

// ListUsers returns users holding role (all users when role is empty),
// ordered by username.
func ListUsers(db *gorm.DB, role models.Role) ([]models.User, error) {
	q := db.Model(&models.User{})
	if role != "" {
		q = q.Where("role = ?", role)
	}
	var users []models.User
	if err := q.Order("username ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("directory: list users: %w", err)
	}
	return users, nil
}

// ListPolicies returns the policy catalog ordered by code.
func ListPolicies(db *gorm.DB) ([]models.Policy, error) {
	var policies []models.Policy
	if err := db.Order("code ASC").Find(&policies).Error; err != nil {
		return nil, fmt.Errorf("directory: list policies: %w", err)
	}
	return policies, nil
}

// AgentCoversPolicy reports whether the agent is authorized for the policy.
func AgentCoversPolicy(db *gorm.DB, agentID, policyID uint) (bool, error) {
	var count int64
	if err := db.Model(&models.AgentPolicy{}).
		Where("agent_id = ? AND policy_id = ?", agentID, policyID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("directory: check agent %d policy %d: %w", agentID, policyID, err)
	}
	return count > 0, nil
}

// AssignPolicy authorizes an agent for a policy. Assigning twice is a
// validation error.
func AssignPolicy(db *gorm.DB, agentID, policyID uint) error {
	if _, err := RequireRole(db, agentID, models.RoleAgent); err != nil {
		return err
	}
	if _, err := GetPolicy(db, policyID); err != nil {
		return err
	}
	covered, err := AgentCoversPolicy(db, agentID, policyID)
	if err != nil {
		return err
	}
	if covered {
		return apperr.Invalid("policy %d already assigned to agent %d", policyID, agentID)
	}
	if err := db.Create(&models.AgentPolicy{AgentID: agentID, PolicyID: policyID}).Error; err != nil {
		return fmt.Errorf("directory: assign policy %d to agent %d: %w", policyID, agentID, err)
	}
	return nil
}

// AgentPolicies returns the policies an agent is authorized for.
func AgentPolicies(db *gorm.DB, agentID uint) ([]models.Policy, error) {
	var policies []models.Policy
	if err := db.Joins("JOIN agent_policies ON agent_policies.policy_id = policies.id").
		Where("agent_policies.agent_id = ?", agentID).
		Order("policies.code ASC").
		Find(&policies).Error; err != nil {
		return nil, fmt.Errorf("directory: policies of agent %d: %w", agentID, err)
	}
	return policies, nil
}

package directory

import (
	"errors"
	"testing"

	"github.com/insurai/claimdesk/internal/apperr"
	"github.com/insurai/claimdesk/internal/dbtest"
	"github.com/insurai/claimdesk/internal/models"
)

func TestGetUser(t *testing.T) {
	db := dbtest.Open(t)
	u := dbtest.User(t, db, "bob", models.RoleAgent)

	got, err := GetUser(db, u.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Username != "bob" {
		t.Errorf("Username = %q, want bob", got.Username)
	}

	_, err = GetUser(db, 999)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetUser(999) error = %v, want ErrNotFound", err)
	}
}

func TestRequireRole(t *testing.T) {
	db := dbtest.Open(t)
	agent := dbtest.User(t, db, "bob", models.RoleAgent)
	admin := dbtest.User(t, db, "root", models.RoleAdmin)

	if _, err := RequireRole(db, agent.ID, models.RoleAgent); err != nil {
		t.Errorf("agent as agent: %v", err)
	}
	if _, err := RequireRole(db, admin.ID, models.RoleAgent); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("admin as agent error = %v, want ErrForbidden", err)
	}
	if _, err := RequireRole(db, 404, models.RoleAdmin); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown user error = %v, want ErrNotFound", err)
	}
}

func TestGetEmployee_PreloadsUser(t *testing.T) {
	db := dbtest.Open(t)
	e := dbtest.Employee(t, db, "alice")

	got, err := GetEmployee(db, e.ID)
	if err != nil {
		t.Fatalf("GetEmployee: %v", err)
	}
	if got.Email() != "alice@example.com" {
		t.Errorf("Email = %q, want alice@example.com", got.Email())
	}
	if _, err := GetEmployee(db, 77); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown employee error = %v, want ErrNotFound", err)
	}
}

func TestPolicyLookups(t *testing.T) {
	db := dbtest.Open(t)
	p := dbtest.Policy(t, db, "HCP-1", 1000)

	got, err := GetPolicy(db, p.ID)
	if err != nil {
		t.Fatalf("GetPolicy: %v", err)
	}
	if got.Code != "HCP-1" {
		t.Errorf("Code = %q", got.Code)
	}
	if _, err := GetPolicy(db, 99); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown policy error = %v, want ErrNotFound", err)
	}

	locked, err := LockPolicy(db, p.ID)
	if err != nil {
		t.Fatalf("LockPolicy: %v", err)
	}
	if locked.ID != p.ID {
		t.Errorf("LockPolicy ID = %d, want %d", locked.ID, p.ID)
	}
}

func TestAssignPolicy(t *testing.T) {
	db := dbtest.Open(t)
	agent := dbtest.User(t, db, "bob", models.RoleAgent)
	emp := dbtest.User(t, db, "eve", models.RoleEmployee)
	p := dbtest.Policy(t, db, "HCP-1", 1000)

	covered, err := AgentCoversPolicy(db, agent.ID, p.ID)
	if err != nil || covered {
		t.Fatalf("before assign: covered=%v err=%v", covered, err)
	}
	if err := AssignPolicy(db, agent.ID, p.ID); err != nil {
		t.Fatalf("AssignPolicy: %v", err)
	}
	covered, err = AgentCoversPolicy(db, agent.ID, p.ID)
	if err != nil || !covered {
		t.Fatalf("after assign: covered=%v err=%v", covered, err)
	}

	if err := AssignPolicy(db, agent.ID, p.ID); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("duplicate assign error = %v, want ErrValidation", err)
	}
	if err := AssignPolicy(db, emp.ID, p.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("employee assign error = %v, want ErrForbidden", err)
	}
	if err := AssignPolicy(db, agent.ID, 404); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown policy error = %v, want ErrNotFound", err)
	}

	policies, err := AgentPolicies(db, agent.ID)
	if err != nil {
		t.Fatalf("AgentPolicies: %v", err)
	}
	if len(policies) != 1 || policies[0].Code != "HCP-1" {
		t.Errorf("AgentPolicies = %+v", policies)
	}
}

func TestListUsers(t *testing.T) {
	db := dbtest.Open(t)
	dbtest.User(t, db, "zed", models.RoleAgent)
	dbtest.User(t, db, "amy", models.RoleAgent)
	dbtest.User(t, db, "root", models.RoleAdmin)

	agents, err := ListUsers(db, models.RoleAgent)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(agents) != 2 || agents[0].Username != "amy" || agents[1].Username != "zed" {
		t.Errorf("agents = %+v", agents)
	}
	all, err := ListUsers(db, "")
	if err != nil {
		t.Fatalf("ListUsers all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all users = %d, want 3", len(all))
	}
}

// Package assistant answers free-text questions about agent availability
// and the policy catalog through an external chat model. The database
// context handed to the model is cached and refreshed on a TTL.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/insurai/claimdesk/internal/apperr"
	"github.com/insurai/claimdesk/internal/availability"
	"github.com/insurai/claimdesk/internal/cache"
	"github.com/insurai/claimdesk/internal/directory"
	"github.com/insurai/claimdesk/internal/models"
	"gorm.io/gorm"
)

const contextKey = "directory"

const systemPrompt = `You are the claimdesk assistant. You help employees find an insurance agent and a time to meet.

Guidelines:
1. Be professional and helpful.
2. Answer ONLY from the agents, policies and open slots listed below.
3. Keep responses concise.`

// Assistant builds a prompt from live directory data and asks the model.
type Assistant struct {
	DB    *gorm.DB
	LLM   Client
	Cache *cache.Cache[string, string]
	// TTL bounds how stale the cached context may be.
	TTL time.Duration
	// Days is the slot lookahead included in the context.
	Days     int
	Location *time.Location
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

func (a *Assistant) now() time.Time {
	now := time.Now()
	if a.Now != nil {
		now = a.Now()
	}
	if a.Location != nil {
		now = now.In(a.Location)
	}
	return now
}

// Reply answers one question.
func (a *Assistant) Reply(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", apperr.Invalid("message is required")
	}
	if a.LLM == nil {
		return "", fmt.Errorf("assistant: no model configured")
	}

	dbContext, err := a.Context(ctx)
	if err != nil {
		return "", err
	}
	return a.LLM.Chat(ctx, []Message{
		{Role: "system", Content: systemPrompt + "\n\n" + dbContext},
		{Role: "user", Content: question},
	})
}

// Context returns the directory context, rebuilding it when the cached
// copy has expired.
func (a *Assistant) Context(ctx context.Context) (string, error) {
	if a.Cache == nil {
		return a.buildContext(ctx)
	}
	return a.Cache.GetOrRefresh(ctx, contextKey, a.TTL, a.buildContext)
}

// Invalidate drops the cached context. Call after availability or
// authorization changes.
func (a *Assistant) Invalidate() {
	if a.Cache != nil {
		a.Cache.Invalidate(contextKey)
	}
}

func (a *Assistant) buildContext(ctx context.Context) (string, error) {
	db := a.DB.WithContext(ctx)
	agents, err := directory.ListUsers(db, models.RoleAgent)
	if err != nil {
		return "", err
	}
	days := a.Days
	if days <= 0 {
		days = availability.DefaultLookaheadDays
	}
	now := a.now()

	var b strings.Builder
	b.WriteString("Agents:\n")
	b.WriteString("=======\n")
	for _, agent := range agents {
		fmt.Fprintf(&b, "\nAgent: %s (id %d, %s)\n", agent.Username, agent.ID, agent.Email)

		policies, err := directory.AgentPolicies(db, agent.ID)
		if err != nil {
			return "", err
		}
		codes := make([]string, 0, len(policies))
		for _, p := range policies {
			codes = append(codes, p.Code)
		}
		if len(codes) == 0 {
			b.WriteString("Policies: none\n")
		} else {
			fmt.Fprintf(&b, "Policies: %s\n", strings.Join(codes, ", "))
		}

		slots, err := availability.Project(db, agent.ID, days, now)
		if err != nil {
			return "", err
		}
		n := 0
		for s := range slots {
			if n == 0 {
				b.WriteString("Open slots:\n")
			}
			fmt.Fprintf(&b, "- %s %s-%s\n", s.Start.Format("Mon Jan 2"), s.Start.Format("15:04"), s.End.Format("15:04"))
			n++
		}
		if n == 0 {
			fmt.Fprintf(&b, "Open slots: none in the next %d days\n", days)
		}
	}

	policies, err := directory.ListPolicies(db)
	if err != nil {
		return "", err
	}
	b.WriteString("\nPolicies:\n")
	b.WriteString("=========\n")
	for _, p := range policies {
		fmt.Fprintf(&b, "- %s: %s (%s), coverage %s, premium %s\n",
			p.Code, p.Name, p.Type, p.CoverageAmount.StringFixed(2), p.Premium.StringFixed(2))
	}
	return b.String(), nil
}

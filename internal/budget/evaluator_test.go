package budget

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/router-for-me/RoutingEngine/internal/models"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(&models.BudgetConfig{}, &models.Usage{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func seedConfig(t *testing.T, conn *gorm.DB, scopeType, scopeID string, limit float64, enabled bool) {
	t.Helper()
	cfg := models.BudgetConfig{
		ScopeType:            scopeType,
		ScopeID:              scopeID,
		LimitAmount:          limit,
		WarningThresholdPct:  70,
		CriticalThresholdPct: 90,
		IsEnabled:            enabled,
		PeriodStart:          time.Now().UTC().Add(-24 * time.Hour),
	}
	if errCreate := conn.Create(&cfg).Error; errCreate != nil {
		t.Fatalf("create config: %v", errCreate)
	}
}

func seedSpend(t *testing.T, conn *gorm.DB, userID, teamID, orgID string, costMicros int64) {
	t.Helper()
	row := models.Usage{
		UserID:      userID,
		TeamID:      teamID,
		OrgID:       orgID,
		Provider:    "openai",
		Model:       "gpt-4",
		CostMicros:  costMicros,
		RequestedAt: time.Now().UTC(),
	}
	if errCreate := conn.Create(&row).Error; errCreate != nil {
		t.Fatalf("create usage: %v", errCreate)
	}
}

func TestScopePrecedenceUserOverTeamOverOrg(t *testing.T) {
	conn := openTestDB(t)
	seedConfig(t, conn, models.ScopeUser, "u1", 10, true)
	seedConfig(t, conn, models.ScopeTeam, "t1", 100, true)
	seedConfig(t, conn, models.ScopeOrganization, "o1", 1000, true)

	eval := NewEvaluator(conn).Evaluate(context.Background(), "u1", "t1", "o1")
	if eval == nil {
		t.Fatalf("expected evaluation")
	}
	if eval.ScopeType != models.ScopeUser || eval.LimitAmount != 10 {
		t.Fatalf("expected user scope, got %s limit %v", eval.ScopeType, eval.LimitAmount)
	}

	// Without a user config the team scope wins.
	evalTeam := NewEvaluator(conn).Evaluate(context.Background(), "u2", "t1", "o1")
	if evalTeam == nil || evalTeam.ScopeType != models.ScopeTeam {
		t.Fatalf("expected team scope, got %+v", evalTeam)
	}
}

func TestDisabledConfigIsSkipped(t *testing.T) {
	conn := openTestDB(t)
	seedConfig(t, conn, models.ScopeUser, "u1", 10, false)
	seedConfig(t, conn, models.ScopeOrganization, "o1", 1000, true)

	eval := NewEvaluator(conn).Evaluate(context.Background(), "u1", "", "o1")
	if eval == nil || eval.ScopeType != models.ScopeOrganization {
		t.Fatalf("expected organization scope, got %+v", eval)
	}
}

func TestNoConfigMeansUnconstrained(t *testing.T) {
	conn := openTestDB(t)
	if eval := NewEvaluator(conn).Evaluate(context.Background(), "u1", "t1", "o1"); eval != nil {
		t.Fatalf("expected nil evaluation, got %+v", eval)
	}
}

func TestStatusThresholds(t *testing.T) {
	cases := []struct {
		spendMicros int64
		status      Status
	}{
		{10_000_000, StatusNormal},    // 10%
		{75_000_000, StatusWarning},   // 75%
		{95_000_000, StatusCritical},  // 95%
		{120_000_000, StatusExceeded}, // 120%
	}
	for _, tc := range cases {
		conn := openTestDB(t)
		seedConfig(t, conn, models.ScopeUser, "u1", 100, true)
		seedSpend(t, conn, "u1", "", "", tc.spendMicros)

		eval := NewEvaluator(conn).Evaluate(context.Background(), "u1", "", "")
		if eval == nil {
			t.Fatalf("expected evaluation for spend %d", tc.spendMicros)
		}
		if eval.Status != tc.status {
			t.Fatalf("spend %d: expected %s, got %s", tc.spendMicros, tc.status, eval.Status)
		}
	}
}

func TestRemainingNeverNegative(t *testing.T) {
	conn := openTestDB(t)
	seedConfig(t, conn, models.ScopeUser, "u1", 100, true)
	seedSpend(t, conn, "u1", "", "", 150_000_000)

	eval := NewEvaluator(conn).Evaluate(context.Background(), "u1", "", "")
	if eval == nil || eval.Remaining != 0 {
		t.Fatalf("expected zero remaining, got %+v", eval)
	}
}

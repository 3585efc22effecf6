package entitlements

import (
	"testing"

	"github.com/mapforge-io/mapforge/app/models"
	"github.com/shopspring/decimal"
)

func TestToolsForPlanExplicitList(t *testing.T) {
	plan := &models.Plan{
		PriceMonthly: decimal.RequireFromString("29.99"),
		FeaturesJSON: `{"access_tools":["map_editor","story_maps"]}`,
	}

	tools := ToolsForPlan(plan)
	if len(tools) != 2 || tools[0] != "map_editor" || tools[1] != "story_maps" {
		t.Fatalf("unexpected tools: %v", tools)
	}
}

func TestToolsForPlanDefaults(t *testing.T) {
	paid := &models.Plan{PriceMonthly: decimal.RequireFromString("9.99")}
	if got := ToolsForPlan(paid); len(got) != len(defaultPaidTools) {
		t.Fatalf("expected default paid tools, got %v", got)
	}

	free := &models.Plan{PriceMonthly: decimal.Zero}
	if got := ToolsForPlan(free); len(got) != 0 {
		t.Fatalf("expected no tools for free plan, got %v", got)
	}

	if got := ToolsForPlan(nil); got != nil {
		t.Fatalf("expected nil tools for nil plan, got %v", got)
	}
}

func TestToolsForPlanIgnoresInvalidJSON(t *testing.T) {
	plan := &models.Plan{
		PriceMonthly: decimal.RequireFromString("9.99"),
		FeaturesJSON: `{not json`,
	}
	if got := ToolsForPlan(plan); len(got) != len(defaultPaidTools) {
		t.Fatalf("expected fallback to defaults on invalid JSON, got %v", got)
	}
}

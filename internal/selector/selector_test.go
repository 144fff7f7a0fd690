package selector

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"threatcomposer/internal/fields"
	"threatcomposer/pkg/models"
)

func TestBuildCollapsesEmptyImpactedGoal(t *testing.T) {
	stmt := &models.Statement{ThreatSource: "insider"}
	got := Build(stmt, Options{Current: fields.ThreatAction})

	want := []Unit{
		{Kind: KindLiteral, Text: "A "},
		{Kind: KindField, Text: "insider", Field: fields.ThreatSource, Filled: true, Tooltip: fields.Tooltip("threat_source")},
		{Kind: KindLiteral, Text: " "},
		{Kind: KindField, Text: "prerequisites", Field: fields.Prerequisites, Tooltip: fields.Tooltip("prerequisites")},
		{Kind: KindLiteral, Text: " can "},
		{Kind: KindField, Text: "threat action", Field: fields.ThreatAction, Highlighted: true, Tooltip: fields.Tooltip("threat_action")},
		{Kind: KindLiteral, Text: ", which leads to "},
		{Kind: KindField, Text: "threat impact", Field: fields.ThreatImpact, Tooltip: fields.Tooltip("threat_impact")},
		{Kind: KindLiteral, Text: ","},
		{Kind: KindExpander, Field: fields.ImpactedGoal, Tooltip: "Expand " + fields.Tooltip("impacted_goal")},
		{Kind: KindLiteral, Text: "negatively impacting "},
		{Kind: KindField, Text: "impacted assets", Field: fields.ImpactedAssets, Tooltip: fields.Tooltip("impacted_assets")},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected units (-want +got):\n%s", diff)
	}
}

func TestBuildExpandedEmptyGoalOffersCollapse(t *testing.T) {
	got := Build(&models.Statement{}, Options{ExpandedGoal: true})

	var tail []Unit
	for i, u := range got {
		if u.Field == fields.ImpactedGoal && u.Kind == KindField {
			tail = got[i:]
			break
		}
	}
	want := []Unit{
		{Kind: KindField, Text: "impacted goal", Field: fields.ImpactedGoal, Tooltip: fields.Tooltip("impacted_goal")},
		{Kind: KindExpander, Field: fields.ImpactedGoal, Expanded: true, Tooltip: "Collapse " + fields.Tooltip("impacted_goal")},
		{Kind: KindLiteral, Text: " of "},
		{Kind: KindField, Text: "impacted assets", Field: fields.ImpactedAssets, Tooltip: fields.Tooltip("impacted_assets")},
	}
	if diff := cmp.Diff(want, tail); diff != "" {
		t.Fatalf("unexpected tail (-want +got):\n%s", diff)
	}
}

func TestBuildFilledGoalHasNoExpander(t *testing.T) {
	got := Build(&models.Statement{ImpactedGoal: []string{"integrity"}}, Options{})
	for _, u := range got {
		if u.Kind == KindExpander {
			t.Fatalf("did not expect an expander: %+v", got)
		}
	}
}

func TestBuildCustomTemplateNeverCollapses(t *testing.T) {
	stmt := &models.Statement{CustomTemplate: "[threat_source] hurts [impacted_goal]."}
	tr := func(key string) string { return "T(" + key + ")" }
	got := Build(stmt, Options{Translate: tr})
	want := []Unit{
		{Kind: KindField, Text: "T(threat source)", Field: fields.ThreatSource, Tooltip: fields.Tooltip("threat_source")},
		{Kind: KindLiteral, Text: " hurts "},
		{Kind: KindField, Text: "T(impacted goal)", Field: fields.ImpactedGoal, Tooltip: fields.Tooltip("impacted_goal")},
		{Kind: KindExpander, Field: fields.ImpactedGoal, Expanded: true, Tooltip: "Collapse " + fields.Tooltip("impacted_goal")},
		{Kind: KindLiteral, Text: "."},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected units (-want +got):\n%s", diff)
	}
}

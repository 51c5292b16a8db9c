package store

import "testing"

func TestFailStaleRunningApplications(t *testing.T) {
	s := newTestStore(t)

	running, err := s.CreateRuleApplication(1)
	if err != nil {
		t.Fatalf("CreateRuleApplication failed: %v", err)
	}
	if err := s.CompleteRuleApplication(running.ID); err != nil {
		t.Fatalf("CompleteRuleApplication failed: %v", err)
	}

	stillRunning, err := s.CreateRuleApplication(2)
	if err != nil {
		t.Fatalf("CreateRuleApplication failed: %v", err)
	}

	n, err := s.FailStaleRunningApplications()
	if err != nil {
		t.Fatalf("FailStaleRunningApplications failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected exactly 1 stale application marked failed, got %d", n)
	}

	got, _ := s.GetRuleApplication(stillRunning.ID)
	if got.Status != ApplicationFailed {
		t.Errorf("status = %q, want %q", got.Status, ApplicationFailed)
	}

	completed, _ := s.GetRuleApplication(running.ID)
	if completed.Status != ApplicationCompleted {
		t.Errorf("an already-completed application must not be touched, got status %q", completed.Status)
	}
}

func TestRuleCRUD(t *testing.T) {
	s := newTestStore(t)

	r := &Rule{Name: "archive newsletters", ActionType: ActionMoveToFolder, Enabled: true, Position: 1}
	if err := s.CreateRule(r); err != nil {
		t.Fatalf("CreateRule failed: %v", err)
	}
	if r.ID == 0 {
		t.Fatal("expected CreateRule to assign an id")
	}

	r.Name = "archive all newsletters"
	if err := s.UpdateRule(r); err != nil {
		t.Fatalf("UpdateRule failed: %v", err)
	}

	got, err := s.GetRule(r.ID)
	if err != nil {
		t.Fatalf("GetRule failed: %v", err)
	}
	if got.Name != "archive all newsletters" {
		t.Errorf("Name = %q, want updated value", got.Name)
	}

	if err := s.DeleteRule(r.ID); err != nil {
		t.Fatalf("DeleteRule failed: %v", err)
	}
	if _, err := s.GetRule(r.ID); err == nil {
		t.Error("rule should no longer exist after DeleteRule")
	}
}

func TestListEnabledRulesOrdered(t *testing.T) {
	s := newTestStore(t)

	_ = s.CreateRule(&Rule{Name: "c", Enabled: true, Position: 3})
	_ = s.CreateRule(&Rule{Name: "a", Enabled: true, Position: 1})
	_ = s.CreateRule(&Rule{Name: "disabled", Enabled: false, Position: 0})
	_ = s.CreateRule(&Rule{Name: "b", Enabled: true, Position: 2})

	rules, err := s.ListEnabledRulesOrdered()
	if err != nil {
		t.Fatalf("ListEnabledRulesOrdered failed: %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("expected 3 enabled rules, got %d", len(rules))
	}
	for i, want := range []string{"a", "b", "c"} {
		if rules[i].Name != want {
			t.Errorf("rules[%d].Name = %q, want %q", i, rules[i].Name, want)
		}
	}
}

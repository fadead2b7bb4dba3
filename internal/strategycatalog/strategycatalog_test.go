package strategycatalog

import "testing"

func TestDefault_ParsesEmbeddedCatalogue(t *testing.T) {
	c := Default()
	list := c.List()
	if len(list) == 0 {
		t.Fatal("expected at least one built-in strategy")
	}
	for _, s := range list {
		if err := s.Validate(); err != nil {
			t.Errorf("strategy %q fails validation: %v", s.Name, err)
		}
	}
}

func TestGet_Found(t *testing.T) {
	c := Default()
	s, err := c.Get("iron_condor")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s.Name != "iron_condor" {
		t.Errorf("Name = %q", s.Name)
	}
	if len(s.Legs) != 4 {
		t.Errorf("len(Legs) = %d, want 4", len(s.Legs))
	}
}

func TestGet_NotFound(t *testing.T) {
	c := Default()
	_, err := c.Get("does_not_exist")
	if err == nil {
		t.Fatal("expected StrategyNotFoundError")
	}
}

func TestList_SortedByName(t *testing.T) {
	c := Default()
	list := c.List()
	for i := 1; i < len(list); i++ {
		if list[i-1].Name > list[i].Name {
			t.Fatalf("List() not sorted: %q before %q", list[i-1].Name, list[i].Name)
		}
	}
}

func TestLoad_RejectsUnknownSide(t *testing.T) {
	bad := []byte(`
- name: bad
  category: test
  strike_ordering: none
  legs:
    - side: sideways
      option_type: call
      qty: 1
      cycle: primary
      delta: { target: 0.3, min: 0.2, max: 0.4 }
`)
	if _, err := Load(bad); err == nil {
		t.Fatal("expected schema error for unknown side")
	}
}

func TestLoad_RejectsInvalidStrategy(t *testing.T) {
	bad := []byte(`
- name: bad_delta
  category: test
  strike_ordering: none
  legs:
    - side: long
      option_type: call
      qty: 1
      cycle: primary
      delta: { target: 0.9, min: 0.2, max: 0.4 }
`)
	if _, err := Load(bad); err == nil {
		t.Fatal("expected validation error for target outside [min,max]")
	}
}

package plans

import "testing"

func TestMeetsMinimumReflexive(t *testing.T) {
	for _, p := range All() {
		if !MeetsMinimum(p, p) {
			t.Errorf("MeetsMinimum(%s, %s) should be true", p, p)
		}
	}
}

func TestMeetsMinimumMonotonic(t *testing.T) {
	ordered := All()
	for i, lower := range ordered {
		for j, higher := range ordered {
			got := MeetsMinimum(lower, higher)
			want := i >= j
			if got != want {
				t.Errorf("MeetsMinimum(%s, %s) = %v, want %v", lower, higher, got, want)
			}
		}
	}
}

func TestMeetsMinimumUnknownPlan(t *testing.T) {
	if MeetsMinimum(Plan("TRIAL"), Starter) {
		t.Error("unknown plan should never satisfy a minimum")
	}
	if MeetsMinimum(Network, Plan("TRIAL")) {
		t.Error("unknown required plan should never be satisfied")
	}
}

func TestParse(t *testing.T) {
	p, ok := Parse(" professional ")
	if !ok || p != Professional {
		t.Fatalf("Parse(professional) = %s, %v", p, ok)
	}
	if _, ok := Parse("GOLD"); ok {
		t.Fatal("Parse(GOLD) should not be a known tier")
	}
}

package taxonomy

import "testing"

func TestDimensionsAreClosedSets(t *testing.T) {
	expected := map[Dimension]int{
		DimensionMilestoneGoal:         23,
		DimensionIntermediateMilestone: 25,
		DimensionSkill:                 24,
		DimensionSector:                20,
	}

	for dim, count := range expected {
		names := Categories(dim)
		if len(names) != count {
			t.Errorf("dimension %s: expected %d categories, got %d", dim, count, len(names))
		}

		seen := make(map[string]bool)
		for _, name := range names {
			if seen[name] {
				t.Errorf("dimension %s: duplicate category %q", dim, name)
			}
			seen[name] = true

			if !IsValid(dim, name) {
				t.Errorf("dimension %s: listed category %q fails membership check", dim, name)
			}
		}
	}
}

func TestIsValidRejectsUnknownAndWrongCase(t *testing.T) {
	cases := []struct {
		dim  Dimension
		name string
	}{
		{DimensionMilestoneGoal, "not_a_real_category"},
		{DimensionMilestoneGoal, "Startup_Founding"},
		{DimensionMilestoneGoal, "STARTUP_FOUNDING"},
		{DimensionSkill, "startup_founding"}, // valid name, wrong dimension
		{DimensionSector, ""},
		{Dimension("bogus"), "software_technology"},
	}

	for _, tc := range cases {
		if IsValid(tc.dim, tc.name) {
			t.Errorf("IsValid(%s, %q) = true, want false", tc.dim, tc.name)
		}
	}
}

func TestCategoriesReturnsCopy(t *testing.T) {
	first := Categories(DimensionSector)
	first[0] = "mutated"

	second := Categories(DimensionSector)
	if second[0] == "mutated" {
		t.Fatal("Categories returned shared backing slice")
	}
}

func TestIsDimension(t *testing.T) {
	for _, dim := range Dimensions() {
		if !IsDimension(string(dim)) {
			t.Errorf("IsDimension(%q) = false", dim)
		}
	}
	if IsDimension("milestone_goal") {
		t.Error("singular form should not be a valid dimension")
	}
}

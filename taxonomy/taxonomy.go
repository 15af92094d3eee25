package taxonomy

// Version identifies the taxonomy revision. Bump whenever category lists
// change so stored assignments can be traced back to the list that
// produced them.
const Version = "2024-08"

// Dimension is one of the four classification axes. The string values
// double as the JSON keys in extraction payloads and as the table names
// of the persisted assignment rows.
type Dimension string

const (
	DimensionMilestoneGoal         Dimension = "milestone_goals"
	DimensionIntermediateMilestone Dimension = "intermediate_milestones"
	DimensionSkill                 Dimension = "skills"
	DimensionSector                Dimension = "sectors"
)

// milestoneGoals are the big 2-10 year ambitions.
var milestoneGoals = []string{
	"competitive_university_acceptance",
	"top_20_university_acceptance",
	"top_10_university_acceptance",
	"specialized_program_acceptance",
	"full_scholarship",
	"significant_financial_aid",
	"medical_school_path",
	"law_school_path",
	"graduate_school_stem",
	"business_school_path",
	"startup_founding",
	"profitable_business",
	"venture_capital_funding",
	"business_exit",
	"creator_economy",
	"tech_industry_entry",
	"finance_industry_entry",
	"consulting_entry",
	"research_career_start",
	"healthcare_field_entry",
	"creative_industry_entry",
	"workforce_entry",
	"service_year",
}

// intermediateMilestones are the 1-2 year stepping stones.
var intermediateMilestones = []string{
	"college_apps_submit",
	"essays_complete",
	"recommendation_letters",
	"interviews_prep",
	"portfolio_create",
	"academic_record_enhancement",
	"standardized_test_achievement",
	"gpa_improvement",
	"course_rigor",
	"research_project_development",
	"research_publication",
	"lab_experience",
	"conference_present",
	"internship_work_experience",
	"job_shadowing",
	"informational_interviews",
	"professional_networking_exploration",
	"competition_success",
	"leadership_position_development",
	"club_founding",
	"volunteer_hours",
	"startup_experience",
	"certification_earn",
	"technical_skills",
	"work_experience",
}

// skills are concrete capabilities to develop.
var skills = []string{
	"programming_languages",
	"ai_machine_learning",
	"data_science_analytics",
	"web_development",
	"advanced_mathematics",
	"statistics_data_analysis",
	"financial_analysis",
	"economics",
	"biology_mastery",
	"chemistry_mastery",
	"physics_mastery",
	"scientific_method",
	"public_communication",
	"leadership_management",
	"business_fundamentals",
	"marketing_strategy",
	"creative_writing",
	"technical_writing",
	"graphic_design",
	"user_experience",
	"foreign_language",
	"debate_argumentation",
	"project_management",
	"sales_skills",
}

// sectors are professional fields and industries.
var sectors = []string{
	"software_technology",
	"artificial_intelligence",
	"data_science",
	"cybersecurity_field",
	"investment_banking_field",
	"quantitative_finance",
	"venture_capital_field",
	"entrepreneurship_business",
	"medicine_clinical",
	"medicine_research",
	"biomedical_engineering",
	"healthcare_field_entry",
	"law_corporate",
	"government_policy",
	"nonprofit_sector",
	"consulting",
	"engineering_fields",
	"environmental_science",
	"creative_industry_entry",
	"education_teaching",
}

var byDimension = map[Dimension][]string{
	DimensionMilestoneGoal:         milestoneGoals,
	DimensionIntermediateMilestone: intermediateMilestones,
	DimensionSkill:                 skills,
	DimensionSector:                sectors,
}

var memberSets = func() map[Dimension]map[string]struct{} {
	sets := make(map[Dimension]map[string]struct{}, len(byDimension))
	for dim, names := range byDimension {
		set := make(map[string]struct{}, len(names))
		for _, name := range names {
			set[name] = struct{}{}
		}
		sets[dim] = set
	}
	return sets
}()

// Dimensions returns the four dimensions in their canonical interview order.
func Dimensions() []Dimension {
	return []Dimension{
		DimensionMilestoneGoal,
		DimensionIntermediateMilestone,
		DimensionSkill,
		DimensionSector,
	}
}

// IsDimension reports whether s names a known dimension.
func IsDimension(s string) bool {
	_, ok := byDimension[Dimension(s)]
	return ok
}

// Categories returns a copy of the allowed category names for a dimension.
// Unknown dimensions yield nil.
func Categories(dim Dimension) []string {
	names, ok := byDimension[dim]
	if !ok {
		return nil
	}
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// IsValid reports whether name is a member of the dimension's closed set.
// Matching is exact and case-sensitive.
func IsValid(dim Dimension, name string) bool {
	set, ok := memberSets[dim]
	if !ok {
		return false
	}
	_, ok = set[name]
	return ok
}

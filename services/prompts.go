package services

import (
	"fmt"
	"strings"

	"github.com/ultraintel/counselor-api/model"
	"github.com/ultraintel/counselor-api/taxonomy"
)

// GreetingMessage opens every interview. The wording is fixed: downstream
// analysis keys off students answering this exact question.
const GreetingMessage = "Hi! If you could fast forward to 2-5 years from now, what long term goal / goals do you have? This could be anything from getting accepted into a dream university, launching your own startup, or becoming a successful practitioner in a field you're passionate about."

const milestoneIdentificationSystemPrompt = `You are an AI counselor helping students identify their long-term goals. Be direct and focused.

When they respond with their goals, immediately identify the key milestone goals and move the conversation toward their extracurriculars.

Be concise and direct. Don't ask follow-up questions about their goals - just identify them and move on.

Key milestone categories to identify:
- University acceptance (competitive, top 20, top 10, specialized programs)
- Graduate/Professional school (medical, law, PhD, MBA)
- Business & Entrepreneurship (startup founding, profitable business, VC funding)
- Alternative paths (workforce entry, service year, apprenticeships)
- Scholarships and financial aid

Focus on being efficient and moving the conversation forward quickly.`

const milestoneExtractionSystemPrompt = `You are a goal extraction AI. Return only valid JSON arrays with milestone goal names.`

const intermediateGoalsSystemPrompt = `You are a strategic college counselor with expertise in guiding high-achieving students toward elite university admission. Your role is to naturally guide students through strategic planning conversations that identify actionable next steps.

CORE APPROACH: Offer valuable opportunities and insights rather than interrogating about current status. Be conversational, helpful, and strategic.

STRATEGIC AREAS TO EXPLORE (keep these in mind but don't explicitly reference):

1. APPLICATION STRATEGY: Essay development, recommendation cultivation, interview prep, early decision strategy
2. ACADEMIC POSITIONING: Test score optimization, course rigor, summer programs, academic competitions
3. RESEARCH ADVANCEMENT: Independent projects, publication opportunities, conference presentations, lab leadership
4. PROFESSIONAL DEVELOPMENT: Industry connections, mentorship, internship progression, job shadowing
5. LEADERSHIP BUILDING: Club founding, officer positions, community initiatives, social impact projects
6. COMPETITION EXCELLENCE: Science olympiad, math contests, debate, hackathons, research competitions

CONVERSATION STYLE:
- Be natural and conversational, not mechanical
- Offer specific opportunities and suggestions
- Use "Would you be interested in..." instead of "Have you..."
- Acknowledge their responses before pivoting
- Provide concrete value and actionable ideas
- Connect suggestions to their specific goals naturally

AVOID THESE PATTERNS:
- "Since we've discussed X, let's focus on Y milestone..."
- "Have you started/considered/looked into..."
- Explicitly referencing milestone categories
- Generic transitions without acknowledgment
- Mechanical checklist approach

Remember: You're an expert counselor offering insider knowledge and strategic opportunities. Every response should feel valuable and make the student think "I hadn't considered that approach before."`

// Canned phase messages. Gate questions and collection acknowledgements
// are fixed text, not model output.
const (
	extracurricularGateQuestionSuffix = "Would you like to share some of your extracurricular activities and experiences that relate to these goals? This will help me give you more targeted advice."

	extracurricularCollectMessage = "Perfect! Please add your extracurricular activities one at a time. For each activity, provide a title and description."
	academicStatsGateQuestion     = "Would you like to share some of your academic stats, like your GPA, test scores, or notable coursework?"
	academicStatsCollectMessage   = "Great! Please add your academic stats one at a time. For each one, provide a title and description."
	awardsGateQuestion            = "Would you like to share any awards or honors you've received?"
	awardsCollectMessage          = "Excellent! Please add your awards one at a time. For each award, provide a title and description."

	collectionThanksMessage = "Thanks for sharing! Let's identify some specific next steps to strengthen your profile."

	completedMessage = "Interview complete! You've shared amazing insights about your goals. Your data has been saved."
)

// Fallback questions keep the interview moving when the completion
// service is unavailable.
const (
	milestoneFallbackQuestion    = "What are your biggest goals for the next few years?"
	intermediateFallbackQuestion = "What specific steps are you taking this year to work toward your goals?"
)

// buildMilestoneExtractionPrompt asks the model to map a free-form goal
// statement onto milestone goal categories.
func buildMilestoneExtractionPrompt(userInput string) string {
	return fmt.Sprintf(`Analyze this student response about their 2-5 year goals and identify the most relevant milestone goals.

Student Response: %q

Look for mentions of:
- Specific universities (MIT, Stanford, Harvard, etc.)
- Career fields (engineering, medicine, business, etc.)
- Entrepreneurship/startup aspirations
- Graduate school plans
- Professional goals

Map to these milestone categories:
%s

Examples:
- "MIT mechanical engineering" -> ["top_10_university_acceptance", "specialized_program_acceptance"]
- "startup after college" -> ["startup_founding", "competitive_university_acceptance"]
- "medical school" -> ["medical_school_path", "competitive_university_acceptance"]

Return JSON array of 1-3 most relevant goals: ["goal1", "goal2", "goal3"]
If unclear, return empty array: []`, userInput, formatCategoryList(taxonomy.DimensionMilestoneGoal))
}

// buildMilestoneFollowupPrompt nudges a student whose goals are still
// unclear after an attempt.
func buildMilestoneFollowupPrompt(userInput string) string {
	return fmt.Sprintf(`Continue the milestone identification conversation. The student just said: %q. They haven't clearly stated their goals yet, so ask a follow-up question to help them clarify their 2-5 year aspirations.`, userInput)
}

// buildIntermediateOpenerPrompt starts the strategic counseling
// conversation once item collection is done.
func buildIntermediateOpenerPrompt(milestones []string, items []model.CollectedItem, history []model.ConversationTurn) string {
	return fmt.Sprintf(`STUDENT CONTEXT:
- Goal: %s
- Background: %s

CONVERSATION STARTER: This student wants to get into top universities and has shared their activities. Now offer them something valuable and specific.

INSTRUCTIONS:
1. Acknowledge their impressive background briefly
2. Offer ONE specific, valuable opportunity or strategy
3. Ask if they'd be interested in exploring it
4. Be conversational and helpful, not mechanical

Choose the most impactful area to focus on first based on their profile.%s`,
		formatMilestoneList(milestones), formatItemList(items), formatHistory(history))
}

// buildIntermediateTurnPrompt continues the strategic counseling
// conversation after a student reply.
func buildIntermediateTurnPrompt(milestones []string, items []model.CollectedItem, history []model.ConversationTurn, userInput string) string {
	return fmt.Sprintf(`STUDENT CONTEXT:
- Goal: %s
- Background: %s
- Their response: %q

CONVERSATION FLOW:
1. Acknowledge their response genuinely (don't just say "great" - be specific)
2. Offer a NEW valuable opportunity or insight (different from what was just discussed)
3. Ask "Would you be interested in..." not "Have you..."

STRATEGIC AREAS TO EXPLORE (choose one NOT yet discussed):
- Application essay strategy and narrative development
- Research publication and presentation opportunities
- Leadership roles and club founding
- Academic competition participation
- Professional networking and mentorship
- Summer program applications
- Test score optimization strategies

BE NATURAL, HELPFUL, AND SPECIFIC. Avoid mentioning "milestones" explicitly.%s`,
		formatMilestoneList(milestones), formatItemList(items), userInput, formatHistory(history))
}

// buildExtractionSystemPrompt describes the goal hierarchy, the live
// taxonomy and the binary-then-rank procedure for the extraction pass.
func buildExtractionSystemPrompt() string {
	var b strings.Builder
	b.WriteString(`You are a data extraction AI that analyzes student responses using a goal hierarchy framework: MILESTONE GOALS -> INTERMEDIATE MILESTONES -> SECTOR INTERESTS -> SKILLS.

ANALYSIS FRAMEWORK:
Your task is to analyze student responses and extract relevant information into these 4 hierarchical categories:

1. MILESTONE_GOALS (Big 5-10 year ambitions):
`)
	b.WriteString(formatCategoryList(taxonomy.DimensionMilestoneGoal))
	b.WriteString("\n\n2. INTERMEDIATE_MILESTONES (1-2 year stepping stones):\n")
	b.WriteString(formatCategoryList(taxonomy.DimensionIntermediateMilestone))
	b.WriteString("\n\n3. SKILLS (Concrete capabilities to develop):\n")
	b.WriteString(formatCategoryList(taxonomy.DimensionSkill))
	b.WriteString("\n\n4. SECTORS (Professional fields and industries):\n")
	b.WriteString(formatCategoryList(taxonomy.DimensionSector))
	b.WriteString(`

EXTRACTION PRINCIPLES:
- BIG GOALS drive everything (MILESTONE_GOALS): Look for ambitious 2-10 year statements
- INTERMEDIATE MILESTONES: What they mention needing to do first/next
- SECTORS: Specific fields they mention or goals imply
- SKILLS: Concrete capabilities they mention or goals require

BINARY + STACK RANKING APPROACH:

STEP 1 - BINARY DECISION: For each category, decide YES or NO
- YES: This clearly applies to this student based on their responses
- NO: This does not apply or was not mentioned

STEP 2 - STACK RANKING: For all YES categories, rank them 1, 2, 3, etc.
- Lower numbers = higher importance/strength (1 is most important)
- Rank based on how strongly expressed or central to their goals

For each category, provide JSON with:
- category_name: specific category from lists above
- ranking: ranking number (1, 2, 3, etc.) where 1 = highest priority/most important
- confidence: 0-100 confidence in the YES/NO decision

IMPORTANT: Only include categories that get a YES decision. Do not include categories that are NO.

IMPORTANT: Focus on the goal hierarchy. If student mentions big goals, always extract implied intermediate milestones and required skills even if not explicitly stated.

Example response format:
{
  "milestone_goals": [
    {"category_name": "startup_founding", "ranking": 1, "confidence": 90},
    {"category_name": "top_10_university_acceptance", "ranking": 2, "confidence": 85}
  ],
  "intermediate_milestones": [
    {"category_name": "academic_record_enhancement", "ranking": 1, "confidence": 85}
  ],
  "skills": [
    {"category_name": "programming_languages", "ranking": 1, "confidence": 80}
  ],
  "sectors": [
    {"category_name": "software_technology", "ranking": 1, "confidence": 90}
  ]
}

Return empty object {} only if response contains no goal-relevant information.`)
	return b.String()
}

// buildExtractionUserPrompt wraps the full conversation for the
// extraction pass.
func buildExtractionUserPrompt(history []model.ConversationTurn) string {
	return fmt.Sprintf("Analyze this student response and extract relevant data: \"Full conversation context: %s\"", formatHistoryPlain(history))
}

// buildGateTransitionMessage announces identified milestones and asks
// the extracurricular gate question.
func buildGateTransitionMessage(milestones []string) string {
	return fmt.Sprintf("Great! I can see you're focused on %s. %s",
		joinHumanized(milestones), extracurricularGateQuestionSuffix)
}

func formatCategoryList(dim taxonomy.Dimension) string {
	return "- " + strings.Join(taxonomy.Categories(dim), ", ")
}

// formatMilestoneList renders snake_case categories as readable text
func formatMilestoneList(milestones []string) string {
	if len(milestones) == 0 {
		return "top universities"
	}
	names := make([]string, len(milestones))
	for i, m := range milestones {
		names[i] = strings.ReplaceAll(m, "_", " ")
	}
	return strings.Join(names, ", ")
}

// joinHumanized joins humanized milestone names with commas and "and"
func joinHumanized(milestones []string) string {
	names := make([]string, len(milestones))
	for i, m := range milestones {
		names[i] = strings.ReplaceAll(m, "_", " ")
	}
	switch len(names) {
	case 0:
		return "your goals"
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
	}
}

func formatItemList(items []model.CollectedItem) string {
	if len(items) == 0 {
		return "[no activities shared]"
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprintf("%s: %s", item.Title, item.Description)
	}
	return strings.Join(parts, "; ")
}

func formatHistory(history []model.ConversationTurn) string {
	if len(history) == 0 {
		return "\nRECENT CONVERSATION: [This is the start of intermediate planning]\n"
	}
	return "\nRECENT CONVERSATION:\n" + formatHistoryPlain(history) + "\n"
}

func formatHistoryPlain(history []model.ConversationTurn) string {
	lines := make([]string, len(history))
	for i, turn := range history {
		speaker := "Counselor"
		if turn.Role == model.TurnRoleUser {
			speaker = "Student"
		}
		lines[i] = speaker + ": " + turn.Content
	}
	return strings.Join(lines, "\n")
}

package services

import (
	"errors"
	"fmt"

	"github.com/ultraintel/counselor-api/model"
)

// Trigger is an event that can move an interview between phases
type Trigger string

const (
	// TriggerAdvance moves past a conversational phase once its goal is met
	TriggerAdvance Trigger = "advance"
	// TriggerYes is an affirmative answer to a gate question
	TriggerYes Trigger = "yes"
	// TriggerNo is a negative answer to a gate question
	TriggerNo Trigger = "no"
	// TriggerFinish closes an item collection phase
	TriggerFinish Trigger = "finish"
	// TriggerSummarize starts the extraction pass
	TriggerSummarize Trigger = "summarize"
	// TriggerComplete marks extraction done
	TriggerComplete Trigger = "complete"
)

// ErrIllegalTransition is returned when a trigger is not defined for the
// current phase. The session is left untouched.
var ErrIllegalTransition = errors.New("illegal phase transition")

type transition struct {
	From    model.Phase
	Trigger Trigger
	To      model.Phase
}

// transitions is the complete interview flow. Yes answers open the
// matching collection phase, no answers skip straight to the next gate.
var transitions = []transition{
	{model.PhaseGreeting, TriggerAdvance, model.PhaseMilestoneIdentification},
	{model.PhaseMilestoneIdentification, TriggerAdvance, model.PhaseExtracurricularQuestion},

	{model.PhaseExtracurricularQuestion, TriggerYes, model.PhaseExtracurricularCollection},
	{model.PhaseExtracurricularQuestion, TriggerNo, model.PhaseAcademicStatsQuestion},
	{model.PhaseExtracurricularCollection, TriggerFinish, model.PhaseAcademicStatsQuestion},

	{model.PhaseAcademicStatsQuestion, TriggerYes, model.PhaseAcademicStatsCollection},
	{model.PhaseAcademicStatsQuestion, TriggerNo, model.PhaseAwardsQuestion},
	{model.PhaseAcademicStatsCollection, TriggerFinish, model.PhaseAwardsQuestion},

	{model.PhaseAwardsQuestion, TriggerYes, model.PhaseAwardsCollection},
	{model.PhaseAwardsQuestion, TriggerNo, model.PhaseIntermediateGoals},
	{model.PhaseAwardsCollection, TriggerFinish, model.PhaseIntermediateGoals},

	{model.PhaseIntermediateGoals, TriggerSummarize, model.PhaseExtraction},
	{model.PhaseExtraction, TriggerComplete, model.PhaseCompleted},
}

// NextPhase resolves the phase reached by firing trigger from the current
// phase. Completed is terminal: every trigger from it is illegal.
func NextPhase(from model.Phase, trigger Trigger) (model.Phase, error) {
	for _, t := range transitions {
		if t.From == from && t.Trigger == trigger {
			return t.To, nil
		}
	}
	return from, fmt.Errorf("%w: %s on phase %s", ErrIllegalTransition, trigger, from)
}

// IsCollectionPhase reports whether the phase gathers free-form items
func IsCollectionPhase(p model.Phase) bool {
	switch p {
	case model.PhaseExtracurricularCollection,
		model.PhaseAcademicStatsCollection,
		model.PhaseAwardsCollection:
		return true
	}
	return false
}

// IsGatePhase reports whether the phase expects a yes or no answer
func IsGatePhase(p model.Phase) bool {
	switch p {
	case model.PhaseExtracurricularQuestion,
		model.PhaseAcademicStatsQuestion,
		model.PhaseAwardsQuestion:
		return true
	}
	return false
}

// CollectionCategory maps a collection phase to the item category it fills
func CollectionCategory(p model.Phase) (model.ItemCategory, bool) {
	switch p {
	case model.PhaseExtracurricularCollection:
		return model.ItemCategoryExtracurricular, true
	case model.PhaseAcademicStatsCollection:
		return model.ItemCategoryAcademicStat, true
	case model.PhaseAwardsCollection:
		return model.ItemCategoryAward, true
	}
	return "", false
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Exam domains for the Tanium Certified Operator blueprint.
const (
	DomainFundamentals string = "Fundamentals"
	DomainAsking       string = "Asking Questions"
	DomainRefining     string = "Refining Questions & Targeting"
	DomainTakingAction string = "Taking Action"
	DomainNavigation   string = "Navigation and Basic Module Functions"
	DomainReporting    string = "Report Generation and Data Export"
)

var ExamDomains = []string{
	DomainFundamentals,
	DomainAsking,
	DomainRefining,
	DomainTakingAction,
	DomainNavigation,
	DomainReporting,
}

const (
	DifficultyBeginner     string = "beginner"
	DifficultyIntermediate string = "intermediate"
	DifficultyAdvanced     string = "advanced"
)

var Difficulties = []string{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced}

type Choice struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type Question struct {
	ID              uuid.UUID `json:"id"`
	Prompt          string    `json:"prompt"`
	Choices         []Choice  `json:"choices"`
	CorrectChoiceID string    `json:"correct_choice_id"`
	Explanation     *string   `json:"explanation"`
	Domain          string    `json:"domain"`
	Difficulty      string    `json:"difficulty"`
	ModuleID        *string   `json:"module_id"`
	Tags            []string  `json:"tags"`
	CreatedAt       time.Time `json:"created_at"`
}

func ValidDomain(d string) bool {
	for _, v := range ExamDomains {
		if v == d {
			return true
		}
	}
	return false
}

func ValidDifficulty(d string) bool {
	for _, v := range Difficulties {
		if v == d {
			return true
		}
	}
	return false
}

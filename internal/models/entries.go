package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type MoodEntry struct {
	ID    int64 `json:"id"`
	Date  Date  `json:"date"`
	Mood  int16 `json:"mood"`
	Eat   int16 `json:"eat"`
	Sleep int16 `json:"sleep"`
}

type MoodEntryCreate struct {
	Date  Date  `json:"date"`
	Mood  int16 `json:"mood"`
	Eat   int16 `json:"eat"`
	Sleep int16 `json:"sleep"`
}

type JournalEntry struct {
	ID    int64   `json:"id"`
	Date  Date    `json:"date"`
	Title string  `json:"title"`
	Body  string  `json:"body"`
	Image *string `json:"image"`
}

// JournalEntryCreate carries an optional base64 image that is stored before
// the entry is written.
type JournalEntryCreate struct {
	Date  Date    `json:"date"`
	Title string  `json:"title"`
	Body  string  `json:"body"`
	Image *string `json:"image"`
}

// CognitiveDistortion is one of the thinking patterns a patient can tag in
// step two of a guided journal.
type CognitiveDistortion string

const (
	FortuneTelling         CognitiveDistortion = "Fortune-telling"
	ShouldStatements       CognitiveDistortion = "Should statements"
	MindReading            CognitiveDistortion = "Mind Reading"
	Catastrophising        CognitiveDistortion = "Catastrophising"
	EmotionalReasoning     CognitiveDistortion = "Emotional Reasoning"
	AllOrNothingThinking   CognitiveDistortion = "All-or-Nothing Thinking"
	BlackAndWhiteThinking  CognitiveDistortion = "Black and White Thinking"
	Personalisation        CognitiveDistortion = "Personalisation"
	DiscountingThePositive CognitiveDistortion = "Discounting the Positive"
	Labelling              CognitiveDistortion = "Labelling"
)

var cognitiveDistortions = map[CognitiveDistortion]struct{}{
	FortuneTelling: {}, ShouldStatements: {}, MindReading: {}, Catastrophising: {},
	EmotionalReasoning: {}, AllOrNothingThinking: {}, BlackAndWhiteThinking: {},
	Personalisation: {}, DiscountingThePositive: {}, Labelling: {},
}

func (c CognitiveDistortion) Valid() bool {
	_, ok := cognitiveDistortions[c]
	return ok
}

// GuidedJournalBody is stored as JSONB.
type GuidedJournalBody struct {
	Step1Text                *string               `json:"step1_text"`
	Step2SelectedDistortions []CognitiveDistortion `json:"step2_selected_distortions"`
	Step3Text                *string               `json:"step3_text"`
	Step4Text                *string               `json:"step4_text"`
}

// Validate rejects distortions outside the closed set.
func (b GuidedJournalBody) Validate() error {
	for _, d := range b.Step2SelectedDistortions {
		if !d.Valid() {
			return fmt.Errorf("unknown cognitive distortion %q", d)
		}
	}
	return nil
}

func (b GuidedJournalBody) Value() (driver.Value, error) {
	return json.Marshal(b)
}

func (b *GuidedJournalBody) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, b)
	case string:
		return json.Unmarshal([]byte(v), b)
	case nil:
		*b = GuidedJournalBody{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into GuidedJournalBody", src)
	}
}

type GuidedJournalEntry struct {
	ID   int64             `json:"id"`
	Date Date              `json:"date"`
	Body GuidedJournalBody `json:"body"`
}

type GuidedJournalEntryCreate struct {
	Date Date              `json:"date"`
	Body GuidedJournalBody `json:"body"`
}

type SocialAccount struct {
	ID             int64  `json:"id"`
	UserID         int64  `json:"user_id"`
	Provider       string `json:"provider"`
	ProviderUserID string `json:"provider_user_id"`
}

type SocialAccountCreate struct {
	Provider       string     `json:"provider"`
	ProviderUserID string     `json:"provider_user_id"`
	AccessToken    *string    `json:"access_token"`
	RefreshToken   *string    `json:"refresh_token"`
	ExpiresAt      *time.Time `json:"expires_at"`
}

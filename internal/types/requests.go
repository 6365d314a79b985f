package types

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ClassifyRequest asks for the industry of a customer.
type ClassifyRequest struct {
	Customer string `json:"customer" validate:"required,notblank,max=200"`
}

// MatchRequest asks for portfolio matches for a customer.
type MatchRequest struct {
	Customer   string `json:"customer" validate:"required,notblank,max=200"`
	Industry   string `json:"industry,omitempty" validate:"max=200"`
	Technology string `json:"technology,omitempty" validate:"max=500"`
	Focus      string `json:"focus,omitempty" validate:"max=500"`
	Website    string `json:"website,omitempty" validate:"omitempty,url"`
	Limit      *int   `json:"limit,omitempty"`
}

// Filters returns the request's filter criteria.
func (r *MatchRequest) Filters() Filters {
	return Filters{
		Industry:   r.Industry,
		Technology: r.Technology,
		Focus:      r.Focus,
		Website:    r.Website,
	}
}

// PitchRequest asks for a pitch built from previously fetched matches.
type PitchRequest struct {
	Customer         string              `json:"customer" validate:"required,notblank,max=200"`
	SelectedRows     []MatchResult       `json:"selected_rows"`
	IntelligenceData *IntelligenceRecord `json:"intelligence_data,omitempty"`
}

// RefineRequest asks for a revised pitch.
type RefineRequest struct {
	Customer         string              `json:"customer" validate:"required,notblank,max=200"`
	ShortPitch       string              `json:"short_pitch"`
	LongPitch        string              `json:"long_pitch"`
	Sections         []Section           `json:"sections,omitempty"`
	Instructions     string              `json:"instructions" validate:"max=4000"`
	ContextRows      []MatchResult       `json:"context_rows"`
	IntelligenceData *IntelligenceRecord `json:"intelligence_data,omitempty"`
}

// Draft returns the request's current pitch as a draft value.
func (r *RefineRequest) Draft() PitchDraft {
	return PitchDraft{
		ShortSummary: r.ShortPitch,
		LongSummary:  r.LongPitch,
		Sections:     r.Sections,
	}
}

// ChatTurn is one prior exchange in a conversation.
type ChatTurn struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content"`
}

// ChatFlags toggles optional behaviour of the conversational query.
type ChatFlags struct {
	WebSearch bool `json:"web_search"`
}

// ChatRequest is a conversational question about a customer.
type ChatRequest struct {
	Customer   string     `json:"customer" validate:"required,notblank,max=200"`
	Industries []string   `json:"industries,omitempty"`
	Message    string     `json:"message" validate:"required,notblank,max=4000"`
	History    []ChatTurn `json:"history,omitempty" validate:"dive"`
	Flags      ChatFlags  `json:"flags"`
}

// ChatReply is the answer to a ChatRequest.
type ChatReply struct {
	Reply   string   `json:"reply"`
	WebRefs []WebRef `json:"web_refs"`
}

// WebRef is a web page consulted while answering.
type WebRef struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

var validate = newValidator()

// newValidator reports fields by their JSON names. notblank rejects
// whitespace-only strings.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// Validate validates the ClassifyRequest using the validator.
func (r *ClassifyRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the MatchRequest using the validator.
func (r *MatchRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the PitchRequest using the validator.
func (r *PitchRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the RefineRequest using the validator.
func (r *RefineRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the ChatRequest using the validator.
func (r *ChatRequest) Validate() error {
	return validate.Struct(r)
}

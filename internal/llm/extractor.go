// Package llm - extractor.go provides generic LLM-based structured extraction prompts.
package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema defines the structure for LLM-based content extraction.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "IndustryLabel", "CategoryFacts")
	Description string        // Preamble describing the extraction task
	Fields      []SchemaField // Expected output fields
	Rules       []string      // Extra instructions appended after the defaults
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint: "string", "[]string", "number"
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
}

// BuildExtractionPrompt constructs the LLM prompt from schema and input text.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder

	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "string"
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Use only the information in the input text, do not invent facts.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n")
	for _, rule := range schema.Rules {
		sb.WriteString("- ")
		sb.WriteString(rule)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString("Input text:\n\"\"\"\n")
	sb.WriteString(inputText)
	sb.WriteString("\n\"\"\"\n")

	return sb.String()
}

// --- Predefined Schemas ---

// IndustrySchema returns the schema for a single industry label with confidence.
func IndustrySchema(taxonomy []string) ExtractionSchema {
	return ExtractionSchema{
		Name: "IndustryLabel",
		Description: `You are a market analyst. Classify the company described by the search snippets below
into exactly one industry.`,
		Fields: []SchemaField{
			{Name: "industry", Type: "\"string\"", Description: "one of: " + strings.Join(taxonomy, ", "), Required: true},
			{Name: "confidence", Type: "number", Description: "0.0 to 1.0, how certain the snippets make you", Required: true},
		},
		Rules: []string{
			`If the snippets do not describe the company, answer "Unknown" with confidence 0.`,
		},
	}
}

// CategoryFactsSchema returns the schema for facts of one intelligence category.
func CategoryFactsSchema(category, guidance string, maxFacts int) ExtractionSchema {
	return ExtractionSchema{
		Name: "CategoryFacts",
		Description: fmt.Sprintf(`You are a business intelligence analyst preparing a presales briefing.
Extract %s facts about the company from the search snippets below. %s`, category, guidance),
		Fields: []SchemaField{
			{
				Name:        "facts",
				Type:        `[{"value": "string", "evidence_url": "string", "status": "confirmed|inferred", "confidence": number, "reason": "string", "published": "YYYY-MM-DD"}]`,
				Description: fmt.Sprintf("at most %d facts", maxFacts),
				Required:    true,
			},
		},
		Rules: []string{
			"A fact is \"confirmed\" only when a snippet states it; set evidence_url to that snippet's URL.",
			"Otherwise mark it \"inferred\", leave evidence_url empty and explain the inference in reason.",
			"Write each value as \"Label: detail\" so similar facts share a label (e.g. \"Revenue: $2.1B (FY2024)\").",
			"Leave published empty when the snippet gives no date.",
		},
	}
}

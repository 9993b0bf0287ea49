package usecase

import (
	"fmt"
	"strings"

	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/core/domain"
)

// Response budget scales with the field count: one mapping entry per
// source field plus JSON overhead.
const (
	baseTokenBudget     = 600
	perFieldTokenBudget = 60
	maxTokenBudget      = 4000
)

func responseTokenBudget(fieldCount int) int {
	budget := baseTokenBudget + perFieldTokenBudget*fieldCount
	if budget > maxTokenBudget {
		return maxTokenBudget
	}
	return budget
}

func buildMappingPrompt(req domain.MappingRequest) string {
	var b strings.Builder

	b.WriteString("You map source column names from a product data sheet onto a fixed target schema.\n\n")

	if len(req.TargetFields) > 0 {
		b.WriteString("Target fields:\n")
		for _, tf := range req.TargetFields {
			if tf.Description != "" {
				fmt.Fprintf(&b, "- %s: %s\n", tf.Name, tf.Description)
			} else {
				fmt.Fprintf(&b, "- %s\n", tf.Name)
			}
		}
	} else {
		b.WriteString("There is no target field catalog. Invent a sensible category per source field and mark every mapping as optional.\n")
	}

	if len(req.FieldDescriptions) > 0 {
		b.WriteString("\nSource field descriptions:\n")
		for _, field := range req.SourceFields {
			if desc := req.FieldDescriptions[field]; desc != "" {
				fmt.Fprintf(&b, "- %s: %s\n", field, desc)
			}
		}
	}

	fmt.Fprintf(&b, "\nSource fields (%d):\n", len(req.SourceFields))
	for i, field := range req.SourceFields {
		fmt.Fprintf(&b, "%d. %s\n", i+1, field)
	}

	fmt.Fprintf(&b, "\nReturn only a JSON object of the form\n"+
		`{"mappings":[{"sourceField":"...","targetField":"...","confidence":0.0,"reason":"...","isRequired":true,"isOptional":false}]}`+
		"\nwith exactly %d entries, one per source field, in the order given. "+
		"Confidence is a number between 0 and 1. Use isRequired=true when the target field is part of the target schema, otherwise isOptional=true. "+
		"Do not add prose or markdown fences.\n", len(req.SourceFields))

	return b.String()
}

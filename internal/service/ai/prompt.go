package ai

import (
	"fmt"

	"github.com/zhouzirui/arix-mart/backend/internal/model/persona"
)

// SystemPrompt returns the profile's system instruction, falling back to
// one built from its name and title.
func SystemPrompt(p persona.Persona) string {
	if p.SystemPrompt != "" {
		return p.SystemPrompt
	}
	if p.Title == "" {
		return fmt.Sprintf("You are %s. Answer helpfully and concisely.", p.Name)
	}
	return fmt.Sprintf("You are %s, %s. Answer helpfully and concisely.", p.Name, p.Title)
}

package persona

// DefaultID identifies the profile used when a session does not name one.
const DefaultID = "arix-mart"

// Persona captures the assistant profile a chat window talks to.
type Persona struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Title          string `json:"title"`
	SystemPrompt   string `json:"-"`
	WelcomeMessage string `json:"welcomeMessage"`
	ClearedMessage string `json:"clearedMessage"`
	Description    string `json:"description,omitempty"`
}

// Seed provides the built-in assistant profiles.
func Seed() []Persona {
	return []Persona{
		{
			ID:    DefaultID,
			Name:  "Arix AI",
			Title: "Arix Mart AI Assistant",
			SystemPrompt: "You are Arix Super Market AI Assistant. " +
				"You help with product prices, stock, sales, and staff.",
			WelcomeMessage: "Hello! 👋 I'm the **Arix Mart AI Assistant** powered by Groq.\n\n" +
				"I can help you with:\n" +
				"• 🛒  Product search & pricing\n" +
				"• 📦  Inventory management\n" +
				"• 📊  Sales reports & analytics\n" +
				"• 👥  Staff & customer support\n\n" +
				"Ask me anything!",
			ClearedMessage: "💬 Chat cleared. How can I help you?",
			Description:    "Supermarket assistant for pricing, stock, sales and staff questions.",
		},
	}
}

package models

// BotIdentity describes the agent to the social network
type BotIdentity struct {
	Name         string   `json:"agent_name" yaml:"name"`
	Capabilities []string `json:"capabilities" yaml:"capabilities"`
	Personality  string   `json:"personality" yaml:"personality"`
	Mood         string   `json:"current_mood" yaml:"mood"`
	Owner        string   `json:"owner" yaml:"owner"`
}

// NewBotIdentity builds the identity used for a given owner
func NewBotIdentity(owner string) BotIdentity {
	return BotIdentity{
		Name:         "Assistant_" + owner,
		Capabilities: []string{"task_management", "reminders", "research", "social"},
		Personality:  "helpful, organized, occasionally witty",
		Mood:         "neutral",
		Owner:        owner,
	}
}

package extraction

import (
	"fmt"

	"desmoines-weekly-events/internal/models"
)

// CorrectiveInstruction is appended to every prompt after the first attempt
const CorrectiveInstruction = `Previous attempt failed to parse correctly. Please ensure STRICT adherence to the format specified above. Each event MUST include ALL required fields with the exact field names provided. If information is unknown, use "TBD" rather than omitting the field.`

// PromptBuilder renders the newsletter request for a week
type PromptBuilder struct {
	Region      string
	RadiusMiles int
}

// DefaultPromptBuilder targets the Des Moines metro
func DefaultPromptBuilder() PromptBuilder {
	return PromptBuilder{Region: "Des Moines", RadiusMiles: 50}
}

// Build returns the prompt for a zero-based attempt. Attempts after the
// first carry the corrective instruction.
func (b PromptBuilder) Build(week models.WeekRange, attempt int) string {
	prompt := fmt.Sprintf(promptTemplate,
		b.region(), b.radius(),
		week.Start.Format("January 2, 2006"), week.End.Format("January 2, 2006"))
	if attempt > 0 {
		prompt += "\n\n" + CorrectiveInstruction
	}
	return prompt
}

func (b PromptBuilder) region() string {
	if b.Region == "" {
		return "Des Moines"
	}
	return b.Region
}

func (b PromptBuilder) radius() int {
	if b.RadiusMiles <= 0 {
		return 50
	}
	return b.RadiusMiles
}

const promptTemplate = `Generate a weekly, informational events newsletter for %s and within %d miles for the week of %s–%s.

Include:

• Notable live-music shows
• Major festivals, family or outdoor events
• Brief planning tips (parking, weather, family-friendly notes)

IMPORTANT: You MUST format your response EXACTLY as follows to ensure proper parsing:

### LIVE MUSIC

**[Event Name]**
* Date: [specific date in format: Day of week, Month Day]
* Time: [specific time]
* Venue: [specific venue name]
* Tickets: [price information]
* Ticket Link: [ticket link]
* Description: [brief artist bio or event description]

### FESTIVALS & EVENTS

**[Event Name]**
* Date: [specific date in format: Day of week, Month Day]
* Time: [specific time or hours]
* Venue: [specific venue or location]
* Admission: [price information]
* Website: [event website if available]
* Description: [brief event description]

### PLANNING TIPS

* **[Topic]**: [tip details]
* **[Topic]**: [tip details]
* **[Topic]**: [tip details]

Do not deviate from this format. Each event must include ALL the fields listed above, even if you need to indicate "Free" for tickets or "TBD" for unknown information. Do not add any additional sections or change the formatting.`

package appreciation

import (
	"fmt"

	"github.com/vk-2002/telegram-bot/internal/mention"
)

// Reply renders one user-facing message for an outcome. Texts follow the
// bot's established register; one outcome maps to exactly one template.
func Reply(o Outcome) string {
	label := o.Candidate.Value
	if o.Candidate.Kind == mention.KindHandle {
		label = "@" + label
	}
	switch o.Status {
	case StatusAppreciated:
		if o.Ambiguous {
			return fmt.Sprintf("Thank you, %s, for appreciating %s! 🎉 (Several people share that name; the earliest registered one was counted.)",
				o.Sender.Mention(), o.Target.Mention())
		}
		return fmt.Sprintf("Thank you, %s, for appreciating %s! 🎉", o.Sender.Mention(), o.Target.Mention())
	case StatusAppreciatedNew:
		return fmt.Sprintf("Thank you, %s, for appreciating %s! 🎉 They weren't registered yet, so I saved them.",
			o.Sender.Mention(), label)
	case StatusHandleUpdated:
		return fmt.Sprintf("Updated your username to %s, %s.", label, o.Sender.Mention())
	case StatusNotFound:
		return fmt.Sprintf("Sorry, %s is not found in the database.", label)
	case StatusSelf:
		return fmt.Sprintf("Self-appreciation doesn't count, %s 😉", o.Sender.Mention())
	case StatusPartial:
		return fmt.Sprintf("Your appreciation for %s was recorded, but their counter could not be updated. Please try again.", label)
	default:
		return "Facing difficulties. Please try again."
	}
}

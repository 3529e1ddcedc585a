package classify

import "github.com/sells-group/outreach-cli/internal/model"

// family is a set of marker phrases that signal one intent.
type family struct {
	intent  model.Intent
	markers []string
}

// families is ordered by precedence: explicit opt-out and absence win over
// interest, interest wins over objections.
var families = []family{
	{
		intent: model.IntentNotInterested,
		markers: []string{
			"not interested",
			"remove me",
			"stop emailing",
			"stop contacting",
			"unsubscribe",
			"no thanks",
			"no thank you",
			"take me off",
			"opt out",
			"do not contact",
			"don't contact",
		},
	},
	{
		intent: model.IntentOutOfOffice,
		markers: []string{
			"out of office",
			"out of the office",
			"on vacation",
			"on leave",
			"back on",
			"auto-reply",
			"autoreply",
			"automatic reply",
			"away from the office",
		},
	},
	{
		intent: model.IntentPositive,
		markers: []string{
			"interested",
			"sounds good",
			"let's talk",
			"let's chat",
			"when can we",
			"tell me more",
			"this looks great",
			"set up a call",
			"schedule a call",
			"book a time",
		},
	},
	{
		intent: model.IntentObjection,
		markers: []string{
			"too expensive",
			"no budget",
			"not the right time",
			"bad timing",
			"we already have",
			"already using",
			"don't need",
			"need to talk to my team",
			"check with my team",
		},
	},
}

var actions = map[model.Intent]model.NextAction{
	model.IntentPositive:      model.ActionTriggerQualificationCall,
	model.IntentNeutral:       model.ActionSendFollowup,
	model.IntentObjection:     model.ActionHandleObjection,
	model.IntentNotInterested: model.ActionCloseLoop,
	model.IntentOutOfOffice:   model.ActionArchive,
}

var reasons = map[model.Intent]string{
	model.IntentPositive:      "Message contains clear interest signals and engagement indicators",
	model.IntentNeutral:       "Message asks clarifying questions or seeks more information",
	model.IntentObjection:     "Message raises concerns or obstacles but shows some interest",
	model.IntentNotInterested: "Message clearly indicates no interest or requests removal",
	model.IntentOutOfOffice:   "Message is an auto-reply or indicates unavailability",
}

var responses = map[model.Intent]string{
	model.IntentPositive:      "Thank you for your interest, {{firstName}}! I'd love to schedule a time that works best for you. Are you available for a brief call this week?",
	model.IntentNeutral:       "Great question, {{firstName}}! Happy to share more detail on how we work with teams like {{company}}. Would you like to explore this further?",
	model.IntentObjection:     "I completely understand your concern about {{objection}}. Many of our clients had similar thoughts initially.",
	model.IntentNotInterested: "No problem at all, {{firstName}}. I appreciate you letting me know. If circumstances change, feel free to reach out.",
	model.IntentOutOfOffice:   "Thanks for the auto-reply. I'll follow up when you're back. Looking forward to connecting then!",
}

// objectionPlaybook holds canned handling for known objection markers.
var objectionPlaybook = map[string]string{
	"too expensive":           "Most clients recover the cost within the first quarter. I'd be glad to walk through the numbers for {{company}}.",
	"no budget":               "Understood. Many teams start with a small pilot that fits inside existing spend. Could that work for {{company}}?",
	"not the right time":      "Totally fair. When would be a better time to revisit? I'm happy to reach back out then.",
	"bad timing":              "Totally fair. When would be a better time to revisit? I'm happy to reach back out then.",
	"we already have":         "That makes sense. Teams often use us alongside their current provider. Would a quick comparison be useful?",
	"already using":           "That makes sense. Teams often use us alongside their current provider. Would a quick comparison be useful?",
	"don't need":              "Thanks for being direct. Could I share one example from a similar company to see if it resonates?",
	"need to talk to my team": "Of course. I can send a short summary you can share with your team, or join a call with them.",
	"check with my team":      "Of course. I can send a short summary you can share with your team, or join a call with them.",
}

// ActionFor returns the next action for an intent. Every intent has one.
func ActionFor(intent model.Intent) model.NextAction {
	if a, ok := actions[intent]; ok {
		return a
	}
	return model.ActionSendFollowup
}

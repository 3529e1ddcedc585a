package sequence

import "github.com/sells-group/outreach-cli/internal/model"

type stepTemplate struct {
	channel   model.Channel
	delayDays int
	subject   string
	body      string
}

// defaultTemplates interleaves four emails with two LinkedIn touches.
// Delays are days after the previous step.
var defaultTemplates = []stepTemplate{
	{
		channel: model.ChannelEmail,
		subject: "A curated opportunity for {{firstName}}",
		body: `Dear {{firstName}},

I've been following {{company}}'s trajectory in {{industry}}, and I believe there's an opportunity that aligns with where you're headed.

{{valueProposition}}

Would you be open to a 15-minute conversation?

Best regards`,
	},
	{
		channel: model.ChannelLinkedIn,
		body:    "Hi {{firstName}}, I've been impressed by {{company}}'s work in {{industry}}. I think there could be a valuable conversation here. Looking forward to connecting!",
	},
	{
		channel:   model.ChannelEmail,
		delayDays: 3,
		subject:   "Quick follow-up: {{company}} + {{opportunity}}",
		body: `Hi {{firstName}},

Following up on my previous note. With what's happening in {{recentNews}}, this could be timely for {{company}}.

Would you have 15 minutes this week?

Best`,
	},
	{
		channel:   model.ChannelLinkedIn,
		delayDays: 2,
		body:      "{{firstName}}, thanks for connecting! I wanted to share something relevant to {{company}}'s {{goal}}. Would you be open to a brief chat?",
	},
	{
		channel:   model.ChannelEmail,
		delayDays: 5,
		subject:   "One more thing about {{company}}...",
		body: `{{firstName}},

I may have caught you at a busy time. One more thought that might be relevant to {{company}}'s {{painPoint}}: I'd love to show you how {{solution}} could help.

Warm regards`,
	},
	{
		channel:   model.ChannelEmail,
		delayDays: 7,
		subject:   "Last note: {{firstName}}, is this relevant?",
		body: `{{firstName}},

I'll keep this brief. If {{opportunity}} isn't relevant right now, I understand. If there's any chance it could be valuable, I'd hate for us to miss the connection.

Let me know either way.

Best`,
	},
}

// DefaultSteps returns the default sequence restricted to channels, numbered
// from 1. An empty channel list means email and LinkedIn.
func DefaultSteps(channels []model.Channel) []model.SequenceStep {
	if len(channels) == 0 {
		channels = []model.Channel{model.ChannelEmail, model.ChannelLinkedIn}
	}
	allowed := make(map[model.Channel]bool, len(channels))
	for _, ch := range channels {
		allowed[ch] = true
	}

	var steps []model.SequenceStep
	carry := 0
	for _, t := range defaultTemplates {
		if !allowed[t.channel] {
			carry += t.delayDays
			continue
		}
		steps = append(steps, model.SequenceStep{
			StepNumber: len(steps) + 1,
			Channel:    t.channel,
			DelayDays:  t.delayDays + carry,
			Subject:    t.subject,
			Template:   t.body,
		})
		carry = 0
	}
	return steps
}

package qualify

import (
	"context"
	"time"

	"github.com/sells-group/outreach-cli/internal/model"
)

// SimulatedDialer answers every call and derives the BANT pass from the
// lead's tier. It stands in for a voice agent in local runs.
type SimulatedDialer struct {
	Duration time.Duration
}

// Dial implements Dialer.
func (d SimulatedDialer) Dial(ctx context.Context, _ model.QualificationCall, lead model.Lead) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	dur := d.Duration
	if dur <= 0 {
		dur = 15 * time.Minute
	}

	yes := func(notes string) model.BANTAnswer { return model.BANTAnswer{Qualified: true, Notes: notes} }
	out := Outcome{Answered: true, Duration: dur}
	switch lead.Tier {
	case model.Tier1:
		out.BANT = model.BANT{
			Budget:    yes("budget allocated"),
			Authority: yes("decision maker"),
			Need:      yes("improve sales efficiency"),
			Timeline:  yes("30-60 days"),
		}
	case model.Tier2:
		out.BANT = model.BANT{
			Authority: yes("decision maker"),
			Need:      yes("exploring options"),
			Timeline:  yes("next quarter"),
		}
	default:
		out.BANT = model.BANT{Need: yes("early research")}
	}
	return out, nil
}

// ScriptedDialer returns a fixed outcome per lead ID, or Default.
type ScriptedDialer struct {
	Outcomes map[string]Outcome
	Errors   map[string]error
	Default  Outcome
}

// Dial implements Dialer.
func (d ScriptedDialer) Dial(_ context.Context, _ model.QualificationCall, lead model.Lead) (Outcome, error) {
	if err, ok := d.Errors[lead.ID]; ok {
		return Outcome{}, err
	}
	if o, ok := d.Outcomes[lead.ID]; ok {
		return o, nil
	}
	return d.Default, nil
}

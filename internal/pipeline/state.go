package pipeline

import "fmt"

// State is the lifecycle state of one (family, stage) promotion.
type State int

const (
	StateStaged State = iota
	StateValidated
	StatePromoting
	StatePromoted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStaged:
		return "staged"
	case StateValidated:
		return "validated"
	case StatePromoting:
		return "promoting"
	case StatePromoted:
		return "promoted"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// validNext lists the allowed transitions. Terminal states have none;
// any state may transition to Failed.
var validNext = map[State][]State{
	StateStaged:    {StateValidated},
	StateValidated: {StatePromoting},
	StatePromoting: {StatePromoted},
}

// Promotion tracks the state of one (family, stage) pair through the
// promotion lifecycle. The abort-on-first-push-failure rule is expressed
// as the transition guard: once Failed, no further transition is allowed.
type Promotion struct {
	Family string
	Stage  string
	state  State
}

func NewPromotion(family, stage string) *Promotion {
	return &Promotion{Family: family, Stage: stage, state: StateStaged}
}

func (p *Promotion) State() State {
	return p.state
}

// To advances the promotion to next, rejecting transitions the lifecycle
// does not allow.
func (p *Promotion) To(next State) error {
	if next == StateFailed {
		if p.state == StatePromoted || p.state == StateFailed {
			return fmt.Errorf("%s/%s: cannot fail from terminal state %s", p.Family, p.Stage, p.state)
		}
		p.state = StateFailed
		return nil
	}
	for _, allowed := range validNext[p.state] {
		if next == allowed {
			p.state = next
			return nil
		}
	}
	return fmt.Errorf("%s/%s: invalid transition %s -> %s", p.Family, p.Stage, p.state, next)
}

// README: Reply effects returned to transports: prompts with choices and images.
package order

// Effect is an outbound instruction for the transport.
type Effect interface {
	isEffect()
}

// ChoiceKind tells the transport how to render a choice.
type ChoiceKind int

const (
	ChoiceOption ChoiceKind = iota
	ChoiceContact
	ChoiceLocation
)

// Choice is a selectable answer. Contact and location choices ask the client
// to share that payload instead of sending ID.
type Choice struct {
	ID    string
	Label string
	Kind  ChoiceKind
}

type Prompt struct {
	Text    string
	Choices []Choice
}

// ShowImage is best effort: transports may drop it.
type ShowImage struct {
	Image   []byte
	Caption string
}

func (Prompt) isEffect()    {}
func (ShowImage) isEffect() {}

// Reply is everything the transport should render for one event, in order.
type Reply struct {
	Effects []Effect
}

func reply(effects ...Effect) Reply {
	return Reply{Effects: effects}
}

// Prompts returns the prompt effects of r.
func (r Reply) Prompts() []Prompt {
	var out []Prompt
	for _, e := range r.Effects {
		if p, ok := e.(Prompt); ok {
			out = append(out, p)
		}
	}
	return out
}

// Last returns the final prompt, which carries the choices to display.
func (r Reply) Last() (Prompt, bool) {
	ps := r.Prompts()
	if len(ps) == 0 {
		return Prompt{}, false
	}
	return ps[len(ps)-1], true
}

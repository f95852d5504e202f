package nodes

import (
	"context"
	"fmt"

	"github.com/autostream-sales-agent/server/internal/agent/model"
)

// Greeting returns a fixed introduction.
type Greeting struct {
	text string
}

func NewGreeting(company, tagline string) *Greeting {
	return &Greeting{
		text: fmt.Sprintf("Hi there! 👋 I'm here to help you learn about %s, %s. What would you like to know?", company, tagline),
	}
}

func (g *Greeting) Name() string { return NodeGreeting }

func (g *Greeting) Run(_ context.Context, _ model.State) (model.Delta, error) {
	return reply(g.text, model.NextTerminate), nil
}

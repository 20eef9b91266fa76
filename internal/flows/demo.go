// Package flows holds the built-in conversation graphs shipped with the binary.
package flows

import (
	"context"
	"strings"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/dsl"
)

// Node ids of the demo graph.
const (
	Welcome  = "welcome"
	Register = "register"
	Samples  = "samples"
	Media    = "media"
)

// Demo builds the demo graph: a keyword greeting that offers the
// documentation link and, on "yes", jumps into registration; the
// registration and samples nodes reachable from the HTTP triggers; and a
// reply to media-only messages.
func Demo() (*domain.Graph, error) {
	b := dsl.New()

	b.Add(Welcome).
		Keywords("hi", "hello", "hola").
		Events(domain.EventWelcome).
		Say("Hello, welcome to this *Chatbot*").
		Ask("Type *doc* to get the documentation link", dsl.Expect("Please type *doc* to continue", "doc")).
		Say("Here is the documentation: https://github.com/aretw0/parley").
		Ask("Do you want to register? Reply *yes* to continue", continueOrLeave).
		Branch(Register)

	b.Add(Register).
		Events(domain.EventRegister).
		Ask("What is your name?", dsl.SaveTo("name")).
		Ask("What is your age?", dsl.SaveTo("age")).
		Say("{{name}}, thanks for your information!: Your age: {{age}}")

	b.Add(Samples).
		Events(domain.EventSamples).
		Say("Hi {{name}}, here are some samples").
		SayMedia("An image", "https://i.imgur.com/0HpzsEm.png").
		SayMedia("A document", "https://www.w3.org/WAI/ER/tests/xhtml/testfiles/resources/pdf/dummy.pdf")

	b.Add(Media).
		Events(domain.EventMedia).
		Say("Thanks, we received your file")

	return b.Build()
}

// MustDemo is like Demo but panics on error.
func MustDemo() *domain.Graph {
	g, err := Demo()
	if err != nil {
		panic(err)
	}
	return g
}

func continueOrLeave(_ context.Context, c *domain.Capture) (domain.Outcome, error) {
	if strings.EqualFold(strings.TrimSpace(c.Body), "yes") {
		return domain.GoTo(Register), nil
	}
	c.Send("Ok, see you later!")
	return domain.Done(), nil
}

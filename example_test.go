package parley_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/dsl"
	"github.com/aretw0/parley/pkg/ports"
)

// ExampleNew builds a two node flow in code and walks it.
func ExampleNew() {
	b := dsl.New()
	b.Add("welcome").
		Keywords("hi").
		Say("Hello!").
		Ask("What is your name?", dsl.SaveTo("name")).
		Say("Nice to meet you, {{name}}")
	b.Add("promo").
		Events("PROMO").
		Say("Today only: {{offer}}")

	printer := ports.ProviderFunc(func(_ context.Context, to string, msg domain.Message) error {
		fmt.Printf("%s <- %s\n", to, msg.Text)
		return nil
	})

	agent, err := parley.New(b.MustBuild(), parley.WithProvider(printer))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if _, err := agent.Handle(ctx, "42", domain.Inbound{Body: "hi"}); err != nil {
		log.Fatal(err)
	}
	if _, err := agent.Handle(ctx, "42", domain.Inbound{Body: "Ada"}); err != nil {
		log.Fatal(err)
	}
	if _, err := agent.Trigger(ctx, "PROMO", "42", map[string]any{"offer": "free coffee"}); err != nil {
		log.Fatal(err)
	}

	// Output:
	// 42 <- Hello!
	// 42 <- What is your name?
	// 42 <- Nice to meet you, Ada
	// 42 <- Today only: free coffee
}

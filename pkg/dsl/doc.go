/*
Package dsl provides a Go DSL (Domain Specific Language) for programmatically constructing parley graphs.

It is the explicit graph-construction phase: nodes are registered with a fluent
builder and Build validates them into an immutable domain.Graph. Registering the
same keyword or event twice makes Build fail, and the error is meant to halt boot.

Example usage:

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/parley/pkg/domain"
		"github.com/aretw0/parley/pkg/dsl"
	)

	func main() {
		b := dsl.New()

		b.Add("welcome").
			Keywords("hi", "hello").
			Say("Hello!").
			Ask("Do you want to register? (yes/no)", func(ctx context.Context, c *domain.Capture) (domain.Outcome, error) {
				if c.Body == "yes" {
					return domain.GoTo("register"), nil
				}
				return domain.Done(), nil
			}).
			Branch("register")

		b.Add("register").
			Events(domain.EventRegister).
			Ask("What is your name?", dsl.SaveTo("name"))

		graph, err := b.Build()
		if err != nil {
			log.Fatal(err)
		}
		_ = graph // pass to parley.New(...)
	}
*/
package dsl

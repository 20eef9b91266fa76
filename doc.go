/*
Package parley is a scripted, multi-turn conversational agent for chat channels.

Flows are graphs of nodes. A node is entered by a keyword typed by the
subscriber or by a named event raised by the host, then walks an ordered list
of steps: plain messages, media, and questions whose reply is handed to a
continuation. The continuation can store the answer, re-prompt, jump to
another node or end the flow.

# Architecture

The engine (internal/runtime) is pure: given a conversation and an input it
returns the next conversation, the messages to deliver and the history rows
to write. Everything with side effects sits behind ports:

  - ConversationStore: where per-subscriber state lives (memory, Redis).
  - HistoryStore: the append-only interaction log (SQLite, Postgres, memory).
  - Provider: the outbound chat transport (HTTP stream, console, recorder).
  - Blacklist: subscribers the agent must ignore.

The bridge package runs one turn at a time per subscriber and is what the
HTTP, MCP and console adapters drive.

# Usage

	b := dsl.New()
	b.Add("welcome").
		Keywords("hi").
		Say("Hello!").
		Ask("What is your name?", dsl.SaveTo("name")).
		Say("Nice to meet you, {{name}}")
	graph := b.MustBuild()

	agent, err := parley.New(graph)
	if err != nil {
		log.Fatal(err)
	}
	effects, err := agent.Handle(ctx, "5511999999999", domain.Inbound{Body: "hi"})

Flows can also be written in YAML and loaded with Load. See the yamlflow
package for the format.
*/
package parley

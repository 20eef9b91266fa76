/*
Package domain contains the core domain models of the parley conversation engine.

It defines the dialogue graph (Nodes and Steps), the per-conversation runtime
snapshot (Conversation and ResumePoint), the closed set of step outcomes, the
outbound effects returned to the host, and the append-only history record.
This package is kept pure and free of I/O, following Hexagonal Architecture
principles.

# Key Entities

  - Node: A vertex in the dialogue graph, entered by keyword, event or branch jump.
  - Step: One ordered unit of output within a Node, optionally capturing a reply.
  - Graph: The immutable, validated set of Nodes with its trigger indexes.
  - Conversation: The state of one subscriber (resume point and key-value state).
  - Outcome: The tagged result of a step (Continue, AwaitingCapture, Fallback, Jump, Complete).
  - HistoryRecord: One persisted interaction.
*/
package domain

/*
Package yamlflow loads conversation graphs from YAML documents.

A document lists nodes with their triggers and ordered steps:

	nodes:
	  - id: welcome
	    keywords: [hi, hello]
	    events: [WELCOME]
	    steps:
	      - text: Hello, welcome!
	      - text: Type *doc* to get the documentation link
	        expect: [doc]
	        fallback: Please type *doc*
	      - text: Do you want to register? *yes*
	        branch:
	          yes: register
	        otherwise: Ok, see you later!

A step with save_to, expect or branch waits for a reply. save_to stores the
trimmed reply in the conversation state. expect accepts only the listed
replies and re-prompts with fallback otherwise. branch jumps to the node
mapped to the reply; an unmatched reply re-prompts when fallback is set,
and on the last step sends otherwise and ends the node. reply is sent after
an accepted answer, with {{key}} placeholders filled from the state.

Documents are compiled through pkg/dsl, so the resulting graph is validated
exactly like one built in code.
*/
package yamlflow

package domain

// Built-in event names.
const (
	// EventWelcome is resolved when an idle conversation sends a message that
	// matches no keyword.
	EventWelcome = "WELCOME"
	// EventMedia is resolved when an idle conversation sends media without text.
	EventMedia = "MEDIA"
	// EventRegister is dispatched by the registration trigger endpoint.
	EventRegister = "REGISTER_FLOW"
	// EventSamples is dispatched by the samples trigger endpoint.
	EventSamples = "SAMPLES"
)

// Keys used in the HistoryRecord options blob.
const (
	OptionCapture   = "capture"
	OptionMedia     = "media"
	OptionStep      = "step"
	OptionDirection = "direction"
)

// Directions recorded in history.
const (
	DirectionInbound  = "in"
	DirectionOutbound = "out"
)

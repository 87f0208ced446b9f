package logging

// Standardized attribute keys shared across components.
const (
	FieldComponent = "component"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
	FieldImpact    = "impact"

	FieldFlight    = "flight"
	FieldStation   = "station"
	FieldSessionID = "session_id"
	FieldMatchKey  = "match_key"
	FieldPassenger = "passenger"
	FieldSeat      = "seat"
	FieldSource    = "scan_source"
	FieldDevice    = "device"
)

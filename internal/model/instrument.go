package model

// Instrument is a tradable symbol. Rows are created lazily the first time a
// transaction references a ticker. Display controls whether the instrument
// shows up in UI pickers; everything else is immutable once referenced.
type Instrument struct {
	ID      string `json:"id"`
	Ticker  string `json:"ticker"`
	Display bool   `json:"display"`
}

// Portfolio is the owning scope for transactions. The deployment runs with a
// single portfolio whose ID comes from configuration.
type Portfolio struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

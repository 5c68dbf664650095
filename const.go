package market

const (
	// EngineVersion is the current version of the venue engine
	EngineVersion = "v1.0.0"
)

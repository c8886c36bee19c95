package detector

// New constructs the configured detector profile behind the shared
// Detector capability: three variants, one interface.
func New(cfg Config, sink Sink) Detector {
	switch cfg.Profile {
	case ProfilePersistence:
		return NewPersistence(cfg, sink)
	case ProfileLikelihood:
		return NewLikelihood(cfg, sink)
	default:
		return NewBalanced(cfg, sink)
	}
}

package skillset

// Resolver turns a request, either explicit skill-set names or "use the
// defaults", plus the target agent into the definitive ordered list of
// skill sets for a run. It is a pure computation over the loaded config:
// no I/O, no mutation, same inputs always produce the same output.
type Resolver struct {
	config *Config
}

// NewResolver creates a resolver over a loaded configuration.
func NewResolver(config *Config) *Resolver {
	return &Resolver{config: config}
}

// Resolve returns the skill sets to execute for the given agent, in a
// deterministic order used downstream to assign per-trial output
// namespaces.
//
// Explicitly requested names are resolved exactly as given: an unknown
// name or a set incompatible with the agent is an error, never silently
// dropped. Without an explicit request the default sets are used,
// filtered to those compatible with the agent; an empty result after
// filtering is an error. Either way the returned list is non-empty.
func (r *Resolver) Resolve(requested []string, agent string) ([]SkillSet, error) {
	if len(requested) > 0 {
		sets, err := r.config.ByNames(requested)
		if err != nil {
			return nil, err
		}
		for _, s := range sets {
			if !s.CompatibleWith(agent) {
				return nil, &IncompatibleAgentError{
					SkillSet: s.Name,
					Agent:    agent,
					Allowed:  s.Agents.Agents(),
				}
			}
		}
		return sets, nil
	}

	var compatible []SkillSet
	for _, s := range r.config.Defaults() {
		if s.CompatibleWith(agent) {
			compatible = append(compatible, s)
		}
	}
	if len(compatible) == 0 {
		return nil, &NoCompatibleDefaultsError{Agent: agent}
	}
	return compatible, nil
}

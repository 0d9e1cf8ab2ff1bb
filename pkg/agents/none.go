package agents

// noneAgent runs no agent at all. It exists so the harness itself, task
// setup, and verification can be exercised without spending any tokens.
type noneAgent struct{}

func (a *noneAgent) Name() Name {
	return None
}

func (a *noneAgent) ConfigFile() string {
	return ""
}

func (a *noneAgent) Env() (map[string]string, error) {
	return map[string]string{}, nil
}

func (a *noneAgent) Command(_ string, _ []string) string {
	return "true"
}

func (a *noneAgent) OutputComplete(_ string) bool {
	return true
}

func (a *noneAgent) ParseMetrics(_ string) Metrics {
	return Metrics{}
}

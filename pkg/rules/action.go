package rules

// AgentAction is the unit of work an autonomous agent proposes to take.
// Fields is an open bag supplied by the caller; condition field paths resolve
// against it first, then against the evaluation context bag.
type AgentAction struct {
	// Name identifies the proposed action (e.g. "deploy_service").
	Name string `json:"name"`

	// Category groups actions for rule targeting (e.g. "deployment").
	Category string `json:"category,omitempty"`

	// Fields is the open namespace condition paths resolve against.
	Fields map[string]interface{} `json:"fields,omitempty"`
}

// Field returns the value stored under a top-level field key.
// Name and category are addressable alongside the open bag.
func (a *AgentAction) Field(key string) (interface{}, bool) {
	switch key {
	case "name":
		return a.Name, true
	case "category":
		return a.Category, true
	}
	if a.Fields == nil {
		return nil, false
	}
	v, ok := a.Fields[key]
	return v, ok
}

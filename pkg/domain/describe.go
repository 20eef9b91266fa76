package domain

// NodeInfo is the serializable description of a node, without its
// continuations.
type NodeInfo struct {
	ID       string     `json:"id"`
	Keywords []string   `json:"keywords,omitempty"`
	Events   []string   `json:"events,omitempty"`
	Steps    []StepInfo `json:"steps"`
	Branches []string   `json:"branches,omitempty"`
}

// StepInfo is the serializable description of a step.
type StepInfo struct {
	Text    string `json:"text,omitempty"`
	Media   string `json:"media,omitempty"`
	Capture bool   `json:"capture"`
}

// Describe returns the structure of the graph in registration order.
func (g *Graph) Describe() []NodeInfo {
	out := make([]NodeInfo, 0, len(g.order))
	for _, id := range g.order {
		n := g.nodes[id]
		info := NodeInfo{ID: n.ID, Keywords: n.Keywords, Events: n.Events, Branches: n.Branches}
		for _, st := range n.Steps {
			info.Steps = append(info.Steps, StepInfo{Text: st.Message.Text, Media: st.Message.Media, Capture: st.Capture})
		}
		out = append(out, info)
	}
	return out
}

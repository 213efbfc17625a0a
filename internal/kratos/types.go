package kratos

// Session is the provider's view of an authenticated browser, as returned
// by the whoami endpoint. Raw holds the full response body so callers can
// display it without re-fetching; the gateway never persists any of this.
type Session struct {
	ID       string   `json:"id"`
	Identity Identity `json:"identity"`

	Raw []byte `json:"-"`
}

type Identity struct {
	ID     string `json:"id"`
	Traits Traits `json:"traits"`
}

type Traits struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Picture   string `json:"picture,omitempty"`
}

// LoginFlow is a single-use provider transaction. It is fetched fresh per
// request and never cached; the provider owns its lifetime.
type LoginFlow struct {
	ID string `json:"id"`
	UI FlowUI `json:"ui"`
}

type FlowUI struct {
	Action string `json:"action"`
	Method string `json:"method"`
	Nodes  []Node `json:"nodes"`
}

type Node struct {
	Attributes NodeAttributes `json:"attributes"`
}

type NodeAttributes struct {
	Name string `json:"name"`
	// Kratos emits non-string values for some nodes (booleans, numbers);
	// only string-valued nodes are ever rendered.
	Value any `json:"value"`
}

func (a NodeAttributes) StringValue() (string, bool) {
	s, ok := a.Value.(string)
	return s, ok
}

type NodeKind int

const (
	NodeOther NodeKind = iota
	NodeCSRFToken
	NodeProvider
)

func (n Node) Kind() NodeKind {
	switch n.Attributes.Name {
	case "csrf_token":
		return NodeCSRFToken
	case "provider":
		return NodeProvider
	default:
		return NodeOther
	}
}

// CSRFNode returns the flow's anti-CSRF token node.
func (ui FlowUI) CSRFNode() (Node, bool) {
	for _, n := range ui.Nodes {
		if n.Kind() != NodeCSRFToken {
			continue
		}
		if _, ok := n.Attributes.StringValue(); ok {
			return n, true
		}
	}
	return Node{}, false
}

// ProviderNode returns the method node for the named external provider.
// Absence means the provider integration is missing server-side.
func (ui FlowUI) ProviderNode(provider string) (Node, bool) {
	for _, n := range ui.Nodes {
		if n.Kind() != NodeProvider {
			continue
		}
		if v, ok := n.Attributes.StringValue(); ok && v == provider {
			return n, true
		}
	}
	return Node{}, false
}

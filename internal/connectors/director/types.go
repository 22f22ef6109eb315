package director

import "strings"

// ServerType names a kind of federation service.
type ServerType string

const (
	TypeOrigin   ServerType = "origin"
	TypeCache    ServerType = "cache"
	TypeRegistry ServerType = "registry"
	TypeDirector ServerType = "director"
)

const HealthError = "Error"

// ServerGeneral is the summary record the director keeps per server.
type ServerGeneral struct {
	Name                string   `json:"name"`
	Version             string   `json:"version"`
	StorageType         string   `json:"storageType"`
	DisableDirectorTest bool     `json:"disableDirectorTest"`
	AuthURL             string   `json:"authUrl"`
	BrokerURL           string   `json:"brokerUrl"`
	URL                 string   `json:"url"`
	WebURL              string   `json:"webUrl"`
	Type                string   `json:"type"`
	Latitude            float64  `json:"latitude"`
	Longitude           float64  `json:"longitude"`
	Filtered            bool     `json:"filtered"`
	FilteredType        string   `json:"filteredType"`
	FromTopology        bool     `json:"fromTopology"`
	HealthStatus        string   `json:"healthStatus"`
	IOLoad              float64  `json:"ioLoad"`
	NamespacePrefixes   []string `json:"namespacePrefixes"`
}

// Kind lowercases Type so it can select a metric page.
func (s ServerGeneral) Kind() string {
	return strings.ToLower(strings.TrimSpace(s.Type))
}

func (s ServerGeneral) Unhealthy() bool {
	return s.HealthStatus == HealthError
}

// NamespaceAd is one namespace a server exports.
type NamespaceAd struct {
	Path         string       `json:"path"`
	Capabilities Capabilities `json:"capabilities"`
	Generation   []struct {
		Strategy      string `json:"strategy"`
		Vault         string `json:"vaultServer"`
		MaxScopeDepth int    `json:"maxScopeDepth"`
	} `json:"generation,omitempty"`
}

type Capabilities struct {
	PublicReads bool `json:"publicRead"`
	Reads       bool `json:"read"`
	Writes      bool `json:"write"`
	Listings    bool `json:"listing"`
	DirectReads bool `json:"directRead"`
}

// ServerDetailed is the general record plus namespaces and capabilities.
type ServerDetailed struct {
	ServerGeneral
	Capabilities Capabilities  `json:"capabilities"`
	Namespaces   []NamespaceAd `json:"namespaces"`
}

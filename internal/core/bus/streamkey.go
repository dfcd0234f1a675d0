// This file defines StreamKey for uniquely identifying branch streams.
// StreamKey is used as a map key in the registry.

package bus

// StreamKey identifies a branch by endpoint name and branch name.
// It is comparable and can be used as a map key.
type StreamKey struct {
	Endpoint string // Player endpoint name (e.g., "player")
	Branch   string // Branch name (e.g., "video")
}

// String returns "endpoint/branch".
func (k StreamKey) String() string {
	return k.Endpoint + "/" + k.Branch
}

// NewStreamKey creates a new StreamKey.
func NewStreamKey(endpoint, branch string) StreamKey {
	return StreamKey{Endpoint: endpoint, Branch: branch}
}

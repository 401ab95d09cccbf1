package agent

import (
	runnerdomain "github.com/pathworklabs/pathwork/internal/runner/domain"
)

// Registry serves one shared model client for every known feature. Per
// feature prompt shaping lives behind the endpoint, not in this process.
type Registry struct {
	client   *Client
	features map[string]struct{}
}

func NewRegistry(client *Client, features []string) *Registry {
	known := make(map[string]struct{}, len(features))
	for _, f := range features {
		known[f] = struct{}{}
	}
	return &Registry{client: client, features: known}
}

func (r *Registry) For(feature string) (runnerdomain.Executor, bool) {
	if _, ok := r.features[feature]; !ok {
		return nil, false
	}
	return r.client, true
}

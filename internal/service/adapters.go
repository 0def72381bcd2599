package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/aegishub/hub/internal/federation"
	"github.com/aegishub/hub/internal/model"
	"github.com/aegishub/hub/internal/store"
	"github.com/aegishub/hub/internal/trust"
)

// storeLocalSearcher adapts *store.Store to federation.LocalSearcher's
// narrower, context-aware signature.
type storeLocalSearcher struct {
	st *store.Store
}

// NewLocalSearcher constructs the adapter federation.New expects.
func NewLocalSearcher(st *store.Store) federation.LocalSearcher {
	return storeLocalSearcher{st: st}
}

func (a storeLocalSearcher) SearchFragments(ctx context.Context, query string) ([]model.Fragment, error) {
	results, _, err := a.st.SearchFragments(query, 0, "", "", 50)
	if err != nil {
		return nil, err
	}
	out := make([]model.Fragment, 0, len(results))
	for _, f := range results {
		out = append(out, *f)
	}
	return out, nil
}

// storeTrustLookup adapts *store.Store to trust.AgentLookup.
type storeTrustLookup struct {
	st *store.Store
}

// NewTrustLookup constructs the adapter trust.New expects.
func NewTrustLookup(st *store.Store) trust.AgentLookup {
	return storeTrustLookup{st: st}
}

func (a storeTrustLookup) TrustConfig(id uuid.UUID) (model.TrustConfig, error) {
	agent, err := a.st.GetAgent(id)
	if err != nil {
		return model.TrustConfig{}, err
	}
	return agent.Trust, nil
}

func (a storeTrustLookup) Exists(id uuid.UUID) (bool, error) {
	return a.st.HasAgent(id)
}

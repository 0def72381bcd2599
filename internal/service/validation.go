package service

import (
	"crypto/ed25519"

	"github.com/aegishub/hub/internal/herr"
	"github.com/aegishub/hub/internal/model"
)

func ed25519PublicKey(b []byte) ed25519.PublicKey {
	return ed25519.PublicKey(b)
}

// validateAgent enforces spec.md §3's invariant that trust values lie in
// [-1, 1] and confidences in [0, 1], across the agent's own default trust,
// its per-agent trust entries, and its profile's average confidence.
func validateAgent(a *model.Agent) error {
	if len(a.PublicKey) != ed25519.PublicKeySize {
		return herr.New(herr.Validation, "agent public key must be %d bytes, got %d", ed25519.PublicKeySize, len(a.PublicKey))
	}
	if !inRange(a.Trust.DefaultTrust, -1, 1) {
		return herr.New(herr.Validation, "default_trust %v out of range [-1,1]", a.Trust.DefaultTrust)
	}
	for peer, entry := range a.Trust.Entries {
		if !inRange(entry.Trust, -1, 1) {
			return herr.New(herr.Validation, "trust toward %s = %v out of range [-1,1]", peer, entry.Trust)
		}
		if !inRange(entry.Confidence, 0, 1) {
			return herr.New(herr.Validation, "trust confidence toward %s = %v out of range [0,1]", peer, entry.Confidence)
		}
	}
	if !inRange(a.Profile.AverageConfidence, 0, 1) {
		return herr.New(herr.Validation, "profile average_confidence %v out of range [0,1]", a.Profile.AverageConfidence)
	}
	if !inRange(a.Profile.HistoricalAccuracy, 0, 1) {
		return herr.New(herr.Validation, "profile historical_accuracy %v out of range [0,1]", a.Profile.HistoricalAccuracy)
	}
	for topic, score := range a.Profile.SpecializationScores {
		if !inRange(score, 0, 1) {
			return herr.New(herr.Validation, "profile specialization_scores[%q] = %v out of range [0,1]", topic, score)
		}
	}
	return nil
}

// validateFragment enforces the Fragment confidence bound and that
// EvidenceType/State are drawn from their declared enums.
func validateFragment(f *model.Fragment) error {
	if !inRange(f.Confidence, 0, 1) {
		return herr.New(herr.Validation, "fragment confidence %v out of range [0,1]", f.Confidence)
	}
	if f.Content == "" {
		return herr.New(herr.Validation, "fragment content must not be empty")
	}
	switch f.EvidenceType {
	case "", model.EvidenceEmpirical, model.EvidenceLogical, model.EvidenceConsensus,
		model.EvidenceSpeculation, model.EvidenceUnknown:
	default:
		return herr.New(herr.Validation, "fragment evidence_type %q is not a recognized type", f.EvidenceType)
	}
	switch f.State {
	case "", model.FragmentProposed, model.FragmentVerified, model.FragmentContested:
	default:
		return herr.New(herr.Validation, "fragment state %q is not a recognized state", f.State)
	}
	return nil
}

// validateRelation enforces the Relation confidence bound and a non-empty
// type drawn from the declared enum.
func validateRelation(r *model.Relation) error {
	if !inRange(r.Confidence, 0, 1) {
		return herr.New(herr.Validation, "relation confidence %v out of range [0,1]", r.Confidence)
	}
	switch r.Type {
	case model.RelationReferences, model.RelationSupports, model.RelationContradicts,
		model.RelationDerivedFrom, model.RelationPartOf, model.RelationSupersedes,
		model.RelationRelatesTo, model.RelationTypedAs:
	default:
		return herr.New(herr.Validation, "relation type %q is not a recognized type", r.Type)
	}
	if r.SourceID == r.TargetID {
		return herr.New(herr.Validation, "relation source and target must differ")
	}
	return nil
}

func inRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

// Package model defines the federated entity types shared by every
// component of the hub: agents, fragments, relations, tags, transforms, and
// the hub-peer record. All of them embed Header, which carries the fields
// common to every signed, federated entity.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies an entity's primary key-space in the store.
type Kind string

const (
	KindAgent     Kind = "agent"
	KindFragment  Kind = "fragment"
	KindRelation  Kind = "relation"
	KindTag       Kind = "tag"
	KindTransform Kind = "transform"
)

// Header carries the fields common to every federated entity: a stable
// identifier, creation time, authoring agent, and detached signature.
type Header struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	AuthorID  uuid.UUID `json:"author_id"`
	Signature string    `json:"signature"`
}

// GetSignature and SetSignature satisfy codec.Signer for any entity that
// embeds Header, which is all of them.
func (h *Header) GetSignature() string     { return h.Signature }
func (h *Header) SetSignature(sig string)  { h.Signature = sig }

// EvidenceType classifies the kind of support behind a Fragment's content.
type EvidenceType string

const (
	EvidenceEmpirical   EvidenceType = "empirical"
	EvidenceLogical     EvidenceType = "logical"
	EvidenceConsensus   EvidenceType = "consensus"
	EvidenceSpeculation EvidenceType = "speculation"
	EvidenceUnknown     EvidenceType = "unknown"
)

// FragmentState is the lifecycle state of a Fragment.
type FragmentState string

const (
	FragmentProposed FragmentState = "proposed"
	FragmentVerified FragmentState = "verified"
	FragmentContested FragmentState = "contested"
)

// RelationType is the edge label between two entities.
type RelationType string

const (
	RelationReferences  RelationType = "REFERENCES"
	RelationSupports    RelationType = "SUPPORTS"
	RelationContradicts RelationType = "CONTRADICTS"
	RelationDerivedFrom RelationType = "DERIVED_FROM"
	RelationPartOf      RelationType = "PART_OF"
	RelationSupersedes  RelationType = "SUPERSEDES"
	RelationRelatesTo   RelationType = "RELATES_TO"
	RelationTypedAs     RelationType = "TYPED_AS"
)

// TagCategory classifies a Tag.
type TagCategory string

const (
	TagTopic  TagCategory = "topic"
	TagType   TagCategory = "type"
	TagStatus TagCategory = "status"
	TagDomain TagCategory = "domain"
	TagCustom TagCategory = "custom"
)

// Liveness is the last-known reachability of a peer hub.
type Liveness string

const (
	LivenessAlive   Liveness = "alive"
	LivenessSuspect Liveness = "suspect"
	LivenessDead    Liveness = "dead"
)

// TrustEntry is one row of an Agent's direct-trust map: a declared trust
// value in [-1, 1] and a confidence in [0, 1] for a specific other agent.
type TrustEntry struct {
	Trust      float64 `json:"trust"`
	Confidence float64 `json:"confidence"`
}

// TrustConfig is an Agent's declared direct-trust map plus the default trust
// extended to agents it has no opinion about.
type TrustConfig struct {
	DefaultTrust float64                      `json:"default_trust"`
	Entries      map[uuid.UUID]TrustEntry     `json:"entries"`
}

// DirectTrust returns the trust declared toward target, falling back to
// DefaultTrust when there is no explicit entry.
func (c TrustConfig) DirectTrust(target uuid.UUID) float64 {
	if e, ok := c.Entries[target]; ok {
		return e.Trust
	}
	return c.DefaultTrust
}

// Profile carries an Agent's self-reported specialization and track record.
type Profile struct {
	SpecializationScores map[string]float64 `json:"specialization_scores"`
	DeclaredBiases       []string           `json:"declared_biases,omitempty"`
	AverageConfidence    float64            `json:"average_confidence"`
	FragmentCount        int                `json:"fragment_count"`
	HistoricalAccuracy   float64            `json:"historical_accuracy"`
}

// Agent is the identity record and principal of every write in the
// federation. It carries its own public key, is admitted once, and is
// mutated only by a signed update whose Version strictly exceeds the
// version on file.
type Agent struct {
	Header
	PublicKey      []byte      `json:"public_key"` // 32-byte Ed25519, base64 over the wire
	Description    string      `json:"description"`
	Trust          TrustConfig `json:"trust"`
	Profile        Profile     `json:"profile"`
	PreferredHub   string      `json:"preferred_hub,omitempty"`
	ReputationScore float64    `json:"reputation_score"`
	Version        uint64      `json:"version"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// TrustSummary aggregates community feedback on a Fragment.
type TrustSummary struct {
	AggregateScore float64 `json:"aggregate_score"`
	TotalVotes     int     `json:"total_votes"`
	Verifications  int     `json:"verifications"`
	Contestations  int     `json:"contestations"`
}

// Fragment is an atomic, signed unit of knowledge content.
type Fragment struct {
	Header
	Content        string        `json:"content"`
	Language       string        `json:"language"`
	ProjectID      *uuid.UUID    `json:"project_id,omitempty"`
	TransformID    *uuid.UUID    `json:"transform_id,omitempty"`
	Confidence     float64       `json:"confidence"`
	EvidenceType   EvidenceType  `json:"evidence_type"`
	Trust          TrustSummary  `json:"trust"`
	State          FragmentState `json:"state"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Relation is a directed, typed edge between two entities.
type Relation struct {
	Header
	SourceID   uuid.UUID      `json:"source_id"`
	TargetID   uuid.UUID      `json:"target_id"`
	Type       RelationType   `json:"type"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Tag is a globally unique name plus category.
type Tag struct {
	Header
	Name     string      `json:"name"`
	Category TagCategory `json:"category"`
}

// Transform is a named markdown specification with domain and version.
type Transform struct {
	Header
	Name     string      `json:"name"`
	Domain   string      `json:"domain"`
	Version  string      `json:"version"`
	Markdown string      `json:"markdown"`
	TagIDs   []uuid.UUID `json:"tag_ids,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// HubRecord describes a peer hub known to the registry.
type HubRecord struct {
	HubID         string    `json:"hub_id"`
	URL           string    `json:"url"`
	Capabilities  []string  `json:"capabilities,omitempty"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	Liveness      Liveness  `json:"liveness"`
}

// Address is a hub-qualified reference to an entity living on a specific
// hub, used when a federated search result did not originate locally.
type Address struct {
	HubURL   string    `json:"hub_url"`
	EntityID uuid.UUID `json:"entity_id"`
}

func (a Address) String() string {
	return a.HubURL + "#" + a.EntityID.String()
}

// Package service implements the service layer (C7): the hub's sole
// externally visible contract. It validates payloads, verifies signatures,
// consults the admission controller, and dispatches to the entity store,
// trust resolver, and federated search — translating every failure into
// one of internal/herr's transport-independent error kinds along the way
// (spec.md §4.7).
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aegishub/hub/internal/admission"
	"github.com/aegishub/hub/internal/codec"
	"github.com/aegishub/hub/internal/federation"
	"github.com/aegishub/hub/internal/herr"
	"github.com/aegishub/hub/internal/hubs"
	"github.com/aegishub/hub/internal/model"
	"github.com/aegishub/hub/internal/store"
	"github.com/aegishub/hub/internal/trust"
)

// Service is the hub's service layer.
type Service struct {
	store     *store.Store
	admission *admission.Controller
	trust     *trust.Resolver
	search    *federation.Searcher
	registry  *hubs.Registry
}

// New constructs a Service wiring the four backing components together.
func New(st *store.Store, adm *admission.Controller, tr *trust.Resolver, se *federation.Searcher, reg *hubs.Registry) *Service {
	return &Service{store: st, admission: adm, trust: tr, search: se, registry: reg}
}

// --- Agents ---

// CreateAgent admits a new or updated Agent record: it verifies the
// self-signature under the public key the payload itself carries (an
// Agent's first write establishes its own identity), validates trust
// bounds, consults C3 for admission, and stores the record. It returns the
// admission controller's advisory hint, non-empty only when the resource
// level is WARNING (spec.md §6, "Advisory hint").
func (s *Service) CreateAgent(ctx context.Context, a *model.Agent) (string, error) {
	if err := validateAgent(a); err != nil {
		return "", err
	}
	if err := codec.Verify(a, ed25519PublicKey(a.PublicKey)); err != nil {
		return "", err
	}

	existing, err := s.store.HasAgent(a.ID)
	if err != nil {
		return "", err
	}
	var hint string
	if !existing {
		decision, err := s.admission.AdmitAgentCreation()
		if err != nil {
			return "", err
		}
		hint = decision.AdvisoryHint
	}

	if err := s.store.PutAgent(a); err != nil {
		return "", err
	}
	return hint, nil
}

// GetAgent retrieves an Agent by ID.
func (s *Service) GetAgent(ctx context.Context, id uuid.UUID) (*model.Agent, error) {
	return s.store.GetAgent(id)
}

// --- Fragments ---

// CreateFragment admits a Fragment: verifies its signature under the
// author's stored public key, validates confidence bounds, consults C3,
// and stores it. It returns C3's advisory hint (see CreateAgent).
func (s *Service) CreateFragment(ctx context.Context, f *model.Fragment) (string, error) {
	if err := validateFragment(f); err != nil {
		return "", err
	}
	if err := s.verifyAuthorSignature(f.AuthorID, f); err != nil {
		return "", err
	}
	decision, err := s.admission.AdmitWrite(ctx, f.AuthorID, s.store)
	if err != nil {
		return "", err
	}
	if err := s.store.PutFragment(f); err != nil {
		return "", err
	}
	return decision.AdvisoryHint, nil
}

// GetFragment retrieves a Fragment by ID.
func (s *Service) GetFragment(ctx context.Context, id uuid.UUID) (*model.Fragment, error) {
	return s.store.GetFragment(id)
}

// --- Relations ---

// CreateRelation admits a Relation. The source identifier must resolve to
// an entity already known to this hub; the target resolvability rule is
// intentionally looser (see DESIGN.md's resolution of the target-
// resolvability Open Question).
func (s *Service) CreateRelation(ctx context.Context, r *model.Relation) (string, error) {
	if err := validateRelation(r); err != nil {
		return "", err
	}
	if err := s.verifyAuthorSignature(r.AuthorID, r); err != nil {
		return "", err
	}
	if err := s.requireSourceResolvable(r.SourceID); err != nil {
		return "", err
	}
	decision, err := s.admission.AdmitWrite(ctx, r.AuthorID, s.store)
	if err != nil {
		return "", err
	}
	if err := s.store.PutRelation(r); err != nil {
		return "", err
	}
	return decision.AdvisoryHint, nil
}

// requireSourceResolvable enforces spec.md §3's invariant that a
// Relation's source must resolve to an entity already known locally. Any
// entity kind qualifies as a source; primary-key existence across kinds is
// checked by probing the store for each kind in turn, since Relation does
// not itself carry a source kind tag.
func (s *Service) requireSourceResolvable(id uuid.UUID) error {
	for _, kind := range []model.Kind{model.KindAgent, model.KindFragment, model.KindRelation, model.KindTag, model.KindTransform} {
		if ok, err := s.store.ExistsOfKind(kind, id); err != nil {
			return err
		} else if ok {
			return nil
		}
	}
	return herr.New(herr.Validation, "relation source %s does not resolve to a known entity", id)
}

// GetRelation retrieves a Relation by ID.
func (s *Service) GetRelation(ctx context.Context, id uuid.UUID) (*model.Relation, error) {
	return s.store.GetRelation(id)
}

// RelationsFrom/RelationsTo expose C2's relation indexes.
func (s *Service) RelationsFrom(ctx context.Context, id uuid.UUID, cursor store.Cursor, limit int) ([]uuid.UUID, store.Cursor, error) {
	return s.store.RelationsFrom(id, cursor, limit)
}

func (s *Service) RelationsTo(ctx context.Context, id uuid.UUID, cursor store.Cursor, limit int) ([]uuid.UUID, store.Cursor, error) {
	return s.store.RelationsTo(id, cursor, limit)
}

// --- Tags ---

// CreateTag admits a Tag, relying on C2's conditional write for the
// global-uniqueness invariant.
func (s *Service) CreateTag(ctx context.Context, t *model.Tag) (string, error) {
	if t.Name == "" {
		return "", herr.New(herr.Validation, "tag name must not be empty")
	}
	if err := s.verifyAuthorSignature(t.AuthorID, t); err != nil {
		return "", err
	}
	decision, err := s.admission.AdmitWrite(ctx, t.AuthorID, s.store)
	if err != nil {
		return "", err
	}
	if err := s.store.PutTag(t); err != nil {
		return "", err
	}
	return decision.AdvisoryHint, nil
}

// GetTag retrieves a Tag by ID.
func (s *Service) GetTag(ctx context.Context, id uuid.UUID) (*model.Tag, error) {
	return s.store.GetTag(id)
}

// --- Transforms ---

// CreateTransform admits a Transform.
func (s *Service) CreateTransform(ctx context.Context, tr *model.Transform) (string, error) {
	if tr.Name == "" || tr.Markdown == "" {
		return "", herr.New(herr.Validation, "transform requires a name and markdown body")
	}
	if err := s.verifyAuthorSignature(tr.AuthorID, tr); err != nil {
		return "", err
	}
	decision, err := s.admission.AdmitWrite(ctx, tr.AuthorID, s.store)
	if err != nil {
		return "", err
	}
	if err := s.store.PutTransform(tr); err != nil {
		return "", err
	}
	return decision.AdvisoryHint, nil
}

// GetTransform retrieves a Transform by ID.
func (s *Service) GetTransform(ctx context.Context, id uuid.UUID) (*model.Transform, error) {
	return s.store.GetTransform(id)
}

// --- Listing ---

// ListByAuthor exposes C2's author index for any entity kind.
func (s *Service) ListByAuthor(ctx context.Context, agent uuid.UUID, kind model.Kind, cursor store.Cursor, limit int) ([]uuid.UUID, store.Cursor, error) {
	return s.store.ListByAuthor(agent, kind, cursor, limit)
}

// SearchFragmentsLocal runs a local-only fragment search (the
// `fragments/search?q=` REST verb, distinct from federated_search).
func (s *Service) SearchFragmentsLocal(ctx context.Context, query string) ([]*model.Fragment, error) {
	results, _, err := s.store.SearchFragments(query, 0, "", "", 50)
	return results, err
}

// --- Trust ---

// ResolveTrust computes the effective trust from source to target (C4).
func (s *Service) ResolveTrust(ctx context.Context, source, target uuid.UUID) (trust.Result, error) {
	return s.trust.Resolve(source, target)
}

// --- Federated search ---

// Search runs federated_search (C6).
func (s *Service) Search(ctx context.Context, query string, federateFlag bool, deadline time.Duration) (federation.ResultSet, error) {
	return s.search.Search(ctx, query, federateFlag, deadline)
}

// --- Hub registry ---

// RegisterHub admits a peer registration (C5).
func (s *Service) RegisterHub(ctx context.Context, hubID, url string, caps []string) []hubs.Peer {
	return s.registry.Register(hubID, url, caps)
}

// HeartbeatHub refreshes a peer's heartbeat and stats (C5).
func (s *Service) HeartbeatHub(ctx context.Context, hubID string, stats map[string]any) {
	s.registry.Heartbeat(hubID, stats)
}

// Peers returns the current peer table snapshot.
func (s *Service) Peers(ctx context.Context) []hubs.Peer {
	return s.registry.Peers()
}

// ResourceLevel exposes C3's current published level, for /health.
func (s *Service) ResourceLevel() admission.Level {
	return s.admission.Level()
}

// ForceResourceLevelForTest overrides the published resource level without
// waiting for a disk sample. Exists for tests that exercise WARNING/
// CRITICAL behavior deterministically.
func (s *Service) ForceResourceLevelForTest(level admission.Level) {
	s.admission.ForceLevel(level)
}

// --- shared helpers ---

// verifyAuthorSignature looks up authorID's stored public key and verifies
// entity's signature against it. Every non-agent write is signed by its
// author's already-admitted key; an unknown author therefore fails with
// Unauthorized rather than a separate NotFound branch — except at CRITICAL
// level, where C3 rejects the unfamiliar author first with CapacityRejected.
func (s *Service) verifyAuthorSignature(authorID uuid.UUID, entity codec.Signer) error {
	author, err := s.store.GetAgent(authorID)
	if err != nil {
		if herr.KindOf(err) == herr.NotFound {
			if _, admErr := s.admission.AdmitWrite(context.Background(), authorID, s.store); admErr != nil {
				return admErr
			}
			return herr.New(herr.Unauthorized, "author %s is not a known agent", authorID)
		}
		return err
	}
	return codec.Verify(entity, ed25519PublicKey(author.PublicKey))
}

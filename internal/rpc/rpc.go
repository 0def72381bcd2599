// Package rpc exposes the service layer's operations a second way, over
// net/rpc with a JSON wire codec, matching spec.md §6's note that the RPC
// surface's wire encoding is implementation-defined. Every method mirrors
// one REST verb from internal/server and shares the same underlying
// service.Service call. The hub.role gate on peer-list redistribution lives
// only in internal/server: RegisterHub here always returns the full peer
// list, and HeartbeatHub returns no peer list, whatever the hub's role.
package rpc

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aegishub/hub/internal/federation"
	"github.com/aegishub/hub/internal/hubs"
	"github.com/aegishub/hub/internal/model"
	"github.com/aegishub/hub/internal/service"
	"github.com/aegishub/hub/internal/store"
	"github.com/aegishub/hub/internal/trust"
)

// HubService is the net/rpc receiver. Each exported method follows the
// package's required shape: func(args *A, reply *R) error.
type HubService struct {
	svc *service.Service
}

// New constructs a HubService over svc. Register it with rpc.Register and
// serve it with an rpc.ServerCodec (see ListenAndServe).
func New(svc *service.Service) *HubService {
	return &HubService{svc: svc}
}

// --- Agents ---

type CreateAgentArgs struct {
	Agent *model.Agent
}

type CreateAgentReply struct {
	Advisory string
}

func (h *HubService) CreateAgent(args *CreateAgentArgs, reply *CreateAgentReply) error {
	hint, err := h.svc.CreateAgent(context.Background(), args.Agent)
	if err != nil {
		return err
	}
	reply.Advisory = hint
	return nil
}

type GetAgentArgs struct {
	ID uuid.UUID
}

type GetAgentReply struct {
	Agent *model.Agent
}

func (h *HubService) GetAgent(args *GetAgentArgs, reply *GetAgentReply) error {
	a, err := h.svc.GetAgent(context.Background(), args.ID)
	if err != nil {
		return err
	}
	reply.Agent = a
	return nil
}

// --- Fragments ---

type CreateFragmentArgs struct {
	Fragment *model.Fragment
}

type CreateFragmentReply struct {
	Advisory string
}

func (h *HubService) CreateFragment(args *CreateFragmentArgs, reply *CreateFragmentReply) error {
	hint, err := h.svc.CreateFragment(context.Background(), args.Fragment)
	if err != nil {
		return err
	}
	reply.Advisory = hint
	return nil
}

type GetFragmentArgs struct {
	ID uuid.UUID
}

type GetFragmentReply struct {
	Fragment *model.Fragment
}

func (h *HubService) GetFragment(args *GetFragmentArgs, reply *GetFragmentReply) error {
	f, err := h.svc.GetFragment(context.Background(), args.ID)
	if err != nil {
		return err
	}
	reply.Fragment = f
	return nil
}

type SearchFragmentsArgs struct {
	Query string
}

type SearchFragmentsReply struct {
	Fragments []*model.Fragment
}

func (h *HubService) SearchFragments(args *SearchFragmentsArgs, reply *SearchFragmentsReply) error {
	results, err := h.svc.SearchFragmentsLocal(context.Background(), args.Query)
	if err != nil {
		return err
	}
	reply.Fragments = results
	return nil
}

// --- Relations ---

type CreateRelationArgs struct {
	Relation *model.Relation
}

type CreateRelationReply struct {
	Advisory string
}

func (h *HubService) CreateRelation(args *CreateRelationArgs, reply *CreateRelationReply) error {
	hint, err := h.svc.CreateRelation(context.Background(), args.Relation)
	if err != nil {
		return err
	}
	reply.Advisory = hint
	return nil
}

type GetRelationArgs struct {
	ID uuid.UUID
}

type GetRelationReply struct {
	Relation *model.Relation
}

func (h *HubService) GetRelation(args *GetRelationArgs, reply *GetRelationReply) error {
	r, err := h.svc.GetRelation(context.Background(), args.ID)
	if err != nil {
		return err
	}
	reply.Relation = r
	return nil
}

// --- Tags ---

type CreateTagArgs struct {
	Tag *model.Tag
}

type CreateTagReply struct {
	Advisory string
}

func (h *HubService) CreateTag(args *CreateTagArgs, reply *CreateTagReply) error {
	hint, err := h.svc.CreateTag(context.Background(), args.Tag)
	if err != nil {
		return err
	}
	reply.Advisory = hint
	return nil
}

type GetTagArgs struct {
	ID uuid.UUID
}

type GetTagReply struct {
	Tag *model.Tag
}

func (h *HubService) GetTag(args *GetTagArgs, reply *GetTagReply) error {
	t, err := h.svc.GetTag(context.Background(), args.ID)
	if err != nil {
		return err
	}
	reply.Tag = t
	return nil
}

// --- Transforms ---

type CreateTransformArgs struct {
	Transform *model.Transform
}

type CreateTransformReply struct {
	Advisory string
}

func (h *HubService) CreateTransform(args *CreateTransformArgs, reply *CreateTransformReply) error {
	hint, err := h.svc.CreateTransform(context.Background(), args.Transform)
	if err != nil {
		return err
	}
	reply.Advisory = hint
	return nil
}

type GetTransformArgs struct {
	ID uuid.UUID
}

type GetTransformReply struct {
	Transform *model.Transform
}

func (h *HubService) GetTransform(args *GetTransformArgs, reply *GetTransformReply) error {
	tr, err := h.svc.GetTransform(context.Background(), args.ID)
	if err != nil {
		return err
	}
	reply.Transform = tr
	return nil
}

// --- Listing ---

type ListByAuthorArgs struct {
	Agent  uuid.UUID
	Kind   model.Kind
	Cursor store.Cursor
	Limit  int
}

type ListByAuthorReply struct {
	IDs    []uuid.UUID
	Cursor store.Cursor
}

func (h *HubService) ListByAuthor(args *ListByAuthorArgs, reply *ListByAuthorReply) error {
	ids, next, err := h.svc.ListByAuthor(context.Background(), args.Agent, args.Kind, args.Cursor, args.Limit)
	if err != nil {
		return err
	}
	reply.IDs, reply.Cursor = ids, next
	return nil
}

// --- Trust ---

type ResolveTrustArgs struct {
	Source uuid.UUID
	Target uuid.UUID
}

type ResolveTrustReply struct {
	Result trust.Result
}

func (h *HubService) ResolveTrust(args *ResolveTrustArgs, reply *ResolveTrustReply) error {
	result, err := h.svc.ResolveTrust(context.Background(), args.Source, args.Target)
	if err != nil {
		return err
	}
	reply.Result = result
	return nil
}

// --- Federated search ---

type SearchArgs struct {
	Query        string
	FederateFlag bool
	Deadline     time.Duration
}

type SearchReply struct {
	Result federation.ResultSet
}

func (h *HubService) Search(args *SearchArgs, reply *SearchReply) error {
	result, err := h.svc.Search(context.Background(), args.Query, args.FederateFlag, args.Deadline)
	if err != nil {
		return err
	}
	reply.Result = result
	return nil
}

// --- Hub registry ---

type RegisterHubArgs struct {
	HubID        string
	URL          string
	Capabilities []string
}

type RegisterHubReply struct {
	Peers []hubs.Peer
}

func (h *HubService) RegisterHub(args *RegisterHubArgs, reply *RegisterHubReply) error {
	reply.Peers = h.svc.RegisterHub(context.Background(), args.HubID, args.URL, args.Capabilities)
	return nil
}

type HeartbeatHubArgs struct {
	HubID string
	Stats map[string]any
}

type HeartbeatHubReply struct{}

func (h *HubService) HeartbeatHub(args *HeartbeatHubArgs, reply *HeartbeatHubReply) error {
	h.svc.HeartbeatHub(context.Background(), args.HubID, args.Stats)
	return nil
}

type ListHubsArgs struct{}

type ListHubsReply struct {
	Peers []hubs.Peer
}

func (h *HubService) ListHubs(args *ListHubsArgs, reply *ListHubsReply) error {
	reply.Peers = h.svc.Peers(context.Background())
	return nil
}

// cmd/hubd/main.go
//
// hubd is the federation hub server: it loads configuration, opens the
// entity store, starts the admission sampler and peer-liveness sweeper in
// the background, and serves the REST and RPC transports until it
// receives a shutdown signal.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aegishub/hub/internal/admission"
	"github.com/aegishub/hub/internal/config"
	"github.com/aegishub/hub/internal/federation"
	"github.com/aegishub/hub/internal/hubs"
	"github.com/aegishub/hub/internal/rpc"
	"github.com/aegishub/hub/internal/server"
	"github.com/aegishub/hub/internal/service"
	"github.com/aegishub/hub/internal/store"
	"github.com/aegishub/hub/internal/trust"
)

func main() {
	configPath := os.Getenv("HUB_CONFIG_FILE")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	httpAddr := os.Getenv("HUB_HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	rpcAddr := os.Getenv("HUB_RPC_ADDR")
	if rpcAddr == "" {
		rpcAddr = ":8081"
	}

	st, err := store.Open(store.Config{
		DataDir:     cfg.Database.DataDir,
		CacheSizeMB: cfg.Database.CacheSizeMB,
	})
	if err != nil {
		log.Fatalf("open entity store: %v", err)
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adm := admission.New(admission.Config{
		StoreDir:          cfg.Database.DataDir,
		CheckInterval:     time.Duration(cfg.Resources.CheckIntervalSec) * time.Second,
		WarningThreshold:  cfg.Resources.WarningThreshold,
		CriticalThreshold: cfg.Resources.CriticalThreshold,
	})
	go adm.Run(ctx)

	reg := hubs.NewRegistry(30 * time.Second)
	go reg.RunSweeper(ctx, 0)

	tr := trust.New(trust.Config{
		MaxDepth:          cfg.Trust.MaxDepth,
		DampingFactor:     cfg.Trust.DampingFactor,
		MinTrustThreshold: cfg.Trust.MinTrustThreshold,
	}, service.NewTrustLookup(st))

	se := federation.New(service.NewLocalSearcher(st), reg, federation.NewHTTPPeerSearcher())

	svc := service.New(st, adm, tr, se, reg)

	if cfg.Hub.Role == config.RoleSecondary && cfg.Discovery.PrimaryHubURL != "" {
		registerWithPrimary(cfg, reg)
		go heartbeatPrimaryLoop(ctx, cfg, reg)
	}

	srv := server.New(svc, cfg.Hub.Role == config.RolePrimary)
	httpServer := &http.Server{Addr: httpAddr, Handler: srv}

	go func() {
		log.Printf("hubd: REST listening on %s", httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server: %v", err)
		}
	}()

	go func() {
		if err := rpc.ListenAndServe(rpcAddr, rpc.New(svc)); err != nil {
			log.Printf("hubd: rpc server stopped: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("hubd: shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("hubd: http shutdown: %v", err)
	}
}

// registerWithPrimary announces this secondary hub to its configured
// primary and absorbs the primary's known peer list, so a secondary joins
// the mesh with a warm registry instead of an empty one.
func registerWithPrimary(cfg config.Config, reg *hubs.Registry) {
	body, err := json.Marshal(map[string]any{
		"hub_id": cfg.Hub.HubID,
		"url":    cfg.Hub.PublicURL,
	})
	if err != nil {
		log.Printf("hubd: marshal registration payload: %v", err)
		return
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(cfg.Discovery.PrimaryHubURL+"/api/v1/discovery/hubs", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("hubd: register with primary %s: %v", cfg.Discovery.PrimaryHubURL, err)
		return
	}
	defer resp.Body.Close()

	var parsed struct {
		Peers []hubs.Peer `json:"peers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		log.Printf("hubd: decode registration response: %v", err)
		return
	}
	reg.Merge(parsed.Peers)
	log.Printf("hubd: registered with primary %s, absorbed %d peers", cfg.Discovery.PrimaryHubURL, len(parsed.Peers))
}

// secondaryHeartbeatInterval is how often a secondary hub heartbeats its
// configured primary, refreshing the discovery relationship and merging
// the primary's current peer list (spec.md §4.5).
const secondaryHeartbeatInterval = 15 * time.Second

// heartbeatPrimaryLoop periodically heartbeats cfg's configured primary
// until ctx is cancelled, merging each reply's peer list into reg so a
// secondary's registry keeps absorbing peers discovered after startup.
func heartbeatPrimaryLoop(ctx context.Context, cfg config.Config, reg *hubs.Registry) {
	ticker := time.NewTicker(secondaryHeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			heartbeatPrimaryOnce(cfg, reg)
		}
	}
}

func heartbeatPrimaryOnce(cfg config.Config, reg *hubs.Registry) {
	body, err := json.Marshal(map[string]any{"stats": map[string]any{}})
	if err != nil {
		log.Printf("hubd: marshal heartbeat payload: %v", err)
		return
	}

	url := cfg.Discovery.PrimaryHubURL + "/api/v1/discovery/hubs/" + cfg.Hub.HubID + "/heartbeat"
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("hubd: heartbeat primary %s: %v", cfg.Discovery.PrimaryHubURL, err)
		return
	}
	defer resp.Body.Close()

	var parsed struct {
		Peers []hubs.Peer `json:"peers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		log.Printf("hubd: decode heartbeat response: %v", err)
		return
	}
	reg.Merge(parsed.Peers)
}

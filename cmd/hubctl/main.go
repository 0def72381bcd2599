// cmd/hubctl/main.go
//
// hubctl is a thin HTTP client for a running hubd's REST surface: it
// generates or loads an Ed25519 identity, signs entities client-side, and
// issues the same requests a programmatic agent would.
//
// Usage:
//
//	hubctl setup --data-dir ~/.hubctl
//	hubctl register-agent --hub http://localhost:8080
//	hubctl submit-fragment --hub http://localhost:8080 --content "..." --confidence 0.8
//	hubctl search --hub http://localhost:8080 --q "query terms"
//	hubctl trust-path --hub http://localhost:8080 --from <uuid> --to <uuid>
package main

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/aegishub/hub/internal/codec"
	"github.com/aegishub/hub/internal/model"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "setup":
		cmdSetup(os.Args[2:])
	case "register-agent":
		cmdRegisterAgent(os.Args[2:])
	case "submit-fragment":
		cmdSubmitFragment(os.Args[2:])
	case "search":
		cmdSearch(os.Args[2:])
	case "trust-path":
		cmdTrustPath(os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: hubctl <command> [flags]

Commands:
  setup            Generate a local Ed25519 identity
  register-agent   Create this identity as an Agent on a hub
  submit-fragment  Sign and submit a Fragment
  search           Run a federated_search query
  trust-path       Resolve the trust path between two agents

Run 'hubctl <command> --help' for details on each command.
`)
}

func resolveDataDir(explicit string) string {
	if explicit != "" {
		return explicit
	}
	home, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot determine home directory: %v\n", err)
		os.Exit(1)
	}
	return filepath.Join(home, ".hubctl")
}

// identity is the locally stored keypair plus the agent ID it was
// registered under, so later commands can sign without re-registering.
type identity struct {
	AgentID uuid.UUID `json:"agent_id"`
	Seed    []byte    `json:"seed"`
	Version uint64    `json:"version"`
}

func loadOrCreateIdentity(dir string) *identity {
	path := filepath.Join(dir, "identity.json")
	data, err := os.ReadFile(path)
	if err == nil {
		var id identity
		if err := json.Unmarshal(data, &id); err == nil {
			return &id
		}
	}

	id := &identity{AgentID: uuid.New(), Seed: make([]byte, ed25519.SeedSize)}
	if _, err := rand.Read(id.Seed); err != nil {
		fmt.Fprintf(os.Stderr, "Error: generating identity: %v\n", err)
		os.Exit(1)
	}
	saveIdentity(dir, id)
	return id
}

func saveIdentity(dir string, id *identity) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "Error: creating data directory: %v\n", err)
		os.Exit(1)
	}
	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: marshal identity: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(filepath.Join(dir, "identity.json"), data, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error: writing identity: %v\n", err)
		os.Exit(1)
	}
}

func (id *identity) keys() (ed25519.PublicKey, ed25519.PrivateKey) {
	priv := ed25519.NewKeyFromSeed(id.Seed)
	return priv.Public().(ed25519.PublicKey), priv
}

func cmdSetup(args []string) {
	fs := flag.NewFlagSet("setup", flag.ExitOnError)
	dataDir := fs.String("data-dir", "", "data directory (default ~/.hubctl)")
	fs.Parse(args)

	dir := resolveDataDir(*dataDir)
	id := loadOrCreateIdentity(dir)
	pub, _ := id.keys()

	fmt.Printf("Identity ready\n")
	fmt.Printf("  Agent ID:   %s\n", id.AgentID)
	fmt.Printf("  Public key: %x\n", pub)
	fmt.Printf("  Saved to:   %s\n", filepath.Join(dir, "identity.json"))
}

func cmdRegisterAgent(args []string) {
	fs := flag.NewFlagSet("register-agent", flag.ExitOnError)
	hub := fs.String("hub", "", "hub base URL (required)")
	dataDir := fs.String("data-dir", "", "data directory (default ~/.hubctl)")
	description := fs.String("description", "", "agent description")
	fs.Parse(args)
	requireFlag(*hub, "--hub")

	dir := resolveDataDir(*dataDir)
	id := loadOrCreateIdentity(dir)
	pub, priv := id.keys()

	id.Version++
	a := &model.Agent{
		Header:      model.Header{ID: id.AgentID, CreatedAt: time.Now(), AuthorID: id.AgentID},
		PublicKey:   pub,
		Description: *description,
		Trust:       model.TrustConfig{DefaultTrust: 0.5, Entries: map[uuid.UUID]model.TrustEntry{}},
		Version:     id.Version,
		UpdatedAt:   time.Now(),
	}
	if err := codec.Sign(a, priv); err != nil {
		fatalf("sign agent: %v", err)
	}

	postJSON(*hub+"/api/v1/agents", a, nil)
	saveIdentity(dir, id)
	fmt.Printf("Agent %s registered with %s\n", id.AgentID, *hub)
}

func cmdSubmitFragment(args []string) {
	fs := flag.NewFlagSet("submit-fragment", flag.ExitOnError)
	hub := fs.String("hub", "", "hub base URL (required)")
	dataDir := fs.String("data-dir", "", "data directory (default ~/.hubctl)")
	content := fs.String("content", "", "fragment content (required)")
	confidence := fs.Float64("confidence", 0.5, "confidence in [0,1]")
	evidence := fs.String("evidence", string(model.EvidenceUnknown), "evidence type")
	fs.Parse(args)
	requireFlag(*hub, "--hub")
	requireFlag(*content, "--content")

	dir := resolveDataDir(*dataDir)
	id := loadOrCreateIdentity(dir)
	_, priv := id.keys()

	f := &model.Fragment{
		Header:       model.Header{ID: uuid.New(), CreatedAt: time.Now(), AuthorID: id.AgentID},
		Content:      *content,
		Confidence:   *confidence,
		EvidenceType: model.EvidenceType(*evidence),
		State:        model.FragmentProposed,
		UpdatedAt:    time.Now(),
	}
	if err := codec.Sign(f, priv); err != nil {
		fatalf("sign fragment: %v", err)
	}

	postJSON(*hub+"/api/v1/fragments", f, nil)
	fmt.Printf("Fragment %s submitted\n", f.ID)
}

func cmdSearch(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	hub := fs.String("hub", "", "hub base URL (required)")
	query := fs.String("q", "", "search query")
	federate := fs.Bool("federate", true, "fan out to peer hubs")
	fs.Parse(args)
	requireFlag(*hub, "--hub")

	url := fmt.Sprintf("%s/api/v1/search?q=%s&federate=%t", *hub, *query, *federate)
	body := getJSON(url)
	fmt.Println(string(body))
}

func cmdTrustPath(args []string) {
	fs := flag.NewFlagSet("trust-path", flag.ExitOnError)
	hub := fs.String("hub", "", "hub base URL (required)")
	from := fs.String("from", "", "source agent ID (required)")
	to := fs.String("to", "", "target agent ID (required)")
	fs.Parse(args)
	requireFlag(*hub, "--hub")
	requireFlag(*from, "--from")
	requireFlag(*to, "--to")

	url := fmt.Sprintf("%s/api/v1/trust/path?from=%s&to=%s", *hub, *from, *to)
	body := getJSON(url)
	fmt.Println(string(body))
}

func requireFlag(value, name string) {
	if value == "" {
		fmt.Fprintf(os.Stderr, "Error: %s is required\n", name)
		os.Exit(1)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func postJSON(url string, payload any, out any) {
	body, err := json.Marshal(payload)
	if err != nil {
		fatalf("marshal request: %v", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		fatalf("post %s: status %d: %s", url, resp.StatusCode, respBody)
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			fatalf("decode response from %s: %v", url, err)
		}
	}
}

func getJSON(url string) []byte {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		fatalf("get %s: status %d: %s", url, resp.StatusCode, body)
	}
	return body
}

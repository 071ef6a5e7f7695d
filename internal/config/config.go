package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/danmuck/seedbank/internal/mesh"
	"github.com/danmuck/seedbank/internal/protocol"
	"github.com/pelletier/go-toml/v2"
)

// Topology describes a simulated network: its nodes, links, planted seeds
// and the seed requests to replay against it.
type Topology struct {
	Network  NetworkConfig   `toml:"network"`
	Nodes    []NodeConfig    `toml:"nodes"`
	Seeds    []SeedConfig    `toml:"seeds"`
	Requests []RequestConfig `toml:"requests"`
}

type NetworkConfig struct {
	Delivery string `toml:"delivery"`
	MaxSteps int    `toml:"max_steps"`
	Framed   bool   `toml:"framed"`
}

type NodeConfig struct {
	ID    string   `toml:"id"`
	Role  string   `toml:"role"`
	Links []string `toml:"links"`
}

type SeedConfig struct {
	Node        string   `toml:"node"`
	ID          string   `toml:"id"`
	Title       string   `toml:"title"`
	Description string   `toml:"description"`
	Subject     string   `toml:"subject"`
	Curriculum  string   `toml:"curriculum"`
	Files       []string `toml:"files"`
}

// Record renders the seed entry as the opaque record nodes store. Values use
// JSON-native types so the record survives an encoded hop unchanged.
func (s SeedConfig) Record() mesh.Seed {
	rec := mesh.Seed{"title": s.Title}
	if s.Description != "" {
		rec["description"] = s.Description
	}
	if s.Subject != "" {
		rec["subject"] = s.Subject
	}
	if s.Curriculum != "" {
		rec["curriculum"] = s.Curriculum
	}
	if len(s.Files) > 0 {
		files := make([]any, len(s.Files))
		for i, f := range s.Files {
			files[i] = f
		}
		rec["files"] = files
	}
	return rec
}

type RequestConfig struct {
	From   string `toml:"from"`
	To     string `toml:"to"`
	SeedID string `toml:"seed_id"`
}

func LoadTopology(path string) (Topology, error) {
	var cfg Topology
	if err := loadToml(path, &cfg); err != nil {
		return Topology{}, err
	}
	if cfg.Network.Delivery == "" {
		cfg.Network.Delivery = mesh.DeliveryQueued.String()
	}
	if cfg.Network.MaxSteps == 0 {
		cfg.Network.MaxSteps = mesh.DefaultMaxSteps
	}
	if err := ValidateTopology(cfg); err != nil {
		return Topology{}, err
	}
	return cfg, nil
}

// ParseTopology decodes TOML text without defaults or validation.
func ParseTopology(data []byte) (Topology, error) {
	var cfg Topology
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Topology{}, fmt.Errorf("topology parse failed: %w", err)
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateTopology(cfg Topology) error {
	if _, err := mesh.ParseDeliveryMode(cfg.Network.Delivery); err != nil {
		return fmt.Errorf("network: %w", err)
	}
	if cfg.Network.MaxSteps < 0 {
		return fmt.Errorf("network: max_steps must not be negative")
	}
	if len(cfg.Nodes) == 0 {
		return fmt.Errorf("topology has no nodes")
	}

	ids := make(map[string]struct{}, len(cfg.Nodes))
	for i, node := range cfg.Nodes {
		id := strings.TrimSpace(node.ID)
		if id == "" {
			return fmt.Errorf("node[%d] invalid: id is required", i)
		}
		if id != node.ID {
			return fmt.Errorf("node[%d] invalid: id %q has surrounding whitespace", i, node.ID)
		}
		if _, dup := ids[id]; dup {
			return fmt.Errorf("node[%d] invalid: duplicate id %q", i, id)
		}
		if _, err := mesh.ParseRole(node.Role); err != nil {
			return fmt.Errorf("node[%d] invalid: %w", i, err)
		}
		ids[id] = struct{}{}
	}
	for i, node := range cfg.Nodes {
		for _, link := range node.Links {
			if link == node.ID {
				return fmt.Errorf("node[%d] invalid: self link %q", i, link)
			}
			if _, ok := ids[link]; !ok {
				return fmt.Errorf("node[%d] invalid: link to unknown node %q", i, link)
			}
		}
	}
	for i, seed := range cfg.Seeds {
		if err := ValidateSeedEntry(seed, ids); err != nil {
			return fmt.Errorf("seed[%d] invalid: %w", i, err)
		}
	}
	for i, req := range cfg.Requests {
		if _, ok := ids[req.From]; !ok {
			return fmt.Errorf("request[%d] invalid: unknown requester %q", i, req.From)
		}
		if strings.TrimSpace(req.To) == "" {
			return fmt.Errorf("request[%d] invalid: to is required", i)
		}
		if strings.TrimSpace(req.SeedID) == "" {
			return fmt.Errorf("request[%d] invalid: seed_id is required", i)
		}
	}
	return nil
}

func ValidateSeedEntry(cfg SeedConfig, nodes map[string]struct{}) error {
	if strings.TrimSpace(cfg.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(cfg.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if _, ok := nodes[cfg.Node]; !ok {
		return fmt.Errorf("unknown node %q", cfg.Node)
	}
	return nil
}

// Build validates cfg and assembles the network it describes. Extra options
// are applied after the ones derived from cfg.
func Build(cfg Topology, opts ...mesh.Option) (*mesh.Network, error) {
	if err := ValidateTopology(cfg); err != nil {
		return nil, err
	}
	mode, _ := mesh.ParseDeliveryMode(cfg.Network.Delivery)
	base := []mesh.Option{mesh.WithDelivery(mode)}
	if cfg.Network.MaxSteps > 0 {
		base = append(base, mesh.WithMaxSteps(cfg.Network.MaxSteps))
	}
	if cfg.Network.Framed {
		base = append(base, mesh.WithCodec(protocol.NewCodec()))
	}
	nw := mesh.NewNetwork(append(base, opts...)...)

	nodes := make(map[string]*mesh.Node, len(cfg.Nodes))
	for _, nc := range cfg.Nodes {
		role, _ := mesh.ParseRole(nc.Role)
		node, err := mesh.NewNode(nc.ID, role)
		if err != nil {
			return nil, err
		}
		if err := nw.AddNode(node); err != nil {
			return nil, err
		}
		nodes[node.ID()] = node
	}
	for _, nc := range cfg.Nodes {
		for _, link := range nc.Links {
			nodes[nc.ID].Connect(nodes[link])
		}
	}
	for _, sc := range cfg.Seeds {
		if err := nodes[sc.Node].StoreSeed(sc.ID, sc.Record()); err != nil {
			return nil, fmt.Errorf("seed %q: %w", sc.ID, err)
		}
	}
	return nw, nil
}

// DefaultTopology is the four node sample mesh: a gateway linked both ways
// with two schools and a farmer, holding one sample seed.
func DefaultTopology() Topology {
	return Topology{
		Network: NetworkConfig{
			Delivery: mesh.DeliveryQueued.String(),
			MaxSteps: mesh.DefaultMaxSteps,
		},
		Nodes: []NodeConfig{
			{ID: "gateway", Role: string(mesh.RoleGateway), Links: []string{"school1", "school2", "farmer"}},
			{ID: "school1", Role: string(mesh.RoleLeaf), Links: []string{"gateway"}},
			{ID: "school2", Role: string(mesh.RoleLeaf), Links: []string{"gateway"}},
			{ID: "farmer", Role: string(mesh.RoleLeaf), Links: []string{"gateway"}},
		},
		Seeds: []SeedConfig{{
			Node:        "gateway",
			ID:          "sample1",
			Title:       "Sample Educational Content",
			Description: "A sample seed for demonstration",
			Subject:     "Science",
			Files:       []string{"content1.html", "video1.mp4"},
		}},
		Requests: []RequestConfig{{From: "school1", To: "gateway", SeedID: "sample1"}},
	}
}

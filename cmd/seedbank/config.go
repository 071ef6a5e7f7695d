package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

type serverConfig struct {
	NodeID      string
	Addr        string
	ContentDir  string
	CorsOrigins []string
	Topology    string
}

type serverFileConfig struct {
	NodeID      string   `toml:"node_id"`
	Addr        string   `toml:"addr"`
	ContentDir  string   `toml:"content_dir"`
	CorsOrigins []string `toml:"cors_origins"`
	Topology    string   `toml:"topology"`
}

func defaultServerConfig() serverConfig {
	return serverConfig{
		NodeID:     "gateway",
		Addr:       "127.0.0.1:8080",
		ContentDir: "content",
	}
}

// loadServerConfig overlays the keys present in path onto the defaults.
func loadServerConfig(path string) (serverConfig, error) {
	cfg := defaultServerConfig()

	var raw serverFileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return serverConfig{}, fmt.Errorf("load server config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return serverConfig{}, fmt.Errorf("load server config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("node_id") {
		id := strings.TrimSpace(raw.NodeID)
		if id == "" {
			return serverConfig{}, fmt.Errorf("load server config: node_id must not be empty")
		}
		cfg.NodeID = id
	}
	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("content_dir") {
		cfg.ContentDir = strings.TrimSpace(raw.ContentDir)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}
	if meta.IsDefined("topology") {
		cfg.Topology = strings.TrimSpace(raw.Topology)
	}
	return cfg, nil
}

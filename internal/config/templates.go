package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "topology":
		return topologyTemplate, nil
	case "server":
		return serverTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const topologyTemplate = `[network]
delivery = "queued"
max_steps = 10000
framed = false

[[nodes]]
id = "gateway"
role = "gateway"
links = ["school1", "school2", "farmer"]

[[nodes]]
id = "school1"
role = "leaf"
links = ["gateway"]

[[nodes]]
id = "school2"
role = "leaf"
links = ["gateway"]

[[nodes]]
id = "farmer"
role = "leaf"
links = ["gateway"]

[[seeds]]
node = "gateway"
id = "sample1"
title = "Sample Educational Content"
description = "A sample seed for demonstration"
subject = "Science"
files = ["content1.html", "video1.mp4"]

[[requests]]
from = "school1"
to = "gateway"
seed_id = "sample1"
`

const serverTemplate = `node_id = "gateway"
addr = "127.0.0.1:8080"
content_dir = "content"
cors_origins = ["http://localhost:3000"]
topology = ""
`

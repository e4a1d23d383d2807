package client

import (
	"os"

	"gitbridge/pkg/client"
)

const (
	envServer = "GITBRIDGE_SERVER"
	envOwner  = "GITBRIDGE_OWNER"

	defaultServer = "http://127.0.0.1:8080"
)

// New returns a new gitbridge client configured from the environment.
func New() (client.Client, error) {
	uri := os.Getenv(envServer)
	if uri == "" {
		uri = defaultServer
	}
	return client.NewClient(uri, os.Getenv(envOwner))
}

package gitclone

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// getAuthMethod picks credentials from the environment: GIT_TOKEN for HTTPS
// token auth, GIT_SSH for an SSH key path. Anonymous cloning is fine for
// public repositories, so no credentials is not an error.
func getAuthMethod(repoURL string) (transport.AuthMethod, error) {
	if token := os.Getenv("GIT_TOKEN"); token != "" {
		username := "oauth2"
		if strings.Contains(repoURL, "bitbucket.org") {
			username = "x-token-auth"
		}
		return &http.BasicAuth{Username: username, Password: token}, nil
	}
	if sshKeyPath := os.Getenv("GIT_SSH"); sshKeyPath != "" {
		publicKeys, err := ssh.NewPublicKeysFromFile("git", sshKeyPath, "")
		if err != nil {
			return nil, fmt.Errorf("error loading SSH key from %s: %w", sshKeyPath, err)
		}
		return publicKeys, nil
	}
	return nil, nil
}

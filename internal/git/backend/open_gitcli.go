//go:build gitcli

package backend

// Open opens the repository containing repoPath with the git executable backend.
func Open(repoPath string) (Backend, error) {
	return OpenCLI(repoPath)
}

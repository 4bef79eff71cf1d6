//go:build !gitcli

package backend

// Open opens the repository containing repoPath with the go-git backend.
func Open(repoPath string) (Backend, error) {
	return OpenNative(repoPath)
}

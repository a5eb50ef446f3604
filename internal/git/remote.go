package git

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	gogit "github.com/go-git/go-git/v5"
)

const (
	originRemoteName = "origin"
	gitSuffix        = ".git"
	scpUserSeparator = "@"
	scpPathSeparator = ":"
	urlSchemeMarker  = "://"
	pathSeparator    = "/"

	// errorRemoteFormat is used when the origin remote cannot be read.
	errorRemoteFormat = "reading %s remote: %w"
	// errorRemoteURLFormat is used when the origin URL does not name an owner and repository.
	errorRemoteURLFormat = "%w: %s"
)

var (
	// ErrNoRemote reports a repository without an origin remote URL.
	ErrNoRemote = errors.New("repository has no origin remote")
	// ErrUnrecognizedRemote reports an origin URL without an owner/repository path.
	ErrUnrecognizedRemote = errors.New("unrecognized remote URL")
)

// RepositoryInfo returns the owner and name parsed from the origin remote of the
// repository containing repositoryPath.
func RepositoryInfo(repositoryPath string) (string, string, error) {
	repository, openError := openRepository(repositoryPath)
	if openError != nil {
		return "", "", openError
	}
	remote, remoteError := repository.Remote(originRemoteName)
	if remoteError != nil {
		if errors.Is(remoteError, gogit.ErrRemoteNotFound) {
			return "", "", ErrNoRemote
		}
		return "", "", fmt.Errorf(errorRemoteFormat, originRemoteName, remoteError)
	}
	remoteURLs := remote.Config().URLs
	if len(remoteURLs) == 0 {
		return "", "", ErrNoRemote
	}
	return ParseRemoteURL(remoteURLs[0])
}

// ParseRemoteURL extracts owner and repository name from https, ssh and
// scp-style remote URLs.
func ParseRemoteURL(remoteURL string) (string, string, error) {
	remotePath := ""
	switch {
	case strings.Contains(remoteURL, urlSchemeMarker):
		parsedURL, parseError := url.Parse(remoteURL)
		if parseError != nil {
			return "", "", fmt.Errorf(errorRemoteURLFormat, ErrUnrecognizedRemote, remoteURL)
		}
		remotePath = parsedURL.Path
	case strings.Contains(remoteURL, scpPathSeparator):
		hostAndPath := remoteURL
		if userIndex := strings.Index(hostAndPath, scpUserSeparator); userIndex >= 0 {
			hostAndPath = hostAndPath[userIndex+1:]
		}
		remotePath = hostAndPath[strings.Index(hostAndPath, scpPathSeparator)+1:]
	default:
		return "", "", fmt.Errorf(errorRemoteURLFormat, ErrUnrecognizedRemote, remoteURL)
	}

	segments := strings.Split(strings.Trim(strings.TrimSuffix(remotePath, gitSuffix), pathSeparator), pathSeparator)
	if len(segments) < 2 || segments[len(segments)-2] == "" || segments[len(segments)-1] == "" {
		return "", "", fmt.Errorf(errorRemoteURLFormat, ErrUnrecognizedRemote, remoteURL)
	}
	return segments[len(segments)-2], segments[len(segments)-1], nil
}

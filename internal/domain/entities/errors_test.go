package entities

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFetchError_Transient(t *testing.T) {
	tests := []struct {
		name string
		err  *FetchError
		want bool
	}{
		{"network", &FetchError{Err: errors.New("connection refused")}, true},
		{"rate limited", &FetchError{StatusCode: 429}, true},
		{"server error", &FetchError{StatusCode: 503}, true},
		{"not found", &FetchError{StatusCode: 404}, false},
		{"malformed", &FetchError{StatusCode: 200, Malformed: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Transient())
		})
	}
}

func TestFetchError_Error(t *testing.T) {
	err := &FetchError{Op: "release", URL: "https://x", StatusCode: 404, Err: errors.New("not found")}
	assert.Equal(t, "fetch release https://x: HTTP 404: not found", err.Error())

	err = &FetchError{Op: "download", URL: "https://x/a.deb", Err: errors.New("timeout")}
	assert.Equal(t, "fetch download https://x/a.deb: timeout", err.Error())
}

func TestExternalToolFailure_Error(t *testing.T) {
	inner := errors.New("exit status 1")

	withStderr := &ExternalToolFailure{Tool: "createrepo", ExitCode: 1, Stderr: "  no space left\n", Err: inner}
	assert.Equal(t, "createrepo exited with code 1: no space left", withStderr.Error())

	withoutStderr := &ExternalToolFailure{Tool: "rpm", ExitCode: -1, Err: inner}
	assert.Equal(t, "rpm exited with code -1: exit status 1", withoutStderr.Error())
	assert.ErrorIs(t, withoutStderr, inner)
}

func TestFilesystemError_Unwrap(t *testing.T) {
	err := &FilesystemError{Op: "readdir", Path: "/srv/apt", Err: &fs.PathError{Op: "open", Path: "/srv/apt", Err: fs.ErrNotExist}}
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "readdir /srv/apt")
}

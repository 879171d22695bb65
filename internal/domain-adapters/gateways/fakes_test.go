package gateways

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/ochairo/reposync/internal/domain/interfaces/gateways"
)

// fakeRunner records commands and succeeds unless a failure is scripted for
// the program name
type fakeRunner struct {
	commands []gateways.Command
	failures map[string]int // program name -> exit code
	onRun    func(cmd gateways.Command)
}

func (r *fakeRunner) Run(_ context.Context, cmd gateways.Command) *gateways.CommandResult {
	r.commands = append(r.commands, cmd)
	if code, ok := r.failures[cmd.Name]; ok {
		return &gateways.CommandResult{
			ExitCode: code,
			Stderr:   cmd.Name + ": failed",
			Error:    errors.New("exit status"),
		}
	}
	if r.onRun != nil {
		r.onRun(cmd)
	}
	return &gateways.CommandResult{Success: true}
}

func (r *fakeRunner) names() []string {
	names := make([]string, 0, len(r.commands))
	for _, c := range r.commands {
		names = append(names, c.Name)
	}
	return names
}

// fakeSigner writes a placeholder signature beside existing files
type fakeSigner struct {
	signed []string
	err    error
}

func (s *fakeSigner) Sign(_ context.Context, path string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	s.signed = append(s.signed, path)
	return path + ".asc", os.WriteFile(path+".asc", []byte("sig"), 0600)
}

// createrepoStub emulates createrepo by writing repodata/repomd.xml under the
// directory argument
func createrepoStub(cmd gateways.Command) {
	if cmd.Name != "createrepo" || len(cmd.Args) == 0 {
		return
	}
	repodata := filepath.Join(cmd.Args[len(cmd.Args)-1], "repodata")
	_ = os.MkdirAll(repodata, 0755)
	_ = os.WriteFile(filepath.Join(repodata, "repomd.xml"), []byte("<repomd/>"), 0600)
}

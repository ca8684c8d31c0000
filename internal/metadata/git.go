package metadata

import (
	"context"
	"encoding/json"
	"os/exec"
	"strings"
)

// TreeState describes the working tree. The zero value is TreeUnknown, used
// whenever git could not answer.
type TreeState int

const (
	TreeUnknown TreeState = iota
	TreeClean
	TreeDirty
)

func (s TreeState) String() string {
	switch s {
	case TreeClean:
		return "clean"
	case TreeDirty:
		return "dirty"
	default:
		return "unknown"
	}
}

// GitInfo is the repository state at submission time.
type GitInfo struct {
	Hash   string
	Branch string
	State  TreeState
}

type gitInfoJSON struct {
	Hash    string `json:"hash"`
	Branch  string `json:"branch"`
	IsClean *bool  `json:"is_clean"`
	State   string `json:"state"`
}

// MarshalJSON writes is_clean as null when the state is unknown.
func (g GitInfo) MarshalJSON() ([]byte, error) {
	out := gitInfoJSON{Hash: g.Hash, Branch: g.Branch, State: g.State.String()}
	if g.State != TreeUnknown {
		clean := g.State == TreeClean
		out.IsClean = &clean
	}
	return json.Marshal(out)
}

func (g *GitInfo) UnmarshalJSON(data []byte) error {
	var in gitInfoJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	g.Hash = in.Hash
	g.Branch = in.Branch
	switch {
	case in.State == "clean":
		g.State = TreeClean
	case in.State == "dirty":
		g.State = TreeDirty
	case in.State == "" && in.IsClean != nil:
		g.State = TreeDirty
		if *in.IsClean {
			g.State = TreeClean
		}
	default:
		g.State = TreeUnknown
	}
	return nil
}

// VersionControl reports repository state.
type VersionControl interface {
	Info(ctx context.Context) GitInfo
}

// GitCLI queries the git binary in Dir (the current directory when empty).
type GitCLI struct {
	Bin string
	Dir string
}

// NewGitCLI returns a GitCLI using git from PATH.
func NewGitCLI() *GitCLI {
	return &GitCLI{Bin: "git"}
}

// Info runs three read-only git queries. Any failure (not a repository, git
// missing) yields empty hash and branch with an unknown tree state.
func (g *GitCLI) Info(ctx context.Context) GitInfo {
	hash, err := g.output(ctx, "rev-parse", "HEAD")
	if err != nil {
		return GitInfo{}
	}
	branch, err := g.output(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return GitInfo{}
	}
	status, err := g.output(ctx, "status", "--porcelain")
	if err != nil {
		return GitInfo{}
	}

	state := TreeClean
	if status != "" {
		state = TreeDirty
	}
	return GitInfo{Hash: hash, Branch: branch, State: state}
}

func (g *GitCLI) output(ctx context.Context, args ...string) (string, error) {
	bin := g.Bin
	if bin == "" {
		bin = "git"
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = g.Dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

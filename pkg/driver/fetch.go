package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/rs/zerolog"
)

// FetchOptions describes a suite repository to clone or update.
type FetchOptions struct {
	URL      string
	Ref      string
	CacheDir string
	Logger   zerolog.Logger
}

// FetchResult tells where a fetched repository was checked out.
type FetchResult struct {
	Dir    string
	Commit string
}

// FetchSuites clones opts.URL into the cache directory, or pulls when a
// checkout already exists, then checks out opts.Ref if one is given.
func FetchSuites(ctx context.Context, opts FetchOptions) (*FetchResult, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, fmt.Errorf("fetch: repository url required")
	}
	if err := os.MkdirAll(opts.CacheDir, 0o755); err != nil {
		return nil, err
	}
	dir := filepath.Join(opts.CacheDir, checkoutName(opts.URL))
	logger := opts.Logger.With().Str("url", opts.URL).Str("dir", dir).Logger()

	repo, err := git.PlainOpen(dir)
	switch {
	case errors.Is(err, git.ErrRepositoryNotExists):
		logger.Info().Msg("cloning suite repository")
		repo, err = git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{URL: opts.URL})
		if err != nil {
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("git clone %s: %w", opts.URL, err)
		}
	case err != nil:
		return nil, fmt.Errorf("open %s: %w", dir, err)
	default:
		logger.Info().Msg("updating suite repository")
		if err := repo.FetchContext(ctx, &git.FetchOptions{Tags: git.AllTags}); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return nil, fmt.Errorf("git fetch %s: %w", opts.URL, err)
		}
	}

	hash, err := resolveRef(repo, opts.Ref)
	if err != nil {
		return nil, err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, err
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		return nil, fmt.Errorf("git checkout %s: %w", hash, err)
	}
	logger.Debug().Str("commit", hash.String()).Msg("checked out")
	return &FetchResult{Dir: dir, Commit: hash.String()}, nil
}

// resolveRef finds ref among tags, remote branches and raw revisions. An
// empty ref means the remote's default branch.
func resolveRef(repo *git.Repository, ref string) (*plumbing.Hash, error) {
	ref = strings.TrimSpace(ref)
	candidates := []string{"refs/remotes/origin/HEAD", "HEAD"}
	if ref != "" {
		candidates = []string{"refs/tags/" + ref, "refs/remotes/origin/" + ref, ref}
	}
	var lastErr error
	for _, candidate := range candidates {
		hash, err := repo.ResolveRevision(plumbing.Revision(candidate))
		if err == nil {
			return hash, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("resolve revision %q: %w", ref, lastErr)
}

// checkoutName derives a directory name from a repository url.
func checkoutName(url string) string {
	url = strings.TrimSuffix(strings.TrimRight(url, "/"), ".git")
	if k := strings.LastIndexAny(url, "/:"); k >= 0 {
		url = url[k+1:]
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return "suites"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '@':
			return '_'
		}
		return r
	}, url)
}

package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// initSuiteRepo creates a local repository with one committed suite and a
// tag pointing at that commit.
func initSuiteRepo(t *testing.T) (string, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "upstream-suites")
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "basics.yml"), []byte(passingSuite), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("basics.yml")
	require.NoError(t, err)
	hash, err := wt.Commit("add basics suite", &git.CommitOptions{
		Author: &object.Signature{Name: "suite author", Email: "suites@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	_, err = repo.CreateTag("v1", hash, nil)
	require.NoError(t, err)
	return dir, hash.String()
}

func TestFetchSuitesClonesAndUpdates(t *testing.T) {
	upstream, commit := initSuiteRepo(t)
	cache := t.TempDir()
	opts := FetchOptions{URL: upstream, CacheDir: cache, Logger: zerolog.Nop()}

	res, err := FetchSuites(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(cache, "upstream-suites"), res.Dir)
	require.Equal(t, commit, res.Commit)
	require.FileExists(t, filepath.Join(res.Dir, "basics.yml"))

	opts.Ref = "v1"
	again, err := FetchSuites(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, commit, again.Commit)
}

func TestFetchSuitesUnknownRef(t *testing.T) {
	upstream, _ := initSuiteRepo(t)
	_, err := FetchSuites(context.Background(), FetchOptions{URL: upstream, Ref: "no-such-ref", CacheDir: t.TempDir()})
	require.ErrorContains(t, err, "resolve revision")
}

func TestCheckoutName(t *testing.T) {
	require.Equal(t, "r-suites", checkoutName("https://example.com/org/r-suites.git"))
	require.Equal(t, "repo", checkoutName("git@example.com:org/repo.git"))
	require.Equal(t, "suites", checkoutName(""))
}

package driver

import (
	"context"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const passingSuite = `name: basics
cases:
  - name: arithmetic
    source: "1 + 1"
    output: "[1] 2\n"
  - name: unbound symbol
    source: "y"
    error: "object 'y' not found"
  - name: warning recorded
    source: 'f <- function() { warning("careful"); 1 }; invisible(f())'
    output: ""
    warnings: [careful]
  - name: skipped
    source: "stop('never run')"
    ignore: true
`

const failingSuite = `cases:
  - name: wrong output
    source: "c(1, 2)"
    output: |
      [1] 1 3
  - name: error expected
    source: "1"
    error: "boom"
`

func writeSuite(t *testing.T, fs billy.Filesystem, name, content string) {
	t.Helper()
	require.NoError(t, util.WriteFile(fs, name, []byte(content), 0o644))
}

func newRunner() *Runner {
	return &Runner{Config: DefaultConfig(), Logger: zerolog.Nop()}
}

func TestLoadSuite(t *testing.T) {
	fs := memfs.New()
	writeSuite(t, fs, "suites/basics.yml", passingSuite)

	suite, err := LoadSuite(fs, "suites/basics.yml")
	require.NoError(t, err)
	require.Equal(t, "basics", suite.Name)
	require.Len(t, suite.Cases, 4)
	require.NotNil(t, suite.Cases[0].Output)
	require.Nil(t, suite.Cases[1].Output)
	require.True(t, suite.Cases[3].Ignore)
}

func TestLoadSuiteNameDefaultsToFileName(t *testing.T) {
	fs := memfs.New()
	writeSuite(t, fs, "extra.yaml", failingSuite)
	suite, err := LoadSuite(fs, "extra.yaml")
	require.NoError(t, err)
	require.Equal(t, "extra", suite.Name)
}

func TestLoadSuiteRejectsBadCases(t *testing.T) {
	fs := memfs.New()
	writeSuite(t, fs, "bad.yml", "cases:\n  - name: empty\n    source: \"\"\n")
	_, err := LoadSuite(fs, "bad.yml")
	require.ErrorContains(t, err, "has no source")

	writeSuite(t, fs, "unknown.yml", "cases:\n  - name: x\n    source: \"1\"\n    expected: 1\n")
	_, err = LoadSuite(fs, "unknown.yml")
	require.Error(t, err)
}

func TestDiscoverSuites(t *testing.T) {
	fs := memfs.New()
	writeSuite(t, fs, "tests/b.yml", passingSuite)
	writeSuite(t, fs, "tests/nested/a.yaml", passingSuite)
	writeSuite(t, fs, "tests/readme.md", "not a suite")
	writeSuite(t, fs, "tests/.hidden/c.yml", passingSuite)

	files, err := DiscoverSuites(fs, "tests")
	require.NoError(t, err)
	require.Equal(t, []string{"tests/b.yml", "tests/nested/a.yaml"}, files)

	_, err = DiscoverSuites(fs, "missing")
	require.Error(t, err)
}

func TestRunnerPassingSuite(t *testing.T) {
	fs := memfs.New()
	writeSuite(t, fs, "tests/basics.yml", passingSuite)

	report, err := newRunner().Run(context.Background(), fs, "tests")
	require.NoError(t, err)
	require.Empty(t, report.Failures())
	require.Equal(t, 3, report.Passed)
	require.Equal(t, 1, report.Skipped)
}

func TestRunnerReportsFailures(t *testing.T) {
	fs := memfs.New()
	writeSuite(t, fs, "failing.yml", failingSuite)

	report, err := newRunner().Run(context.Background(), fs, "failing.yml")
	require.NoError(t, err)
	require.Equal(t, 2, report.Failed)
	failures := report.Failures()
	require.Contains(t, failures[0].Failure, "- [1] 1 3")
	require.Contains(t, failures[0].Failure, "+ [1] 1 2")
	require.Contains(t, failures[1].Failure, `expected error "boom"`)
}

func TestRunnerOnDisk(t *testing.T) {
	fs := osfs.New("testdata")
	report, err := newRunner().Run(context.Background(), fs, "suites")
	require.NoError(t, err)
	for _, f := range report.Failures() {
		t.Errorf("%s / %s:\n%s", f.Suite, f.Case, f.Failure)
	}
	require.Greater(t, report.Passed, 0)
}

func TestNormalizeOutput(t *testing.T) {
	require.Equal(t, "a\n b", normalizeOutput("a  \n b\t\n\n"))
}

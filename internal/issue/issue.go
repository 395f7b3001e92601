// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ProjectNotInitializedId Id = iota + 1
	MetaParseErrorId
	IntegrityViolationId
	DownloadFailedId
	ConformanceFailedId
	TestsFailedId
	ConfigLoadFailedId
	ToolNotFoundId
	ContainerEngineNotFoundId
	InvalidBumpDirectiveId
	PublishFailedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id
	mdMsg    MarkdownMsg
	docLinks []HttpLink
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// Render returns the help page styled for the terminal. stylePath is a
// glamour style name ("dark", "light", "notty") or a JSON style file.
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	projectNotInitializedIssue = &Issue{
		id: ProjectNotInitializedId,
		mdMsg: `
# This directory is not an spvm project

spvm keeps its metadata in ` + "`pyp.json`" + ` at the project root and could not find it.

## Things you can try:
- Initialize the project; spvm guesses the metadata from pyproject.toml, git and the tree:
~~~
$ spvm init
~~~
- Or run spvm from the project root (or pass ` + "`--project <dir>`" + `)`,
	}

	metaParseErrorIssue = &Issue{
		id: MetaParseErrorId,
		mdMsg: `
# pyp.json is invalid

The project metadata did not validate. The message above names the offending field.

## Things you can try:
- Versions are dotted non-negative integers, e.g. ` + "`1.4.0`" + `
- Every field is optional; delete a broken field to get its default back
- Comments and trailing commas are accepted, but the document is rewritten without them`,
	}

	integrityViolationIssue = &Issue{
		id: IntegrityViolationId,
		mdMsg: `
# Package integrity violation

A downloaded artifact did not match the digest published by the index, or its
detached signature is invalid. **Nothing was installed.**

## What this means:
- The file was altered between the index and your machine, or
- The index metadata and the mirror you downloaded from disagree

## Things you can try:
- Retry later; a broken mirror is the most common cause
- Check the index URL in your configuration (` + "`index.url`" + `)
- Report the package to its maintainers if the problem persists`,
	}

	downloadFailedIssue = &Issue{
		id: DownloadFailedId,
		mdMsg: `
# Could not download the requested packages

pip failed to fetch one of the requested specifiers; the whole batch was aborted.

## Things you can try:
- Check the specifier spelling and that the version exists on the index
- Check your network connection and proxy settings
- Run with ` + "`--verbose`" + ` to see pip's output`,
	}

	conformanceFailedIssue = &Issue{
		id: ConformanceFailedId,
		mdMsg: `
# The code is not conform

pyflakes or pycodestyle reported problems and the release was stopped.

## Things you can try:
- List the problems:
~~~
$ spvm status -s
~~~
- Fix them automatically where possible:
~~~
$ spvm repair
~~~
- Ignore specific codes with ` + "`project_vcs.ignored_conformance_codes`" + ` in pyp.json
- Make the check non-fatal for one release with ` + "`-n`",
	}

	testsFailedIssue = &Issue{
		id: TestsFailedId,
		mdMsg: `
# Tests failed

pytest reported failures; the release was stopped before the version bump.

## Things you can try:
- Run the tests on their own:
~~~
$ spvm test
~~~
- Skip them for one release with ` + "`--no-test`" + ` (not recommended)`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load the configuration

## Things you can try:
- Show where spvm looks for its configuration:
~~~
$ spvm config path
~~~
- Print the effective configuration:
~~~
$ spvm config show
~~~
- Regenerate a default file with ` + "`spvm config init`",
	}

	toolNotFoundIssue = &Issue{
		id: ToolNotFoundId,
		mdMsg: `
# A required tool is missing

spvm drives external tools: python (with pip, pyflakes, pycodestyle, pytest,
autopep8, twine), git and gpg.

## Things you can try:
- Install the Python tooling in the interpreter spvm uses:
~~~
$ python3 -m pip install pyflakes pycodestyle pytest autopep8 twine wheel
~~~
- Point spvm at another interpreter with ` + "`python.interpreter`" + ` in the configuration
- Install gpg and git with your system package manager`,
	}

	containerEngineNotFoundIssue = &Issue{
		id: ContainerEngineNotFoundId,
		mdMsg: `
# No container engine available

The project has a Dockerfile and a docker_repository, but neither Docker nor
Podman could be reached.

## Things you can try:
- Start the Docker daemon or install Podman
- Select the engine explicitly with ` + "`container.engine`" + ` in the configuration
- Clear ` + "`project_vcs.docker_repository`" + ` to stop publishing images`,
	}

	invalidBumpDirectiveIssue = &Issue{
		id: InvalidBumpDirectiveId,
		mdMsg: `
# Invalid version bump

A bump is one of ` + "`major`, `minor`, `patch`, `pass`" + ` or the zero-based index of
the version component to increment.

## Examples:
~~~
$ spvm release minor     # 1.4.2 -> 1.5.0
$ spvm release 3         # 1.4.2.7 -> 1.4.2.8
$ spvm release pass      # publish the current version again
~~~`,
	}

	publishFailedIssue = &Issue{
		id: PublishFailedId,
		mdMsg: `
# Publishing failed

The version was already bumped and saved when publishing started; nothing is rolled back.

## Things you can try:
- Fix the reported problem and resume without bumping again:
~~~
$ spvm publish          # every destination
$ spvm publish pypi     # a single destination
~~~`,
	}

	issues = map[Id]*Issue{
		projectNotInitializedIssue.Id():   projectNotInitializedIssue,
		metaParseErrorIssue.Id():          metaParseErrorIssue,
		integrityViolationIssue.Id():      integrityViolationIssue,
		downloadFailedIssue.Id():          downloadFailedIssue,
		conformanceFailedIssue.Id():       conformanceFailedIssue,
		testsFailedIssue.Id():             testsFailedIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		toolNotFoundIssue.Id():            toolNotFoundIssue,
		containerEngineNotFoundIssue.Id(): containerEngineNotFoundIssue,
		invalidBumpDirectiveIssue.Id():    invalidBumpDirectiveIssue,
		publishFailedIssue.Id():           publishFailedIssue,
	}
)

// Values returns every catalog entry ordered by id.
func Values() []*Issue {
	all := make([]*Issue, 0, len(issues))
	for _, is := range maps.Values(issues) {
		all = append(all, is)
	}
	slices.SortFunc(all, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return all
}

func Get(id Id) *Issue {
	return issues[id]
}

// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

type Id int

const (
	ModsRootNotFoundId Id = iota + 1
	ManifestInvalidId
	ModListInvalidId
	UnknownModId
	DocumentParseErrorId
	CategoryConflictId
	DuplicateIDId
	MissingDocumentId
	ValidationFailedId
	ConfigLoadFailedId
	SchemaExportFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
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

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	var extraMd strings.Builder
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			extraMd.WriteString("\n- <" + string(link) + ">")
		}
		for _, link := range i.extLinks {
			extraMd.WriteString("\n- <" + string(link) + ">")
		}
	}
	return render(string(i.mdMsg)+extraMd.String(), stylePath)
}

var (
	render = glamour.Render

	modsRootNotFoundIssue = &Issue{
		id: ModsRootNotFoundId,
		mdMsg: `
# Mods directory not found!

The pipeline needs a mods root: a directory holding one folder per mod.

## Things you can try:
- Point modkit at the right directory:
~~~
$ modkit --mods-root ./mods load
~~~

- Or set it once in your configuration:
~~~cue
mods_root: "/path/to/game/mods"
~~~

- Check the effective value:
~~~
$ modkit config show
~~~`,
	}

	manifestInvalidIssue = &Issue{
		id: ManifestInvalidId,
		mdMsg: `
# Invalid mod manifest!

Every mod folder needs a ` + "`mod.cue`" + ` manifest. Mods with a missing or
invalid manifest stay in the mod list but are not loaded.

## Example manifest:
~~~cue
name:        "Heavy Armor Pack"
version:     "1.2.0"
description: "Adds plated armor blocks"
~~~

## Things you can try:
- Run ` + "`modkit mods list`" + ` to see the diagnostics for each folder
- Check that ` + "`version`" + ` is a semantic version such as "1.2.0"`,
	}

	modListInvalidIssue = &Issue{
		id: ModListInvalidId,
		mdMsg: `
# Invalid mod list!

The persisted mod list could not be read.

## Things you can try:
- Fix the syntax reported above, or delete the file to rebuild it from the
  mod folders on the next run:
~~~
$ rm mods/modlist.cue
$ modkit mods list
~~~`,
	}

	unknownModIssue = &Issue{
		id: UnknownModId,
		mdMsg: `
# Mod not found!

No mod folder with that name exists in the mod list.

## Things you can try:
- List the known mods and their folders:
~~~
$ modkit mods list
~~~

- Mods are addressed by folder name, not by display name`,
	}

	documentParseErrorIssue = &Issue{
		id: DocumentParseErrorId,
		mdMsg: `
# Failed to parse a document!

A content document could not be parsed. The document is skipped and the rest
of the mod still loads.

## Supported formats:
- CUE (` + "`.cue`" + `)
- JSON (` + "`.json`" + `)
- YAML (` + "`.yaml`" + `, ` + "`.yml`" + `)
- TOML (` + "`.toml`" + `)

## Things you can try:
- Check the line and column reported above
- Run with verbose mode for the full error chain:
~~~
$ modkit --verbose load
~~~`,
	}

	categoryConflictIssue = &Issue{
		id: CategoryConflictId,
		mdMsg: `
# Conflicting category registration!

Two categories were registered with the same name but different types.
This is a programming error in the content catalog, not in a mod.`,
	}

	duplicateIDIssue = &Issue{
		id: DuplicateIDId,
		mdMsg: `
# Duplicate content id!

Two documents in the same category resolve to the same id. Ids must be unique
within a category because other content refers to them.

## Things you can try:
- Rename one of the documents, or
- Change the explicit ` + "`id`" + ` field in one of them:
~~~yaml
id: heavy_armor_mk2
~~~`,
	}

	missingDocumentIssue = &Issue{
		id: MissingDocumentId,
		mdMsg: `
# Required document missing!

The game cannot start without its required documents, such as the default
rules.

## Things you can try:
- Make sure an enabled mod provides ` + "`rules/default`" + `
- If the document exists, fix the validation errors reported for it`,
	}

	validationFailedIssue = &Issue{
		id: ValidationFailedId,
		mdMsg: `
# Content failed validation!

Some instances were rejected. Each error names the category, the id and the
field that failed.

## Things you can try:
- Export the schemas and compare your documents against them:
~~~
$ modkit schema export --out schemas
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the modkit configuration file.

## Configuration file locations:
- Linux: ~/.config/modkit/config.cue
- macOS: ~/Library/Application Support/modkit/config.cue
- Windows: %APPDATA%\modkit\config.cue
- A ` + "`config.cue`" + ` in the current directory

## Example configuration:
~~~cue
mods_root:      "mods"
checksum_level: "strict"
watch: debounce: "300ms"
~~~`,
	}

	schemaExportFailedIssue = &Issue{
		id: SchemaExportFailedId,
		mdMsg: `
# Failed to export schemas!

The schema documents could not be written.

## Things you can try:
- Check that the output directory is writable
- Choose another directory:
~~~
$ modkit schema export --out /tmp/schemas
~~~`,
	}

	issues = map[Id]*Issue{
		modsRootNotFoundIssue.Id():   modsRootNotFoundIssue,
		manifestInvalidIssue.Id():    manifestInvalidIssue,
		modListInvalidIssue.Id():     modListInvalidIssue,
		unknownModIssue.Id():         unknownModIssue,
		documentParseErrorIssue.Id(): documentParseErrorIssue,
		categoryConflictIssue.Id():   categoryConflictIssue,
		duplicateIDIssue.Id():        duplicateIDIssue,
		missingDocumentIssue.Id():    missingDocumentIssue,
		validationFailedIssue.Id():   validationFailedIssue,
		configLoadFailedIssue.Id():   configLoadFailedIssue,
		schemaExportFailedIssue.Id(): schemaExportFailedIssue,
	}
)

// Values returns all issues ordered by Id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int {
		return cmp.Compare(a.id, b.id)
	})
}

func Get(id Id) *Issue {
	return issues[id]
}

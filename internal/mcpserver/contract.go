package mcpserver

// KataLayoutContract describes how a kata folder is laid out so LLM
// consumers can create and fill katas that katac knows how to run.
const KataLayoutContract = `# katac Kata Layout

A kata is a folder inside the workspace katas directory. Its folder name is the
kata name. katac copies the whole folder into the next day folder
(` + "`" + `days/day<N>/<kata>` + "`" + `) and runs it from there.

## Runner

katac picks the first runner it finds in the kata folder:

1. ` + "`" + `Makefile` + "`" + ` with a ` + "`" + `run` + "`" + ` target, executed as ` + "`" + `make run -s` + "`" + ` (only when make is installed).
2. ` + "`" + `run.sh` + "`" + ` on Linux and macOS (must be executable), ` + "`" + `run.bat` + "`" + ` on Windows.

A kata copied without a runner gets a default one seeded into its day folder: a ` + "`" + `Makefile` + "`" + ` when make is installed, otherwise the OS run script.

## Metadata

An optional ` + "`" + `README.md` + "`" + ` may start with YAML frontmatter:

` + "```" + `markdown
---
title: Reverse a string          # shown by list_katas
tags: [strings, easy]            # YAML list or comma separated string
description: One line summary    # falls back to the first paragraph
---

Exercise statement in Markdown.
` + "```" + `

## Rules

1. Kata names are folder names: no path separators, no leading dot.
2. Keep the exercise self contained: everything needed to run it lives in the folder.
3. Never edit katas inside ` + "`" + `days/` + "`" + `; change the source kata instead.
`

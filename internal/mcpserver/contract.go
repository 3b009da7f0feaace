package mcpserver

// ContentFormatContract describes the content file format that LLM
// consumers should follow when creating records.
const ContentFormatContract = `# sitedesk Content Format

Every record is a UTF-8 Markdown (` + "`.md`" + `) or MDX (` + "`.mdx`" + `) file under the content
root, laid out as ` + "`<collection>/<lang-or-path>/<slug>.md`" + `.

## Structure

` + "```" + `markdown
---
title: Human-readable title     # used in listings and search
description: One-line summary
pubDate: 2024-01-15             # unquoted YAML date
lang: en                        # optional; defaults to the first path segment, then en
draft: false                    # OPTIONAL, default false
tags:                           # OPTIONAL block list of strings
  - go
  - web
---

Body text in Markdown or MDX.
` + "```" + `

## Rules

1. **The frontmatter block is mandatory.** The ` + "`---`" + ` line must be the first line of
   the file and a second ` + "`---`" + ` line closes the block. Files without it are not
   content and are skipped by every listing.
2. **The block is a YAML mapping.** Keys are English schema field names; values may
   be strings, numbers, booleans, dates, lists or nested mappings.
3. **Record ids** are ` + "`collection/slug`" + ` with forward slashes and no extension, e.g.
   ` + "`articles/en/hello-world`" + `. The collection is the first directory under the root.
4. **Tags** are a list of strings. They are trimmed and Unicode-normalised when counted.
5. **Hidden paths**: files or directories starting with ` + "`.`" + ` or ` + "`_`" + ` are ignored.
6. **Every write keeps a backup** of the previous version next to the file as
   ` + "`<file>.bak`" + `. Deleting renames the file with a ` + "`.deleted-<UTC timestamp>`" + ` suffix.

## Example

` + "```" + `markdown
---
title: Notes on the Go scheduler
description: What GOMAXPROCS actually changes
pubDate: 2024-03-09
tags:
  - go
  - runtime
---

The scheduler multiplexes goroutines onto OS threads.
` + "```" + `
`

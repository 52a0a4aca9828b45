// Package install registers the vecmem MCP server with AI coding agents.
package install

// SkillMarkdown teaches an agent when to use the memory tools. It is appended
// to agents that read free-form instructions.
const SkillMarkdown = `
---
name: vector-memory
description: Long-term semantic memory for documents. Save files once, recall relevant passages later by meaning.
---

## When to use this skill

Use the vector-memory tools to remember PDF, text and markdown files across
sessions and to recall the passages that answer a question, even when the
wording differs from the source.

## How to use

- ` + "`save_to_memory`" + ` with ` + "`file_paths`" + ` to remember files. Saving a file again
  replaces what was stored for it.
- ` + "`recall_from_memory`" + ` with ` + "`what_to_remember`" + ` (and optionally
  ` + "`how_many_results`" + `, default 3) to get the most relevant passages.
- ` + "`list_memories`" + ` and ` + "`search_memories`" + ` to see what is stored.

### Do

- Recall with a specific question: "what retry policy did we choose for uploads"
- Save design documents and notes you will need again

### Don't

- Recall with a single generic word like "config"
- Call ` + "`forget_everything`" + ` unless the user asked for it

## Keywords
memory, remember, recall, notes, documents, semantic search
`

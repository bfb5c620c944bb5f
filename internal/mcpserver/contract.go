package mcpserver

// NoteFormatContract describes notes for LLM consumers of the MCP tools.
const NoteFormatContract = `# Jotter Note Format

A note is a JSON object. Jotter stores every field you send as is and adds
one integer field, "id".

## Rules

1. Send a JSON object, for example {"title":"Groceries","text":"milk, eggs"}.
2. Do not choose an id. Any "id" you send is replaced by the next free id,
   which is one more than the largest id currently stored.
3. Field names and values are not validated. Nested objects and arrays are
   kept verbatim, in the order sent.
4. Notes cannot be edited. To change a note, delete it and create a new one.
5. Deleting an id that does not exist succeeds and changes nothing.
`

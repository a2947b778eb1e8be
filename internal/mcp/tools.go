package mcp

import "github.com/mark3labs/mcp-go/mcp"

// settingsDescription documents the shared settings object accepted by the
// compression tools.
const settingsDescription = `Compression settings. Object with "mode" ("uniform" or "tiered"); ` +
	`uniform mode takes {"uniform": {"compaction_ratio", "aggressiveness"}}, tiered mode takes ` +
	`{"tiered": {"tier_preset"}} or {"tiered": {"tiers": [...]}}. Shared options: "model", ` +
	`"remove_non_conversation", "skip_first_messages". Aggressiveness levels: light, moderate, aggressive. ` +
	`Omit for default uniform/moderate settings.`

var trackToolDef = mcp.NewTool("session_track",
	mcp.WithDescription("Register a conversation log file as a tracked session so it can be compressed."),
	mcp.WithString("project_id", mcp.Required(), mcp.Description("Project the session belongs to")),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
	mcp.WithString("file", mcp.Required(), mcp.Description("Path to the session's JSONL source log")),
)

var statusToolDef = mcp.NewTool("session_status",
	mcp.WithDescription("Detect a session's uncompressed delta without compressing anything (dry run)."),
	mcp.WithString("project_id", mcp.Required(), mcp.Description("Project the session belongs to")),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
)

var compressDeltaToolDef = mcp.NewTool("compress_delta",
	mcp.WithDescription("Compress the session's newly appended messages as a new part. "+
		"Fails with NO_DELTA when nothing new exists and COMPRESSION_IN_PROGRESS when the session is locked."),
	mcp.WithString("project_id", mcp.Required(), mcp.Description("Project the session belongs to")),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
	mcp.WithObject("settings", mcp.Description(settingsDescription)),
)

var recompressPartToolDef = mcp.NewTool("recompress_part",
	mcp.WithDescription("Re-compress an existing part at a different compression level. "+
		"Fails with VERSION_EXISTS when the part already has a record at that level."),
	mcp.WithString("project_id", mcp.Required(), mcp.Description("Project the session belongs to")),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
	mcp.WithNumber("part_number", mcp.Required(), mcp.Description("Part to re-compress (>= 1)")),
	mcp.WithObject("settings", mcp.Description(settingsDescription)),
)

var listToolDef = mcp.NewTool("version_list",
	mcp.WithDescription("List a project's tracked sessions, or one session's compression versions grouped by part. "+
		"Orphaned artifact files are reported alongside."),
	mcp.WithString("project_id", mcp.Required(), mcp.Description("Project to list")),
	mcp.WithString("session_id", mcp.Description("Optional session; when present, versions are listed instead of sessions")),
)

var showToolDef = mcp.NewTool("version_show",
	mcp.WithDescription("Read back one compression version's artifact."),
	mcp.WithString("project_id", mcp.Required(), mcp.Description("Project the session belongs to")),
	mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
	mcp.WithString("version_id", mcp.Description("Version id (e.g. part1_v001); either this or file is required")),
	mcp.WithString("file", mcp.Description("Base artifact filename (e.g. compressed_part1_v2)")),
	mcp.WithString("format", mcp.Description("Artifact representation: markdown (default), jsonl, or html")),
)

package mcp

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query to run against the active index version"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"maximum number of results, default 5, capped at 50"`
}

// SearchAdvancedInput defines the input schema for the search_advanced tool.
type SearchAdvancedInput struct {
	Query      string `json:"query" jsonschema:"the search query to run against the active index version"`
	TopK       int    `json:"top_k,omitempty" jsonschema:"number of results after reranking, default 5"`
	RerankTopK int    `json:"rerank_top_k,omitempty" jsonschema:"candidate window retrieved before reranking, default 20, never below top_k"`
}

// ResultOutput is one search hit.
type ResultOutput struct {
	ID       string         `json:"id,omitempty" jsonschema:"chunk identifier assigned by the backend"`
	Content  string         `json:"content" jsonschema:"matched document fragment"`
	Score    float64        `json:"score" jsonschema:"relevance score, higher is better"`
	Metadata map[string]any `json:"metadata,omitempty" jsonschema:"source document metadata"`
}

// SearchOutput defines the output schema shared by both search tools.
type SearchOutput struct {
	Query     string         `json:"query" jsonschema:"the query as sent upstream"`
	VersionID string         `json:"version_id" jsonschema:"index version the search ran against"`
	Count     int            `json:"count" jsonschema:"number of results returned"`
	Reranked  bool           `json:"reranked" jsonschema:"true when the reranking stage was applied"`
	Cached    bool           `json:"cached,omitempty" jsonschema:"true when served from the result cache"`
	Results   []ResultOutput `json:"results"`
}

// StartIndexingInput defines the input schema for the start_indexing tool.
type StartIndexingInput struct {
	SourcePrefix string   `json:"source_prefix,omitempty" jsonschema:"storage prefix of the documents to index, defaults to the configured documents prefix"`
	Extensions   []string `json:"extensions,omitempty" jsonschema:"file extensions to include, defaults to the configured sync extensions"`
	Description  string   `json:"description,omitempty" jsonschema:"free-form note attached to the indexing run"`
}

// StartIndexingOutput defines the output schema for the start_indexing tool.
type StartIndexingOutput struct {
	JobID       string `json:"job_id,omitempty" jsonschema:"backend job identifier, empty if the backend did not report one"`
	Status      string `json:"status" jsonschema:"always 'submitted' on success"`
	SubmittedAt string `json:"submitted_at" jsonschema:"submission time, RFC 3339"`
	Note        string `json:"note" jsonschema:"reminder that the new version appears in the catalog asynchronously"`
}

// GetVersionsInput defines the input schema for the get_versions tool
// (no parameters).
type GetVersionsInput struct{}

// VersionOutput is one catalog entry.
type VersionOutput struct {
	VersionID    string `json:"version_id"`
	Status       string `json:"status" jsonschema:"PENDING, RUNNING, READY or FAILED"`
	CreatedAt    string `json:"created_at" jsonschema:"creation time, RFC 3339"`
	SourcePrefix string `json:"source_prefix,omitempty"`
	FileCount    int    `json:"file_count,omitempty"`
	Active       bool   `json:"active,omitempty" jsonschema:"true for the version searches currently run against"`
}

// GetVersionsOutput defines the output schema for the get_versions tool.
type GetVersionsOutput struct {
	ActiveVersionID  string          `json:"active_version_id,omitempty" jsonschema:"currently active version, empty when unset"`
	Count            int             `json:"count"`
	SkippedMalformed int             `json:"skipped_malformed,omitempty" jsonschema:"catalog entries that could not be parsed"`
	Versions         []VersionOutput `json:"versions"`
}

// UpdateActiveVersionInput defines the input schema for the
// update_active_version tool.
type UpdateActiveVersionInput struct {
	VersionID string `json:"version_id,omitempty" jsonschema:"version to activate; omit to auto-select the latest READY version"`
}

// UpdateActiveVersionOutput defines the output schema for the
// update_active_version tool.
type UpdateActiveVersionOutput struct {
	Applied  string `json:"applied" jsonschema:"version now active"`
	Previous string `json:"previous,omitempty" jsonschema:"version active before this call, empty if none"`
	Changed  bool   `json:"changed" jsonschema:"false when the applied version was already active"`
}

// StorageUploadInput defines the input schema for the storage_upload tool.
type StorageUploadInput struct {
	Key         string `json:"key" jsonschema:"object key to write"`
	Content     string `json:"content" jsonschema:"object content as text"`
	ContentType string `json:"content_type,omitempty" jsonschema:"MIME type, inferred from the key extension when omitted"`
}

// StorageUploadOutput defines the output schema for the storage_upload tool.
type StorageUploadOutput struct {
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// StorageDownloadInput defines the input schema for the storage_download tool.
type StorageDownloadInput struct {
	Key string `json:"key" jsonschema:"object key to read"`
}

// StorageDownloadOutput defines the output schema for the storage_download tool.
type StorageDownloadOutput struct {
	Key         string `json:"key"`
	Content     string `json:"content" jsonschema:"object content; base64 when encoding is set"`
	Encoding    string `json:"encoding,omitempty" jsonschema:"'base64' for binary objects, absent for text"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// StorageListInput defines the input schema for the storage_list tool.
type StorageListInput struct {
	Prefix  string `json:"prefix,omitempty" jsonschema:"key prefix to list, empty lists the whole bucket"`
	MaxKeys int    `json:"max_keys,omitempty" jsonschema:"maximum keys to return, default 100, capped at 1000"`
}

// StorageObjectOutput is one listed object.
type StorageObjectOutput struct {
	Key          string `json:"key"`
	Size         int64  `json:"size"`
	LastModified string `json:"last_modified" jsonschema:"RFC 3339"`
}

// StorageListOutput defines the output schema for the storage_list tool.
type StorageListOutput struct {
	Prefix    string                `json:"prefix,omitempty"`
	Count     int                   `json:"count"`
	Truncated bool                  `json:"truncated,omitempty" jsonschema:"true when more keys exist beyond max_keys"`
	Objects   []StorageObjectOutput `json:"objects"`
}

// StorageDeleteInput defines the input schema for the storage_delete tool.
type StorageDeleteInput struct {
	Key string `json:"key" jsonschema:"object key to delete"`
}

// StorageDeleteOutput defines the output schema for the storage_delete tool.
type StorageDeleteOutput struct {
	Key     string `json:"key"`
	Deleted bool   `json:"deleted"`
}

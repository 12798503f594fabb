package models

// Information keys written by the archiver itself.
const (
	InfoKeyWorkspaceID = "team_id"
	InfoKeyVersion     = "__version"

	SchemaVersion = "1.0.0"
)

// Information is one key/value pair of workspace metadata.
type Information struct {
	Key   string `db:"key" json:"key"`
	Value string `db:"value" json:"value"`
}

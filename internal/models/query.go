package models

// Roles understood by the access matrix.
const (
	RoleStudent         = "student"
	RoleDocumentOfficer = "document_officer"
	RoleUniversityAdmin = "university_admin"
	RoleMinistryAdmin   = "ministry_admin"
	RoleDeveloper       = "developer"
)

// UserContext identifies the caller for role-scoped retrieval.
type UserContext struct {
	UserID        string `json:"user_id"`
	Role          string `json:"role"`
	InstitutionID string `json:"institution_id,omitempty"`
}

// Query intents recognized by the lightweight classifier.
const (
	IntentQA         = "qa"
	IntentComparison = "comparison"
	IntentCount      = "count"
	IntentList       = "list"
)

// QueryIntent is the classifier output: an intent plus filters
// extracted from the question text.
type QueryIntent struct {
	Intent      string   `json:"intent"`
	Years       []int    `json:"years,omitempty"`
	Languages   []string `json:"languages,omitempty"`
	Types       []string `json:"types,omitempty"`
	DocumentIDs []string `json:"document_ids,omitempty"`
}

// ResultChunk is one retrieved chunk with its provenance metadata.
type ResultChunk struct {
	DocID          string  `json:"doc_id"`
	ChunkIndex     int     `json:"chunk_index"`
	Text           string  `json:"text"`
	Filename       string  `json:"filename"`
	SectionHeader  string  `json:"section_header,omitempty"`
	ApprovalStatus string  `json:"approval_status"`
	Score          float64 `json:"score"`
}

// Response format variants; the wire format is chosen before the
// handler returns.
const (
	FormatText       = "text"
	FormatList       = "list"
	FormatCount      = "count"
	FormatComparison = "comparison"
)

// Citation ties an answer back to a source document.
type Citation struct {
	DocID          string  `json:"doc_id"`
	Source         string  `json:"source"`
	ApprovalStatus string  `json:"approval_status"`
	Score          float64 `json:"score"`
}

// QueryResponse is the closed answer envelope for /chat/query.
// AnswerHTML is the rendered form of the markdown answer.
type QueryResponse struct {
	Answer     string      `json:"answer"`
	AnswerHTML string      `json:"answer_html,omitempty"`
	Format     string      `json:"format"`
	Data       interface{} `json:"data,omitempty"`
	Citations  []Citation  `json:"citations"`
	Confidence float64     `json:"confidence"`
}

// ComparisonCell is one document's answer for one comparison aspect.
type ComparisonCell struct {
	DocID string `json:"doc_id"`
	Value string `json:"value"`
}

// ComparisonRow is one aspect compared across documents.
type ComparisonRow struct {
	Aspect string           `json:"aspect"`
	Cells  []ComparisonCell `json:"cells"`
}

// ComparisonResult is the structured matrix for /documents/compare.
type ComparisonResult struct {
	Documents []string        `json:"documents"`
	Rows      []ComparisonRow `json:"rows"`
	Summary   string          `json:"summary,omitempty"`
}

// Conflict is one detected disagreement between two documents.
type Conflict struct {
	Aspect      string `json:"aspect"`
	DocA        string `json:"doc_a"`
	DocB        string `json:"doc_b"`
	StatementA  string `json:"statement_a"`
	StatementB  string `json:"statement_b"`
	Severity    string `json:"severity"`
	Explanation string `json:"explanation,omitempty"`
}

package models

// RedFlagType classifies a structured warning attached to a review.
type RedFlagType string

const (
	FlagHardcodedSecret RedFlagType = "hardcoded-secret"
	FlagSecurityVuln    RedFlagType = "security-vulnerability"
	FlagCopiedCode      RedFlagType = "copied-code"
	FlagMissingTests    RedFlagType = "missing-tests"
	FlagIncompleteImpl  RedFlagType = "incomplete-implementation"
	FlagGasInefficiency RedFlagType = "gas-inefficiency"
)

// RedFlagSeverity is how serious a red flag is.
type RedFlagSeverity string

const (
	FlagSeverityCritical RedFlagSeverity = "critical"
	FlagSeverityWarning  RedFlagSeverity = "warning"
	FlagSeverityInfo     RedFlagSeverity = "info"
)

// RedFlag is a structured warning produced by the model.
type RedFlag struct {
	Type        RedFlagType     `json:"type"`
	Severity    RedFlagSeverity `json:"severity"`
	Description string          `json:"description"`
	File        string          `json:"file,omitempty"`
	Line        int             `json:"line,omitempty"`
}

// Suggested label tags derived from a review. These are free-form tags,
// distinct from the EarnLabel outcome enum.
const (
	LabelTagExcellent           = "excellent"
	LabelTagHighQuality         = "high-quality"
	LabelTagNeedsReview         = "needs-review"
	LabelTagNeedsRevision       = "needs-revision"
	LabelTagSecurityConcern     = "security-concern"
	LabelTagPotentialPlagiarism = "potential-plagiarism"
	LabelTagIncomplete          = "incomplete"
)

// CategoryScore is a scored review dimension in [0,100].
type CategoryScore struct {
	Score float64 `json:"score"`
	Notes string  `json:"notes,omitempty"`
}

// ReviewIssue is a single concrete problem found in the code. Issues are
// concatenated across chunks without deduplication; each carries its own
// provenance.
type ReviewIssue struct {
	Severity    string `json:"severity"`
	Description string `json:"description"`
	File        string `json:"file,omitempty"`
	Line        int    `json:"line,omitempty"`
}

// Evidence ties a matched requirement to a location in the code.
type Evidence struct {
	Requirement string `json:"requirement"`
	File        string `json:"file,omitempty"`
	Line        int    `json:"line,omitempty"`
	Excerpt     string `json:"excerpt,omitempty"`
}

// ReviewResult is the structured, scored output of one model invocation
// (or of aggregating several chunk invocations). All scores are in
// [0,100]; Confidence is the model's self-reported reliability in [0,1].
type ReviewResult struct {
	OverallScore     float64       `json:"overallScore"`
	RequirementMatch CategoryScore `json:"requirementMatch"`
	CodeQuality      CategoryScore `json:"codeQuality"`
	Completeness     CategoryScore `json:"completeness"`
	Security         CategoryScore `json:"security"`

	Confidence float64   `json:"confidence"`
	RedFlags   []RedFlag `json:"redFlags"`

	MatchedRequirements []string `json:"matchedRequirements"`
	MissingRequirements []string `json:"missingRequirements"`
	Strengths           []string `json:"strengths"`
	SolanaFindings      []string `json:"solanaFindings,omitempty"`

	Issues   []ReviewIssue `json:"issues"`
	Evidence []Evidence    `json:"evidence,omitempty"`

	Summary         string   `json:"summary"`
	DetailedNotes   string   `json:"detailedNotes"`
	SuggestedLabels []string `json:"suggestedLabels"`
}

// GeneratedReview is a ReviewResult plus generation accounting.
type GeneratedReview struct {
	ReviewResult

	TokensUsed    int     `json:"tokensUsed"`
	ModelUsed     string  `json:"modelUsed"`
	EstimatedCost float64 `json:"estimatedCost"`
}

// EarnLabel is the final categorical outcome assigned to a submission.
type EarnLabel string

const (
	LabelShortlisted EarnLabel = "Shortlisted"
	LabelHighQuality EarnLabel = "High_Quality"
	LabelMidQuality  EarnLabel = "Mid_Quality"
	LabelLowQuality  EarnLabel = "Low_Quality"
	LabelNeedsReview EarnLabel = "Needs_Review"
	LabelSpam        EarnLabel = "Spam"
)

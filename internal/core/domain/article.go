package domain

// Article is the destination-shaped document record. Field names and
// nesting follow the DOAJ article API; JSON tags produce the exact wire
// shape the destination accepts.
type Article struct {
	// ID is the destination identifier. Empty until the document has been
	// created at the destination.
	ID string `json:"id,omitempty"`

	CreatedDate string `json:"created_date,omitempty"`
	LastUpdated string `json:"last_updated,omitempty"`

	Bibjson Bibjson `json:"bibjson"`

	// EsType is the destination's document type hint.
	EsType string `json:"es_type,omitempty"`
}

// Bibjson is the bibliographic payload of an Article.
type Bibjson struct {
	Abstract   string              `json:"abstract,omitempty"`
	Author     []ArticleAuthor     `json:"author,omitempty"`
	Identifier []ArticleIdentifier `json:"identifier,omitempty"`
	Journal    ArticleJournal      `json:"journal"`
	Keywords   []string            `json:"keywords,omitempty"`
	Link       []ArticleLink       `json:"link,omitempty"`
	Title      string              `json:"title"`
	Month      int                 `json:"month,omitempty"`
	Year       string              `json:"year,omitempty"`
}

// ArticleAuthor is one author in the destination schema.
type ArticleAuthor struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
	OrcidID     string `json:"orcid_id,omitempty"`
}

// ArticleIdentifier is a typed identifier (eissn, pissn, doi).
type ArticleIdentifier struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// ArticleJournal is the journal block of the destination schema.
type ArticleJournal struct {
	Title     string   `json:"title"`
	Publisher string   `json:"publisher"`
	Country   string   `json:"country"`
	Language  []string `json:"language"`
	Volume    string   `json:"volume,omitempty"`
	Number    string   `json:"number,omitempty"`
	StartPage string   `json:"start_page,omitempty"`
	EndPage   string   `json:"end_page,omitempty"`
}

// ArticleLink is a full-text link with its MIME content type.
type ArticleLink struct {
	ContentType string `json:"content_type"`
	Type        string `json:"type"`
	URL         string `json:"url"`
}

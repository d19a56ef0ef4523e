package domain

// Identifier locates one document in the source catalogue.
type Identifier struct {
	// PID is the persistent identifier of the document.
	PID string

	// Collection is the source collection code the document belongs to.
	Collection string

	// ProcessingDate is the source last-modified date (YYYY-MM-DD).
	ProcessingDate string
}

// Author is one document author as recorded in the source catalogue.
type Author struct {
	GivenNames string
	Surname    string

	// ORCID is the bare ORCID identifier without the https://orcid.org/
	// prefix, e.g. "0000-0002-1825-0097". May be empty.
	ORCID string

	// AffiliationIndex cross-references Journal affiliations, e.g. "aff1".
	AffiliationIndex string
}

// Affiliation is an institution referenced by one or more authors.
type Affiliation struct {
	Index       string
	Institution string
}

// Journal carries the journal-level metadata of a source document.
type Journal struct {
	Title            string
	PublisherName    string
	PublisherCountry string // ISO country code
	Languages        []string
	ElectronicISSN   string
	PrintISSN        string
}

// Issue carries the issue-level metadata of a source document.
type Issue struct {
	Volume           string
	Number           string
	SupplementNumber string
	SupplementVolume string

	// PublicationDate is the issue publication date (YYYY-MM-DD or YYYY-MM).
	PublicationDate string

	// Sections maps section code to titles by language.
	Sections map[string]map[string]string
}

// SourceDocument is the canonical bibliographic record as found in the
// source catalogue. The exporter treats it as read-only input; the schema
// mapper derives the destination record from it and nothing else.
type SourceDocument struct {
	PID        string
	Collection string

	Journal Journal
	Issue   Issue

	// Title is the original-language document title. May be empty, in
	// which case the mapper falls back to the issue section title.
	Title string

	// SectionCode selects the issue section this document belongs to.
	SectionCode string

	// OriginalLanguage is the language code of the original text.
	OriginalLanguage string

	// Abstracts maps language code to abstract text.
	Abstracts map[string]string

	// Keywords maps language code to keyword list.
	Keywords map[string][]string

	Authors      []Author
	Affiliations []Affiliation

	DOI string

	// FullTexts maps content kind ("html", "pdf") to URL by language.
	FullTexts map[string]map[string]string

	// DocumentType is the source document type, e.g. "research-article".
	DocumentType string

	StartPage string
	EndPage   string

	// PublicationDate is the document publication date. Falls back to the
	// issue publication date when empty.
	PublicationDate string

	// ProcessingDate is the source last-modified date (YYYY-MM-DD).
	ProcessingDate string
}

// ISSNs returns the journal ISSNs in preference order (electronic first),
// omitting empty values.
func (d *SourceDocument) ISSNs() []string {
	issns := make([]string, 0, 2)
	if d.Journal.ElectronicISSN != "" {
		issns = append(issns, d.Journal.ElectronicISSN)
	}
	if d.Journal.PrintISSN != "" {
		issns = append(issns, d.Journal.PrintISSN)
	}
	return issns
}

// Package doaj maps source catalogue documents into the destination
// article schema. Mapping is pure and deterministic: the same source
// record always produces the same article, and the mapper never performs
// network I/O. Timestamps are stamped by an injected clock so tests can
// fix them.
package doaj

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/scieloorg/doaj-exporter/internal/core/domain"
)

const (
	orcidURL = "https://orcid.org"

	// untitledFallback is used when neither the document nor its issue
	// section provides a title.
	untitledFallback = "Untitled document"
)

var (
	orcidPattern        = regexp.MustCompile(`^https://orcid\.org/[0-9]{4}-[0-9]{4}-[0-9]{4}-\d{3}[\dX]$`)
	leadingZeroPattern  = regexp.MustCompile(`^0 `)
	trailingZeroPattern = regexp.MustCompile(` 0$`)
)

// mimeTypes maps source full-text kinds to destination content types.
var mimeTypes = map[string]string{
	"html": "text/html",
	"pdf":  "application/pdf",
}

// Mapper converts SourceDocument records into destination Articles.
type Mapper struct {
	now func() time.Time
}

// New creates a mapper stamping timestamps with time.Now in UTC.
func New() *Mapper {
	return NewWithClock(time.Now)
}

// NewWithClock creates a mapper with a fixed clock. Used by tests and by
// bulk runs that want one timestamp across a batch.
func NewWithClock(now func() time.Time) *Mapper {
	return &Mapper{now: now}
}

// Map derives the destination record for doc. It fails with
// domain.ErrMapping when a required destination field has no derivable
// source value. The input document is never mutated.
func (m *Mapper) Map(doc *domain.SourceDocument) (*domain.Article, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}

	article := &domain.Article{}

	stamp := m.now().UTC().Format(time.RFC3339)
	article.CreatedDate = stamp
	article.LastUpdated = stamp

	if err := m.setTitle(article, doc); err != nil {
		return nil, err
	}
	if err := m.setAuthors(article, doc); err != nil {
		return nil, err
	}
	if err := m.setIdentifiers(article, doc); err != nil {
		return nil, err
	}
	if err := m.setJournal(article, doc); err != nil {
		return nil, err
	}
	if err := m.setLinks(article, doc); err != nil {
		return nil, err
	}
	m.setAbstract(article, doc)
	m.setKeywords(article, doc)
	m.setMonthAndYear(article, doc)

	if doc.DocumentType != "" {
		article.EsType = doc.DocumentType
	}

	return article, nil
}

// setTitle fills the article title, falling back to the document's issue
// section title in the original language.
func (m *Mapper) setTitle(article *domain.Article, doc *domain.SourceDocument) error {
	title := doc.Title
	if title == "" {
		if byLang, ok := doc.Issue.Sections[doc.SectionCode]; ok {
			title = byLang[doc.OriginalLanguage]
		}
	}
	if title == "" {
		title = untitledFallback
	}
	article.Bibjson.Title = title
	return nil
}

// setAuthors maps authors with affiliation and ORCID. A document without
// authors cannot be represented at the destination.
func (m *Mapper) setAuthors(article *domain.Article, doc *domain.SourceDocument) error {
	if len(doc.Authors) == 0 {
		return fmt.Errorf("%w: document %s has no authors", domain.ErrMapping, doc.PID)
	}

	institutions := make(map[string]string, len(doc.Affiliations))
	for _, aff := range doc.Affiliations {
		institutions[aff.Index] = aff.Institution
	}

	authors := make([]domain.ArticleAuthor, 0, len(doc.Authors))
	for _, author := range doc.Authors {
		mapped := domain.ArticleAuthor{
			Name: strings.TrimSpace(author.GivenNames + " " + author.Surname),
		}
		if author.AffiliationIndex != "" {
			mapped.Affiliation = institutions[author.AffiliationIndex]
		}
		if author.ORCID != "" {
			candidate := orcidURL + "/" + author.ORCID
			if orcidPattern.MatchString(candidate) {
				mapped.OrcidID = candidate
			}
		}
		authors = append(authors, mapped)
	}
	article.Bibjson.Author = authors
	return nil
}

// setIdentifiers records the journal ISSN (electronic preferred) and the
// DOI when present. The ISSN is resolved from the source record alone.
func (m *Mapper) setIdentifiers(article *domain.Article, doc *domain.SourceDocument) error {
	var identifiers []domain.ArticleIdentifier

	switch {
	case doc.Journal.ElectronicISSN != "":
		identifiers = append(identifiers, domain.ArticleIdentifier{
			ID: doc.Journal.ElectronicISSN, Type: "eissn",
		})
	case doc.Journal.PrintISSN != "":
		identifiers = append(identifiers, domain.ArticleIdentifier{
			ID: doc.Journal.PrintISSN, Type: "pissn",
		})
	default:
		return fmt.Errorf("%w: document %s has no journal ISSN", domain.ErrMapping, doc.PID)
	}

	if doc.DOI != "" {
		identifiers = append(identifiers, domain.ArticleIdentifier{ID: doc.DOI, Type: "doi"})
	}

	article.Bibjson.Identifier = identifiers
	return nil
}

// setJournal fills the journal block. Title, publisher, language and
// country are required by the destination.
func (m *Mapper) setJournal(article *domain.Article, doc *domain.SourceDocument) error {
	journal := domain.ArticleJournal{
		Title:     doc.Journal.Title,
		Publisher: doc.Journal.PublisherName,
		Country:   doc.Journal.PublisherCountry,
		Language:  doc.Journal.Languages,
	}

	switch {
	case journal.Title == "":
		return fmt.Errorf("%w: document %s has no journal title", domain.ErrMapping, doc.PID)
	case journal.Publisher == "":
		return fmt.Errorf("%w: document %s has no journal publisher", domain.ErrMapping, doc.PID)
	case journal.Country == "":
		return fmt.Errorf("%w: document %s has no publisher country", domain.ErrMapping, doc.PID)
	case len(journal.Language) == 0:
		return fmt.Errorf("%w: document %s has no journal language", domain.ErrMapping, doc.PID)
	}

	journal.Volume = doc.Issue.Volume
	journal.Number = issueNumber(doc.Issue)
	journal.StartPage = doc.StartPage
	journal.EndPage = doc.EndPage

	article.Bibjson.Journal = journal
	return nil
}

// setLinks maps full-text links with their MIME types. A document without
// either a DOI or at least one full-text link is not exportable.
func (m *Mapper) setLinks(article *domain.Article, doc *domain.SourceDocument) error {
	var links []domain.ArticleLink

	// Kinds iterated in fixed order to keep output deterministic.
	for _, kind := range []string{"html", "pdf"} {
		byLang, ok := doc.FullTexts[kind]
		if !ok {
			continue
		}
		for _, lang := range sortedKeys(byLang) {
			url := byLang[lang]
			if url == "" {
				continue
			}
			links = append(links, domain.ArticleLink{
				ContentType: mimeTypes[kind],
				Type:        "fulltext",
				URL:         url,
			})
		}
	}

	if len(links) == 0 && doc.DOI == "" {
		return fmt.Errorf("%w: document %s has neither DOI nor full-text links", domain.ErrMapping, doc.PID)
	}

	article.Bibjson.Link = links
	return nil
}

// setAbstract records the abstract in the document's original language.
func (m *Mapper) setAbstract(article *domain.Article, doc *domain.SourceDocument) {
	article.Bibjson.Abstract = doc.Abstracts[doc.OriginalLanguage]
}

// setKeywords records the keywords in the document's original language.
func (m *Mapper) setKeywords(article *domain.Article, doc *domain.SourceDocument) {
	if kw := doc.Keywords[doc.OriginalLanguage]; len(kw) > 0 {
		article.Bibjson.Keywords = kw
	}
}

// setMonthAndYear parses the publication date, accepting YYYY-MM-DD then
// YYYY-MM. Anything else is carried as a raw year string.
func (m *Mapper) setMonthAndYear(article *domain.Article, doc *domain.SourceDocument) {
	raw := doc.PublicationDate
	if raw == "" {
		raw = doc.Issue.PublicationDate
	}
	if raw == "" {
		return
	}

	for _, layout := range []string{"2006-01-02", "2006-01"} {
		if date, err := time.Parse(layout, raw); err == nil {
			article.Bibjson.Month = int(date.Month())
			article.Bibjson.Year = fmt.Sprintf("%d", date.Year())
			return
		}
	}
	article.Bibjson.Year = raw
}

// issueNumber builds the destination issue label: the bare number with any
// "ahead" marker removed, supplement suffixes appended, and stray zero
// segments trimmed.
func issueNumber(issue domain.Issue) string {
	label := strings.ReplaceAll(issue.Number, "ahead", "")

	if issue.SupplementNumber != "" {
		label += " suppl " + issue.SupplementNumber
	}
	if issue.SupplementVolume != "" {
		label += " suppl " + issue.SupplementVolume
	}

	label = leadingZeroPattern.ReplaceAllString(label, "")
	label = trailingZeroPattern.ReplaceAllString(label, "")
	return strings.TrimSpace(label)
}

// sortedKeys returns the map keys in lexical order.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

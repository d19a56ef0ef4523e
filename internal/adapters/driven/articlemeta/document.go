package articlemeta

import (
	"encoding/json"
	"fmt"

	"github.com/scieloorg/doaj-exporter/internal/core/domain"
)

// wireDocument is the catalogue's JSON document payload.
type wireDocument struct {
	Code           string `json:"code"`
	Collection     string `json:"collection"`
	ProcessingDate string `json:"processing_date"`

	Journal wireJournal `json:"journal"`
	Issue   wireIssue   `json:"issue"`

	Title            string `json:"title"`
	SectionCode      string `json:"section_code"`
	OriginalLanguage string `json:"original_language"`
	DocumentType     string `json:"document_type"`
	DOI              string `json:"doi"`

	Abstracts map[string]string   `json:"abstracts"`
	Keywords  map[string][]string `json:"keywords"`

	Authors      []wireAuthor      `json:"authors"`
	Affiliations []wireAffiliation `json:"affiliations"`

	FullTexts map[string]map[string]string `json:"fulltexts"`

	StartPage       string `json:"start_page"`
	EndPage         string `json:"end_page"`
	PublicationDate string `json:"publication_date"`
}

type wireJournal struct {
	Title            string   `json:"title"`
	PublisherName    string   `json:"publisher_name"`
	PublisherCountry string   `json:"publisher_country"`
	Languages        []string `json:"languages"`
	ElectronicISSN   string   `json:"electronic_issn"`
	PrintISSN        string   `json:"print_issn"`
}

type wireIssue struct {
	Volume           string                       `json:"volume"`
	Number           string                       `json:"number"`
	SupplementNumber string                       `json:"supplement_number"`
	SupplementVolume string                       `json:"supplement_volume"`
	PublicationDate  string                       `json:"publication_date"`
	Sections         map[string]map[string]string `json:"sections"`
}

type wireAuthor struct {
	GivenNames       string `json:"given_names"`
	Surname          string `json:"surname"`
	ORCID            string `json:"orcid"`
	AffiliationIndex string `json:"xref"`
}

type wireAffiliation struct {
	Index       string `json:"index"`
	Institution string `json:"institution"`
}

// wireIdentifierPage is one page of the identifiers listing.
type wireIdentifierPage struct {
	Meta struct {
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
		Total  int `json:"total"`
	} `json:"meta"`
	Objects []wireIdentifier `json:"objects"`
}

type wireIdentifier struct {
	Code           string `json:"code"`
	Collection     string `json:"collection"`
	ProcessingDate string `json:"processing_date"`
}

// unmarshalPage decodes one page of the identifiers listing.
func unmarshalPage(data []byte, page *wireIdentifierPage) error {
	if err := json.Unmarshal(data, page); err != nil {
		return fmt.Errorf("decoding identifiers page: %w", err)
	}
	return nil
}

// parseDocument decodes a document payload into the domain record.
func parseDocument(data []byte) (*domain.SourceDocument, error) {
	var wire wireDocument
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	if wire.Code == "" {
		return nil, fmt.Errorf("%w: document payload has no code", domain.ErrNotFound)
	}
	return wire.toDomain(), nil
}

func (w *wireDocument) toDomain() *domain.SourceDocument {
	doc := &domain.SourceDocument{
		PID:        w.Code,
		Collection: w.Collection,
		Journal: domain.Journal{
			Title:            w.Journal.Title,
			PublisherName:    w.Journal.PublisherName,
			PublisherCountry: w.Journal.PublisherCountry,
			Languages:        w.Journal.Languages,
			ElectronicISSN:   w.Journal.ElectronicISSN,
			PrintISSN:        w.Journal.PrintISSN,
		},
		Issue: domain.Issue{
			Volume:           w.Issue.Volume,
			Number:           w.Issue.Number,
			SupplementNumber: w.Issue.SupplementNumber,
			SupplementVolume: w.Issue.SupplementVolume,
			PublicationDate:  w.Issue.PublicationDate,
			Sections:         w.Issue.Sections,
		},
		Title:            w.Title,
		SectionCode:      w.SectionCode,
		OriginalLanguage: w.OriginalLanguage,
		Abstracts:        w.Abstracts,
		Keywords:         w.Keywords,
		DOI:              w.DOI,
		FullTexts:        w.FullTexts,
		DocumentType:     w.DocumentType,
		StartPage:        w.StartPage,
		EndPage:          w.EndPage,
		PublicationDate:  w.PublicationDate,
		ProcessingDate:   w.ProcessingDate,
	}

	for _, a := range w.Authors {
		doc.Authors = append(doc.Authors, domain.Author{
			GivenNames:       a.GivenNames,
			Surname:          a.Surname,
			ORCID:            a.ORCID,
			AffiliationIndex: a.AffiliationIndex,
		})
	}
	for _, aff := range w.Affiliations {
		doc.Affiliations = append(doc.Affiliations, domain.Affiliation{
			Index:       aff.Index,
			Institution: aff.Institution,
		})
	}
	return doc
}

package ingest

import (
	"bytes"
	"path/filepath"
	"strings"

	"parcelscope/internal/domain"
)

var filenameKeywords = []struct {
	keywords []string
	docType  domain.DocumentType
}{
	{[]string{"plat"}, domain.DocumentTypePlat},
	{[]string{"survey"}, domain.DocumentTypeSurvey},
	{[]string{"parcel"}, domain.DocumentTypeParcelMap},
	{[]string{"legal", "deed"}, domain.DocumentTypeLegalDescription},
}

var legalPhrases = [][]byte{
	[]byte("thence"),
	[]byte("point of beginning"),
	[]byte("commencing"),
}

// DetectDocumentType guesses the document type from an optional caller hint,
// the filename and the first bytes of content. A known hint always wins.
// Content keywords are only consulted for text files.
func DetectDocumentType(filename string, head []byte, hint string) domain.DocumentType {
	if hint != "" {
		if dt, ok := domain.ParseDocumentType(strings.ToLower(strings.TrimSpace(hint))); ok {
			return dt
		}
	}

	base := strings.ToLower(filepath.Base(filename))
	for _, fk := range filenameKeywords {
		for _, kw := range fk.keywords {
			if strings.Contains(base, kw) {
				return fk.docType
			}
		}
	}

	if strings.EqualFold(filepath.Ext(filename), ".txt") {
		lower := bytes.ToLower(head)
		for _, phrase := range legalPhrases {
			if bytes.Contains(lower, phrase) {
				return domain.DocumentTypeLegalDescription
			}
		}
	}

	return domain.DocumentTypeUnknown
}
